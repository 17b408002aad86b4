// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"strings"

	"github.com/stratastor/netfix/pkg/netfix/rename"
	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// InterfacesFixer repairs Debian /etc/network/interfaces files. Editing is
// line-based: stanzas are located by their "iface" headers and only the
// lines a fix touches are rewritten.
type InterfacesFixer struct{}

func (f *InterfacesFixer) Type() types.ConfigType { return types.ConfigTypeInterfaces }

// ifaceStanza tracks one "iface <name> <family> <method>" block.
type ifaceStanza struct {
	name      string
	method    string
	headIdx   int
	hasAddr   bool
	hwaddrIdx []int
	driverIdx []int
}

func (f *InterfacesFixer) Fix(run *types.RunContext, rec *types.ConfigRecord,
	topo *topology.Graph, renames rename.Map, level types.FixLevel,
) (*types.FixResult, error) {
	lines := strings.Split(rec.Content, "\n")
	res := &types.FixResult{}

	stanzas := scanStanzas(lines)
	changed := false

	for i := range stanzas {
		st := &stanzas[i]

		for _, idx := range st.driverIdx {
			lines[idx] = commentLine(lines[idx])
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixHypervisorParamRemoved, st.name))
			changed = true
		}

		if level.AtLeast(types.LevelModerate) {
			for _, idx := range st.hwaddrIdx {
				lines[idx] = commentLine(lines[idx])
				res.AppliedFixes = append(res.AppliedFixes,
					types.FixID(types.FixMACPinningRemoved, st.name))
				changed = true
			}
		}

		// A static stanza without an address line is an orphan left behind
		// by hypervisor tooling; DHCP is the safe replacement.
		if level.AtLeast(types.LevelModerate) &&
			st.method == "static" && !st.hasAddr &&
			!topo.IsLowerLayerMember(st.name) {
			lines[st.headIdx] = strings.Replace(lines[st.headIdx], " static", " dhcp", 1)
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixStaticToDHCP, st.name))
			changed = true
		}
	}

	if level.AtLeast(types.LevelAggressive) && len(renames) > 0 {
		if renameInterfacesLines(lines, renames, res) {
			changed = true
		}
	}

	if changed {
		res.NewContent = strings.Join(lines, "\n")
	} else {
		res.NewContent = rec.Content
	}
	return res, nil
}

func scanStanzas(lines []string) []ifaceStanza {
	var stanzas []ifaceStanza
	var cur *ifaceStanza
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		fields := strings.Fields(trimmed)
		if len(fields) == 0 || strings.HasPrefix(trimmed, "#") {
			continue
		}
		switch fields[0] {
		case "iface":
			stanzas = append(stanzas, ifaceStanza{headIdx: i})
			cur = &stanzas[len(stanzas)-1]
			if len(fields) > 1 {
				cur.name = fields[1]
			}
			if len(fields) > 3 {
				cur.method = fields[3]
			}
		case "auto", "allow-hotplug", "source", "source-directory", "mapping":
			cur = nil
		default:
			if cur == nil {
				continue
			}
			switch {
			case fields[0] == "address":
				cur.hasAddr = true
			case fields[0] == "hwaddress":
				cur.hwaddrIdx = append(cur.hwaddrIdx, i)
			case mentionsHypervisorDriver(trimmed):
				cur.driverIdx = append(cur.driverIdx, i)
			}
		}
	}
	return stanzas
}

// renameInterfacesLines rewrites device names wherever the syntax names a
// device: iface/auto/allow-hotplug headers and the member lists of
// bond-slaves, bridge_ports and vlan-raw-device options.
func renameInterfacesLines(lines []string, renames rename.Map, res *types.FixResult) bool {
	changed := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields := strings.Fields(trimmed)
		switch fields[0] {
		case "iface":
			if len(fields) > 1 {
				if next, ok := renames[fields[1]]; ok {
					lines[i] = replaceToken(line, fields[1], next)
					res.AppliedFixes = append(res.AppliedFixes,
						types.RenameID(types.FixDeviceRenamed, fields[1], next))
					changed = true
				}
			}
		case "auto", "allow-hotplug":
			for _, name := range fields[1:] {
				if next, ok := renames[name]; ok {
					lines[i] = replaceToken(lines[i], name, next)
					res.AppliedFixes = append(res.AppliedFixes,
						types.FixID(types.FixReferenceRenamed, name))
					changed = true
				}
			}
		case "bond-slaves", "bridge_ports", "bridge-ports", "vlan-raw-device", "bond-master":
			for _, name := range fields[1:] {
				if next, ok := renames[name]; ok {
					lines[i] = replaceToken(lines[i], name, next)
					res.AppliedFixes = append(res.AppliedFixes,
						types.FixID(types.FixReferenceRenamed, name))
					changed = true
				}
			}
		}
	}
	return changed
}

// replaceToken swaps a whitespace-delimited token without disturbing the
// line's spacing.
func replaceToken(line, old, next string) string {
	fields := strings.Fields(line)
	for _, fld := range fields {
		if fld == old {
			return replaceFirstToken(line, old, next)
		}
	}
	return line
}

func replaceFirstToken(line, old, next string) string {
	idx := 0
	for {
		pos := strings.Index(line[idx:], old)
		if pos < 0 {
			return line
		}
		pos += idx
		before := pos == 0 || line[pos-1] == ' ' || line[pos-1] == '\t'
		endPos := pos + len(old)
		after := endPos == len(line) || line[endPos] == ' ' || line[endPos] == '\t'
		if before && after {
			return line[:pos] + next + line[endPos:]
		}
		idx = endPos
	}
}

func commentLine(line string) string {
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	return indent + "# " + strings.TrimLeft(line, " \t") + "  # " + commentTag
}
