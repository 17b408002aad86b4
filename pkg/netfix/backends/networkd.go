// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"strings"

	"github.com/stratastor/netfix/pkg/netfix/rename"
	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// NetworkdFixer repairs systemd-networkd .network, .netdev and .link files.
// Files are edited line by line inside their INI sections so comments and
// ordering survive.
type NetworkdFixer struct{}

func (f *NetworkdFixer) Type() types.ConfigType { return types.ConfigTypeNetworkd }

var networkdDHCPValues = map[string]bool{
	"yes": true, "no": true, "true": true, "false": true,
	"ipv4": true, "ipv6": true,
}

// Static addressing and membership keys in a [Network] section. A section
// carrying any of these must not be switched to DHCP.
var networkdStaticKeys = map[string]bool{
	"Address": true, "Gateway": true, "DNS": true,
	"Bond": true, "Bridge": true, "VLAN": true,
}

func (f *NetworkdFixer) Fix(run *types.RunContext, rec *types.ConfigRecord,
	topo *topology.Graph, renames rename.Map, level types.FixLevel,
) (*types.FixResult, error) {
	lines := strings.Split(rec.Content, "\n")
	res := &types.FixResult{}
	changed := false

	device := networkdDeviceName(lines)

	section := ""
	networkHeaderIdx := -1
	networkHasDHCP := false
	networkHasStatic := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section = strings.Trim(trimmed, "[]")
			if section == "Network" && networkHeaderIdx < 0 {
				networkHeaderIdx = i
			}
			continue
		}
		key, value, ok := splitNetworkdKV(trimmed)
		if !ok {
			continue
		}

		switch section {
		case "Match":
			switch key {
			case "Driver":
				if mentionsHypervisorDriver(value) {
					lines[i] = commentLine(line)
					res.AppliedFixes = append(res.AppliedFixes,
						types.FixID(types.FixHypervisorDriverRemoved, key))
					changed = true
				}
			case "MACAddress", "PermanentMACAddress":
				if level.AtLeast(types.LevelModerate) {
					lines[i] = commentLine(line)
					res.AppliedFixes = append(res.AppliedFixes,
						types.FixID(types.FixMACPinningRemoved, key))
					changed = true
				}
			case "Name":
				if level.AtLeast(types.LevelAggressive) {
					if renameNameList(lines, i, value, renames, res) {
						changed = true
					}
				}
			}
		case "Network":
			switch {
			case key == "DHCP":
				networkHasDHCP = true
				if level.AtLeast(types.LevelAggressive) &&
					!networkdDHCPValues[strings.ToLower(value)] {
					lines[i] = rewriteNetworkdValue(line, "yes")
					res.AppliedFixes = append(res.AppliedFixes,
						types.FixID(types.FixDHCPNormalized, device))
					changed = true
				}
			case networkdStaticKeys[key]:
				networkHasStatic = true
				if level.AtLeast(types.LevelAggressive) &&
					(key == "Bond" || key == "Bridge" || key == "VLAN") {
					if next, ok := renames[value]; ok {
						lines[i] = rewriteNetworkdValue(line, next)
						res.AppliedFixes = append(res.AppliedFixes,
							types.FixID(types.FixReferenceRenamed, key))
						changed = true
					}
				}
			}
		}
	}

	// Speculative DHCP: a [Network] section with neither DHCP nor static
	// addressing nor membership gets DHCP=yes.
	if level.AtLeast(types.LevelAggressive) &&
		networkHeaderIdx >= 0 && !networkHasDHCP && !networkHasStatic &&
		!topo.IsLowerLayerMember(device) {
		insert := append([]string{}, lines[:networkHeaderIdx+1]...)
		insert = append(insert, "DHCP=yes")
		lines = append(insert, lines[networkHeaderIdx+1:]...)
		res.AppliedFixes = append(res.AppliedFixes,
			types.FixID(types.FixDHCPEnabled, device))
		changed = true
	}

	if changed {
		res.NewContent = strings.Join(lines, "\n")
	} else {
		res.NewContent = rec.Content
	}
	return res, nil
}

// networkdDeviceName returns the first concrete (glob-free) token of the
// [Match] Name list, matching what the topology builder indexes.
func networkdDeviceName(lines []string) string {
	section := ""
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section = strings.Trim(trimmed, "[]")
			continue
		}
		if section != "Match" {
			continue
		}
		key, value, ok := splitNetworkdKV(trimmed)
		if !ok || key != "Name" {
			continue
		}
		for _, tok := range strings.Fields(value) {
			if !strings.ContainsAny(tok, "*?[") {
				return tok
			}
		}
	}
	return ""
}

// renameNameList rewrites the concrete tokens of a Name= list through the
// rename plan, leaving glob patterns alone.
func renameNameList(lines []string, idx int, value string, renames rename.Map,
	res *types.FixResult,
) bool {
	toks := strings.Fields(value)
	hit := false
	for j, tok := range toks {
		if strings.ContainsAny(tok, "*?[") {
			continue
		}
		if next, ok := renames[tok]; ok {
			res.AppliedFixes = append(res.AppliedFixes,
				types.RenameID(types.FixDeviceRenamed, tok, next))
			toks[j] = next
			hit = true
		}
	}
	if !hit {
		return false
	}
	lines[idx] = rewriteNetworkdValue(lines[idx], strings.Join(toks, " "))
	return true
}

func splitNetworkdKV(trimmed string) (key, value string, ok bool) {
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
		return "", "", false
	}
	k, v, found := strings.Cut(trimmed, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), true
}

// rewriteNetworkdValue replaces everything after the first '=' keeping the
// key and its spacing intact.
func rewriteNetworkdValue(line, value string) string {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return line
	}
	return line[:idx+1] + value
}
