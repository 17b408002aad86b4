// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"strings"

	"github.com/stratastor/netfix/pkg/netfix/rename"
	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// NMKeyfileFixer repairs NetworkManager keyfile connection profiles.
type NMKeyfileFixer struct{}

func (f *NMKeyfileFixer) Type() types.ConfigType { return types.ConfigTypeNMKeyfile }

// MAC-pinning keys in the hardware sections of a keyfile.
var nmMACKeys = map[string]bool{
	"mac-address":           true,
	"cloned-mac-address":    true,
	"mac-address-blacklist": true,
}

func (f *NMKeyfileFixer) Fix(run *types.RunContext, rec *types.ConfigRecord,
	topo *topology.Graph, renames rename.Map, level types.FixLevel,
) (*types.FixResult, error) {
	lines := strings.Split(rec.Content, "\n")
	res := &types.FixResult{}
	changed := false

	section := ""
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			section = strings.Trim(trimmed, "[]")
			continue
		}
		key, value, ok := splitNetworkdKV(trimmed)
		if !ok {
			continue
		}

		if key == "driver" && mentionsHypervisorDriver(value) {
			lines[i] = commentLine(line)
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixHypervisorDriverRemoved, key))
			changed = true
			continue
		}
		if level.AtLeast(types.LevelModerate) && nmMACKeys[key] {
			lines[i] = commentLine(line)
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixMACPinningRemoved, key))
			changed = true
			continue
		}
		if !level.AtLeast(types.LevelAggressive) {
			continue
		}
		switch {
		case section == "connection" && key == "interface-name":
			if next, ok := renames[value]; ok {
				lines[i] = rewriteNetworkdValue(line, next)
				res.AppliedFixes = append(res.AppliedFixes,
					types.RenameID(types.FixDeviceRenamed, value, next))
				changed = true
			}
		case section == "connection" && key == "master":
			if next, ok := renames[value]; ok {
				lines[i] = rewriteNetworkdValue(line, next)
				res.AppliedFixes = append(res.AppliedFixes,
					types.FixID(types.FixReferenceRenamed, key))
				changed = true
			}
		case section == "vlan" && key == "parent":
			if next, ok := renames[value]; ok {
				lines[i] = rewriteNetworkdValue(line, next)
				res.AppliedFixes = append(res.AppliedFixes,
					types.FixID(types.FixReferenceRenamed, key))
				changed = true
			}
		}
	}

	if changed {
		res.NewContent = strings.Join(lines, "\n")
	} else {
		res.NewContent = rec.Content
	}
	return res, nil
}
