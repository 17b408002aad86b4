// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"path/filepath"
	"strings"

	"github.com/stratastor/netfix/pkg/netfix/kvedit"
	"github.com/stratastor/netfix/pkg/netfix/rename"
	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// IfcfgFixer repairs RH-style and SUSE-style KEY=VALUE interface files.
type IfcfgFixer struct{}

// Keys whose value can name a kernel driver.
var ifcfgDriverKeys = []string{"DRIVER", "DEVICETYPE"}

// Keys that carry free-form parameters occasionally referencing the
// hypervisor driver.
var ifcfgParamKeys = []string{"OPTIONS", "ETHTOOL_OPTS", "MODULE_OPTS"}

// MAC-pinning keys across both the RH and SUSE dialects.
var ifcfgMACKeys = []string{"HWADDR", "MACADDR", "LLADDR"}

// Reference fields that point at another device by name.
var ifcfgRefKeys = []string{"MASTER", "BRIDGE", "PHYSDEV", "ETHERDEVICE"}

var ifcfgBootProtos = map[string]bool{
	"": true, "dhcp": true, "static": true, "none": true,
	"bootp": true, "ibft": true, "autoip": true, "shared": true,
}

func (f *IfcfgFixer) Type() types.ConfigType { return types.ConfigTypeIfcfg }

func (f *IfcfgFixer) Fix(run *types.RunContext, rec *types.ConfigRecord,
	topo *topology.Graph, renames rename.Map, level types.FixLevel,
) (*types.FixResult, error) {
	ed := kvedit.Parse(rec.Content)
	res := &types.FixResult{}
	res.Warnings = append(res.Warnings, ed.Warnings()...)

	device := deviceNameOf(ed, rec.Path)

	// Hypervisor driver tokens and parameters go at every level.
	for _, key := range ifcfgDriverKeys {
		if v, ok := ed.Get(key); ok && isHypervisorDriver(v) {
			ed.CommentOut(key, commentTag)
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixHypervisorDriverRemoved, key))
		}
	}
	for _, key := range ifcfgParamKeys {
		if v, ok := ed.Get(key); ok && mentionsHypervisorDriver(v) {
			ed.CommentOut(key, commentTag)
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixHypervisorParamRemoved, key))
		}
	}

	// An unrecognized boot protocol (e.g. a leftover hypervisor-tools
	// value) becomes DHCP, but only when the file has no static addressing
	// and the device is not a lower-layer member.
	if proto, ok := ed.Get("BOOTPROTO"); ok {
		if !ifcfgBootProtos[strings.ToLower(proto)] &&
			!hasStaticKeys(ed) && !topo.IsLowerLayerMember(device) {
			ed.Set("BOOTPROTO", "dhcp")
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixBootProtoNormalized, proto))
		}
	}

	if level.AtLeast(types.LevelModerate) {
		for _, key := range ifcfgMACKeys {
			if ed.Has(key) {
				ed.CommentOut(key, commentTag)
				res.AppliedFixes = append(res.AppliedFixes,
					types.FixID(types.FixMACPinningRemoved, key))
			}
		}
	}

	if level.AtLeast(types.LevelAggressive) {
		f.fixAggressive(ed, res, device, topo, renames)
	}

	if res.Changed() {
		res.NewContent = ed.Render()
	} else {
		res.NewContent = rec.Content
	}
	return res, nil
}

func (f *IfcfgFixer) fixAggressive(ed *kvedit.Editor, res *types.FixResult,
	device string, topo *topology.Graph, renames rename.Map,
) {
	if next, ok := renames[device]; ok {
		if ed.Has("DEVICE") {
			ed.Set("DEVICE", next)
			res.AppliedFixes = append(res.AppliedFixes,
				types.RenameID(types.FixDeviceRenamed, device, next))
		}
		if name, has := ed.Get("NAME"); has && name == device {
			ed.Set("NAME", next)
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixReferenceRenamed, "NAME"))
		}
	}

	for _, key := range ifcfgRefKeys {
		if v, ok := ed.Get(key); ok {
			if next, hit := renames[v]; hit {
				ed.Set(key, next)
				res.AppliedFixes = append(res.AppliedFixes,
					types.FixID(types.FixReferenceRenamed, key))
			}
		}
	}

	// Speculative DHCP enablement: BOOTPROTO=none on a plain ethernet with
	// no static addressing usually means the old tooling owned addressing.
	if proto, ok := ed.Get("BOOTPROTO"); ok && strings.EqualFold(proto, "none") {
		if topo.KindOf(device) == types.KindEthernet &&
			!hasStaticKeys(ed) && !topo.IsLowerLayerMember(device) {
			ed.Set("BOOTPROTO", "dhcp")
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixBootProtoNormalized, "none"))
		}
	}
}

// deviceNameOf resolves the record's device: DEVICE key, then the
// ifcfg-<name> file suffix. Renamed devices resolve through the graph's
// alias table, so lookups keyed on old content keep working.
func deviceNameOf(ed *kvedit.Editor, path string) string {
	if dev, ok := ed.Get("DEVICE"); ok && dev != "" {
		return dev
	}
	if name, ok := strings.CutPrefix(filepath.Base(path), "ifcfg-"); ok {
		return name
	}
	return ""
}

// hasStaticKeys reports whether the file carries static addressing.
func hasStaticKeys(ed *kvedit.Editor) bool {
	for _, key := range ed.ActiveKeys() {
		switch {
		case strings.HasPrefix(key, "IPADDR"),
			strings.HasPrefix(key, "NETMASK"),
			strings.HasPrefix(key, "PREFIX"),
			strings.HasPrefix(key, "GATEWAY"),
			strings.HasPrefix(key, "IPV6ADDR"):
			return true
		}
	}
	return false
}
