// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stratastor/netfix/pkg/errors"
	"github.com/stratastor/netfix/pkg/netfix/rename"
	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// NetplanFixer repairs netplan YAML files. The document is decoded into a
// yaml.Node tree and mutated in place, so comments, key order and anchors
// survive re-encoding. The file is only re-encoded when a fix actually
// applied; untouched files round-trip byte-for-byte.
type NetplanFixer struct{}

var netplanSections = []string{"ethernets", "bonds", "bridges", "vlans"}

// Keys that indicate static addressing on a netplan device.
var netplanStaticKeys = []string{"addresses", "gateway4", "gateway6", "routes"}

func (f *NetplanFixer) Type() types.ConfigType { return types.ConfigTypeNetplan }

func (f *NetplanFixer) Fix(run *types.RunContext, rec *types.ConfigRecord,
	topo *topology.Graph, renames rename.Map, level types.FixLevel,
) (*types.FixResult, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(rec.Content), &doc); err != nil {
		return nil, errors.Wrap(err, errors.ParseYAMLFailed)
	}
	res := &types.FixResult{}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return noChange(rec), nil
	}
	network := mappingValue(doc.Content[0], "network")
	if network == nil || network.Kind != yaml.MappingNode {
		return noChange(rec), nil
	}
	globalRenderer := ""
	if r := mappingValue(network, "renderer"); r != nil {
		globalRenderer = r.Value
	}

	for _, section := range netplanSections {
		devices := mappingValue(network, section)
		if devices == nil || devices.Kind != yaml.MappingNode {
			continue
		}
		for i := 0; i+1 < len(devices.Content); i += 2 {
			dev := devices.Content[i+1]
			if dev.Kind != yaml.MappingNode {
				continue
			}
			f.fixDevice(res, topo, devices.Content[i].Value, dev, globalRenderer, level)
		}
		if level.AtLeast(types.LevelAggressive) {
			f.renameSection(res, section, devices, renames)
		}
	}

	if res.Changed() {
		out, err := marshalNetplan(&doc)
		if err != nil {
			return nil, errors.Wrap(err, errors.ParseYAMLFailed)
		}
		res.NewContent = out
	} else {
		res.NewContent = rec.Content
	}
	return res, nil
}

func (f *NetplanFixer) fixDevice(res *types.FixResult, topo *topology.Graph,
	name string, dev *yaml.Node, globalRenderer string, level types.FixLevel,
) {
	if match := mappingValue(dev, "match"); match != nil && match.Kind == yaml.MappingNode {
		if drv := mappingValue(match, "driver"); drv != nil && mentionsHypervisorDriver(drv.Value) {
			mappingDelete(match, "driver")
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixHypervisorDriverRemoved, name))
		}
		if level.AtLeast(types.LevelModerate) && mappingDelete(match, "macaddress") {
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixMACPinningRemoved, name))
		}
		if len(match.Content) == 0 {
			mappingDelete(dev, "match")
		}
	}

	if level.AtLeast(types.LevelModerate) && mappingDelete(dev, "macaddress") {
		res.AppliedFixes = append(res.AppliedFixes,
			types.FixID(types.FixMACPinningRemoved, name))
	}

	if level.AtLeast(types.LevelAggressive) {
		renderer := globalRenderer
		if r := mappingValue(dev, "renderer"); r != nil {
			renderer = r.Value
		}
		if renderer != "NetworkManager" &&
			!hasNetplanAddressing(dev) && !topo.IsLowerLayerMember(name) {
			dev.Content = append(dev.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "dhcp4"},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"})
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixDHCPEnabled, name))
		}
	}
}

// renameSection applies the rename plan to device map keys and to the
// member references bonds, bridges and vlans carry.
func (f *NetplanFixer) renameSection(res *types.FixResult, section string,
	devices *yaml.Node, renames rename.Map,
) {
	for i := 0; i+1 < len(devices.Content); i += 2 {
		keyNode := devices.Content[i]
		if next, ok := renames[keyNode.Value]; ok {
			res.AppliedFixes = append(res.AppliedFixes,
				types.RenameID(types.FixDeviceRenamed, keyNode.Value, next))
			keyNode.Value = next
		}
		dev := devices.Content[i+1]
		if dev.Kind != yaml.MappingNode {
			continue
		}
		switch section {
		case "bonds", "bridges":
			members := mappingValue(dev, "interfaces")
			if members == nil || members.Kind != yaml.SequenceNode {
				continue
			}
			for _, m := range members.Content {
				if next, ok := renames[m.Value]; ok {
					res.AppliedFixes = append(res.AppliedFixes,
						types.FixID(types.FixReferenceRenamed, m.Value))
					m.Value = next
				}
			}
		case "vlans":
			if link := mappingValue(dev, "link"); link != nil {
				if next, ok := renames[link.Value]; ok {
					res.AppliedFixes = append(res.AppliedFixes,
						types.FixID(types.FixReferenceRenamed, link.Value))
					link.Value = next
				}
			}
		}
	}
}

func hasNetplanAddressing(dev *yaml.Node) bool {
	for _, key := range netplanStaticKeys {
		if mappingValue(dev, key) != nil {
			return true
		}
	}
	return mappingValue(dev, "dhcp4") != nil || mappingValue(dev, "dhcp6") != nil
}

// mappingValue returns the value node for key in a mapping, nil when absent.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// mappingDelete removes key and its value from a mapping.
func mappingDelete(node *yaml.Node, key string) bool {
	if node == nil || node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			node.Content = append(node.Content[:i], node.Content[i+2:]...)
			return true
		}
	}
	return false
}

func marshalNetplan(doc *yaml.Node) (string, error) {
	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
