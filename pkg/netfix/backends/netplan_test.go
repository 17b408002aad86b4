// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/stratastor/netfix/pkg/netfix/rename"
	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

func netplanRecord(content string) *types.ConfigRecord {
	return &types.ConfigRecord{
		Path:      "/mnt/guest/etc/netplan/01-netcfg.yaml",
		GuestPath: "/etc/netplan/01-netcfg.yaml",
		Type:      types.ConfigTypeNetplan,
		Content:   content,
	}
}

// decode re-parses fixed YAML for structural assertions.
func decode(t *testing.T, content string) map[string]any {
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(content), &doc))
	return doc
}

func TestNetplanMatchDriverRemoved(t *testing.T) {
	content := `network:
  version: 2
  ethernets:
    ens192:
      match:
        driver: vmxnet3
      dhcp4: true
`
	res, err := (&NetplanFixer{}).Fix(testRun(), netplanRecord(content), topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "hypervisor-driver-removed:ens192")

	doc := decode(t, res.NewContent)
	network := doc["network"].(map[string]any)
	dev := network["ethernets"].(map[string]any)["ens192"].(map[string]any)
	// The now-empty match block is dropped entirely.
	_, hasMatch := dev["match"]
	assert.False(t, hasMatch)
	assert.Equal(t, true, dev["dhcp4"])
}

func TestNetplanMACRemovalByLevel(t *testing.T) {
	content := `network:
  ethernets:
    ens192:
      macaddress: "00:50:56:aa:bb:cc"
      match:
        macaddress: "00:50:56:aa:bb:cc"
      dhcp4: true
`
	// Conservative keeps MAC pinning.
	res, err := (&NetplanFixer{}).Fix(testRun(), netplanRecord(content), topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, content, res.NewContent)

	// Moderate removes device-level and match MAC pinning.
	res, err = (&NetplanFixer{}).Fix(testRun(), netplanRecord(content), topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)
	assert.Contains(t, res.AppliedFixes, "mac-pinning-removed:ens192")
	assert.NotContains(t, res.NewContent, "macaddress")
}

func TestNetplanUntouchedFileRoundTripsVerbatim(t *testing.T) {
	content := `# managed by hand, odd formatting preserved
network:
    version: 2
    ethernets:
        eth0:   { dhcp4: yes }
`
	res, err := (&NetplanFixer{}).Fix(testRun(), netplanRecord(content), topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)

	assert.False(t, res.Changed())
	assert.Equal(t, content, res.NewContent)
}

func TestNetplanAggressiveRename(t *testing.T) {
	g := topology.NewGraph()
	g.AddNode("ens160", types.KindEthernet, "a")
	g.AddEdge("ens160", "bond0", types.EdgeSlave)
	renames := rename.Map{"ens160": "eth0"}

	content := `network:
  ethernets:
    ens160:
      dhcp4: false
  bonds:
    bond0:
      interfaces: [ens160]
      dhcp4: true
`
	res, err := (&NetplanFixer{}).Fix(testRun(), netplanRecord(content), g, renames, types.LevelAggressive)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "device-renamed:ens160>eth0")
	assert.Contains(t, res.AppliedFixes, "reference-renamed:ens160")

	doc := decode(t, res.NewContent)
	network := doc["network"].(map[string]any)
	eths := network["ethernets"].(map[string]any)
	_, hasOld := eths["ens160"]
	assert.False(t, hasOld)
	_, hasNew := eths["eth0"]
	assert.True(t, hasNew)

	bond := network["bonds"].(map[string]any)["bond0"].(map[string]any)
	assert.Equal(t, []any{"eth0"}, bond["interfaces"])
}

func TestNetplanAggressiveDHCPEnable(t *testing.T) {
	content := `network:
  ethernets:
    ens192: {}
`
	g := topology.NewGraph()
	g.AddNode("ens192", types.KindEthernet, "a")

	res, err := (&NetplanFixer{}).Fix(testRun(), netplanRecord(content), g, nil, types.LevelAggressive)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "dhcp-enabled:ens192")
	doc := decode(t, res.NewContent)
	dev := doc["network"].(map[string]any)["ethernets"].(map[string]any)["ens192"].(map[string]any)
	assert.Equal(t, true, dev["dhcp4"])
}

func TestNetplanDHCPEnableGuards(t *testing.T) {
	tests := []struct {
		name    string
		content string
		graph   func() *topology.Graph
	}{
		{
			name: "static addressing present",
			content: `network:
  ethernets:
    ens192:
      addresses: [10.0.0.5/24]
`,
			graph: topology.NewGraph,
		},
		{
			name: "lower-layer member",
			content: `network:
  ethernets:
    ens192: {}
`,
			graph: func() *topology.Graph {
				g := topology.NewGraph()
				g.AddEdge("ens192", "bond0", types.EdgeSlave)
				return g
			},
		},
		{
			name: "NetworkManager renderer",
			content: `network:
  renderer: NetworkManager
  ethernets:
    ens192: {}
`,
			graph: topology.NewGraph,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := (&NetplanFixer{}).Fix(testRun(), netplanRecord(tt.content), tt.graph(), nil, types.LevelAggressive)
			require.NoError(t, err)
			for _, fix := range res.AppliedFixes {
				assert.NotContains(t, fix, "dhcp-enabled")
			}
		})
	}
}

func TestNetplanEditKeepsComments(t *testing.T) {
	content := `# Deployed by provisioning, do not edit.
network:
  version: 2
  ethernets:
    ens192:
      # pinned during the VMware days
      macaddress: "00:50:56:aa:bb:cc"
      dhcp4: true # tracked in CMDB
`
	res, err := (&NetplanFixer{}).Fix(testRun(), netplanRecord(content), topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)

	require.Contains(t, res.AppliedFixes, "mac-pinning-removed:ens192")
	assert.NotContains(t, res.NewContent, "macaddress")
	assert.Contains(t, res.NewContent, "# Deployed by provisioning, do not edit.")
	assert.Contains(t, res.NewContent, "# tracked in CMDB")
}

func TestNetplanDHCPEnableOnContainerSections(t *testing.T) {
	content := `network:
  bonds:
    bond0:
      interfaces: [ens192, ens224]
      macaddress: "00:50:56:aa:bb:cc"
  bridges:
    br0:
      interfaces: [bond0]
`
	g := topology.NewGraph()
	g.AddEdge("ens192", "bond0", types.EdgeSlave)
	g.AddEdge("ens224", "bond0", types.EdgeSlave)
	g.AddEdge("bond0", "br0", types.EdgePort)

	res, err := (&NetplanFixer{}).Fix(testRun(), netplanRecord(content), g, nil, types.LevelAggressive)
	require.NoError(t, err)

	// bond0 feeds br0 so only the bridge may pick up addressing.
	assert.NotContains(t, res.AppliedFixes, "dhcp-enabled:bond0")
	assert.Contains(t, res.AppliedFixes, "dhcp-enabled:br0")

	doc := decode(t, res.NewContent)
	network := doc["network"].(map[string]any)
	br := network["bridges"].(map[string]any)["br0"].(map[string]any)
	assert.Equal(t, true, br["dhcp4"])
}

func TestNetplanInvalidYAMLFails(t *testing.T) {
	_, err := (&NetplanFixer{}).Fix(testRun(), netplanRecord("network: [unclosed"), topology.NewGraph(), nil, types.LevelModerate)
	assert.Error(t, err)
}
