// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratastor/netfix/pkg/netfix/rename"
	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

func interfacesRecord(content string) *types.ConfigRecord {
	return &types.ConfigRecord{
		Path:      "/mnt/guest/etc/network/interfaces",
		GuestPath: "/etc/network/interfaces",
		Type:      types.ConfigTypeInterfaces,
		Content:   content,
	}
}

func TestInterfacesHwaddressByLevel(t *testing.T) {
	content := `auto ens192
iface ens192 inet dhcp
    hwaddress ether 00:50:56:aa:bb:cc
`
	// Conservative keeps the line.
	res, err := (&InterfacesFixer{}).Fix(testRun(), interfacesRecord(content), topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, content, res.NewContent)

	// Moderate comments it out with the explanatory tag.
	res, err = (&InterfacesFixer{}).Fix(testRun(), interfacesRecord(content), topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)
	assert.Contains(t, res.AppliedFixes, "mac-pinning-removed:ens192")
	assert.Contains(t, res.NewContent, "    # hwaddress ether 00:50:56:aa:bb:cc  # "+commentTag)
}

func TestInterfacesStaticWithoutAddressBecomesDHCP(t *testing.T) {
	content := `auto ens192
iface ens192 inet static
    mtu 1500
`
	// Conservative leaves the orphaned stanza alone.
	res, err := (&InterfacesFixer{}).Fix(testRun(), interfacesRecord(content), topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)
	assert.False(t, res.Changed())

	res, err = (&InterfacesFixer{}).Fix(testRun(), interfacesRecord(content), topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "static-to-dhcp:ens192")
	assert.Contains(t, res.NewContent, "iface ens192 inet dhcp")
}

func TestInterfacesStaticWithAddressKept(t *testing.T) {
	content := `iface ens192 inet static
    address 10.0.0.5/24
    gateway 10.0.0.1
`
	res, err := (&InterfacesFixer{}).Fix(testRun(), interfacesRecord(content), topology.NewGraph(), nil, types.LevelAggressive)
	require.NoError(t, err)

	assert.NotContains(t, res.NewContent, "inet dhcp")
}

func TestInterfacesStaticOnLowerLayerMemberKept(t *testing.T) {
	g := topology.NewGraph()
	g.AddEdge("ens192", "br0", types.EdgePort)

	content := "iface ens192 inet static\n"
	res, err := (&InterfacesFixer{}).Fix(testRun(), interfacesRecord(content), g, nil, types.LevelAggressive)
	require.NoError(t, err)

	assert.NotContains(t, res.NewContent, "inet dhcp")
}

func TestInterfacesAggressiveRenames(t *testing.T) {
	g := topology.NewGraph()
	g.AddEdge("ens192", "br0", types.EdgePort)
	renames := rename.Map{"ens192": "eth0"}

	content := `auto ens192 br0
iface ens192 inet manual

iface br0 inet dhcp
    bridge_ports ens192
`
	res, err := (&InterfacesFixer{}).Fix(testRun(), interfacesRecord(content), g, renames, types.LevelAggressive)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "device-renamed:ens192>eth0")
	assert.Contains(t, res.NewContent, "auto eth0 br0")
	assert.Contains(t, res.NewContent, "iface eth0 inet manual")
	assert.Contains(t, res.NewContent, "bridge_ports eth0")
}

func TestInterfacesIdempotent(t *testing.T) {
	content := `auto ens192
iface ens192 inet dhcp
    hwaddress ether 00:50:56:aa:bb:cc
`
	first, err := (&InterfacesFixer{}).Fix(testRun(), interfacesRecord(content), topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)
	require.True(t, first.Changed())

	second, err := (&InterfacesFixer{}).Fix(testRun(), interfacesRecord(first.NewContent), topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)
	assert.False(t, second.Changed())
}
