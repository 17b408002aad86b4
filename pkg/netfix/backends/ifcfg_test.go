// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratastor/netfix/pkg/netfix/rename"
	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

func testRun() *types.RunContext {
	return types.NewRunContext(nil)
}

func ifcfgRecord(content string) *types.ConfigRecord {
	return &types.ConfigRecord{
		Path:      "/mnt/guest/etc/sysconfig/network-scripts/ifcfg-ens192",
		GuestPath: "/etc/sysconfig/network-scripts/ifcfg-ens192",
		Type:      types.ConfigTypeIfcfg,
		Content:   content,
	}
}

func TestIfcfgHypervisorDriverRemoved(t *testing.T) {
	content := "DEVICE=ens192\nTYPE=Ethernet\nDRIVER=vmxnet3\nBOOTPROTO=dhcp\nONBOOT=yes\n"
	rec := ifcfgRecord(content)

	fixer := &IfcfgFixer{}
	res, err := fixer.Fix(testRun(), rec, topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "hypervisor-driver-removed:DRIVER")
	assert.Contains(t, res.NewContent, "# DRIVER=vmxnet3  # "+commentTag)
	// Untouched lines survive byte-for-byte.
	assert.Contains(t, res.NewContent, "DEVICE=ens192\n")
	assert.Contains(t, res.NewContent, "ONBOOT=yes\n")
}

func TestIfcfgHypervisorParamRemoved(t *testing.T) {
	content := "DEVICE=ens192\nETHTOOL_OPTS=\"-K ens192 tso off\"\nOPTIONS=\"vmxnet3 csum=0\"\n"
	rec := ifcfgRecord(content)

	res, err := (&IfcfgFixer{}).Fix(testRun(), rec, topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "hypervisor-param-removed:OPTIONS")
	// ETHTOOL_OPTS does not name a hypervisor driver and must stay.
	assert.NotContains(t, res.AppliedFixes, "hypervisor-param-removed:ETHTOOL_OPTS")
	assert.Contains(t, res.NewContent, "ETHTOOL_OPTS=\"-K ens192 tso off\"")
}

func TestIfcfgBootProtoNormalized(t *testing.T) {
	content := "DEVICE=ens192\nBOOTPROTO=vmware-tools\nONBOOT=yes\n"
	rec := ifcfgRecord(content)

	res, err := (&IfcfgFixer{}).Fix(testRun(), rec, topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "bootproto-normalized:vmware-tools")
	assert.Contains(t, res.NewContent, "BOOTPROTO=dhcp")
}

func TestIfcfgBootProtoKeptWithStaticAddressing(t *testing.T) {
	content := "DEVICE=ens192\nBOOTPROTO=weird\nIPADDR=10.0.0.5\nNETMASK=255.255.255.0\n"
	rec := ifcfgRecord(content)

	res, err := (&IfcfgFixer{}).Fix(testRun(), rec, topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)

	assert.False(t, res.Changed())
	assert.Equal(t, content, res.NewContent)
}

func TestIfcfgBootProtoKeptOnLowerLayerMember(t *testing.T) {
	g := topology.NewGraph()
	g.AddEdge("ens192", "bond0", types.EdgeSlave)

	content := "DEVICE=ens192\nBOOTPROTO=weird\n"
	res, err := (&IfcfgFixer{}).Fix(testRun(), ifcfgRecord(content), g, nil, types.LevelConservative)
	require.NoError(t, err)

	assert.False(t, res.Changed())
}

func TestIfcfgMACPinningByLevel(t *testing.T) {
	content := "DEVICE=ens192\nHWADDR=00:50:56:aa:bb:cc\nMACADDR=00:50:56:aa:bb:cd\n"

	// Conservative keeps MAC pinning.
	res, err := (&IfcfgFixer{}).Fix(testRun(), ifcfgRecord(content), topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)
	assert.False(t, res.Changed())

	// Moderate removes it.
	res, err = (&IfcfgFixer{}).Fix(testRun(), ifcfgRecord(content), topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)
	assert.Contains(t, res.AppliedFixes, "mac-pinning-removed:HWADDR")
	assert.Contains(t, res.AppliedFixes, "mac-pinning-removed:MACADDR")
	assert.NotContains(t, res.NewContent, "\nHWADDR=")
}

func TestIfcfgAggressiveRename(t *testing.T) {
	g := topology.NewGraph()
	g.AddNode("ens192", types.KindEthernet, "a")
	renames := rename.Map{"ens192": "eth0"}

	content := "DEVICE=ens192\nNAME=ens192\nBOOTPROTO=dhcp\n"
	res, err := (&IfcfgFixer{}).Fix(testRun(), ifcfgRecord(content), g, renames, types.LevelAggressive)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "device-renamed:ens192>eth0")
	assert.Contains(t, res.NewContent, "DEVICE=eth0")
	assert.Contains(t, res.NewContent, "NAME=eth0")
}

func TestIfcfgAggressiveReferenceRename(t *testing.T) {
	g := topology.NewGraph()
	g.AddEdge("ens224", "bond0", types.EdgeSlave)
	renames := rename.Map{"ens224": "eth1"}

	rec := &types.ConfigRecord{
		Path:    "/mnt/guest/etc/sysconfig/network-scripts/ifcfg-bond0.100",
		Type:    types.ConfigTypeIfcfg,
		Content: "DEVICE=bond0.100\nVLAN=yes\nPHYSDEV=ens224\n",
	}
	res, err := (&IfcfgFixer{}).Fix(testRun(), rec, g, renames, types.LevelAggressive)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "reference-renamed:PHYSDEV")
	assert.Contains(t, res.NewContent, "PHYSDEV=eth1")
}

func TestIfcfgAggressiveNoneToDHCP(t *testing.T) {
	g := topology.NewGraph()
	g.AddNode("ens192", types.KindEthernet, "a")

	content := "DEVICE=ens192\nTYPE=Ethernet\nBOOTPROTO=none\nONBOOT=yes\n"
	res, err := (&IfcfgFixer{}).Fix(testRun(), ifcfgRecord(content), g, nil, types.LevelAggressive)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "bootproto-normalized:none")
	assert.Contains(t, res.NewContent, "BOOTPROTO=dhcp")

	// With static addressing present the switch must not happen.
	static := "DEVICE=ens192\nBOOTPROTO=none\nIPADDR=10.0.0.5\n"
	res, err = (&IfcfgFixer{}).Fix(testRun(), ifcfgRecord(static), g, nil, types.LevelAggressive)
	require.NoError(t, err)
	assert.NotContains(t, strings.Join(res.AppliedFixes, " "), "bootproto-normalized")
}

func TestIfcfgIdempotent(t *testing.T) {
	content := "DEVICE=ens192\nDRIVER=vmxnet3\nHWADDR=00:50:56:aa:bb:cc\nBOOTPROTO=dhcp\n"
	rec := ifcfgRecord(content)

	first, err := (&IfcfgFixer{}).Fix(testRun(), rec, topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)
	require.True(t, first.Changed())

	again := ifcfgRecord(first.NewContent)
	second, err := (&IfcfgFixer{}).Fix(testRun(), again, topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)

	assert.False(t, second.Changed())
	assert.Equal(t, first.NewContent, second.NewContent)
}
