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

func nmRecord(content string) *types.ConfigRecord {
	return &types.ConfigRecord{
		Path:      "/mnt/guest/etc/NetworkManager/system-connections/wired.nmconnection",
		GuestPath: "/etc/NetworkManager/system-connections/wired.nmconnection",
		Type:      types.ConfigTypeNMKeyfile,
		Content:   content,
	}
}

const nmSample = `[connection]
id=Wired connection 1
type=ethernet
interface-name=ens192

[ethernet]
mac-address=00:50:56:AA:BB:CC
cloned-mac-address=preserve

[ipv4]
method=auto
`

func TestNMKeyfileMACByLevel(t *testing.T) {
	res, err := (&NMKeyfileFixer{}).Fix(testRun(), nmRecord(nmSample), topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, nmSample, res.NewContent)

	res, err = (&NMKeyfileFixer{}).Fix(testRun(), nmRecord(nmSample), topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)
	assert.Contains(t, res.AppliedFixes, "mac-pinning-removed:mac-address")
	assert.Contains(t, res.AppliedFixes, "mac-pinning-removed:cloned-mac-address")
	assert.Contains(t, res.NewContent, "# mac-address=00:50:56:AA:BB:CC  # "+commentTag)
	// Sections and unrelated keys stay put.
	assert.Contains(t, res.NewContent, "[ipv4]\nmethod=auto\n")
}

func TestNMKeyfileDriverCommented(t *testing.T) {
	content := "[connection]\ntype=ethernet\ninterface-name=ens192\ndriver=vmxnet3\n"
	res, err := (&NMKeyfileFixer{}).Fix(testRun(), nmRecord(content), topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "hypervisor-driver-removed:driver")
	assert.Contains(t, res.NewContent, "# driver=vmxnet3")
}

func TestNMKeyfileAggressiveRenames(t *testing.T) {
	content := `[connection]
type=vlan
interface-name=ens192.100
master=ens192

[vlan]
parent=ens192
id=100
`
	renames := rename.Map{"ens192": "eth0", "ens192.100": "eth0.100"}
	res, err := (&NMKeyfileFixer{}).Fix(testRun(), nmRecord(content), topology.NewGraph(), renames, types.LevelAggressive)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "device-renamed:ens192.100>eth0.100")
	assert.Contains(t, res.AppliedFixes, "reference-renamed:master")
	assert.Contains(t, res.AppliedFixes, "reference-renamed:parent")
	assert.Contains(t, res.NewContent, "interface-name=eth0.100")
	assert.Contains(t, res.NewContent, "parent=eth0")
	// The numeric id is not a device reference.
	assert.Contains(t, res.NewContent, "id=100")
}
