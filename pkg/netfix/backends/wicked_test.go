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

func wickedRecord(content string) *types.ConfigRecord {
	return &types.ConfigRecord{
		Path:      "/mnt/guest/etc/wicked/ifconfig/ens192.xml",
		GuestPath: "/etc/wicked/ifconfig/ens192.xml",
		Type:      types.ConfigTypeWickedXML,
		Content:   content,
	}
}

const wickedSample = `<interface>
  <name>ens192</name>
  <mac-address>00:50:56:aa:bb:cc</mac-address>
  <ipv4:dhcp>
    <enabled>true</enabled>
  </ipv4:dhcp>
</interface>
`

func TestWickedMACRemovalByLevel(t *testing.T) {
	// Conservative leaves the document alone.
	res, err := (&WickedXMLFixer{}).Fix(testRun(), wickedRecord(wickedSample), topology.NewGraph(), nil, types.LevelConservative)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, wickedSample, res.NewContent)

	// Moderate strips the pinned MAC element, nothing else.
	res, err = (&WickedXMLFixer{}).Fix(testRun(), wickedRecord(wickedSample), topology.NewGraph(), nil, types.LevelModerate)
	require.NoError(t, err)
	assert.Contains(t, res.AppliedFixes, "mac-pinning-removed:mac-address")
	assert.NotContains(t, res.NewContent, "mac-address")
	assert.Contains(t, res.NewContent, "<name>ens192</name>")
	assert.Contains(t, res.NewContent, "<enabled>true</enabled>")
}

func TestWickedAggressiveRenames(t *testing.T) {
	content := `<interface>
  <name>bond0</name>
  <bond>
    <slaves>
      <slave><device>ens192</device></slave>
    </slaves>
  </bond>
</interface>
`
	renames := rename.Map{"ens192": "eth0"}
	res, err := (&WickedXMLFixer{}).Fix(testRun(), wickedRecord(content), topology.NewGraph(), renames, types.LevelAggressive)
	require.NoError(t, err)

	assert.Contains(t, res.AppliedFixes, "reference-renamed:ens192")
	assert.Contains(t, res.NewContent, "<device>eth0</device>")
	assert.Contains(t, res.NewContent, "<name>bond0</name>")
}

func TestWickedUntouchedRoundTrips(t *testing.T) {
	content := "<interface>\n  <name>eth0</name>\n</interface>\n"
	res, err := (&WickedXMLFixer{}).Fix(testRun(), wickedRecord(content), topology.NewGraph(), nil, types.LevelAggressive)
	require.NoError(t, err)

	assert.False(t, res.Changed())
	assert.Equal(t, content, res.NewContent)
}
