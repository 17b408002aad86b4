// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package kvedit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIfcfg = `# Generated by the installer
TYPE=Ethernet
DEVICE=ens192
BOOTPROTO=none
ONBOOT=yes
HWADDR=00:50:56:aa:bb:cc
IPADDR=10.0.0.5  # management address
NETMASK=255.255.255.0
NAME="System ens192"

# legacy block
#OLD_DEVICE=eth9
`

func TestParseRenderLossless(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"typical file", sampleIfcfg},
		{"empty", ""},
		{"only comments", "# one\n# two\n"},
		{"no trailing newline", "DEVICE=eth0"},
		{"blank lines and junk", "\n\nnot a key value line\n  \nA=1\n"},
		{"crlf-free mixed indent", "\tA=1\n  B=2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed := Parse(tt.content)
			assert.Equal(t, tt.content, ed.Render())
		})
	}
}

func TestGet(t *testing.T) {
	ed := Parse(sampleIfcfg)

	v, ok := ed.Get("DEVICE")
	require.True(t, ok)
	assert.Equal(t, "ens192", v)

	// Quotes are stripped from values.
	v, ok = ed.Get("NAME")
	require.True(t, ok)
	assert.Equal(t, "System ens192", v)

	// Trailing comments are not part of the value.
	v, ok = ed.Get("IPADDR")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", v)

	// Commented-out keys are invisible.
	_, ok = ed.Get("OLD_DEVICE")
	assert.False(t, ok)

	_, ok = ed.Get("MISSING")
	assert.False(t, ok)
}

func TestSetExistingPreservesQuoteAndComment(t *testing.T) {
	ed := Parse(sampleIfcfg)

	ed.Set("NAME", "System eth0")
	ed.Set("IPADDR", "10.0.0.9")

	out := ed.Render()
	assert.Contains(t, out, `NAME="System eth0"`)
	assert.Contains(t, out, "IPADDR=10.0.0.9  # management address")
}

func TestSetAppendsWhenAbsent(t *testing.T) {
	ed := Parse("DEVICE=eth0\n")
	ed.Set("BOOTPROTO", "dhcp")

	assert.Equal(t, "DEVICE=eth0\nBOOTPROTO=dhcp\n", ed.Render())
}

func TestSetNeverResurrectsCommentedLine(t *testing.T) {
	ed := Parse("DEVICE=eth0\nHWADDR=00:11:22:33:44:55\n")
	require.True(t, ed.CommentOut("HWADDR", "gone"))

	ed.Set("HWADDR", "66:77:88:99:aa:bb")

	out := ed.Render()
	assert.Contains(t, out, "# HWADDR=00:11:22:33:44:55  # gone")
	assert.Contains(t, out, "HWADDR=66:77:88:99:aa:bb")
}

func TestCommentOut(t *testing.T) {
	ed := Parse(sampleIfcfg)

	require.True(t, ed.CommentOut("HWADDR", "tag"))
	assert.False(t, ed.Has("HWADDR"))
	assert.Contains(t, ed.Render(), "# HWADDR=00:50:56:aa:bb:cc  # tag")

	// Idempotent: second call is a no-op.
	assert.False(t, ed.CommentOut("HWADDR", "tag"))
	// Unknown key is a no-op.
	assert.False(t, ed.CommentOut("NOPE", "tag"))
}

func TestCommentOutDisablesDuplicates(t *testing.T) {
	ed := Parse("HWADDR=00:50:56:aa:bb:cc\nBOOTPROTO=dhcp\nHWADDR=00:50:56:dd:ee:ff\n")

	require.True(t, ed.CommentOut("HWADDR", "tag"))
	assert.False(t, ed.Has("HWADDR"))

	// Both occurrences are disabled; the earlier value must not stay live.
	out := ed.Render()
	assert.Contains(t, out, "# HWADDR=00:50:56:aa:bb:cc  # tag")
	assert.Contains(t, out, "# HWADDR=00:50:56:dd:ee:ff  # tag")
	assert.NotContains(t, Parse(out).ActiveKeys(), "HWADDR")
}

func TestDuplicateKeyLastWinsWithWarning(t *testing.T) {
	ed := Parse("BOOTPROTO=none\nBOOTPROTO=dhcp\n")

	v, ok := ed.Get("BOOTPROTO")
	require.True(t, ok)
	assert.Equal(t, "dhcp", v)
	require.Len(t, ed.Warnings(), 1)
	assert.Contains(t, ed.Warnings()[0], "BOOTPROTO")
}

func TestActiveKeysInFileOrder(t *testing.T) {
	ed := Parse("B=2\n#C=3\nA=1\n")
	assert.Equal(t, []string{"B", "A"}, ed.ActiveKeys())
}
