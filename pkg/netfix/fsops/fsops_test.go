// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package fsops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratastor/netfix/pkg/netfix/types"
)

func TestCalculateHash(t *testing.T) {
	h1 := CalculateHash([]byte("DEVICE=eth0\n"))
	h2 := CalculateHash([]byte("DEVICE=eth0\n"))
	h3 := CalculateHash([]byte("DEVICE=eth1\n"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestCreateBackupAndRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ifcfg-eth0")
	require.NoError(t, os.WriteFile(path, []byte("DEVICE=eth0\n"), 0o640))

	backup, err := CreateBackup(path, ".netfix-bak")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(backup, path+".netfix-bak."))
	content, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "DEVICE=eth0\n", string(content))

	info, err := os.Stat(backup)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	// Clobber the original, then restore from the backup.
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o640))
	require.NoError(t, err)
	require.NoError(t, RestoreFromBackup(backup, path))

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "DEVICE=eth0\n", string(content))

	// The backup file is consumed by the restore.
	_, err = os.Stat(backup)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteWithModePreservesMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ifcfg-eth0")

	require.NoError(t, WriteWithMode(path, "DEVICE=eth0\n", 0o640, types.ConfigTypeIfcfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestWriteWithModeForcesKeyfileTo0600(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wired.nmconnection")

	require.NoError(t, WriteWithMode(path, "[connection]\n", 0o644, types.ConfigTypeNMKeyfile))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestVerifyHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ifcfg-eth0")
	content := []byte("DEVICE=eth0\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	assert.NoError(t, VerifyHash(path, CalculateHash(content)))

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))
	assert.Error(t, VerifyHash(path, CalculateHash(content)))
}
