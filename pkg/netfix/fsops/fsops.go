// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package fsops performs the on-disk side of a fix: hashing, sibling
// backups and mode-preserving writes. Every write is preceded by a backup
// so a failed run can be rolled back file by file.
package fsops

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/stratastor/netfix/pkg/errors"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// DefaultBackupSuffix marks backup siblings written next to fixed files.
const DefaultBackupSuffix = ".netfix-bak"

// CalculateHash returns the hex SHA-256 of content. Hashes recorded at
// discovery time guard against the file changing underneath a run.
func CalculateHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// CreateBackup copies path to a sibling file named
// <path><suffix>.<short-uuid> and returns the backup path. The original's
// mode is preserved.
func CreateBackup(path, suffix string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ApplyBackupFailed)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ApplyBackupFailed)
	}
	backup := fmt.Sprintf("%s%s.%s", path, suffix, uuid.NewString()[:8])
	if err := os.WriteFile(backup, content, info.Mode().Perm()); err != nil {
		return "", errors.Wrap(err, errors.ApplyBackupFailed)
	}
	return backup, nil
}

// WriteWithMode writes content to path with the given mode. NetworkManager
// refuses keyfiles readable by group or other, so that dialect is forced
// to 0600 regardless of the original mode.
func WriteWithMode(path, content string, mode os.FileMode, t types.ConfigType) error {
	if t == types.ConfigTypeNMKeyfile {
		mode = 0o600
	}
	if mode == 0 {
		mode = 0o644
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return errors.Wrap(err, errors.ApplyWriteFailed)
	}
	// WriteFile does not chmod an existing file.
	if err := os.Chmod(path, mode); err != nil {
		return errors.Wrap(err, errors.ApplyWriteFailed)
	}
	return nil
}

// RestoreFromBackup copies a backup over the original and removes the
// backup file.
func RestoreFromBackup(backup, path string) error {
	content, err := os.ReadFile(backup)
	if err != nil {
		return errors.Wrap(err, errors.ApplyRestoreFailed)
	}
	info, err := os.Stat(backup)
	if err != nil {
		return errors.Wrap(err, errors.ApplyRestoreFailed)
	}
	if err := os.WriteFile(path, content, info.Mode().Perm()); err != nil {
		return errors.Wrap(err, errors.ApplyRestoreFailed)
	}
	return os.Remove(backup)
}

// VerifyHash confirms the file at path still matches the hash captured at
// discovery. A mismatch means something else edited the file mid-run.
func VerifyHash(path, want string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ApplyHashMismatch)
	}
	if got := CalculateHash(content); got != want {
		return errors.New(errors.ApplyHashMismatch,
			fmt.Sprintf("%s changed during run (hash %s, expected %s)", path, got[:12], want[:12]))
	}
	return nil
}
