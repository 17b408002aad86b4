// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package discovery walks a mounted guest filesystem and collects every
// network configuration file the fixers know how to handle. Paths are
// fixed per dialect; there is no content sniffing outside the known
// locations.
package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stratastor/netfix/pkg/netfix/fsops"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// location binds a glob under the guest root to a configuration type.
type location struct {
	pattern string
	ctype   types.ConfigType
}

var locations = []location{
	{"etc/sysconfig/network-scripts/ifcfg-*", types.ConfigTypeIfcfg},
	{"etc/sysconfig/network/ifcfg-*", types.ConfigTypeWickedIfcfg},
	{"etc/network/interfaces", types.ConfigTypeInterfaces},
	{"etc/network/interfaces.d/*", types.ConfigTypeInterfaces},
	{"etc/netplan/*.yaml", types.ConfigTypeNetplan},
	{"etc/netplan/*.yml", types.ConfigTypeNetplan},
	{"etc/systemd/network/*.network", types.ConfigTypeNetworkd},
	{"etc/systemd/network/*.netdev", types.ConfigTypeNetworkd},
	{"etc/systemd/network/*.link", types.ConfigTypeNetworkd},
	{"etc/NetworkManager/system-connections/*", types.ConfigTypeNMKeyfile},
	{"etc/wicked/ifconfig/*.xml", types.ConfigTypeWickedXML},
}

// Suffixes that mark editor droppings and earlier backups.
var skipSuffixes = []string{
	"~", ".bak", ".orig", ".old", ".rpmsave", ".rpmnew", ".dpkg-old", ".dpkg-dist",
}

// Discover collects config records under root. backupSuffix is the active
// backup suffix of the run; files carrying it are never config records,
// whatever it is set to. Records come back sorted by guest path so runs are
// deterministic.
func Discover(root, backupSuffix string, log *types.RunContext) ([]*types.ConfigRecord, error) {
	var records []*types.ConfigRecord
	seen := map[string]bool{}

	for _, loc := range locations {
		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(loc.pattern)))
		if err != nil {
			// Only malformed patterns error; ours are static.
			continue
		}
		for _, path := range matches {
			if seen[path] || shouldSkip(path, backupSuffix, loc.ctype) {
				continue
			}
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			content, err := os.ReadFile(path)
			if err != nil {
				if log != nil && log.Logger != nil {
					log.Logger.Warn("skipping unreadable config file", "path", path, "error", err)
				}
				continue
			}
			seen[path] = true
			guest, relErr := filepath.Rel(root, path)
			if relErr != nil {
				guest = path
			}
			records = append(records, &types.ConfigRecord{
				Path:      path,
				GuestPath: "/" + filepath.ToSlash(guest),
				Type:      loc.ctype,
				Content:   string(content),
				Hash:      fsops.CalculateHash(content),
				Mode:      uint32(info.Mode().Perm()),
			})
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].GuestPath < records[j].GuestPath
	})
	return records, nil
}

func shouldSkip(path, backupSuffix string, t types.ConfigType) bool {
	base := filepath.Base(path)
	if base == "ifcfg-lo" {
		return true
	}
	for _, suffix := range skipSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	// Earlier netfix backups carry their suffix mid-name (the uuid tail
	// follows it). The default suffix is skipped even when the run uses a
	// custom one, so mixed-suffix histories stay out of the record set.
	if strings.Contains(base, fsops.DefaultBackupSuffix) {
		return true
	}
	if backupSuffix != "" && strings.Contains(base, backupSuffix) {
		return true
	}
	if t == types.ConfigTypeNMKeyfile && !strings.HasSuffix(base, ".nmconnection") {
		return true
	}
	return false
}
