// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stratastor/logger"
)

// ConfigType identifies the configuration dialect of a discovered file.
type ConfigType string

const (
	ConfigTypeIfcfg       ConfigType = "ifcfg"        // RH-style KEY=VALUE files
	ConfigTypeInterfaces  ConfigType = "interfaces"   // Debian /etc/network/interfaces
	ConfigTypeNetplan     ConfigType = "netplan"      // declarative network YAML
	ConfigTypeNetworkd    ConfigType = "networkd"     // systemd .network/.netdev
	ConfigTypeNMKeyfile   ConfigType = "nm-keyfile"   // NetworkManager profiles
	ConfigTypeWickedXML   ConfigType = "wicked-xml"   // Wicked XML configuration
	ConfigTypeWickedIfcfg ConfigType = "wicked-ifcfg" // SUSE KEY=VALUE files
	ConfigTypeUnknown     ConfigType = "unknown"
)

// FixLevel is the ordered fix aggressiveness tier. Higher tiers are strict
// supersets of lower ones.
type FixLevel int

const (
	LevelConservative FixLevel = iota
	LevelModerate
	LevelAggressive
)

func (l FixLevel) String() string {
	switch l {
	case LevelConservative:
		return "conservative"
	case LevelModerate:
		return "moderate"
	case LevelAggressive:
		return "aggressive"
	}
	return fmt.Sprintf("fixlevel(%d)", int(l))
}

// AtLeast reports whether l includes the fixes of tier t.
func (l FixLevel) AtLeast(t FixLevel) bool {
	return l >= t
}

// ParseFixLevel resolves a level name from configuration or an API request.
func ParseFixLevel(s string) (FixLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conservative":
		return LevelConservative, nil
	case "moderate", "":
		return LevelModerate, nil
	case "aggressive":
		return LevelAggressive, nil
	}
	return LevelModerate, fmt.Errorf("unknown fix level %q", s)
}

// ConfigRecord is one discovered configuration file. Records are created by
// discovery and consumed read-only; a change produces a FixResult instead of
// mutating the record.
type ConfigRecord struct {
	Path      string     `json:"path"`       // host path under the mounted guest root
	GuestPath string     `json:"guest_path"` // path as the guest sees it
	Type      ConfigType `json:"type"`
	Content   string     `json:"-"`
	Hash      string     `json:"hash"`
	Mode      uint32     `json:"mode"` // observed file mode, 0 if unknown

	// AppliedFixes lists fix identifiers already applied to this file in
	// earlier runs, when the caller tracks them.
	AppliedFixes []string `json:"applied_fixes,omitempty"`
}

// FixResult is the terminal outcome of fixing one record: discarded when
// AppliedFixes is empty, applied when validation passes, rejected otherwise.
type FixResult struct {
	NewContent       string   `json:"-"`
	AppliedFixes     []string `json:"applied_fixes"`
	ValidationErrors []string `json:"validation_errors,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
	BackupCreated    bool     `json:"backup_created"`
}

// Changed reports whether the fix produced any edit.
func (r *FixResult) Changed() bool {
	return len(r.AppliedFixes) > 0
}

// Rejected reports whether the validation gate refused the fix.
func (r *FixResult) Rejected() bool {
	return len(r.ValidationErrors) > 0
}

// DeviceKind is the best-known role of a device in the topology. A kind may
// be upgraded from Unknown to a concrete kind but never downgraded.
type DeviceKind string

const (
	KindEthernet DeviceKind = "ethernet"
	KindBond     DeviceKind = "bond"
	KindBridge   DeviceKind = "bridge"
	KindVlan     DeviceKind = "vlan"
	KindUnknown  DeviceKind = "unknown"
)

// EdgeKind tags a directed topology relation.
type EdgeKind string

const (
	EdgeSlave EdgeKind = "slave" // ethernet -> bond
	EdgePort  EdgeKind = "port"  // ethernet/bond -> bridge
	EdgeVlan  EdgeKind = "vlan"  // parent -> vlan child
)

// Fix identifiers. Applied fixes are reported as "<kind>:<subject>" strings,
// e.g. "mac-pinning-removed:HWADDR" or "dhcp-enabled:ens224".
const (
	FixHypervisorDriverRemoved = "hypervisor-driver-removed"
	FixHypervisorParamRemoved  = "hypervisor-param-removed"
	FixMACPinningRemoved       = "mac-pinning-removed"
	FixBootProtoNormalized     = "bootproto-normalized"
	FixDHCPNormalized          = "dhcp-normalized"
	FixDHCPEnabled             = "dhcp-enabled"
	FixStaticToDHCP            = "static-to-dhcp"
	FixDeviceRenamed           = "device-renamed"
	FixReferenceRenamed        = "reference-renamed"
)

// FixID formats an applied-fix identifier.
func FixID(kind, subject string) string {
	if subject == "" {
		return kind
	}
	return kind + ":" + subject
}

// RenameID formats a rename fix identifier carrying both names.
func RenameID(kind, from, to string) string {
	return FixID(kind, from+">"+to)
}

// RunContext carries per-run state shared by all fixers: the run logger and
// a warn-once set, so repeated conditions across hundreds of files log a
// single line. One RunContext per run; never package-level.
type RunContext struct {
	Logger logger.Logger

	mu     sync.Mutex
	warned map[string]bool
}

func NewRunContext(log logger.Logger) *RunContext {
	return &RunContext{
		Logger: log,
		warned: make(map[string]bool),
	}
}

// WarnOnce logs the warning the first time key is seen in this run and
// reports whether it logged.
func (rc *RunContext) WarnOnce(key, msg string, kv ...interface{}) bool {
	rc.mu.Lock()
	seen := rc.warned[key]
	if !seen {
		rc.warned[key] = true
	}
	rc.mu.Unlock()

	if seen {
		return false
	}
	if rc.Logger != nil {
		rc.Logger.Warn(msg, kv...)
	}
	return true
}
