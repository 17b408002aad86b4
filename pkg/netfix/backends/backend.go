// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package backends holds the six per-dialect fixers. Each fixer is a
// stateless transform: one record in, one FixResult out, with the topology
// graph and rename map as read-only shared inputs. The orchestrator never
// looks past the Fixer interface.
package backends

import (
	"strings"

	"github.com/stratastor/netfix/pkg/netfix/rename"
	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// Fixer is the one contract every dialect backend implements.
type Fixer interface {
	Type() types.ConfigType
	Fix(run *types.RunContext, rec *types.ConfigRecord, topo *topology.Graph,
		renames rename.Map, level types.FixLevel) (*types.FixResult, error)
}

// ForType resolves the backend for a configuration type. The ifcfg backend
// serves both the RH and SUSE key-value dialects.
func ForType(t types.ConfigType) (Fixer, bool) {
	switch t {
	case types.ConfigTypeIfcfg, types.ConfigTypeWickedIfcfg:
		return &IfcfgFixer{}, true
	case types.ConfigTypeNetplan:
		return &NetplanFixer{}, true
	case types.ConfigTypeInterfaces:
		return &InterfacesFixer{}, true
	case types.ConfigTypeNetworkd:
		return &NetworkdFixer{}, true
	case types.ConfigTypeNMKeyfile:
		return &NMKeyfileFixer{}, true
	case types.ConfigTypeWickedXML:
		return &WickedXMLFixer{}, true
	}
	return nil, false
}

// commentTag is appended to every line a fixer disables, so a reader of the
// guest file can tell why the line went away.
const commentTag = "netfix: not valid after migration to KVM"

// hypervisorDrivers are NIC driver names tied to the source hypervisor.
// They have no device to bind under KVM.
var hypervisorDrivers = []string{
	"vmxnet3", "vmxnet2", "vmxnet", "vmnet3", "vlance", "pcnet32",
	"hv_netvsc", "netvsc", "xen_netfront", "xennet",
}

// isHypervisorDriver matches a single token against the driver list.
func isHypervisorDriver(token string) bool {
	token = strings.ToLower(strings.Trim(token, `"'`))
	for _, d := range hypervisorDrivers {
		if token == d {
			return true
		}
	}
	return false
}

// mentionsHypervisorDriver scans free-form text for any hypervisor driver
// name on word-ish boundaries.
func mentionsHypervisorDriver(text string) bool {
	lower := strings.ToLower(text)
	for _, d := range hypervisorDrivers {
		idx := strings.Index(lower, d)
		for idx >= 0 {
			before := idx == 0 || !isWordByte(lower[idx-1])
			after := idx+len(d) == len(lower) || !isWordByte(lower[idx+len(d)])
			if before && after {
				return true
			}
			next := strings.Index(lower[idx+1:], d)
			if next < 0 {
				break
			}
			idx += 1 + next
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || b == '-' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// noChange returns a FixResult that leaves the record untouched.
func noChange(rec *types.ConfigRecord) *types.FixResult {
	return &types.FixResult{NewContent: rec.Content}
}
