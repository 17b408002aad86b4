// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package rename computes the hypervisor-to-generic interface rename map
// used at the aggressive fix level. The planner only produces the map; the
// dialect fixers rewrite their own reference fields from it.
package rename

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// Map is the authoritative old-name to new-name mapping for one run.
type Map map[string]string

// Plan is the planner output: the rename map plus planning warnings.
type Plan struct {
	Renames  Map
	Warnings []string
}

// Hypervisor-assigned name shapes that do not survive migration to KVM.
var hypervisorNameRes = []*regexp.Regexp{
	regexp.MustCompile(`^ens\d+$`),
	regexp.MustCompile(`^eno\d+$`),
	regexp.MustCompile(`^enp\d+s\d+(f\d+)?(d\d+)?$`),
	regexp.MustCompile(`^em\d+$`),
	regexp.MustCompile(`^p\d+p\d+$`),
	regexp.MustCompile(`^vmnic\d+$`),
}

// Generic or stable names that must never be renamed.
var stableNameRes = []*regexp.Regexp{
	regexp.MustCompile(`^eth\d+$`),
	regexp.MustCompile(`^lo$`),
	regexp.MustCompile(`^bond\d+$`),
	regexp.MustCompile(`^(br|bridge)\d+$`),
	regexp.MustCompile(`^br-`),
	regexp.MustCompile(`^vlan\d+$`),
}

var trailingDigitsRe = regexp.MustCompile(`(\d+)$`)

// maxProbe bounds the collision probe. Exhausting it is surfaced as a
// warning and the candidate keeps its original name; nothing fails silently.
const maxProbe = 1024

// NeedsRename reports whether a device name matches a hypervisor-specific
// pattern without matching any generic/stable pattern.
func NeedsRename(name string) bool {
	for _, re := range stableNameRes {
		if re.MatchString(name) {
			return false
		}
	}
	for _, re := range hypervisorNameRes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// ComputePlan builds a collision-free rename map over the topology graph.
// Only Ethernet and Unknown nodes are candidates; bonds, bridges and VLANs
// keep their names. Below the aggressive level the plan is empty.
func ComputePlan(g *topology.Graph, level types.FixLevel) *Plan {
	plan := &Plan{Renames: make(Map)}
	if !level.AtLeast(types.LevelAggressive) {
		return plan
	}

	var candidates []string
	taken := make(map[string]bool)
	for _, name := range g.NodeNames() {
		taken[name] = true
		kind := g.KindOf(name)
		if kind != types.KindEthernet && kind != types.KindUnknown {
			continue
		}
		if NeedsRename(name) {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)

	// Renamed devices free their old names.
	for _, name := range candidates {
		delete(taken, name)
	}

	for _, name := range candidates {
		next, ok := probe(name, taken)
		if !ok {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf(
				"no free eth index for %s after %d probes; keeping original name",
				name, maxProbe))
			taken[name] = true
			continue
		}
		plan.Renames[name] = next
		taken[next] = true
	}

	propagateVlans(g, plan.Renames)
	return plan
}

// probe picks "eth" + the trailing numeric suffix of the old name, then
// linearly probes successive indices until one is free.
func probe(name string, taken map[string]bool) (string, bool) {
	start := 0
	if m := trailingDigitsRe.FindString(name); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			start = n
		}
	}
	for i := 0; i < maxProbe; i++ {
		candidate := "eth" + strconv.Itoa(start+i)
		if !taken[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// propagateVlans extends the flat map across dotted VLAN sub-names:
// old.<digits> follows old. Sub-names are never direct rename targets, so
// this is the only way they move.
func propagateVlans(g *topology.Graph, renames Map) {
	for _, name := range g.NodeNames() {
		if _, done := renames[name]; done {
			continue
		}
		base, vid, ok := strings.Cut(name, ".")
		if !ok || !isDigits(vid) {
			continue
		}
		if next, ok := renames[base]; ok {
			renames[name] = next + "." + vid
		}
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
