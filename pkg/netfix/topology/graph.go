// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package topology builds the cross-file device relationship graph used by
// the rename planner and the dialect fixers. The graph is assembled once per
// run from best-effort per-dialect extraction and read-only afterwards,
// except for an optional in-place rename pass.
package topology

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/stratastor/netfix/pkg/netfix/types"
)

// Node is one device in the merged topology.
type Node struct {
	Name    string            `json:"name"`
	Kind    types.DeviceKind  `json:"kind"`
	Sources []string          `json:"sources,omitempty"` // contributing file paths
	Props   map[string]string `json:"props,omitempty"`
}

// Edge is a directed relation between two devices. Edges accumulate without
// deduplication; the graph is only ever queried for existence.
type Edge struct {
	Src  string         `json:"src"`
	Dst  string         `json:"dst"`
	Kind types.EdgeKind `json:"kind"`
}

// Graph holds all nodes and edges for one run plus accumulated warnings.
type Graph struct {
	nodes    map[string]*Node
	order    []string // node names in first-seen order
	edges    []Edge
	warnings []string
	aliases  map[string]string // pre-rename name -> current name
}

func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		aliases: make(map[string]string),
	}
}

// AddNode records a device sighting. Kind follows the upgrade rule: Unknown
// may become concrete, a concrete kind is never downgraded; a conflicting
// concrete kind keeps the first one and raises a warning.
func (g *Graph) AddNode(name string, kind types.DeviceKind, source string) *Node {
	name = g.resolve(name)
	if name == "" {
		return nil
	}

	n, ok := g.nodes[name]
	if !ok {
		n = &Node{Name: name, Kind: types.KindUnknown, Props: make(map[string]string)}
		g.nodes[name] = n
		g.order = append(g.order, name)
	}

	if source != "" && !contains(n.Sources, source) {
		n.Sources = append(n.Sources, source)
	}

	switch {
	case kind == types.KindUnknown || kind == n.Kind:
	case n.Kind == types.KindUnknown:
		n.Kind = kind
	default:
		g.AddWarning(fmt.Sprintf(
			"device %s reported as %s and %s; keeping %s", name, n.Kind, kind, n.Kind))
	}
	return n
}

// AddEdge records a directed relation, creating endpoint nodes as needed
// with name-shape fallback kinds.
func (g *Graph) AddEdge(src, dst string, kind types.EdgeKind) {
	if src == "" || dst == "" {
		return
	}
	g.AddNode(src, KindFromName(src), "")
	switch kind {
	case types.EdgeSlave:
		g.AddNode(dst, types.KindBond, "")
	case types.EdgePort:
		g.AddNode(dst, types.KindBridge, "")
	case types.EdgeVlan:
		g.AddNode(dst, types.KindVlan, "")
	}
	g.edges = append(g.edges, Edge{Src: g.resolve(src), Dst: g.resolve(dst), Kind: kind})
}

// Node returns the node for name, following rename aliases. Nil if absent.
func (g *Graph) Node(name string) *Node {
	return g.nodes[g.resolve(name)]
}

// KindOf returns the best-known kind for name, falling back to name-shape
// inference for devices the graph has never seen.
func (g *Graph) KindOf(name string) types.DeviceKind {
	if n := g.Node(name); n != nil {
		return n.Kind
	}
	return KindFromName(name)
}

// HasEdge reports whether at least one matching edge exists.
func (g *Graph) HasEdge(src, dst string, kind types.EdgeKind) bool {
	src, dst = g.resolve(src), g.resolve(dst)
	for _, e := range g.edges {
		if e.Src == src && e.Dst == dst && e.Kind == kind {
			return true
		}
	}
	return false
}

// IsLowerLayerMember reports whether name is the subordinate side of any
// relation: a bond slave, a bridge port, or the physical parent a VLAN rides
// on. Such devices must never receive an automatic DHCP-enabling edit; IP
// configuration belongs on the bond, bridge or VLAN above them.
func (g *Graph) IsLowerLayerMember(name string) bool {
	name = g.resolve(name)
	for _, e := range g.edges {
		if e.Src == name {
			return true
		}
	}
	return false
}

// Nodes returns the nodes in first-seen order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// NodeNames returns all current device names, sorted.
func (g *Graph) NodeNames() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Graph) Edges() []Edge { return g.edges }

func (g *Graph) Warnings() []string { return g.warnings }

func (g *Graph) AddWarning(w string) {
	g.warnings = append(g.warnings, w)
}

// ApplyRenames rewrites node names and edges in place according to the
// planner's map. Old names stay resolvable as aliases so lookups keyed by
// the original file content keep working.
func (g *Graph) ApplyRenames(renames map[string]string) {
	for old, next := range renames {
		n, ok := g.nodes[old]
		if !ok || old == next {
			continue
		}
		delete(g.nodes, old)
		n.Name = next
		g.nodes[next] = n
		g.aliases[old] = next
		for i := range g.order {
			if g.order[i] == old {
				g.order[i] = next
			}
		}
	}
	for i := range g.edges {
		if next, ok := renames[g.edges[i].Src]; ok {
			g.edges[i].Src = next
		}
		if next, ok := renames[g.edges[i].Dst]; ok {
			g.edges[i].Dst = next
		}
	}
}

func (g *Graph) resolve(name string) string {
	if next, ok := g.aliases[name]; ok {
		return next
	}
	return name
}

var (
	bondNameRe   = regexp.MustCompile(`^bond\d+$`)
	bridgeNameRe = regexp.MustCompile(`^(br|bridge)\d+$`)
	vlanNameRe   = regexp.MustCompile(`^vlan\d+$`)
	dottedVlanRe = regexp.MustCompile(`^\S+\.\d+$`)
)

// KindFromName infers a device kind from the shape of its name alone. Used
// as a fallback when no record declares the device.
func KindFromName(name string) types.DeviceKind {
	switch {
	case bondNameRe.MatchString(name):
		return types.KindBond
	case bridgeNameRe.MatchString(name) || strings.HasPrefix(name, "br-"):
		return types.KindBridge
	case vlanNameRe.MatchString(name) || dottedVlanRe.MatchString(name):
		return types.KindVlan
	}
	return types.KindUnknown
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
