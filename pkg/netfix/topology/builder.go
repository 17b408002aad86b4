// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package topology

import (
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stratastor/logger"
	"github.com/stratastor/netfix/pkg/netfix/kvedit"
	"github.com/stratastor/netfix/pkg/netfix/types"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Build merges best-effort facts from every record into one device graph.
// Extraction never fails a record outright: content that cannot be parsed
// contributes nothing beyond a warning. A device name claimed as the primary
// identity by more than one key-value record is flagged, never resolved.
func Build(records []*types.ConfigRecord, log logger.Logger) *Graph {
	g := NewGraph()
	claims := make(map[string][]string) // device -> claiming key-value files

	for _, rec := range records {
		switch rec.Type {
		case types.ConfigTypeIfcfg, types.ConfigTypeWickedIfcfg:
			extractIfcfg(g, rec, claims)
		case types.ConfigTypeNetplan:
			extractNetplan(g, rec)
		case types.ConfigTypeInterfaces:
			extractInterfaces(g, rec)
		case types.ConfigTypeNetworkd:
			extractNetworkd(g, rec)
		case types.ConfigTypeNMKeyfile:
			extractNMKeyfile(g, rec)
		case types.ConfigTypeWickedXML:
			extractWickedXML(g, rec)
		default:
			if log != nil {
				log.Debug("Skipping record with unknown dialect", "path", rec.GuestPath)
			}
		}
	}

	names := make([]string, 0, len(claims))
	for name := range claims {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if len(claims[name]) > 1 {
			g.AddWarning(fmt.Sprintf(
				"device %s is the primary identity of multiple records: %s",
				name, strings.Join(claims[name], ", ")))
		}
	}

	if log != nil {
		log.Info("Built device topology",
			"nodes", len(g.nodes), "edges", len(g.edges), "warnings", len(g.warnings))
	}
	return g
}

// ifcfgDeviceName resolves the primary device of an ifcfg record: the DEVICE
// key when present, the ifcfg-<name> file suffix otherwise.
func ifcfgDeviceName(ed *kvedit.Editor, path string) string {
	if dev, ok := ed.Get("DEVICE"); ok && dev != "" {
		return dev
	}
	base := filepath.Base(path)
	if name, ok := strings.CutPrefix(base, "ifcfg-"); ok {
		return name
	}
	return ""
}

func extractIfcfg(g *Graph, rec *types.ConfigRecord, claims map[string][]string) {
	ed := kvedit.Parse(rec.Content)
	for _, w := range ed.Warnings() {
		g.AddWarning(rec.GuestPath + ": " + w)
	}

	device := ifcfgDeviceName(ed, rec.Path)
	if device == "" {
		g.AddWarning(rec.GuestPath + ": no device identity")
		return
	}
	claims[device] = append(claims[device], rec.GuestPath)

	kind := KindFromName(device)
	if t, ok := ed.Get("TYPE"); ok {
		switch strings.ToLower(t) {
		case "ethernet":
			kind = types.KindEthernet
		case "bond":
			kind = types.KindBond
		case "bridge", "ovsbridge":
			kind = types.KindBridge
		case "vlan":
			kind = types.KindVlan
		}
	}
	if ed.Has("BONDING_OPTS") || equalsYes(ed, "BONDING_MASTER") {
		kind = types.KindBond
	}
	if vlan, ok := ed.Get("VLAN"); ok && strings.EqualFold(vlan, "yes") {
		kind = types.KindVlan
	}

	n := g.AddNode(device, kind, rec.GuestPath)
	if n != nil {
		if proto, ok := ed.Get("BOOTPROTO"); ok {
			n.Props["bootproto"] = proto
		}
	}

	if master, ok := ed.Get("MASTER"); ok && master != "" {
		g.AddEdge(device, master, types.EdgeSlave)
	}

	if bridge, ok := ed.Get("BRIDGE"); ok && bridge != "" {
		if strings.EqualFold(bridge, "yes") {
			// SUSE style: this record is the bridge, ports are listed.
			g.AddNode(device, types.KindBridge, rec.GuestPath)
			if ports, ok := ed.Get("BRIDGE_PORTS"); ok {
				for _, p := range strings.Fields(ports) {
					g.AddEdge(p, device, types.EdgePort)
				}
			}
		} else {
			g.AddEdge(device, bridge, types.EdgePort)
		}
	}

	// SUSE bonds enumerate their slaves on the bond record.
	for _, key := range ed.ActiveKeys() {
		if strings.HasPrefix(key, "BONDING_SLAVE") {
			if slave, ok := ed.Get(key); ok && slave != "" {
				g.AddEdge(slave, device, types.EdgeSlave)
			}
		}
	}

	if kind == types.KindVlan {
		parent := ""
		if p, ok := ed.Get("PHYSDEV"); ok {
			parent = p
		} else if p, ok := ed.Get("ETHERDEVICE"); ok {
			parent = p
		} else if base, _, ok := strings.Cut(device, "."); ok {
			parent = base
		}
		if parent != "" {
			g.AddEdge(parent, device, types.EdgeVlan)
		}
	}
}

func equalsYes(ed *kvedit.Editor, key string) bool {
	v, ok := ed.Get(key)
	return ok && strings.EqualFold(v, "yes")
}

// netplanDoc covers the parts of the declarative YAML the graph cares
// about; unrelated keys are ignored here, never touched.
type netplanDoc struct {
	Network struct {
		Renderer  string                    `yaml:"renderer"`
		Ethernets map[string]map[string]any `yaml:"ethernets"`
		Bonds     map[string]struct {
			Interfaces []string `yaml:"interfaces"`
		} `yaml:"bonds"`
		Bridges map[string]struct {
			Interfaces []string `yaml:"interfaces"`
		} `yaml:"bridges"`
		Vlans map[string]struct {
			Link string `yaml:"link"`
			ID   int    `yaml:"id"`
		} `yaml:"vlans"`
	} `yaml:"network"`
}

func extractNetplan(g *Graph, rec *types.ConfigRecord) {
	var doc netplanDoc
	if err := yaml.Unmarshal([]byte(rec.Content), &doc); err != nil {
		g.AddWarning(fmt.Sprintf("%s: yaml parse error: %v", rec.GuestPath, err))
		return
	}

	for name := range doc.Network.Ethernets {
		g.AddNode(name, types.KindEthernet, rec.GuestPath)
	}
	for name, bond := range doc.Network.Bonds {
		g.AddNode(name, types.KindBond, rec.GuestPath)
		for _, member := range bond.Interfaces {
			g.AddEdge(member, name, types.EdgeSlave)
		}
	}
	for name, bridge := range doc.Network.Bridges {
		g.AddNode(name, types.KindBridge, rec.GuestPath)
		for _, member := range bridge.Interfaces {
			g.AddEdge(member, name, types.EdgePort)
		}
	}
	for name, vlan := range doc.Network.Vlans {
		g.AddNode(name, types.KindVlan, rec.GuestPath)
		if vlan.Link != "" {
			g.AddEdge(vlan.Link, name, types.EdgeVlan)
		}
	}
}

func extractInterfaces(g *Graph, rec *types.ConfigRecord) {
	current := "" // device of the stanza being scanned
	for _, raw := range strings.Split(rec.Content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "iface":
			if len(fields) < 2 {
				continue
			}
			current = fields[1]
			g.AddNode(current, KindFromName(current), rec.GuestPath)
		case "auto", "allow-hotplug":
			for _, name := range fields[1:] {
				g.AddNode(name, KindFromName(name), rec.GuestPath)
			}
		case "bond-master":
			if current != "" && len(fields) > 1 {
				g.AddEdge(current, fields[1], types.EdgeSlave)
			}
		case "bond-slaves", "slaves":
			if current != "" {
				for _, slave := range fields[1:] {
					if slave != "none" {
						g.AddEdge(slave, current, types.EdgeSlave)
					}
				}
			}
		case "bridge_ports", "bridge-ports":
			if current != "" {
				for _, port := range fields[1:] {
					if port != "none" {
						g.AddEdge(port, current, types.EdgePort)
					}
				}
			}
		case "vlan-raw-device", "vlan_raw_device":
			if current != "" && len(fields) > 1 {
				g.AddEdge(fields[1], current, types.EdgeVlan)
			}
		}
	}
}

var networkdLoadOptions = ini.LoadOptions{
	AllowNonUniqueSections: true,
	AllowShadows:           true,
	AllowBooleanKeys:       true,
}

func extractNetworkd(g *Graph, rec *types.ConfigRecord) {
	f, err := ini.LoadSources(networkdLoadOptions, []byte(rec.Content))
	if err != nil {
		g.AddWarning(fmt.Sprintf("%s: ini parse error: %v", rec.GuestPath, err))
		return
	}

	if strings.HasSuffix(rec.Path, ".netdev") {
		for _, sec := range f.Sections() {
			if sec.Name() != "NetDev" {
				continue
			}
			name := sec.Key("Name").String()
			if name == "" {
				continue
			}
			kind := types.KindUnknown
			switch sec.Key("Kind").String() {
			case "bond":
				kind = types.KindBond
			case "bridge":
				kind = types.KindBridge
			case "vlan":
				kind = types.KindVlan
			}
			g.AddNode(name, kind, rec.GuestPath)
		}
		return
	}

	device := networkdMatchName(f)
	if device == "" {
		return
	}
	g.AddNode(device, KindFromName(device), rec.GuestPath)

	for _, sec := range f.Sections() {
		if sec.Name() != "Network" {
			continue
		}
		if bond := sec.Key("Bond").String(); bond != "" {
			g.AddEdge(device, bond, types.EdgeSlave)
		}
		if bridge := sec.Key("Bridge").String(); bridge != "" {
			g.AddEdge(device, bridge, types.EdgePort)
		}
		for _, vlan := range sec.Key("VLAN").ValueWithShadows() {
			if vlan != "" {
				g.AddEdge(device, vlan, types.EdgeVlan)
			}
		}
	}
}

// networkdMatchName returns the first non-glob token of [Match] Name.
func networkdMatchName(f *ini.File) string {
	for _, sec := range f.Sections() {
		if sec.Name() != "Match" {
			continue
		}
		for _, v := range sec.Key("Name").ValueWithShadows() {
			for _, tok := range strings.Fields(v) {
				if !strings.ContainsAny(tok, "*?[!") {
					return tok
				}
			}
		}
	}
	return ""
}

func extractNMKeyfile(g *Graph, rec *types.ConfigRecord) {
	f, err := ini.LoadSources(networkdLoadOptions, []byte(rec.Content))
	if err != nil {
		g.AddWarning(fmt.Sprintf("%s: keyfile parse error: %v", rec.GuestPath, err))
		return
	}

	conn := f.Section("connection")
	device := conn.Key("interface-name").String()
	if device == "" {
		return
	}

	kind := types.KindUnknown
	switch conn.Key("type").String() {
	case "ethernet", "802-3-ethernet":
		kind = types.KindEthernet
	case "bond":
		kind = types.KindBond
	case "bridge":
		kind = types.KindBridge
	case "vlan":
		kind = types.KindVlan
	}
	g.AddNode(device, kind, rec.GuestPath)

	if master := conn.Key("master").String(); master != "" {
		switch conn.Key("slave-type").String() {
		case "bridge":
			g.AddEdge(device, master, types.EdgePort)
		default:
			g.AddEdge(device, master, types.EdgeSlave)
		}
	}

	if parent := f.Section("vlan").Key("parent").String(); parent != "" {
		g.AddEdge(parent, device, types.EdgeVlan)
	}
}

// wickedInterface mirrors the subset of a Wicked <interface> element the
// graph needs.
type wickedInterface struct {
	Name string `xml:"name"`
	Bond *struct {
		Slaves []struct {
			Device string `xml:"device"`
		} `xml:"slaves>slave"`
	} `xml:"bond"`
	Bridge *struct {
		Ports []struct {
			Device string `xml:"device"`
		} `xml:"ports>port"`
	} `xml:"bridge"`
	Vlan *struct {
		Device string `xml:"device"`
		Tag    int    `xml:"tag"`
	} `xml:"vlan"`
}

func extractWickedXML(g *Graph, rec *types.ConfigRecord) {
	dec := xml.NewDecoder(strings.NewReader(rec.Content))
	for {
		tok, err := dec.Token()
		if err != nil {
			if err != io.EOF {
				g.AddWarning(fmt.Sprintf("%s: xml parse error: %v", rec.GuestPath, err))
			}
			return
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "interface" {
			continue
		}

		var iface wickedInterface
		if err := dec.DecodeElement(&iface, &start); err != nil {
			g.AddWarning(fmt.Sprintf("%s: xml parse error: %v", rec.GuestPath, err))
			return
		}
		if iface.Name == "" {
			continue
		}

		kind := KindFromName(iface.Name)
		switch {
		case iface.Bond != nil:
			kind = types.KindBond
		case iface.Bridge != nil:
			kind = types.KindBridge
		case iface.Vlan != nil:
			kind = types.KindVlan
		}
		g.AddNode(iface.Name, kind, rec.GuestPath)

		if iface.Bond != nil {
			for _, s := range iface.Bond.Slaves {
				g.AddEdge(s.Device, iface.Name, types.EdgeSlave)
			}
		}
		if iface.Bridge != nil {
			for _, p := range iface.Bridge.Ports {
				g.AddEdge(p.Device, iface.Name, types.EdgePort)
			}
		}
		if iface.Vlan != nil && iface.Vlan.Device != "" {
			g.AddEdge(iface.Vlan.Device, iface.Name, types.EdgeVlan)
		}
	}
}
