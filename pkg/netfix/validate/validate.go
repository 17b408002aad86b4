// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package validate gates fixed content before it is written back. A failed
// check rejects the whole file; the original content is kept on disk.
package validate

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/stratastor/netfix/pkg/netfix/kvedit"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// Check runs the dialect-specific sanity checks against the fixed content.
// It returns the list of violations; an empty list means the write may
// proceed.
func Check(rec *types.ConfigRecord, fixed string) []string {
	var errs []string

	if strings.TrimSpace(rec.Content) != "" && strings.TrimSpace(fixed) == "" {
		errs = append(errs, "fixed content is empty but original was not")
		return errs
	}

	switch rec.Type {
	case types.ConfigTypeIfcfg, types.ConfigTypeWickedIfcfg:
		errs = append(errs, checkIfcfg(rec.Content, fixed)...)
	case types.ConfigTypeNetplan:
		errs = append(errs, checkNetplan(fixed)...)
	case types.ConfigTypeNetworkd, types.ConfigTypeNMKeyfile:
		errs = append(errs, checkINI(rec.Content, fixed)...)
	case types.ConfigTypeInterfaces:
		errs = append(errs, checkInterfaces(rec.Content, fixed)...)
	}
	return errs
}

// checkIfcfg verifies that an active DEVICE assignment survives fixing.
// Renames change the value, never the key.
func checkIfcfg(original, fixed string) []string {
	if !kvedit.Parse(original).Has("DEVICE") {
		return nil
	}
	if !kvedit.Parse(fixed).Has("DEVICE") {
		return []string{"DEVICE assignment lost during fixing"}
	}
	return nil
}

func checkNetplan(fixed string) []string {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(fixed), &doc); err != nil {
		return []string{fmt.Sprintf("fixed YAML does not parse: %v", err)}
	}
	if doc == nil {
		return []string{"fixed YAML decodes to null"}
	}
	return nil
}

// checkINI verifies the fixed file still parses as INI and that no section
// header was lost.
func checkINI(original, fixed string) []string {
	var errs []string
	opts := ini.LoadOptions{
		AllowNonUniqueSections: true,
		AllowShadows:           true,
		AllowBooleanKeys:       true,
	}
	if _, err := ini.LoadSources(opts, []byte(fixed)); err != nil {
		errs = append(errs, fmt.Sprintf("fixed content does not parse: %v", err))
	}
	if got, want := countSections(fixed), countSections(original); got < want {
		errs = append(errs, fmt.Sprintf("section headers lost during fixing: %d -> %d", want, got))
	}
	return errs
}

func checkInterfaces(original, fixed string) []string {
	if hasIfaceKeyword(original) && !hasIfaceKeyword(fixed) {
		return []string{"iface stanza lost during fixing"}
	}
	return nil
}

func countSections(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			n++
		}
	}
	return n
}

func hasIfaceKeyword(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == "iface" {
			return true
		}
	}
	return false
}
