// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package backends

import (
	"regexp"

	"github.com/stratastor/netfix/pkg/netfix/rename"
	"github.com/stratastor/netfix/pkg/netfix/topology"
	"github.com/stratastor/netfix/pkg/netfix/types"
)

// WickedXMLFixer repairs Wicked XML interface files. Edits are textual and
// surgical so the document keeps its original formatting; a DOM round-trip
// would reflow every element.
type WickedXMLFixer struct{}

func (f *WickedXMLFixer) Type() types.ConfigType { return types.ConfigTypeWickedXML }

var (
	wickedMACElemRe = regexp.MustCompile(
		`[ \t]*<(mac-address|permanent-mac-address)>[^<]*</(mac-address|permanent-mac-address)>[ \t]*\r?\n?`)
	wickedNameElemRe   = regexp.MustCompile(`(<name>)([^<]*)(</name>)`)
	wickedDeviceElemRe = regexp.MustCompile(`(<device>)([^<]*)(</device>)`)
)

func (f *WickedXMLFixer) Fix(run *types.RunContext, rec *types.ConfigRecord,
	topo *topology.Graph, renames rename.Map, level types.FixLevel,
) (*types.FixResult, error) {
	res := &types.FixResult{}
	content := rec.Content

	if level.AtLeast(types.LevelModerate) {
		stripped := wickedMACElemRe.ReplaceAllString(content, "")
		if stripped != content {
			content = stripped
			res.AppliedFixes = append(res.AppliedFixes,
				types.FixID(types.FixMACPinningRemoved, "mac-address"))
		}
	}

	if level.AtLeast(types.LevelAggressive) && len(renames) > 0 {
		content = wickedNameElemRe.ReplaceAllStringFunc(content, func(m string) string {
			sub := wickedNameElemRe.FindStringSubmatch(m)
			if next, ok := renames[sub[2]]; ok {
				res.AppliedFixes = append(res.AppliedFixes,
					types.RenameID(types.FixDeviceRenamed, sub[2], next))
				return sub[1] + next + sub[3]
			}
			return m
		})
		content = wickedDeviceElemRe.ReplaceAllStringFunc(content, func(m string) string {
			sub := wickedDeviceElemRe.FindStringSubmatch(m)
			if next, ok := renames[sub[2]]; ok {
				res.AppliedFixes = append(res.AppliedFixes,
					types.FixID(types.FixReferenceRenamed, sub[2]))
				return sub[1] + next + sub[3]
			}
			return m
		})
	}

	res.NewContent = content
	if !res.Changed() {
		res.NewContent = rec.Content
	}
	return res, nil
}
