// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package kvedit is a format-preserving editor for KEY=VALUE configuration
// files (ifcfg and friends). Comments, blank lines, ordering and lines it
// cannot interpret are kept verbatim; rendering an untouched editor
// reproduces the input byte-for-byte.
package kvedit

import (
	"fmt"
	"regexp"
	"strings"
)

var keyValueRe = regexp.MustCompile(`^([ \t]*([A-Za-z_][A-Za-z0-9_.-]*)[ \t]*=)(.*)$`)

type line struct {
	raw    string // original text, newline stripped
	key    string // empty for comments, blanks and unparsed lines
	value  string
	active bool
	prefix string // text up to and including '='
	quote  byte   // surrounding quote of the value, 0 if unquoted
	suffix string // trailing comment with its leading whitespace
}

// Editor holds an arena of owned lines plus a key-to-index map. The index
// always points at the last active occurrence of a key.
type Editor struct {
	lines           []line
	index           map[string]int
	warnings        []string
	trailingNewline bool
}

// Parse builds an editor over KEY=VALUE content. Parsing never fails; lines
// it cannot interpret are carried as opaque text. A repeated active key is
// "last one wins" plus a warning.
func Parse(content string) *Editor {
	ed := &Editor{index: make(map[string]int)}
	if content == "" {
		return ed
	}

	raw := strings.Split(content, "\n")
	if raw[len(raw)-1] == "" {
		ed.trailingNewline = true
		raw = raw[:len(raw)-1]
	}

	for i, text := range raw {
		ln := parseLine(text)
		if ln.active {
			if prev, ok := ed.index[ln.key]; ok {
				ed.warnings = append(ed.warnings, fmt.Sprintf(
					"duplicate key %s: line %d overrides line %d", ln.key, i+1, prev+1))
			}
			ed.index[ln.key] = i
		}
		ed.lines = append(ed.lines, ln)
	}
	return ed
}

func parseLine(text string) line {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return line{raw: text}
	}

	m := keyValueRe.FindStringSubmatch(text)
	if m == nil {
		return line{raw: text}
	}

	ln := line{raw: text, key: m[2], prefix: m[1], active: true}
	ln.value, ln.quote, ln.suffix = parseValue(m[3])
	return ln
}

// parseValue splits the text after '=' into value, quote style and trailing
// comment. Comment stripping is conservative: only an unquoted '#' preceded
// by whitespace starts a comment.
func parseValue(rest string) (string, byte, string) {
	if len(rest) > 0 && (rest[0] == '\'' || rest[0] == '"') {
		q := rest[0]
		if end := strings.LastIndexByte(rest[1:], q); end >= 0 {
			return rest[1 : end+1], q, rest[end+2:]
		}
		// Unterminated quote, treat the whole remainder as the value.
		return rest[1:], q, ""
	}

	for i := 0; i < len(rest); i++ {
		if rest[i] == '#' && i > 0 && (rest[i-1] == ' ' || rest[i-1] == '\t') {
			ws := i
			for ws > 0 && (rest[ws-1] == ' ' || rest[ws-1] == '\t') {
				ws--
			}
			return strings.TrimSpace(rest[:ws]), 0, rest[ws:]
		}
	}
	return strings.TrimSpace(rest), 0, ""
}

// Get returns the value of the last active occurrence of key.
func (e *Editor) Get(key string) (string, bool) {
	i, ok := e.index[key]
	if !ok || !e.lines[i].active {
		return "", false
	}
	return e.lines[i].value, true
}

// Has reports whether key has an active line.
func (e *Editor) Has(key string) bool {
	_, ok := e.Get(key)
	return ok
}

// ActiveKeys returns the active keys in file order.
func (e *Editor) ActiveKeys() []string {
	var keys []string
	for i, ln := range e.lines {
		if ln.active && e.index[ln.key] == i {
			keys = append(keys, ln.key)
		}
	}
	return keys
}

// Warnings returns recoverable parse warnings (duplicate keys and the like).
func (e *Editor) Warnings() []string {
	return e.warnings
}

// Set assigns a value to key. When the key has an active tracked line the
// line is rewritten in place, keeping its quoting and trailing comment.
// When the key is absent, or its tracked line has been commented out, a new
// active line is appended instead: Set never resurrects a disabled value.
func (e *Editor) Set(key, value string) {
	if i, ok := e.index[key]; ok && e.lines[i].active {
		ln := &e.lines[i]
		ln.value = value
		ln.raw = ln.prefix + formatValue(value, ln.quote) + ln.suffix
		return
	}

	e.lines = append(e.lines, line{
		raw:    key + "=" + formatValue(value, 0),
		key:    key,
		value:  value,
		active: true,
		prefix: key + "=",
	})
	e.index[key] = len(e.lines) - 1
}

func formatValue(value string, quote byte) string {
	if quote == 0 && strings.ContainsAny(value, " \t#") {
		quote = '"'
	}
	if quote == 0 {
		return value
	}
	return string(quote) + value + string(quote)
}

// CommentOut disables every active line for key in place, prefixing each
// with "# " and appending an explanatory tag, then drops the key from the
// index so Get reports absence. Duplicates are all disabled; leaving an
// earlier occurrence live would silently promote its value. Idempotent;
// reports whether any line was disabled.
func (e *Editor) CommentOut(key, tag string) bool {
	hit := false
	for i := range e.lines {
		ln := &e.lines[i]
		if !ln.active || ln.key != key {
			continue
		}
		ln.raw = "# " + ln.raw
		if tag != "" {
			ln.raw += "  # " + tag
		}
		ln.active = false
		hit = true
	}
	if hit {
		delete(e.index, key)
	}
	return hit
}

// Delete removes key from the active configuration. The line itself is kept
// as a comment so the original value stays visible in the file.
func (e *Editor) Delete(key, tag string) bool {
	return e.CommentOut(key, tag)
}

// Render reassembles the file. With no edits the output is byte-for-byte
// identical to the parsed input.
func (e *Editor) Render() string {
	if len(e.lines) == 0 {
		return ""
	}
	var b strings.Builder
	for i, ln := range e.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(ln.raw)
	}
	if e.trailingNewline {
		b.WriteByte('\n')
	}
	return b.String()
}
