// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"sort"
	"strconv"
	"strings"
)

// autoconfigBanner heads the generated define header.
const autoconfigBanner = "// Autogenerated by the stage manager, do not edit! Your changes will be lost.\n"

// GenerateHeader renders the collected stage and plugin defines as a WGSL
// constant block. Keys are emitted in sorted order so the header (and hence
// every program hash) is deterministic for a given define set.
//
// Values that parse as integers become i32 constants, floating point values
// become f32 constants, and booleans become i32 0/1. Anything else cannot be
// represented as a WGSL constant and is emitted as a comment so it still
// shows up when dumping the header.
func GenerateHeader(defines map[string]string) string {
	if len(defines) == 0 {
		return autoconfigBanner
	}

	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(autoconfigBanner)
	for _, k := range keys {
		b.WriteString(formatDefine(k, defines[k]))
	}
	return b.String()
}

func formatDefine(key, value string) string {
	name := SanitizeDefineName(key)
	if v, err := strconv.ParseInt(value, 10, 32); err == nil {
		return "const " + name + ": i32 = " + strconv.FormatInt(v, 10) + ";\n"
	}
	if v, err := strconv.ParseFloat(value, 32); err == nil {
		return "const " + name + ": f32 = " + strconv.FormatFloat(v, 'g', -1, 32) + ";\n"
	}
	switch value {
	case "true":
		return "const " + name + ": i32 = 1;\n"
	case "false":
		return "const " + name + ": i32 = 0;\n"
	}
	return "// " + name + " = " + value + "\n"
}

// SanitizeDefineName converts a define key into a valid WGSL identifier.
// Plugin settings arrive as "plugin.setting" keys; dots and other
// non-identifier characters become underscores.
func SanitizeDefineName(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for i, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
