// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package filetree

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// DetectLanguage maps a filename to an editor language tag using chroma's
// lexer registry. Returns "" when the filename matches no known lexer.
func DetectLanguage(filename string) string {
	lexer := lexers.Match(filename)
	if lexer == nil {
		return ""
	}
	cfg := lexer.Config()
	if cfg == nil {
		return ""
	}
	// Prefer the short alias ("js" over "JavaScript") when one exists.
	if len(cfg.Aliases) > 0 {
		return cfg.Aliases[0]
	}
	return strings.ToLower(cfg.Name)
}
