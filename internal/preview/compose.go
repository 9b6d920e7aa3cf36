// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package preview derives renderable HTML documents from the file model.
//
// Composition is deterministic and recomputed in full on every call; there
// is no incremental patching. Relative asset references inside documents are
// not resolved into a bundle; an index.html is used verbatim and is
// responsible for referencing its own CSS/JS.
package preview

import (
	"html"
	"strings"

	"github.com/pagesmith/pagesmith/internal/filetree"
)

// scriptExts and styleExts classify file extensions for shell synthesis.
var (
	scriptExts = map[string]bool{
		".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true,
	}
	styleExts = map[string]bool{
		".css": true,
	}
)

// Compose resolves the document to preview for the given active file.
//
// Resolution order:
//  1. the active file itself, when its content is a complete HTML document;
//  2. the first file literally named "index.html" (exact, case-sensitive)
//     in Walk order, used verbatim;
//  3. a synthesized minimal shell inlining the active file's content as a
//     <script> or <style> tag depending on its extension.
func Compose(tree *filetree.Tree, activeID string) string {
	active, err := tree.Get(activeID)
	if err == nil && active.IsFile() && isCompleteHTML(active.Content) {
		return active.Content
	}

	if index, ok := tree.FindFile("index.html"); ok {
		return index.Content
	}

	if err != nil || !active.IsFile() {
		return emptyShell
	}
	return synthesizeShell(active)
}

// isCompleteHTML reports whether content already is a full HTML document.
func isCompleteHTML(content string) bool {
	head := strings.ToLower(strings.TrimSpace(content))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}

func synthesizeShell(active filetree.Node) string {
	ext := strings.ToLower(extOf(active.Name))

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("<title>Preview</title>\n")

	switch {
	case styleExts[ext]:
		b.WriteString("<style>\n")
		b.WriteString(active.Content)
		b.WriteString("\n</style>\n</head>\n<body>\n")
	case scriptExts[ext]:
		b.WriteString("</head>\n<body>\n<div id=\"root\"></div>\n<script>\n")
		b.WriteString(active.Content)
		b.WriteString("\n</script>\n")
	default:
		b.WriteString("</head>\n<body>\n<pre>")
		b.WriteString(html.EscapeString(active.Content))
		b.WriteString("</pre>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

// emptyShell is shown when there is nothing sensible to preview.
const emptyShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Preview</title>
</head>
<body>
</body>
</html>
`
