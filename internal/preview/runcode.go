// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package preview

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// rootCandidates are the component names tried in order when mounting
// arbitrary source in a runnable document.
var rootCandidates = []string{"Home", "App", "Main"}

var (
	// export default App; / export default App
	defaultAliasRe = regexp.MustCompile(`(?m)^\s*export\s+default\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*;?\s*$`)
	// export default function App( / export default class App
	defaultDeclRe = regexp.MustCompile(`export\s+default\s+(?:function|class)\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
)

// RootComponent finds the component the runnable document should mount:
// one of the known root names declared in the code, or the alias of a
// default export. Returns false when no mountable component is found.
func RootComponent(code string) (string, bool) {
	for _, name := range rootCandidates {
		declRe := regexp.MustCompile(`\b(?:function|class|const|let|var)\s+` + name + `\b`)
		if declRe.MatchString(code) {
			return name, true
		}
	}
	if m := defaultDeclRe.FindStringSubmatch(code); m != nil {
		return m[1], true
	}
	if m := defaultAliasRe.FindStringSubmatch(code); m != nil {
		return m[1], true
	}
	return "", false
}

// RunDocument wraps arbitrary front-end source in a complete runnable HTML
// document: a React/Babel shell with a mount bootstrap for the detected
// root component. When no root component is found it returns an HTML error
// placeholder rather than an error, so callers can always render something.
func RunDocument(code string) string {
	root, ok := RootComponent(code)
	if !ok {
		return errorPlaceholder("No root component found. Define a component named Home, App or Main, or add a default export.")
	}

	// Module-style export statements do not run under in-browser Babel;
	// strip them but keep the declarations they name.
	prepared := defaultDeclRe.ReplaceAllStringFunc(code, func(s string) string {
		return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "export default"))
	})
	prepared = defaultAliasRe.ReplaceAllString(prepared, "")

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Preview</title>
<script src="https://unpkg.com/react@18/umd/react.development.js"></script>
<script src="https://unpkg.com/react-dom@18/umd/react-dom.development.js"></script>
<script src="https://unpkg.com/@babel/standalone/babel.min.js"></script>
<link href="https://cdn.jsdelivr.net/npm/tailwindcss@2.2.19/dist/tailwind.min.css" rel="stylesheet">
</head>
<body>
<div id="root"></div>
<script type="text/babel">
`)
	b.WriteString(prepared)
	b.WriteString(fmt.Sprintf(`

try {
  ReactDOM.createRoot(document.getElementById('root')).render(<%s />);
} catch (error) {
  document.getElementById('root').innerHTML =
    '<div class="p-4 text-red-500"><p>Error rendering component:</p><pre>' + error.message + '</pre></div>';
}
</script>
</body>
</html>
`, root))
	return b.String()
}

// errorPlaceholder builds a complete HTML document describing why nothing
// could be rendered.
func errorPlaceholder(message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Preview</title>
</head>
<body>
<div style="padding:1rem;color:#b91c1c;font-family:sans-serif">
<p>Unable to render preview:</p>
<pre>%s</pre>
</div>
</body>
</html>
`, html.EscapeString(message))
}
