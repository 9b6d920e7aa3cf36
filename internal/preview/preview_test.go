// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package preview

import (
	"strings"
	"testing"

	"github.com/pagesmith/pagesmith/internal/filetree"
)

// =============================================================================
// COMPOSE TESTS
// =============================================================================

func TestCompose_ActiveFileIsCompleteDocument(t *testing.T) {
	tree := filetree.New()
	id, err := tree.AddChild(filetree.RootID, "page.html", filetree.KindFile,
		"<!DOCTYPE html>\n<html><body><h1>Full</h1></body></html>")
	if err != nil {
		t.Fatal(err)
	}

	got := Compose(tree, id)
	if !strings.Contains(got, "<h1>Full</h1>") {
		t.Errorf("Compose() = %q, want the active document verbatim", got)
	}
}

func TestCompose_PrefersIndexHTML(t *testing.T) {
	tree := filetree.New()
	appID, _ := tree.AddChild(filetree.RootID, "app.js", filetree.KindFile, "render();")
	if _, err := tree.AddChild(filetree.RootID, "index.html", filetree.KindFile, "<h1>Index wins</h1>"); err != nil {
		t.Fatal(err)
	}

	got := Compose(tree, appID)
	if got != "<h1>Index wins</h1>" {
		t.Errorf("Compose() = %q, want index.html content verbatim", got)
	}
}

func TestCompose_SynthesizesScriptShell(t *testing.T) {
	tree := filetree.New()
	id, _ := tree.AddChild(filetree.RootID, "app.js", filetree.KindFile, "console.log('x');")

	got := Compose(tree, id)
	if !strings.Contains(got, "<script>\nconsole.log('x');\n</script>") {
		t.Errorf("Compose() missing inlined script:\n%s", got)
	}
	if !strings.HasPrefix(got, "<!DOCTYPE html>") {
		t.Error("synthesized shell must be a complete document")
	}
}

func TestCompose_SynthesizesStyleShell(t *testing.T) {
	tree := filetree.New()
	id, _ := tree.AddChild(filetree.RootID, "styles.css", filetree.KindFile, "body { margin: 0; }")

	got := Compose(tree, id)
	if !strings.Contains(got, "<style>\nbody { margin: 0; }\n</style>") {
		t.Errorf("Compose() missing inlined style:\n%s", got)
	}
}

func TestCompose_EscapesUnknownContent(t *testing.T) {
	tree := filetree.New()
	id, _ := tree.AddChild(filetree.RootID, "notes.txt", filetree.KindFile, "<script>alert(1)</script>")

	got := Compose(tree, id)
	if strings.Contains(got, "<script>alert(1)</script>") {
		t.Error("unknown content must be escaped, not inlined raw")
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("expected escaped content, got:\n%s", got)
	}
}

func TestCompose_IndexMatchIsCaseSensitive(t *testing.T) {
	tree := filetree.New()
	id, _ := tree.AddChild(filetree.RootID, "app.js", filetree.KindFile, "x()")
	if _, err := tree.AddChild(filetree.RootID, "Index.html", filetree.KindFile, "<h1>nope</h1>"); err != nil {
		t.Fatal(err)
	}

	got := Compose(tree, id)
	if strings.Contains(got, "nope") {
		t.Error("Index.html must not be treated as index.html")
	}
}

func TestCompose_Deterministic(t *testing.T) {
	tree := filetree.New()
	id, _ := tree.AddChild(filetree.RootID, "app.js", filetree.KindFile, "f();")

	first := Compose(tree, id)
	second := Compose(tree, id)
	if first != second {
		t.Error("Compose must be deterministic for unchanged inputs")
	}
}

func TestCompose_MissingActiveFile(t *testing.T) {
	tree := filetree.New()
	got := Compose(tree, "/ghost.js")
	if !strings.HasPrefix(got, "<!DOCTYPE html>") {
		t.Errorf("Compose with missing active file should fall back to an empty shell, got %q", got)
	}
}

// =============================================================================
// RUN-CODE TESTS
// =============================================================================

func TestRootComponent(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
		ok   bool
	}{
		{"function App", "function App() { return <div/>; }", "App", true},
		{"const Home arrow", "const Home = () => <div/>;", "Home", true},
		{"class Main", "class Main extends React.Component {}", "Main", true},
		{"default export decl", "export default function Widget() {}", "Widget", true},
		{"default export alias", "function Widget() {}\nexport default Widget;", "Widget", true},
		{"home beats default", "function Home() {}\nexport default Other;", "Home", true},
		{"nothing mountable", "const x = 1;", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := RootComponent(tc.code)
			if ok != tc.ok || got != tc.want {
				t.Errorf("RootComponent() = %q, %v; want %q, %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestRunDocument_MountsComponent(t *testing.T) {
	got := RunDocument("function App() { return <h1>Hi</h1>; }")

	if !strings.Contains(got, "<App />") {
		t.Errorf("RunDocument missing mount bootstrap:\n%s", got)
	}
	if !strings.Contains(got, "function App()") {
		t.Error("RunDocument must inline the source")
	}
	if !strings.Contains(got, "babel") {
		t.Error("RunDocument must include the Babel shell")
	}
}

func TestRunDocument_StripsDefaultExport(t *testing.T) {
	got := RunDocument("export default function Widget() { return null; }")

	if strings.Contains(got, "export default") {
		t.Error("export statements must be stripped for in-browser execution")
	}
	if !strings.Contains(got, "function Widget()") {
		t.Error("declaration must survive export stripping")
	}
	if !strings.Contains(got, "<Widget />") {
		t.Error("default export alias must be mounted")
	}
}

func TestRunDocument_ErrorPlaceholder(t *testing.T) {
	got := RunDocument("const notAComponent = 42;")

	if !strings.HasPrefix(got, "<!DOCTYPE html>") {
		t.Error("placeholder must still be a complete HTML document")
	}
	if !strings.Contains(got, "Unable to render preview") {
		t.Errorf("expected error placeholder, got:\n%s", got)
	}
}
