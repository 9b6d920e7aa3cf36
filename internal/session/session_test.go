// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pagesmith/pagesmith/internal/filetree"
)

func TestWorkspaceSeed(t *testing.T) {
	ws := newWorkspace("s1")

	active := ws.ActiveFileID()
	if active == "" {
		t.Fatal("fresh workspace must have an active file")
	}
	node, err := ws.tree.Get(active)
	if err != nil {
		t.Fatalf("Get active: %v", err)
	}
	if node.Name != "index.js" {
		t.Fatalf("seed file = %q, want index.js", node.Name)
	}
	if tabs := ws.OpenTabs(); len(tabs) != 1 || tabs[0] != active {
		t.Fatalf("tabs = %v", tabs)
	}
}

func TestAddFileActivates(t *testing.T) {
	ws := newWorkspace("s1")

	node, err := ws.AddFile(filetree.RootID, "styles.css", "body{}")
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if ws.ActiveFileID() != node.ID {
		t.Fatal("new file must become active")
	}
	if tabs := ws.OpenTabs(); len(tabs) != 2 {
		t.Fatalf("tabs = %v, want 2", tabs)
	}
}

func TestAddChildUnique(t *testing.T) {
	ws := newWorkspace("s1")

	first, err := ws.AddChildUnique(filetree.RootID, "app.js", "a")
	if err != nil {
		t.Fatalf("AddChildUnique: %v", err)
	}
	if first.Name != "app.js" {
		t.Fatalf("name = %q", first.Name)
	}

	second, err := ws.AddChildUnique(filetree.RootID, "app.js", "b")
	if err != nil {
		t.Fatalf("AddChildUnique collision: %v", err)
	}
	if second.Name != "app (1).js" {
		t.Fatalf("name = %q, want app (1).js", second.Name)
	}

	third, err := ws.AddChildUnique(filetree.RootID, "app.js", "c")
	if err != nil {
		t.Fatalf("AddChildUnique second collision: %v", err)
	}
	if third.Name != "app (2).js" {
		t.Fatalf("name = %q, want app (2).js", third.Name)
	}
}

func TestDeleteLastFileRefused(t *testing.T) {
	ws := newWorkspace("s1")

	err := ws.DeleteFile(ws.ActiveFileID())
	if !errors.Is(err, ErrLastFile) {
		t.Fatalf("want ErrLastFile, got %v", err)
	}
	if ws.ActiveFileID() == "" {
		t.Fatal("active file must survive a refused delete")
	}
}

func TestDeleteFolderHoldingLastFileRefused(t *testing.T) {
	ws := newWorkspace("s1")
	seed := ws.ActiveFileID()

	folder, err := ws.AddFolder(filetree.RootID, "src")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ws.AddFile(folder.ID, "app.js", "x"); err != nil {
		t.Fatal(err)
	}
	if err := ws.DeleteFile(seed); err != nil {
		t.Fatalf("DeleteFile(seed): %v", err)
	}

	// The folder now holds the only file; removing it would empty the
	// workspace.
	if err := ws.DeleteFile(folder.ID); !errors.Is(err, ErrLastFile) {
		t.Fatalf("want ErrLastFile, got %v", err)
	}
	if len(ws.Tree().Files()) != 1 {
		t.Fatalf("files = %d, want 1", len(ws.Tree().Files()))
	}
	if ws.ActiveFileID() == "" {
		t.Fatal("active file must survive a refused delete")
	}

	// A folder without the last file still deletes fine.
	empty, err := ws.AddFolder(filetree.RootID, "assets")
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.DeleteFile(empty.ID); err != nil {
		t.Fatalf("DeleteFile(empty folder): %v", err)
	}
}

func TestDeleteActiveSelectsAdjacentTab(t *testing.T) {
	ws := newWorkspace("s1")
	seed := ws.ActiveFileID()

	a, err := ws.AddFile(filetree.RootID, "a.js", "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ws.AddFile(filetree.RootID, "b.js", "")
	if err != nil {
		t.Fatal(err)
	}

	// Tabs: [seed, a, b], active b. Deleting b should fall back to the
	// adjacent tab a.
	if err := ws.DeleteFile(b.ID); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if ws.ActiveFileID() != a.ID {
		t.Fatalf("active = %q, want adjacent tab %q", ws.ActiveFileID(), a.ID)
	}

	// Deleting a non-active file leaves the selection alone.
	if err := ws.DeleteFile(seed); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if ws.ActiveFileID() != a.ID {
		t.Fatalf("active = %q, want %q", ws.ActiveFileID(), a.ID)
	}
}

func TestApplyCode(t *testing.T) {
	ws := newWorkspace("s1")
	active := ws.ActiveFileID()

	if err := ws.ApplyCode("<h1>Hi</h1>"); err != nil {
		t.Fatalf("ApplyCode: %v", err)
	}
	node, err := ws.tree.Get(active)
	if err != nil {
		t.Fatal(err)
	}
	if node.Content != "<h1>Hi</h1>" {
		t.Fatalf("content = %q", node.Content)
	}

	// Empty code must not clear the file.
	if err := ws.ApplyCode(""); err != nil {
		t.Fatalf("ApplyCode empty: %v", err)
	}
	node, _ = ws.tree.Get(active)
	if node.Content != "<h1>Hi</h1>" {
		t.Fatal("empty code must leave content untouched")
	}
}

func TestApplyRemoteSkipsActiveFile(t *testing.T) {
	ws := newWorkspace("s1")
	active := ws.ActiveFileID()

	other, err := ws.AddFile(filetree.RootID, "app.js", "old")
	if err != nil {
		t.Fatal(err)
	}
	// Make the seed file active again so app.js is a background tab.
	if err := ws.SetActiveFile(active); err != nil {
		t.Fatal(err)
	}

	if !ws.ApplyRemote(other.ID, "new") {
		t.Fatal("background file update must apply")
	}
	node, _ := ws.tree.Get(other.ID)
	if node.Content != "new" {
		t.Fatalf("content = %q", node.Content)
	}

	if ws.ApplyRemote(active, "clobber") {
		t.Fatal("active file update must be ignored")
	}
	node, _ = ws.tree.Get(active)
	if node.Content == "clobber" {
		t.Fatal("active file content must be untouched")
	}

	if ws.ApplyRemote("/nope.js", "x") {
		t.Fatal("unknown file must not apply")
	}
}

func TestWorkspacePreview(t *testing.T) {
	ws := newWorkspace("s1")
	if err := ws.ApplyCode("console.log('hi');"); err != nil {
		t.Fatal(err)
	}
	doc := ws.Preview()
	if !strings.Contains(doc, "console.log('hi');") {
		t.Fatal("preview must embed the active file content")
	}
}

func TestManagerGetCreatesAndReuses(t *testing.T) {
	mgr := NewManager(Config{IdleTimeout: time.Hour, SweepInterval: time.Hour})
	defer mgr.Close()

	ws, id := mgr.Get("")
	if id == "" {
		t.Fatal("empty id must allocate a session")
	}

	again, sameID := mgr.Get(id)
	if again != ws || sameID != id {
		t.Fatal("existing session must be reused")
	}
	if mgr.Len() != 1 {
		t.Fatalf("len = %d, want 1", mgr.Len())
	}

	// Unknown ids create a workspace under that id.
	_, otherID := mgr.Get("client-chosen")
	if otherID != "client-chosen" {
		t.Fatalf("id = %q", otherID)
	}
	if mgr.Len() != 2 {
		t.Fatalf("len = %d, want 2", mgr.Len())
	}
}

func TestManagerWorkspaces(t *testing.T) {
	m := NewManager(Config{IdleTimeout: time.Hour, SweepInterval: time.Hour})
	defer m.Close()

	a, _ := m.Get("")
	b, _ := m.Get("")

	ids := make(map[string]bool)
	for _, ws := range m.Workspaces() {
		ids[ws.ID()] = true
	}
	if len(ids) != 2 || !ids[a.ID()] || !ids[b.ID()] {
		t.Fatalf("workspaces = %v", ids)
	}
}

func TestManagerEvictsIdlest(t *testing.T) {
	mgr := NewManager(Config{IdleTimeout: time.Hour, MaxSessions: 2, SweepInterval: time.Hour})
	defer mgr.Close()

	_, first := mgr.Get("")
	time.Sleep(5 * time.Millisecond)
	mgr.Get("")
	time.Sleep(5 * time.Millisecond)
	mgr.Get("")

	if mgr.Len() != 2 {
		t.Fatalf("len = %d, want cap 2", mgr.Len())
	}
	if _, ok := mgr.Lookup(first); ok {
		t.Fatal("longest-idle session must be evicted")
	}
}

func TestManagerSweepExpiresIdle(t *testing.T) {
	mgr := NewManager(Config{IdleTimeout: 10 * time.Millisecond, SweepInterval: time.Hour})
	defer mgr.Close()

	_, id := mgr.Get("")
	time.Sleep(20 * time.Millisecond)
	mgr.sweep()

	if _, ok := mgr.Lookup(id); ok {
		t.Fatal("idle session must be expired")
	}
}
