// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pagesmith/pagesmith/internal/filetree"
	"github.com/pagesmith/pagesmith/internal/model"
	"github.com/pagesmith/pagesmith/internal/preview"
)

var (
	// ErrLastFile indicates the final remaining file cannot be deleted.
	ErrLastFile = errors.New("cannot delete the last remaining file")
	// ErrNoActiveFile indicates no file is selected.
	ErrNoActiveFile = errors.New("no active file selected")
)

// seedFileName is the single file a fresh workspace starts with.
const seedFileName = "index.js"

// Workspace is one session's server-side state: conversation history, the
// virtual file tree, and the open-tab selection.
type Workspace struct {
	id string

	mu         sync.RWMutex
	conv       *model.Conversation
	tree       *filetree.Tree
	openTabs   []string
	activeFile string
	lastActive time.Time
}

// newWorkspace seeds a workspace with one active file.
func newWorkspace(id string) *Workspace {
	ws := &Workspace{
		id:         id,
		conv:       model.NewConversation(),
		tree:       filetree.New(),
		lastActive: time.Now(),
	}
	fileID, err := ws.tree.AddChild(filetree.RootID, seedFileName, filetree.KindFile, "")
	if err != nil {
		// Seeding an empty tree cannot collide.
		panic(fmt.Sprintf("seed workspace: %v", err))
	}
	ws.openTabs = []string{fileID}
	ws.activeFile = fileID
	return ws
}

// ID returns the session id.
func (w *Workspace) ID() string { return w.id }

// Conversation returns the chat history store.
func (w *Workspace) Conversation() *model.Conversation { return w.conv }

// Tree returns the file model.
func (w *Workspace) Tree() *filetree.Tree { return w.tree }

// Touch records activity for idle-expiry accounting.
func (w *Workspace) Touch() {
	w.mu.Lock()
	w.lastActive = time.Now()
	w.mu.Unlock()
}

// LastActive reports the most recent activity time.
func (w *Workspace) LastActive() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastActive
}

// ActiveFileID returns the id of the file shown in the editor, or ""
// when the workspace is in the empty state.
func (w *Workspace) ActiveFileID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.activeFile
}

// OpenTabs returns the open tab ids in open order.
func (w *Workspace) OpenTabs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	tabs := make([]string, len(w.openTabs))
	copy(tabs, w.openTabs)
	return tabs
}

// SetActiveFile selects a file and opens its tab if needed.
func (w *Workspace) SetActiveFile(id string) error {
	node, err := w.tree.Get(id)
	if err != nil {
		return err
	}
	if !node.IsFile() {
		return filetree.ErrNotAFile
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.activeFile = id
	for _, tab := range w.openTabs {
		if tab == id {
			return nil
		}
	}
	w.openTabs = append(w.openTabs, id)
	return nil
}

// AddFile creates a file, opens it, and makes it active.
func (w *Workspace) AddFile(parentID, name, content string) (filetree.Node, error) {
	id, err := w.tree.AddChild(parentID, name, filetree.KindFile, content)
	if err != nil {
		return filetree.Node{}, err
	}
	node, err := w.tree.Get(id)
	if err != nil {
		return filetree.Node{}, err
	}
	return node, w.SetActiveFile(id)
}

// AddFolder creates a folder.
func (w *Workspace) AddFolder(parentID, name string) (filetree.Node, error) {
	id, err := w.tree.AddChild(parentID, name, filetree.KindFolder, "")
	if err != nil {
		return filetree.Node{}, err
	}
	return w.tree.Get(id)
}

// AddChildUnique creates a file like AddFile, but resolves sibling name
// collisions by suffixing: "app.js" becomes "app (1).js", then
// "app (2).js", and so on.
func (w *Workspace) AddChildUnique(parentID, name, content string) (filetree.Node, error) {
	candidate := name
	for n := 1; ; n++ {
		node, err := w.AddFile(parentID, candidate, content)
		if err == nil {
			return node, nil
		}
		if !errors.Is(err, filetree.ErrDuplicateName) {
			return filetree.Node{}, err
		}
		ext := path.Ext(name)
		base := strings.TrimSuffix(name, ext)
		candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
}

// UpdateFile replaces a file's content.
func (w *Workspace) UpdateFile(id, content string) error {
	w.Touch()
	return w.tree.SetContent(id, content)
}

// ToggleFolder flips a folder's expanded state.
func (w *Workspace) ToggleFolder(id string) error {
	return w.tree.ToggleExpanded(id)
}

// DeleteFile removes a file or folder. A deletion that would leave the
// workspace without any file is refused, whether the target is the last
// file itself or a folder whose subtree holds it. Deleting the active file
// selects the adjacent open tab, then any remaining file, then the empty
// state.
func (w *Workspace) DeleteFile(id string) error {
	if _, err := w.tree.Get(id); err != nil {
		return err
	}
	if doomed := w.tree.FilesUnder(id); doomed > 0 && doomed == len(w.tree.Files()) {
		return ErrLastFile
	}

	if err := w.tree.Remove(id); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Drop tabs whose files went away, remembering where the deleted
	// tab sat so the adjacent one can take over.
	deletedAt := -1
	kept := w.openTabs[:0]
	for i, tab := range w.openTabs {
		if _, err := w.tree.Get(tab); err == nil {
			kept = append(kept, tab)
		} else if tab == w.activeFile {
			deletedAt = i
		}
	}
	w.openTabs = kept

	if _, err := w.tree.Get(w.activeFile); err == nil {
		return nil
	}

	switch {
	case deletedAt >= 0 && len(w.openTabs) > 0:
		if deletedAt >= len(w.openTabs) {
			deletedAt = len(w.openTabs) - 1
		}
		w.activeFile = w.openTabs[deletedAt]
	case len(w.openTabs) > 0:
		w.activeFile = w.openTabs[0]
	default:
		if files := w.tree.Files(); len(files) > 0 {
			w.activeFile = files[0].ID
			w.openTabs = append(w.openTabs, files[0].ID)
		} else {
			w.activeFile = ""
		}
	}
	return nil
}

// ApplyCode writes extracted code into the active file. Empty code leaves
// the file untouched.
func (w *Workspace) ApplyCode(code string) error {
	if code == "" {
		return nil
	}
	active := w.ActiveFileID()
	if active == "" {
		return ErrNoActiveFile
	}
	return w.UpdateFile(active, code)
}

// ApplyRemote applies an inbound sync message. Updates targeting the
// locally active file are ignored so in-progress edits are not clobbered.
// Reports whether the update was applied.
func (w *Workspace) ApplyRemote(fileID, content string) bool {
	if fileID == "" || fileID == w.ActiveFileID() {
		return false
	}
	if err := w.tree.SetContent(fileID, content); err != nil {
		return false
	}
	return true
}

// Preview derives the HTML preview document for the current state.
func (w *Workspace) Preview() string {
	return preview.Compose(w.tree, w.ActiveFileID())
}
