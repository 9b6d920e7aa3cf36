// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package filetree implements the in-memory virtual file model backing the
// editor: a tree of file and folder nodes rooted at a single synthetic root.
//
// Nodes live in an arena keyed by id, with parent and children stored as id
// references, so a mutation touches O(path) nodes instead of rebuilding the
// tree. Ids are path-qualified ("/src/app.js"), which makes them unique by
// construction since siblings may not share a name.
package filetree

import (
	"errors"
	"iter"
	"path"
	"strings"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound         = errors.New("node not found")
	ErrNotAFile         = errors.New("node is not a file")
	ErrDuplicateName    = errors.New("sibling with that name already exists")
	ErrParentNotFolder  = errors.New("parent is not a folder")
	ErrCannotRemoveRoot = errors.New("cannot remove the root node")
	ErrInvalidName      = errors.New("invalid node name")
)

// =============================================================================
// NODE
// =============================================================================

// Kind distinguishes files from folders.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// RootID is the id of the synthetic root folder.
const RootID = "/"

// Node is a snapshot of a single tree node. Content is always defined
// (possibly empty) for files and absent for folders.
type Node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Content  string `json:"content,omitempty"`
	Language string `json:"language,omitempty"`
	ParentID string `json:"parentId,omitempty"`
	Expanded bool   `json:"expanded,omitempty"`
}

// IsFile reports whether the node is a file.
func (n Node) IsFile() bool { return n.Kind == KindFile }

// node is the arena representation.
type node struct {
	id       string
	name     string
	kind     Kind
	content  string
	language string
	parentID string
	expanded bool
	children []string // child ids in insertion order
}

func (n *node) snapshot() Node {
	return Node{
		ID:       n.id,
		Name:     n.name,
		Kind:     n.kind,
		Content:  n.content,
		Language: n.language,
		ParentID: n.parentID,
		Expanded: n.expanded,
	}
}

// =============================================================================
// TREE
// =============================================================================

// Tree is the virtual file model. All methods are safe for concurrent use.
type Tree struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

// New creates a tree containing only the root folder.
func New() *Tree {
	t := &Tree{nodes: make(map[string]*node)}
	t.nodes[RootID] = &node{
		id:       RootID,
		name:     RootID,
		kind:     KindFolder,
		expanded: true,
	}
	return t
}

// Get returns a snapshot of the node with the given id.
func (t *Tree) Get(id string) (Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[id]
	if !ok {
		return Node{}, ErrNotFound
	}
	return n.snapshot(), nil
}

// SetContent replaces the content of a file node. Setting identical content
// twice is a no-op the second time.
func (t *Tree) SetContent(id, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return ErrNotFound
	}
	if n.kind != KindFile {
		return ErrNotAFile
	}
	n.content = content
	return nil
}

// AddChild creates a file or folder under parentID and returns the new id.
// File content may be empty; folders ignore content.
func (t *Tree) AddChild(parentID, name string, kind Kind, content string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\x00") {
		return "", ErrInvalidName
	}
	if kind != KindFile && kind != KindFolder {
		return "", ErrInvalidName
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := t.nodes[parentID]
	if !ok {
		return "", ErrNotFound
	}
	if parent.kind != KindFolder {
		return "", ErrParentNotFolder
	}
	for _, childID := range parent.children {
		if t.nodes[childID].name == name {
			return "", ErrDuplicateName
		}
	}

	id := path.Join(parentID, name)
	child := &node{
		id:       id,
		name:     name,
		kind:     kind,
		parentID: parentID,
	}
	if kind == KindFile {
		child.content = content
		child.language = DetectLanguage(name)
	}

	t.nodes[id] = child
	parent.children = append(parent.children, id)
	return id, nil
}

// Remove deletes a node and all of its descendants.
func (t *Tree) Remove(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id == RootID {
		return ErrCannotRemoveRoot
	}
	n, ok := t.nodes[id]
	if !ok {
		return ErrNotFound
	}

	// Detach from the parent first so a partial failure cannot leave a
	// dangling child reference.
	parent := t.nodes[n.parentID]
	for i, childID := range parent.children {
		if childID == id {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			break
		}
	}

	t.removeSubtree(id)
	return nil
}

func (t *Tree) removeSubtree(id string) {
	n := t.nodes[id]
	for _, childID := range n.children {
		t.removeSubtree(childID)
	}
	delete(t.nodes, id)
}

// ToggleExpanded flips a folder's expanded flag. It is a no-op on files.
func (t *Tree) ToggleExpanded(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[id]
	if !ok {
		return ErrNotFound
	}
	if n.kind == KindFolder {
		n.expanded = !n.expanded
	}
	return nil
}

// Len returns the number of nodes including the root.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// =============================================================================
// TRAVERSAL
// =============================================================================

// Walk returns a lazy depth-first pre-order sequence of node snapshots,
// root first, children in insertion order. The order is captured when Walk
// is called; later mutations do not affect an iteration in progress.
func (t *Tree) Walk() iter.Seq[Node] {
	t.mu.RLock()
	snapshots := make([]Node, 0, len(t.nodes))
	t.collect(RootID, &snapshots)
	t.mu.RUnlock()

	return func(yield func(Node) bool) {
		for _, n := range snapshots {
			if !yield(n) {
				return
			}
		}
	}
}

func (t *Tree) collect(id string, out *[]Node) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	*out = append(*out, n.snapshot())
	for _, childID := range n.children {
		t.collect(childID, out)
	}
}

// FindFile returns the first file whose name equals name exactly
// (case-sensitive), in Walk order.
func (t *Tree) FindFile(name string) (Node, bool) {
	for n := range t.Walk() {
		if n.Kind == KindFile && n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// Files returns every file node in Walk order.
func (t *Tree) Files() []Node {
	var out []Node
	for n := range t.Walk() {
		if n.Kind == KindFile {
			out = append(out, n)
		}
	}
	return out
}

// FilesUnder counts the file nodes in the subtree rooted at id, the node
// itself included. Unknown ids count zero.
func (t *Tree) FilesUnder(id string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.countFiles(id)
}

func (t *Tree) countFiles(id string) int {
	n, ok := t.nodes[id]
	if !ok {
		return 0
	}
	count := 0
	if n.kind == KindFile {
		count++
	}
	for _, childID := range n.children {
		count += t.countFiles(childID)
	}
	return count
}
