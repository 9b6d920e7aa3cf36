// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds per-browser-session server state: the chat
// conversation, the virtual file tree, and the editor tab selection.
//
// # Key Types
//
//   - Workspace: one session's conversation, files, and active tab
//   - Manager: workspace registry with idle expiry
//
// # Usage
//
//	mgr := session.NewManager(session.DefaultConfig())
//	defer mgr.Close()
//	ws, id := mgr.Get(r.Header.Get("X-Session-ID"))
package session
