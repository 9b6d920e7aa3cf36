// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the pagesmith HTTP API: chat, credential and
// template storage, workspace file operations, preview derivation, and the
// realtime relay endpoint.
//
// # Key Types
//
//   - Server: route setup, middleware chain, lifecycle
//
// # Usage
//
//	srv := server.New(cfg, gateway, store, sessions, hub)
//	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) { ... }
package server
