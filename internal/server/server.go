// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/pagesmith/pagesmith/internal/config"
	"github.com/pagesmith/pagesmith/internal/keystore"
	"github.com/pagesmith/pagesmith/internal/provider"
	"github.com/pagesmith/pagesmith/internal/realtime"
	"github.com/pagesmith/pagesmith/internal/session"
	"github.com/pagesmith/pagesmith/internal/ui"
)

// Version is the server version reported by /health.
const Version = "1.0.0"

// MaxRequestBodySize bounds inbound JSON bodies.
const MaxRequestBodySize = 1 * 1024 * 1024

// sessionHeader carries the workspace session id.
const sessionHeader = "X-Session-ID"

// Server wires the HTTP API together.
type Server struct {
	cfg      *config.Config
	gateway  *provider.Gateway
	store    *keystore.Store
	sessions *session.Manager
	hub      *realtime.Hub

	router *http.ServeMux
	server *http.Server
}

// New creates a server with routes registered.
func New(cfg *config.Config, gateway *provider.Gateway, store *keystore.Store, sessions *session.Manager, hub *realtime.Hub) *Server {
	s := &Server{
		cfg:      cfg,
		gateway:  gateway,
		store:    store,
		sessions: sessions,
		hub:      hub,
		router:   http.NewServeMux(),
	}
	s.setupRoutes()
	hub.OnUpdate(s.syncRemote)
	return s
}

// syncRemote applies a file update to every live workspace except the
// sender's, keeping the authoritative trees behind /api/files and
// /api/preview in step with what the realtime channel carries. Workspaces
// whose active file is the target, or which do not hold the file, skip it.
func (s *Server) syncRemote(senderSession string, msg realtime.Message) {
	if msg.Type != realtime.MessageTypeCodeUpdate {
		return
	}
	for _, ws := range s.sessions.Workspaces() {
		if ws.ID() == senderSession {
			continue
		}
		ws.ApplyRemote(msg.FileID, msg.Content)
	}
}

// propagate pushes a locally-originated file change to the other
// workspaces and to the connected realtime clients.
func (s *Server) propagate(sender *session.Workspace, msg realtime.Message) {
	s.syncRemote(sender.ID(), msg)
	s.hub.Broadcast(msg)
}

func (s *Server) setupRoutes() {
	// Chat and codegen
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("POST /api/chat/{provider}", s.handleChatProvider)
	s.router.HandleFunc("POST /api/run-code", s.handleRunCode)

	// Credentials and catalog
	s.router.HandleFunc("POST /api/keys", s.handlePutKey)
	s.router.HandleFunc("GET /api/keys", s.handleListKeys)
	s.router.HandleFunc("DELETE /api/keys/{provider}", s.handleDeleteKey)
	s.router.HandleFunc("GET /api/providers", s.handleProviders)

	// Templates
	s.router.HandleFunc("GET /api/templates", s.handleListTemplates)
	s.router.HandleFunc("POST /api/templates", s.handlePutTemplate)

	// Workspace
	s.router.HandleFunc("GET /api/files", s.handleListFiles)
	s.router.HandleFunc("POST /api/files", s.handleAddFile)
	s.router.HandleFunc("PUT /api/files/{id...}", s.handleUpdateFile)
	s.router.HandleFunc("DELETE /api/files/{id...}", s.handleDeleteFile)
	s.router.HandleFunc("POST /api/files/toggle", s.handleToggleFolder)
	s.router.HandleFunc("POST /api/files/active", s.handleSetActiveFile)
	s.router.HandleFunc("GET /api/preview", s.handlePreview)
	s.router.HandleFunc("GET /api/conversation", s.handleConversation)

	// Realtime relay and health
	s.router.Handle("GET /ws", s.hub)
	s.router.HandleFunc("GET /health", s.handleHealth)

	// Embedded UI
	s.router.Handle("GET /", ui.Handler())
}

// Handler returns the full middleware-wrapped handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	apiChain := Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(NewIPRateLimiter(s.cfg.Server.RateLimit, s.cfg.Server.RateBurst)),
		AuthMiddleware(s.cfg.Server.AuthToken),
	)
	return apiChain(s.router)
}

// Start runs the HTTP server until Shutdown or listener failure.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Printf("SERVER_START | addr=%s version=%s", s.cfg.Server.Addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes {"message": ...}.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"message": message})
}

// writeUpstreamError writes {"message": ..., "error": ...} for provider
// failures.
func (s *Server) writeUpstreamError(w http.ResponseWriter, status int, message, detail string) {
	s.writeJSON(w, status, map[string]any{"message": message, "error": detail})
}

// decodeJSON reads a bounded JSON body.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return false
	}
	return true
}

// workspace resolves the caller's workspace from the session header and
// echoes the session id so new clients learn theirs.
func (s *Server) workspace(w http.ResponseWriter, r *http.Request) *session.Workspace {
	ws, id := s.sessions.Get(r.Header.Get(sessionHeader))
	w.Header().Set(sessionHeader, id)
	return ws
}
