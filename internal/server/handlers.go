// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pagesmith/pagesmith/internal/extract"
	"github.com/pagesmith/pagesmith/internal/filetree"
	"github.com/pagesmith/pagesmith/internal/keystore"
	"github.com/pagesmith/pagesmith/internal/model"
	"github.com/pagesmith/pagesmith/internal/preview"
	"github.com/pagesmith/pagesmith/internal/provider"
	"github.com/pagesmith/pagesmith/internal/realtime"
	"github.com/pagesmith/pagesmith/internal/session"
	"github.com/pagesmith/pagesmith/internal/util"
)

// ============================================================================
// CHAT
// ============================================================================

type chatRequest struct {
	Message        string          `json:"message"`
	ProviderConfig provider.Config `json:"providerConfig"`
}

type chatResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// handleChat runs the full pipeline: append the user turn, call the
// provider, extract code, apply the first block to the active file, and
// broadcast the change.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if strings.TrimSpace(req.ProviderConfig.APIKey) == "" {
		s.writeError(w, http.StatusBadRequest, "API key is required")
		return
	}

	s.runChat(w, r, req.Message, req.ProviderConfig)
}

// handleChatProvider proxies a chat for one provider, resolving the key
// from the credential store.
func (s *Server) handleChatProvider(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("provider")
	if _, ok := provider.Lookup(providerID); !ok {
		s.writeError(w, http.StatusBadRequest, "Unknown provider: "+providerID)
		return
	}

	var req struct {
		Message string `json:"message"`
		Model   string `json:"model,omitempty"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	apiKey, err := s.store.Key(r.Context(), providerID)
	if err != nil {
		if errors.Is(err, keystore.ErrNoKey) {
			s.writeError(w, http.StatusBadRequest, "No API key saved for "+providerID)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Credential store unavailable")
		return
	}

	s.runChat(w, r, req.Message, provider.Config{
		Provider: providerID,
		APIKey:   apiKey,
		Model:    req.Model,
	})
}

func (s *Server) runChat(w http.ResponseWriter, r *http.Request, message string, cfg provider.Config) {
	ws := s.workspace(w, r)
	ws.Conversation().Append(model.RoleUser, message)

	start := time.Now()
	reply, err := s.gateway.Send(r.Context(), message, cfg)
	if err != nil {
		log.Printf("CHAT_FAILED | provider=%s err=%s", cfg.Provider, util.FirstLine(err.Error()))
		// The conversation stays usable after a failed turn.
		ws.Conversation().Append(model.RoleAssistant, "Request failed: "+err.Error())
		s.writeChatError(w, cfg.Provider, err)
		return
	}

	ws.Conversation().Append(model.RoleAssistant, reply)

	code := extract.Joined(reply)
	if first, ok := extract.First(reply); ok {
		body := strings.TrimSpace(first.Body)
		if err := ws.ApplyCode(body); err != nil {
			log.Printf("CODE_APPLY_FAILED | session=%s err=%v", ws.ID(), err)
		} else if body != "" {
			s.propagate(ws, realtime.Message{
				Type:    realtime.MessageTypeCodeUpdate,
				FileID:  ws.ActiveFileID(),
				Content: body,
			})
		}
	}

	log.Printf("CHAT_COMPLETE | provider=%s latency=%dms blocks=%d",
		cfg.Provider, time.Since(start).Milliseconds(), len(extract.All(reply)))
	s.writeJSON(w, http.StatusOK, chatResponse{Message: reply, Code: code})
}

// writeChatError maps gateway errors onto HTTP statuses: validation-class
// failures are 400, upstream failures propagate the provider's status.
func (s *Server) writeChatError(w http.ResponseWriter, providerID string, err error) {
	switch {
	case errors.Is(err, provider.ErrUnsupportedProvider),
		errors.Is(err, provider.ErrMissingCredential):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, provider.ErrMalformedResponse):
		s.writeUpstreamError(w, http.StatusInternalServerError,
			"Couldn't understand the provider response", err.Error())
	default:
		var perr *provider.ProviderError
		status := http.StatusInternalServerError
		detail := err.Error()
		if errors.As(err, &perr) {
			if perr.StatusCode >= 400 {
				status = perr.StatusCode
			}
			detail = perr.Message
		}
		s.writeUpstreamError(w, status, "Provider request failed for "+providerID, detail)
	}
}

// ============================================================================
// RUN CODE
// ============================================================================

// handleRunCode wraps arbitrary source in a runnable HTML document.
func (s *Server) handleRunCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		s.writeError(w, http.StatusBadRequest, "Code is required")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"html": preview.RunDocument(req.Code)})
}

// ============================================================================
// CREDENTIALS AND CATALOG
// ============================================================================

func (s *Server) handlePutKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		APIKey   string `json:"apiKey"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if _, ok := provider.Lookup(req.Provider); !ok {
		s.writeError(w, http.StatusBadRequest, "Unknown provider: "+req.Provider)
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		s.writeError(w, http.StatusBadRequest, "API key is required")
		return
	}

	rec, err := s.store.PutKey(r.Context(), req.Provider, req.APIKey)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to save key")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleDeleteKey forgets a provider's credential. Deleting a provider
// with no saved key succeeds.
func (s *Server) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("provider")
	if _, ok := provider.Lookup(providerID); !ok {
		s.writeError(w, http.StatusBadRequest, "Unknown provider: "+providerID)
		return
	}
	if err := s.store.DeleteKey(r.Context(), providerID); err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to delete key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListKeys reports key presence for every known provider.
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Keys(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Credential store unavailable")
		return
	}
	saved := make(map[string]bool, len(records))
	for _, rec := range records {
		saved[rec.Provider] = true
	}

	type entry struct {
		Provider string `json:"provider"`
		HasKey   bool   `json:"hasKey"`
	}
	out := make([]entry, 0, len(provider.IDs()))
	for _, id := range provider.IDs() {
		out = append(out, entry{Provider: id, HasKey: saved[id]})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, provider.Catalog())
}

// ============================================================================
// TEMPLATES
// ============================================================================

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.Templates(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Template store unavailable")
		return
	}
	if templates == nil {
		templates = []keystore.Template{}
	}
	s.writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handlePutTemplate(w http.ResponseWriter, r *http.Request) {
	var t keystore.Template
	if !s.decodeJSON(w, r, &t) {
		return
	}
	saved, err := s.store.PutTemplate(r.Context(), t)
	if err != nil {
		if errors.Is(err, keystore.ErrInvalidRecord) {
			s.writeError(w, http.StatusBadRequest, "Template name and code are required")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Failed to save template")
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

// ============================================================================
// WORKSPACE FILES
// ============================================================================

type filesResponse struct {
	Files        []filetree.Node `json:"files"`
	ActiveFileID string          `json:"activeFileId"`
	OpenTabs     []string        `json:"openTabs"`
}

func (s *Server) filesSnapshot(ws *session.Workspace) filesResponse {
	var nodes []filetree.Node
	for node := range ws.Tree().Walk() {
		nodes = append(nodes, node)
	}
	return filesResponse{
		Files:        nodes,
		ActiveFileID: ws.ActiveFileID(),
		OpenTabs:     ws.OpenTabs(),
	}
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	s.writeJSON(w, http.StatusOK, s.filesSnapshot(ws))
}

func (s *Server) handleAddFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentID string `json:"parentId"`
		Name     string `json:"name"`
		Kind     string `json:"kind"`
		Content  string `json:"content"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.ParentID == "" {
		req.ParentID = filetree.RootID
	}

	ws := s.workspace(w, r)
	var node filetree.Node
	var err error
	if req.Kind == string(filetree.KindFolder) {
		node, err = ws.AddFolder(req.ParentID, req.Name)
	} else {
		// Colliding file names get a suffix ("app (1).js") instead of
		// failing, matching the editor's tab behavior.
		node, err = ws.AddChildUnique(req.ParentID, req.Name, req.Content)
	}
	if err != nil {
		s.writeTreeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}

	ws := s.workspace(w, r)
	id := "/" + r.PathValue("id")
	if err := ws.UpdateFile(id, req.Content); err != nil {
		s.writeTreeError(w, err)
		return
	}

	s.propagate(ws, realtime.Message{
		Type:    realtime.MessageTypeCodeUpdate,
		FileID:  id,
		Content: req.Content,
	})
	s.writeJSON(w, http.StatusOK, s.filesSnapshot(ws))
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	id := "/" + r.PathValue("id")
	if err := ws.DeleteFile(id); err != nil {
		s.writeTreeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.filesSnapshot(ws))
}

func (s *Server) handleToggleFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}

	ws := s.workspace(w, r)
	if err := ws.ToggleFolder(req.ID); err != nil {
		s.writeTreeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.filesSnapshot(ws))
}

func (s *Server) handleSetActiveFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}

	ws := s.workspace(w, r)
	if err := ws.SetActiveFile(req.ID); err != nil {
		s.writeTreeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.filesSnapshot(ws))
}

// writeTreeError maps file-model errors onto HTTP statuses.
func (s *Server) writeTreeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, filetree.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, filetree.ErrDuplicateName):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, filetree.ErrInvalidName),
		errors.Is(err, filetree.ErrNotAFile),
		errors.Is(err, filetree.ErrParentNotFolder),
		errors.Is(err, filetree.ErrCannotRemoveRoot),
		errors.Is(err, session.ErrLastFile):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ============================================================================
// PREVIEW, CONVERSATION, HEALTH
// ============================================================================

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	s.writeJSON(w, http.StatusOK, map[string]string{"html": ws.Preview()})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	ws := s.workspace(w, r)
	conv := ws.Conversation()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"turns":     conv.All(),
		"createdAt": conv.CreatedAt(),
		"updatedAt": conv.UpdatedAt(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	store := "ok"
	if err := s.store.Ping(r.Context()); err != nil {
		store = "unreachable"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   Version,
		"store":     store,
		"providers": len(provider.IDs()),
		"sessions":  s.sessions.Len(),
		"clients":   s.hub.ClientCount(),
	})
}
