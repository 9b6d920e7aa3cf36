// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// DefaultMistralURL is the base URL for the Mistral chat completions API.
const DefaultMistralURL = "https://api.mistral.ai"

// MistralAdapter speaks the OpenAI-compatible chat completions format
// served by Mistral's API.
type MistralAdapter struct {
	baseURL string
}

// NewMistralAdapter creates the adapter with the production base URL.
func NewMistralAdapter() *MistralAdapter {
	return &MistralAdapter{baseURL: DefaultMistralURL}
}

// WithBaseURL overrides the API base URL.
func (a *MistralAdapter) WithBaseURL(u string) *MistralAdapter {
	a.baseURL = strings.TrimSuffix(u, "/")
	return a
}

// ID returns the provider id.
func (a *MistralAdapter) ID() string { return "mistral" }

// BuildRequest builds the chat completions call with a bearer token.
func (a *MistralAdapter) BuildRequest(ctx context.Context, prompt string, cfg Config) (*http.Request, error) {
	payload := chatCompletionRequest{
		Model: cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemInstruction},
			{Role: "user", Content: prompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	return req, nil
}

// ParseResponse reads the first choice's message content.
func (a *MistralAdapter) ParseResponse(body []byte) (string, error) {
	return parseChatCompletion(body)
}
