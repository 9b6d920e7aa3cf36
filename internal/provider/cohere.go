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

// DefaultCohereURL is the base URL for the Cohere chat API.
const DefaultCohereURL = "https://api.cohere.ai"

// CohereAdapter speaks the Cohere chat wire format. The system
// instruction travels in the preamble field and the user turn in the
// single message field.
type CohereAdapter struct {
	baseURL string
}

// NewCohereAdapter creates the adapter with the production base URL.
func NewCohereAdapter() *CohereAdapter {
	return &CohereAdapter{baseURL: DefaultCohereURL}
}

// WithBaseURL overrides the API base URL.
func (a *CohereAdapter) WithBaseURL(u string) *CohereAdapter {
	a.baseURL = strings.TrimSuffix(u, "/")
	return a
}

// ID returns the provider id.
func (a *CohereAdapter) ID() string { return "cohere" }

type cohereRequest struct {
	Model    string `json:"model"`
	Preamble string `json:"preamble"`
	Message  string `json:"message"`
}

// BuildRequest builds the chat call with a bearer token.
func (a *CohereAdapter) BuildRequest(ctx context.Context, prompt string, cfg Config) (*http.Request, error) {
	payload := cohereRequest{
		Model:    cfg.Model,
		Preamble: SystemInstruction,
		Message:  prompt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	return req, nil
}

// ParseResponse reads the top-level text field.
func (a *CohereAdapter) ParseResponse(body []byte) (string, error) {
	var envelope struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if envelope.Text == "" {
		return "", fmt.Errorf("%w: empty text field", ErrMalformedResponse)
	}
	return envelope.Text, nil
}
