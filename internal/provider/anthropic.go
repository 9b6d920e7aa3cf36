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

// DefaultAnthropicURL is the base URL for the Anthropic messages API.
const DefaultAnthropicURL = "https://api.anthropic.com"

const (
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 4096
)

// AnthropicAdapter speaks the messages API wire format. The system
// instruction travels in a top-level system field, not as a message.
type AnthropicAdapter struct {
	baseURL string
}

// NewAnthropicAdapter creates the adapter with the production base URL.
func NewAnthropicAdapter() *AnthropicAdapter {
	return &AnthropicAdapter{baseURL: DefaultAnthropicURL}
}

// WithBaseURL overrides the API base URL.
func (a *AnthropicAdapter) WithBaseURL(u string) *AnthropicAdapter {
	a.baseURL = strings.TrimSuffix(u, "/")
	return a
}

// ID returns the provider id.
func (a *AnthropicAdapter) ID() string { return "anthropic" }

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system"`
	Messages  []chatMessage `json:"messages"`
}

// BuildRequest builds the messages call. Authentication uses the
// x-api-key header rather than a bearer token.
func (a *AnthropicAdapter) BuildRequest(ctx context.Context, prompt string, cfg Config) (*http.Request, error) {
	payload := anthropicRequest{
		Model:     cfg.Model,
		MaxTokens: anthropicMaxTokens,
		System:    SystemInstruction,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	return req, nil
}

// ParseResponse joins the text parts of the content array.
func (a *AnthropicAdapter) ParseResponse(body []byte) (string, error) {
	var envelope struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	texts := make([]string, 0, len(envelope.Content))
	for _, block := range envelope.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("%w: no text content blocks", ErrMalformedResponse)
	}
	return strings.Join(texts, "\n"), nil
}
