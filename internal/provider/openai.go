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

// DefaultOpenAIURL is the base URL for the OpenAI chat completions API.
const DefaultOpenAIURL = "https://api.openai.com"

// OpenAIAdapter speaks the chat completions wire format. The system
// instruction travels as a system-role message ahead of the user turn.
type OpenAIAdapter struct {
	baseURL string
}

// NewOpenAIAdapter creates the adapter with the production base URL.
func NewOpenAIAdapter() *OpenAIAdapter {
	return &OpenAIAdapter{baseURL: DefaultOpenAIURL}
}

// WithBaseURL overrides the API base URL.
func (a *OpenAIAdapter) WithBaseURL(u string) *OpenAIAdapter {
	a.baseURL = strings.TrimSuffix(u, "/")
	return a
}

// ID returns the provider id.
func (a *OpenAIAdapter) ID() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// BuildRequest builds the chat completions call with a bearer token.
func (a *OpenAIAdapter) BuildRequest(ctx context.Context, prompt string, cfg Config) (*http.Request, error) {
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
func (a *OpenAIAdapter) ParseResponse(body []byte) (string, error) {
	return parseChatCompletion(body)
}

// parseChatCompletion handles the choices/message/content envelope shared
// by OpenAI-compatible providers.
func parseChatCompletion(body []byte) (string, error) {
	var envelope struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: no choices with message content", ErrMalformedResponse)
	}
	return envelope.Choices[0].Message.Content, nil
}
