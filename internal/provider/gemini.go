// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultGeminiURL is the base URL for the Gemini generateContent API.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiAdapter speaks the Gemini generateContent wire format. Gemini only
// accepts "user" and "model" roles, so the system instruction is folded
// into a leading user-role part instead of a dedicated system message.
type GeminiAdapter struct {
	baseURL string
}

// NewGeminiAdapter creates the adapter with the production base URL.
func NewGeminiAdapter() *GeminiAdapter {
	return &GeminiAdapter{baseURL: DefaultGeminiURL}
}

// WithBaseURL overrides the API base URL.
func (a *GeminiAdapter) WithBaseURL(u string) *GeminiAdapter {
	a.baseURL = strings.TrimSuffix(u, "/")
	return a
}

// ID returns the provider id.
func (a *GeminiAdapter) ID() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

// BuildRequest builds the generateContent call. The API key travels as a
// query parameter, which is Gemini's convention.
func (a *GeminiAdapter) BuildRequest(ctx context.Context, prompt string, cfg Config) (*http.Request, error) {
	payload := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: SystemInstruction + "\n\n" + prompt}},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		a.baseURL, url.PathEscape(cfg.Model), url.QueryEscape(cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// ParseResponse joins the text parts of the first candidate.
func (a *GeminiAdapter) ParseResponse(body []byte) (string, error) {
	var envelope struct {
		Candidates []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates with text parts", ErrMalformedResponse)
	}

	texts := make([]string, 0, len(envelope.Candidates[0].Content.Parts))
	for _, part := range envelope.Candidates[0].Content.Parts {
		texts = append(texts, part.Text)
	}
	return strings.Join(texts, "\n"), nil
}
