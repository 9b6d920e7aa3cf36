// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pagesmith/pagesmith/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds a single provider round trip.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed response body size. Responses
	// are read through a limited reader to bound memory use.
	MaxResponseSize = 10 * 1024 * 1024
)

// sharedHTTPClient is used for all provider requests. Connection pooling
// avoids per-request TCP handshakes against the same hosts.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// =============================================================================
// CONFIG AND ADAPTER
// =============================================================================

// Config selects the provider for one request. Never persisted; the API key
// lives in the credential store and is resolved per request.
type Config struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
	Model    string `json:"model,omitempty"`
}

// Adapter owns one vendor's wire format.
type Adapter interface {
	// ID returns the provider id this adapter serves.
	ID() string

	// BuildRequest creates the HTTP request for a prompt, encoding the
	// system instruction into the vendor's role conventions.
	BuildRequest(ctx context.Context, prompt string, cfg Config) (*http.Request, error)

	// ParseResponse extracts the single plain-text reply from a 2xx
	// response body. Returns ErrMalformedResponse when the envelope does
	// not have the expected shape.
	ParseResponse(body []byte) (string, error)
}

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway hides every provider's wire format behind one Send call.
type Gateway struct {
	adapters map[string]Adapter
	client   *http.Client
	timeout  time.Duration
}

// NewGateway creates a gateway with all catalog adapters registered.
func NewGateway() *Gateway {
	g := &Gateway{
		adapters: make(map[string]Adapter),
		client:   sharedHTTPClient,
		timeout:  DefaultTimeout,
	}
	g.Register(NewGeminiAdapter())
	g.Register(NewOpenAIAdapter())
	g.Register(NewAnthropicAdapter())
	g.Register(NewMistralAdapter())
	g.Register(NewCohereAdapter())
	return g
}

// Register adds or replaces an adapter.
func (g *Gateway) Register(a Adapter) {
	g.adapters[a.ID()] = a
}

// WithTimeout sets the per-request timeout.
func (g *Gateway) WithTimeout(timeout time.Duration) *Gateway {
	g.timeout = timeout
	return g
}

// WithHTTPClient sets a custom HTTP client.
func (g *Gateway) WithHTTPClient(client *http.Client) *Gateway {
	g.client = client
	return g
}

// Send runs one chat request: exactly one attempt, no retries.
func (g *Gateway) Send(ctx context.Context, prompt string, cfg Config) (string, error) {
	adapter, ok := g.adapters[cfg.Provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return "", fmt.Errorf("%w: provider %q", ErrMissingCredential, cfg.Provider)
	}

	if cfg.Model == "" {
		if p, ok := Lookup(cfg.Provider); ok {
			cfg.Model = p.DefaultModel()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := adapter.BuildRequest(ctx, prompt, cfg)
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", cfg.Provider, err)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: cfg.Provider, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return "", &ProviderError{Provider: cfg.Provider, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	log.Printf("PROVIDER_RESPONSE | provider=%s model=%s status=%d latency=%dms",
		cfg.Provider, cfg.Model, resp.StatusCode, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProviderError{
			Provider:   cfg.Provider,
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(body),
		}
	}

	text, err := adapter.ParseResponse(body)
	if err != nil {
		// The raw payload goes to the log only; callers surface a generic
		// message. Never stringify the envelope into the visible chat.
		log.Printf("MALFORMED_RESPONSE | provider=%s sample=%q", cfg.Provider, util.TruncateRunes(string(body), 200))
		return "", err
	}
	return text, nil
}

// readResponse reads the body through a size limit to bound memory use.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// upstreamMessage pulls a human-readable message out of a provider error
// body, falling back to the raw body so nothing is swallowed.
func upstreamMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return strings.TrimSpace(string(body))
}
