// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

func buildFor(t *testing.T, a Adapter, cfg Config) *http.Request {
	t.Helper()
	req, err := a.BuildRequest(context.Background(), "make a page", cfg)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	return req
}

func decodeBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	return payload
}

func TestGeminiBuildRequest(t *testing.T) {
	a := NewGeminiAdapter()
	req := buildFor(t, a, Config{Provider: "gemini", APIKey: "secret", Model: "gemini-1.5-pro"})

	if !strings.Contains(req.URL.Path, "/models/gemini-1.5-pro:generateContent") {
		t.Fatalf("path = %q", req.URL.Path)
	}
	if got := req.URL.Query().Get("key"); got != "secret" {
		t.Fatalf("key query = %q", got)
	}

	payload := decodeBody(t, req)
	contents := payload["contents"].([]any)
	first := contents[0].(map[string]any)
	if first["role"] != "user" {
		t.Fatalf("role = %v, want user", first["role"])
	}
	text := first["parts"].([]any)[0].(map[string]any)["text"].(string)
	if !strings.Contains(text, "make a page") || !strings.Contains(text, SystemInstruction) {
		t.Fatal("user part must carry both the system instruction and the prompt")
	}
}

func TestGeminiParseResponse(t *testing.T) {
	a := NewGeminiAdapter()
	body := `{"candidates":[{"content":{"parts":[{"text":"alpha"},{"text":"beta"}]}}]}`
	got, err := a.ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got != "alpha\nbeta" {
		t.Fatalf("got %q", got)
	}

	if _, err := a.ParseResponse([]byte(`{"candidates":[]}`)); err == nil {
		t.Fatal("want error on empty candidates")
	}
}

func TestOpenAIBuildRequest(t *testing.T) {
	a := NewOpenAIAdapter()
	req := buildFor(t, a, Config{Provider: "openai", APIKey: "secret", Model: "gpt-4o"})

	if req.URL.Path != "/v1/chat/completions" {
		t.Fatalf("path = %q", req.URL.Path)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("authorization = %q", got)
	}

	payload := decodeBody(t, req)
	messages := payload["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].(map[string]any)["role"] != "system" {
		t.Fatal("first message must be the system instruction")
	}
	if messages[1].(map[string]any)["content"] != "make a page" {
		t.Fatal("second message must be the user prompt")
	}
}

func TestAnthropicBuildRequest(t *testing.T) {
	a := NewAnthropicAdapter()
	req := buildFor(t, a, Config{Provider: "anthropic", APIKey: "secret", Model: "claude-3-opus"})

	if req.URL.Path != "/v1/messages" {
		t.Fatalf("path = %q", req.URL.Path)
	}
	if got := req.Header.Get("x-api-key"); got != "secret" {
		t.Fatalf("x-api-key = %q", got)
	}
	if got := req.Header.Get("anthropic-version"); got != anthropicVersion {
		t.Fatalf("anthropic-version = %q", got)
	}

	payload := decodeBody(t, req)
	if payload["system"] != SystemInstruction {
		t.Fatal("system instruction must travel in the top-level system field")
	}
	if payload["max_tokens"].(float64) != anthropicMaxTokens {
		t.Fatalf("max_tokens = %v", payload["max_tokens"])
	}
	messages := payload["messages"].([]any)
	if len(messages) != 1 || messages[0].(map[string]any)["role"] != "user" {
		t.Fatal("messages must hold the single user turn")
	}
}

func TestAnthropicParseResponse(t *testing.T) {
	a := NewAnthropicAdapter()
	body := `{"content":[{"type":"text","text":"one"},{"type":"tool_use"},{"type":"text","text":"two"}]}`
	got, err := a.ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got != "one\ntwo" {
		t.Fatalf("got %q", got)
	}

	if _, err := a.ParseResponse([]byte(`{"content":[]}`)); err == nil {
		t.Fatal("want error on empty content")
	}
}

func TestMistralBuildRequest(t *testing.T) {
	a := NewMistralAdapter()
	req := buildFor(t, a, Config{Provider: "mistral", APIKey: "secret", Model: "mistral-large"})

	if req.URL.Path != "/v1/chat/completions" {
		t.Fatalf("path = %q", req.URL.Path)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("authorization = %q", got)
	}
}

func TestCohereBuildRequest(t *testing.T) {
	a := NewCohereAdapter()
	req := buildFor(t, a, Config{Provider: "cohere", APIKey: "secret", Model: "command-r"})

	if req.URL.Path != "/v1/chat" {
		t.Fatalf("path = %q", req.URL.Path)
	}

	payload := decodeBody(t, req)
	if payload["preamble"] != SystemInstruction {
		t.Fatal("system instruction must travel in the preamble field")
	}
	if payload["message"] != "make a page" {
		t.Fatalf("message = %v", payload["message"])
	}
}

func TestCohereParseResponse(t *testing.T) {
	a := NewCohereAdapter()
	got, err := a.ParseResponse([]byte(`{"text":"hello"}`))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q", got)
	}

	if _, err := a.ParseResponse([]byte(`{}`)); err == nil {
		t.Fatal("want error on missing text")
	}
}

func TestRegistryLookup(t *testing.T) {
	tests := []struct {
		id        string
		wantFound bool
		wantModel string
	}{
		{"gemini", true, "gemini-2.0-pro-exp-02-05"},
		{"openai", true, "gpt-4o"},
		{"anthropic", true, "claude-3-opus"},
		{"mistral", true, "mistral-large"},
		{"cohere", true, "command-r"},
		{"llama-farm", false, ""},
	}
	for _, tt := range tests {
		p, ok := Lookup(tt.id)
		if ok != tt.wantFound {
			t.Errorf("Lookup(%q) found = %v, want %v", tt.id, ok, tt.wantFound)
			continue
		}
		if ok && p.DefaultModel() != tt.wantModel {
			t.Errorf("Lookup(%q) default model = %q, want %q", tt.id, p.DefaultModel(), tt.wantModel)
		}
	}
}

func TestCatalogOrder(t *testing.T) {
	var ids []string
	for _, p := range Catalog() {
		ids = append(ids, p.ID)
	}
	want := []string{"gemini", "openai", "anthropic", "mistral", "cohere"}
	if len(ids) != len(want) {
		t.Fatalf("catalog size = %d, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("catalog[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
