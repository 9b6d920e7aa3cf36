// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

// =============================================================================
// PROVIDER CATALOG
// =============================================================================

// Provider is one catalog entry: display metadata for a supported vendor.
// Entries are immutable and loaded from the static table below at startup.
type Provider struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	DocsURL     string   `json:"docsUrl"`
	Models      []string `json:"models"`
	RequiresKey bool     `json:"requiresKey"`
}

// DefaultModel returns the first model in the catalog entry, the one the UI
// preselects.
func (p Provider) DefaultModel() string {
	if len(p.Models) == 0 {
		return ""
	}
	return p.Models[0]
}

// catalog is the static provider table, in display order.
var catalog = []Provider{
	{
		ID:          "gemini",
		DisplayName: "Gemini",
		Description: "Google's multimodal AI model",
		DocsURL:     "https://ai.google.dev/docs/api/get-api-key",
		Models: []string{
			"gemini-2.0-pro-exp-02-05",
			"gemini-2.0-flash-thinking-exp-01-21",
			"gemini-1.5-pro",
			"gemini-1.0-pro",
		},
		RequiresKey: true,
	},
	{
		ID:          "openai",
		DisplayName: "OpenAI",
		Description: "State-of-the-art language models",
		DocsURL:     "https://platform.openai.com/api-keys",
		Models: []string{
			"gpt-4o",
			"gpt-4-turbo",
			"gpt-3.5-turbo",
		},
		RequiresKey: true,
	},
	{
		ID:          "anthropic",
		DisplayName: "Anthropic",
		Description: "Claude models for safe and helpful AI",
		DocsURL:     "https://console.anthropic.com/keys",
		Models: []string{
			"claude-3-opus",
			"claude-3-sonnet",
			"claude-3-haiku",
		},
		RequiresKey: true,
	},
	{
		ID:          "mistral",
		DisplayName: "Mistral AI",
		Description: "Open and efficient language models",
		DocsURL:     "https://console.mistral.ai/api-keys/",
		Models: []string{
			"mistral-large",
			"mistral-medium",
			"mistral-small",
		},
		RequiresKey: true,
	},
	{
		ID:          "cohere",
		DisplayName: "Cohere",
		Description: "Enterprise-ready language models",
		DocsURL:     "https://dashboard.cohere.com/api-keys",
		Models: []string{
			"command-r",
			"command-r-plus",
		},
		RequiresKey: true,
	},
}

// Catalog returns every known provider in display order. The returned slice
// is a copy; callers may not mutate catalog entries.
func Catalog() []Provider {
	out := make([]Provider, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for a provider id.
func Lookup(id string) (Provider, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// IDs returns the known provider ids in display order.
func IDs() []string {
	out := make([]string, len(catalog))
	for i, p := range catalog {
		out[i] = p.ID
	}
	return out
}
