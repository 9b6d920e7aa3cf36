// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider implements the multi-provider chat gateway.
//
// Each supported LLM vendor (Gemini, OpenAI, Anthropic, Mistral, Cohere)
// has one Adapter that owns its wire format: how the request payload is
// built, how the system instruction is encoded into the vendor's role
// conventions, and how the reply text is pulled out of the response
// envelope. The Gateway hides all of that behind a single Send call.
//
// # Key Types
//
//   - Provider: catalog entry with display metadata and model list
//   - Config:   per-request provider selection (provider id, key, model)
//   - Adapter:  one vendor's request builder and response parser
//   - Gateway:  uniform send(prompt, config) -> reply text
//
// The gateway performs exactly one attempt per call; there are no retries.
// Timeouts are the transport's concern and are applied via the request
// context by callers.
package provider
