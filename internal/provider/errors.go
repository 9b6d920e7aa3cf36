// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
)

// Error variables for gateway failures.
var (
	// ErrUnsupportedProvider indicates no adapter is registered for the
	// requested provider id.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrMissingCredential indicates the request carried no API key. The UI
	// layer resolves keys from the credential store; the gateway re-validates.
	ErrMissingCredential = errors.New("missing API credential")

	// ErrMalformedResponse indicates the provider returned an envelope the
	// adapter could not parse. The raw payload is logged, never returned.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// ProviderError is an upstream failure: a transport error or a non-2xx
// response. The provider's own error body is preserved so users can
// diagnose quota and auth problems.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}
