// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/parley-foundation/parley/lib/secret"
)

// ErrMissingConfig reports that no long-lived API key is configured.
// Fatal to the session attempt, surfaced immediately, never retried.
var ErrMissingConfig = errors.New("credential: no API key configured (set OPENAI_API_KEY)")

// IssuanceError reports that the provider rejected credential issuance.
// The provider message is carried verbatim for display; the request is
// not retried.
type IssuanceError struct {
	StatusCode      int
	ProviderMessage string
}

func (e *IssuanceError) Error() string {
	return fmt.Sprintf("credential: issuance rejected (HTTP %d): %s", e.StatusCode, e.ProviderMessage)
}

// Credential is a short-lived, session-scoped secret. It is a capability
// token: consumed once by the SDP negotiation request and never written
// to any other sink.
type Credential struct {
	// Secret is the ephemeral key presented as the Bearer token of the
	// negotiation request.
	Secret string

	// Model is the realtime model this credential is scoped to.
	Model string

	// ExpiresAt is the provider-reported expiry, zero when the provider
	// omitted it.
	ExpiresAt time.Time
}

// Broker issues ephemeral session credentials. Stateless across calls;
// safe for concurrent use.
type Broker struct {
	httpClient *http.Client
	baseURL    string
	model      string
	voice      string
	apiKey     *secret.Buffer
	logger     *slog.Logger
}

// NewBroker creates a credential broker. baseURL is the provider API
// root (no trailing slash). apiKey may be nil, in which case every Issue
// call fails with [ErrMissingConfig]; the process stays up, sessions
// cannot start.
func NewBroker(httpClient *http.Client, baseURL, model, voice string, apiKey *secret.Buffer, logger *slog.Logger) *Broker {
	return &Broker{
		httpClient: httpClient,
		baseURL:    baseURL,
		model:      model,
		voice:      voice,
		apiKey:     apiKey,
		logger:     logger,
	}
}

// sessionRequest is the issuance request body.
type sessionRequest struct {
	Model string `json:"model"`
	Voice string `json:"voice"`
}

// sessionResponse is the subset of the issuance response the broker
// consumes.
type sessionResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Issue requests one ephemeral session credential. It performs a single
// POST to the provider's session-issuance endpoint with the long-lived
// key in the Authorization header and {model, voice} as the body. A
// missing key or a provider rejection is returned without retry.
func (b *Broker) Issue(ctx context.Context) (*Credential, error) {
	if b.apiKey == nil || b.apiKey.Len() == 0 {
		return nil, ErrMissingConfig
	}

	body, err := json.Marshal(sessionRequest{Model: b.model, Voice: b.voice})
	if err != nil {
		return nil, fmt.Errorf("credential: encoding issuance request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/v1/realtime/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("credential: building issuance request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+b.apiKey.Reveal())
	request.Header.Set("Content-Type", "application/json")

	b.logger.Info("requesting ephemeral session credential", "model", b.model, "voice", b.voice)

	httpResponse, err := b.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("credential: issuance request failed: %w", err)
	}
	defer httpResponse.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(httpResponse.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("credential: reading issuance response: %w", err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return nil, &IssuanceError{
			StatusCode:      httpResponse.StatusCode,
			ProviderMessage: providerMessage(responseBody),
		}
	}

	var decoded sessionResponse
	if err := json.Unmarshal(responseBody, &decoded); err != nil {
		return nil, fmt.Errorf("credential: decoding issuance response: %w", err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return nil, &IssuanceError{
			StatusCode:      httpResponse.StatusCode,
			ProviderMessage: decoded.Error.Message,
		}
	}
	if decoded.ClientSecret.Value == "" {
		return nil, &IssuanceError{
			StatusCode:      httpResponse.StatusCode,
			ProviderMessage: "response carried no client_secret",
		}
	}

	credential := &Credential{
		Secret: decoded.ClientSecret.Value,
		Model:  b.model,
	}
	if decoded.ClientSecret.ExpiresAt > 0 {
		credential.ExpiresAt = time.Unix(decoded.ClientSecret.ExpiresAt, 0)
	}

	// The credential value itself is never logged.
	b.logger.Info("ephemeral session credential issued", "model", b.model, "expires_at", credential.ExpiresAt)
	return credential, nil
}

// providerMessage extracts a human-readable error from a non-success
// issuance response body, falling back to the raw body text.
func providerMessage(body []byte) string {
	var decoded struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Message != "" {
		return decoded.Error.Message
	}
	return string(body)
}
