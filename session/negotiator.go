// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/parley-foundation/parley/credential"
	"github.com/parley-foundation/parley/lib/clock"
)

// defaultGatherTimeout is the maximum time to wait for ICE candidate
// gathering to complete before the connect attempt fails.
const defaultGatherTimeout = 15 * time.Second

// NegotiationError reports a failed negotiation step. The transport is
// torn down; the caller may start over from StateIdle. Never retried
// automatically.
type NegotiationError struct {
	// Stage is the negotiation step that failed: "offer", "gather",
	// "exchange", or "answer".
	Stage string

	// Cause is the human-readable failure reason. For a provider
	// rejection this is the response body verbatim.
	Cause string

	// Err is the underlying error, nil for provider rejections.
	Err error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("session: negotiation failed at %s: %s", e.Stage, e.Cause)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// Negotiator drives the SDP offer/answer exchange with the provider.
// The model is vanilla ICE: the offer is held until candidate gathering
// reports complete, then sent in a single POST whose response body is
// the remote answer. Intermediate candidate events are irrelevant and
// ignored; acting on them would send a partial offer.
//
// Stateless across calls; safe for concurrent use (though the session
// layer only ever negotiates one transport at a time).
type Negotiator struct {
	httpClient    *http.Client
	baseURL       string
	clock         clock.Clock
	gatherTimeout time.Duration
	logger        *slog.Logger
}

// NewNegotiator creates a negotiator against the provider API root
// (no trailing slash).
func NewNegotiator(httpClient *http.Client, baseURL string, clk clock.Clock, logger *slog.Logger) *Negotiator {
	return &Negotiator{
		httpClient:    httpClient,
		baseURL:       baseURL,
		clock:         clk,
		gatherTimeout: defaultGatherTimeout,
		logger:        logger,
	}
}

// Negotiate runs the offer/gather/answer sequence on peerConnection,
// authorized by a fresh ephemeral credential. The observe callback
// receives each state transition in order; on success the final call is
// StateEstablished. On error the transport is left as-is for the caller
// to tear down; Negotiate itself owns no resources.
func (n *Negotiator) Negotiate(ctx context.Context, peerConnection *webrtc.PeerConnection, issued *credential.Credential, observe func(TransportState)) error {
	observe(StateNegotiatingOffer)

	offer, err := peerConnection.CreateOffer(nil)
	if err != nil {
		return &NegotiationError{Stage: "offer", Cause: err.Error(), Err: err}
	}

	// GatheringCompletePromise must be armed before SetLocalDescription
	// starts gathering, or the completion signal can be missed.
	gatherComplete := webrtc.GatheringCompletePromise(peerConnection)
	if err := peerConnection.SetLocalDescription(offer); err != nil {
		return &NegotiationError{Stage: "offer", Cause: err.Error(), Err: err}
	}

	observe(StateGatheringCandidates)
	select {
	case <-gatherComplete:
	case <-n.clock.After(n.gatherTimeout):
		return &NegotiationError{
			Stage: "gather",
			Cause: fmt.Sprintf("ICE gathering did not complete within %s", n.gatherTimeout),
		}
	case <-ctx.Done():
		return &NegotiationError{Stage: "gather", Cause: ctx.Err().Error(), Err: ctx.Err()}
	}

	observe(StateAwaitingAnswer)

	// The local description now carries every gathered candidate.
	completeOffer := peerConnection.LocalDescription()
	answerSDP, err := n.exchange(ctx, completeOffer.SDP, issued)
	if err != nil {
		return err
	}

	answer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answerSDP,
	}
	if err := peerConnection.SetRemoteDescription(answer); err != nil {
		return &NegotiationError{Stage: "answer", Cause: err.Error(), Err: err}
	}

	n.logger.Info("negotiation complete", "model", issued.Model)
	observe(StateEstablished)
	return nil
}

// exchange POSTs the complete local offer and returns the remote answer
// SDP. The ephemeral credential authorizes the call and is consumed
// here; it appears in no other sink.
func (n *Negotiator) exchange(ctx context.Context, offerSDP string, issued *credential.Credential) (string, error) {
	endpoint := n.baseURL + "/v1/realtime?model=" + url.QueryEscape(issued.Model)

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(offerSDP))
	if err != nil {
		return "", &NegotiationError{Stage: "exchange", Cause: err.Error(), Err: err}
	}
	request.Header.Set("Authorization", "Bearer "+issued.Secret)
	request.Header.Set("Content-Type", "application/sdp")

	httpResponse, err := n.httpClient.Do(request)
	if err != nil {
		return "", &NegotiationError{Stage: "exchange", Cause: err.Error(), Err: err}
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResponse.Body, 1<<20))
	if err != nil {
		return "", &NegotiationError{Stage: "exchange", Cause: err.Error(), Err: err}
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		// The provider's error body is an opaque string, surfaced
		// verbatim.
		return "", &NegotiationError{Stage: "exchange", Cause: string(body)}
	}

	return string(body), nil
}
