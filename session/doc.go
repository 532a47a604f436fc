// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package session establishes and owns the realtime peer session: the
// WebRTC transport to the provider, the control channel riding on it,
// and the event routing that feeds the transcript and the classification
// sidecar.
//
// The package is organized around the connect data flow:
//
//   - negotiator.go: the offer/gather/answer state machine. Vanilla ICE:
//     all candidates are gathered before the offer is sent, so the
//     exchange is exactly one HTTP round-trip against the provider.
//   - channel.go: the "oai-events" data channel wrapped as a structured
//     event channel with open/close lifecycle.
//   - router.go: pure dispatch of inbound events to the transcript, the
//     classification sink, or the generic event log. First match wins.
//   - sidecar.go: issues one out-of-band classification request per new
//     user conversation item, excluded from the visible conversation.
//   - media.go: local audio acquisition behind the MediaSource interface.
//   - session.go: the single live peer session and its lifecycle.
//
// Exactly one peer session is live at a time. Connect on a live session
// forces a disconnect first; Disconnect is idempotent and always lands
// in StateClosed. Nothing in this package retries: every failure is
// surfaced and recovery is a fresh Connect.
package session
