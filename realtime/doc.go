// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package realtime defines the control-channel protocol and conversation
// data model for a realtime voice/text session.
//
// The wire format is JSON events over the session's data channel. Each
// event carries a "type" tag; the package models inbound traffic as a
// closed tagged variant ([ServerEvent]) and outbound traffic as
// constructor-built [ClientEvent] values:
//
//   - events.go: event tags, payload shapes, encode/decode
//   - category.go: the closed classification label set and its fallback rule
//   - conversation.go: the append-only transcript and the classification
//     result log (the sidecar's side sink, never part of the transcript)
//
// Payloads that fail JSON decoding become a ServerEvent with Malformed
// set rather than an error: one bad message is logged and dropped while
// the session keeps running.
package realtime
