// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential exchanges the long-lived provider API key for a
// short-lived, session-scoped credential.
//
// The ephemeral credential authorizes exactly one SDP negotiation call
// and is never persisted or logged. The [Broker] is stateless: every
// session attempt issues a fresh credential, and issuance failures are
// reported to the caller without retry.
package credential
