// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds the long-lived provider API key in memory that is
// locked against swapping, excluded from core dumps, and zeroed on close.
//
// The key is a capability: it must never appear in logs, error messages,
// or any HTTP surface other than the Authorization header of the two
// provider calls (session issuance and SDP negotiation). Storing it in a
// [Buffer] outside the Go heap keeps the garbage collector from copying
// it around and guarantees it is gone after Close.
//
// [FromEnv] and [FromPath] are the two supported sources. There is no
// fallback chain: a missing key is reported to the caller, who surfaces
// it as a session-fatal (but process-survivable) condition.
package secret
