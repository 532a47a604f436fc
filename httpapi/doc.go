// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi serves the browser-facing endpoints: a static client
// page and a credential endpoint that exchanges the server's long-lived
// provider key for a short-lived session credential.
//
// The long-lived key never leaves the server. Browser clients only ever
// see the ephemeral credential, which is the whole point of brokering
// here instead of shipping the key to the page.
package httpapi
