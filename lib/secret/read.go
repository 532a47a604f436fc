// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"os"
)

// FromEnv reads a secret from the named environment variable into a
// protected Buffer. Leading and trailing whitespace is trimmed. Returns
// (nil, nil) when the variable is unset or empty after trimming; the
// caller decides whether a missing key is an error.
func FromEnv(name string) (*Buffer, error) {
	value := os.Getenv(name)
	trimmed := bytes.TrimSpace([]byte(value))
	if len(trimmed) == 0 {
		return nil, nil
	}
	return NewFromBytes(trimmed)
}

// FromPath reads a secret from a file into a protected Buffer. Leading
// and trailing whitespace is trimmed; an empty file is an error.
func FromPath(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, fmt.Errorf("secret: %s is empty", path)
	}
	buffer, err := NewFromBytes(trimmed)
	// trimmed aliases data, so NewFromBytes zeroed the middle; clear
	// the whitespace prefix and suffix too.
	Zero(data)
	return buffer, err
}
