// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import "strings"

// Category is one of the closed set of classification labels the sidecar
// instructs the model to choose from.
type Category string

const (
	CategoryGeneral       Category = "general"
	CategoryPhilosophical Category = "philosophical"
	CategoryMath          Category = "math"
	CategoryTechnology    Category = "technology"
)

// ParseCategory maps a raw model label to a Category. Matching is
// case-insensitive after trimming whitespace. Labels outside the closed
// set fall back to CategoryGeneral with ok false; the caller keeps the
// raw label for display but styles it neutrally.
func ParseCategory(label string) (category Category, ok bool) {
	switch Category(strings.ToLower(strings.TrimSpace(label))) {
	case CategoryPhilosophical:
		return CategoryPhilosophical, true
	case CategoryMath:
		return CategoryMath, true
	case CategoryTechnology:
		return CategoryTechnology, true
	case CategoryGeneral:
		return CategoryGeneral, true
	}
	return CategoryGeneral, false
}
