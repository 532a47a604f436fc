// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import "testing"

func TestParseCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label string
		want  Category
		ok    bool
	}{
		{"math", CategoryMath, true},
		{"Math", CategoryMath, true},
		{"  MATH \n", CategoryMath, true},
		{"philosophical", CategoryPhilosophical, true},
		{"technology", CategoryTechnology, true},
		{"general", CategoryGeneral, true},
		{"", CategoryGeneral, false},
		{"mathematics", CategoryGeneral, false},
		{"I think this is math", CategoryGeneral, false},
		{"tech", CategoryGeneral, false},
	}

	for _, testCase := range cases {
		category, ok := ParseCategory(testCase.label)
		if category != testCase.want || ok != testCase.ok {
			t.Errorf("ParseCategory(%q) = (%q, %v), want (%q, %v)",
				testCase.label, category, ok, testCase.want, testCase.ok)
		}
	}
}
