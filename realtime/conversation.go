// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package realtime

import (
	"sync"
	"time"
)

// Item is one entry of the visible transcript.
type Item struct {
	// ID is the provider-assigned conversation item ID.
	ID string

	// Role is RoleUser or RoleAssistant.
	Role string

	// Content is the item's text (or audio transcript).
	Content string

	// CreatedAt is the local arrival time.
	CreatedAt time.Time
}

// Transcript is the append-only, arrival-ordered record of the visible
// conversation. Only items from the normal response path are appended;
// classification results never touch it.
//
// Safe for concurrent use.
type Transcript struct {
	mu    sync.Mutex
	items []Item
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds an item at the end of the transcript.
func (t *Transcript) Append(item Item) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, item)
}

// Items returns a copy of the transcript in arrival order.
func (t *Transcript) Items() []Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	copied := make([]Item, len(t.items))
	copy(copied, t.items)
	return copied
}

// Len returns the number of transcript items.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Classification is one sidecar result, correlated to the user item
// whose creation triggered the request.
type Classification struct {
	// TriggeringItemID identifies the user item this result answers.
	// Correlation is by this identity, never by arrival order;
	// out-of-band responses may complete out of order.
	TriggeringItemID string

	// RawLabel is the label exactly as the model emitted it.
	RawLabel string

	// Category is the parsed label, CategoryGeneral when the raw label
	// is outside the closed set.
	Category Category

	// Recognized is false when RawLabel fell back to CategoryGeneral.
	Recognized bool

	// ReceivedAt is the local arrival time.
	ReceivedAt time.Time
}

// ClassificationLog is the side sink for sidecar results. It is a
// separate surface from the transcript: results are ordered
// most-recent-first for display and looked up by triggering item for
// correlation.
//
// Safe for concurrent use.
type ClassificationLog struct {
	mu      sync.Mutex
	results []Classification
}

// NewClassificationLog returns an empty log.
func NewClassificationLog() *ClassificationLog {
	return &ClassificationLog{}
}

// Add records a result.
func (l *ClassificationLog) Add(result Classification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, result)
}

// Results returns the recorded results most-recent-first.
func (l *ClassificationLog) Results() []Classification {
	l.mu.Lock()
	defer l.mu.Unlock()
	reversed := make([]Classification, len(l.results))
	for index, result := range l.results {
		reversed[len(l.results)-1-index] = result
	}
	return reversed
}

// ByItem returns the result correlated to the given triggering item ID.
// When an item was classified more than once, the latest result wins.
func (l *ClassificationLog) ByItem(itemID string) (Classification, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for index := len(l.results) - 1; index >= 0; index-- {
		if l.results[index].TriggeringItemID == itemID {
			return l.results[index], true
		}
	}
	return Classification{}, false
}

// Len returns the number of recorded results.
func (l *ClassificationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}
