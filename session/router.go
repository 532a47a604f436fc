// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"log/slog"

	"github.com/parley-foundation/parley/lib/clock"
	"github.com/parley-foundation/parley/realtime"
)

// Requester is the sidecar's face to the router: notified once per
// newly created user conversation item.
type Requester interface {
	OnUserItem(item realtime.Item)
}

// RouterObservers are optional notification hooks for the UI layer.
// All fire synchronously on the dispatch path; keep them cheap.
type RouterObservers struct {
	// Item fires after a conversation item is appended to the transcript.
	Item func(realtime.Item)

	// Classified fires after a classification result is recorded.
	Classified func(realtime.Classification)

	// Event fires for events that matched no routing rule.
	Event func(realtime.ServerEvent)
}

// Router classifies each inbound event and dispatches it to exactly one
// destination. Rules are evaluated top to bottom, first match wins:
//
//  1. Malformed payload → warn and drop; the session continues.
//  2. Classification response.done → classification log, keyed to the
//     triggering item. Never reaches the transcript.
//  3. conversation.item.created → transcript; user items additionally
//     trigger one classification request, assistant items never do.
//  4. Anything else → generic event log.
//
// Dispatch is pure with respect to the transport: it can be exercised
// without a live peer connection.
type Router struct {
	transcript      *realtime.Transcript
	classifications *realtime.ClassificationLog
	sidecar         Requester
	clock           clock.Clock
	logger          *slog.Logger
	observers       RouterObservers
}

// NewRouter creates a router writing to the given sinks. sidecar may be
// nil, in which case user items are logged but never classified.
func NewRouter(transcript *realtime.Transcript, classifications *realtime.ClassificationLog, sidecar Requester, clk clock.Clock, logger *slog.Logger, observers RouterObservers) *Router {
	return &Router{
		transcript:      transcript,
		classifications: classifications,
		sidecar:         sidecar,
		clock:           clk,
		logger:          logger,
		observers:       observers,
	}
}

// Dispatch routes one inbound event. Events must be delivered in
// arrival order; the channel guarantees this.
func (r *Router) Dispatch(event realtime.ServerEvent) {
	if event.Malformed {
		r.logger.Warn("dropping malformed channel message", "payload", string(event.Raw))
		return
	}

	if event.Type == realtime.TypeResponseDone && event.Response.IsClassification() {
		r.handleClassification(event.Response)
		return
	}

	if event.Type == realtime.TypeConversationItemCreated {
		r.handleItemCreated(event.Item)
		return
	}

	r.logger.Debug("server event", "type", event.Type)
	if r.observers.Event != nil {
		r.observers.Event(event)
	}
}

// handleClassification records an out-of-band result. A response with
// no usable label is dropped with a warning; classification is
// best-effort and must never break the conversation.
func (r *Router) handleClassification(response *realtime.ResponseDone) {
	label := response.OutputText()
	if label == "" || response.Status == "failed" {
		r.logger.Warn("dropping unusable classification response",
			"response_id", response.ID,
			"status", response.Status,
		)
		return
	}

	category, recognized := realtime.ParseCategory(label)
	result := realtime.Classification{
		TriggeringItemID: response.Metadata.ItemID,
		RawLabel:         label,
		Category:         category,
		Recognized:       recognized,
		ReceivedAt:       r.clock.Now(),
	}
	r.classifications.Add(result)

	r.logger.Info("conversation classified",
		"category", string(category),
		"item_id", result.TriggeringItemID,
	)
	if r.observers.Classified != nil {
		r.observers.Classified(result)
	}
}

// handleItemCreated appends the item to the transcript. Only user items
// trigger the sidecar: assistant items, and items the provider creates
// while answering a classification request, must never start another
// classification, which is what prevents a request cascade.
func (r *Router) handleItemCreated(created *realtime.ItemCreated) {
	item := realtime.Item{
		ID:        created.ID,
		Role:      created.Role,
		Content:   created.Text(),
		CreatedAt: r.clock.Now(),
	}
	r.transcript.Append(item)

	r.logger.Info("conversation item", "role", item.Role, "item_id", item.ID)
	if r.observers.Item != nil {
		r.observers.Item(item)
	}

	if item.Role == realtime.RoleUser && r.sidecar != nil {
		r.sidecar.OnUserItem(item)
	}
}
