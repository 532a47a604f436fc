// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"log/slog"

	"github.com/parley-foundation/parley/realtime"
)

// Sender transmits outbound control-channel events. Implemented by
// *Channel; tests substitute a recorder.
type Sender interface {
	Send(event realtime.ClientEvent) error
}

// Sidecar issues one out-of-band classification request per new user
// conversation item. The request is scoped outside the visible
// conversation and tagged with the triggering item's identity so the
// eventual response.done correlates back without relying on completion
// order.
//
// Requests are fire-and-forget: a send failure is logged at warn and
// dropped. The sidecar must never break the primary conversation.
type Sidecar struct {
	sender Sender
	logger *slog.Logger
}

// NewSidecar creates a sidecar sending through the given channel.
func NewSidecar(sender Sender, logger *slog.Logger) *Sidecar {
	return &Sidecar{sender: sender, logger: logger}
}

// OnUserItem requests classification for the conversation as of the
// given user item.
func (s *Sidecar) OnUserItem(item realtime.Item) {
	request := realtime.NewClassificationRequest(item.ID)
	if err := s.sender.Send(request); err != nil {
		s.logger.Warn("classification request dropped",
			"item_id", item.ID,
			"error", err,
		)
	}
}
