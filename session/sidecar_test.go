// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"testing"

	"github.com/parley-foundation/parley/realtime"
)

// recordingSender captures outbound events, optionally failing.
type recordingSender struct {
	events []realtime.ClientEvent
	err    error
}

func (s *recordingSender) Send(event realtime.ClientEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func TestSidecarIssuesScopedRequest(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	sidecar := NewSidecar(sender, testLogger())

	sidecar.OnUserItem(realtime.Item{ID: "item_9", Role: realtime.RoleUser, Content: "hello"})

	if len(sender.events) != 1 {
		t.Fatalf("sent %d events, want 1", len(sender.events))
	}
	request := sender.events[0]
	if request.Type != realtime.TypeResponseCreate {
		t.Errorf("type = %q", request.Type)
	}
	if request.Response.Conversation != "none" {
		t.Errorf("conversation = %q, want none (history-excluded)", request.Response.Conversation)
	}
	if request.Response.Metadata.Type != realtime.MetadataClassification {
		t.Errorf("metadata type = %q", request.Response.Metadata.Type)
	}
	if request.Response.Metadata.ItemID != "item_9" {
		t.Errorf("metadata item_id = %q, want item_9", request.Response.Metadata.ItemID)
	}
	if len(request.Response.Modalities) != 1 || request.Response.Modalities[0] != "text" {
		t.Errorf("modalities = %v, want [text]", request.Response.Modalities)
	}
}

func TestSidecarSendFailureIsDroppedSilently(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{err: errors.New("channel gone")}
	sidecar := NewSidecar(sender, testLogger())

	// Fire-and-forget: a failed request must not panic or propagate.
	sidecar.OnUserItem(realtime.Item{ID: "item_9", Role: realtime.RoleUser})
}

func TestSidecarNotOpenYetIsDropped(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{err: ErrChannelNotOpen}
	sidecar := NewSidecar(sender, testLogger())

	sidecar.OnUserItem(realtime.Item{ID: "item_1", Role: realtime.RoleUser})
	if len(sender.events) != 0 {
		t.Error("event recorded despite send failure")
	}
}
