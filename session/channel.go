// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/parley-foundation/parley/realtime"
)

// controlChannelLabel is the data channel carrying protocol events.
const controlChannelLabel = "oai-events"

// ErrChannelNotOpen reports a send attempted before the control channel
// opened or after it closed. The caller waits for the open notification
// and tries again; nothing is queued.
var ErrChannelNotOpen = errors.New("session: control channel is not open")

// Channel owns the control data channel once the transport is
// established: structured sends, decoded inbound dispatch, and the
// open/close lifecycle.
//
// Inbound messages are delivered one at a time in arrival order; the
// underlying data channel is ordered and pion invokes the message
// handler sequentially, which is what gives the router its ordering
// guarantee.
type Channel struct {
	dataChannel *webrtc.DataChannel
	logger      *slog.Logger

	mu    sync.Mutex
	state ChannelState
}

// NewChannel wraps a freshly created data channel. Call Bind to attach
// handlers before negotiation begins so no early event is missed.
func NewChannel(dataChannel *webrtc.DataChannel, logger *slog.Logger) *Channel {
	return &Channel{
		dataChannel: dataChannel,
		logger:      logger,
		state:       ChannelUnopened,
	}
}

// Bind registers the lifecycle and event handlers. onOpen fires when
// the channel becomes sendable; onEvent receives each inbound message
// decoded as a structured event (malformed payloads included, marked as
// such).
func (c *Channel) Bind(onOpen func(), onEvent func(realtime.ServerEvent)) {
	c.dataChannel.OnOpen(func() {
		c.mu.Lock()
		c.state = ChannelOpen
		c.mu.Unlock()

		c.logger.Info("control channel opened", "label", c.dataChannel.Label())
		if onOpen != nil {
			onOpen()
		}
	})

	c.dataChannel.OnClose(func() {
		c.mu.Lock()
		c.state = ChannelClosed
		c.mu.Unlock()
		c.logger.Info("control channel closed", "label", c.dataChannel.Label())
	})

	c.dataChannel.OnMessage(func(message webrtc.DataChannelMessage) {
		onEvent(realtime.DecodeServerEvent(message.Data))
	})
}

// State returns the current channel state.
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send encodes and transmits one outbound event. Fails with
// ErrChannelNotOpen unless the channel is open.
func (c *Channel) Send(event realtime.ClientEvent) error {
	c.mu.Lock()
	open := c.state == ChannelOpen
	c.mu.Unlock()
	if !open {
		return ErrChannelNotOpen
	}

	data, err := event.Encode()
	if err != nil {
		return err
	}
	return c.dataChannel.SendText(string(data))
}

// Close closes the data channel. Idempotent: closing an already-closed
// channel is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.state == ChannelClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = ChannelClosed
	c.mu.Unlock()
	return c.dataChannel.Close()
}
