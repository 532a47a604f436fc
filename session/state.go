// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

// TransportState tracks the peer transport through negotiation. The
// happy path is Idle → NegotiatingOffer → GatheringCandidates →
// AwaitingAnswer → Established. Any step may jump to Failed; explicit
// disconnect lands in Closed from anywhere.
type TransportState int

const (
	StateIdle TransportState = iota
	StateNegotiatingOffer
	StateGatheringCandidates
	StateAwaitingAnswer
	StateEstablished
	StateClosed
	StateFailed
)

func (s TransportState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiatingOffer:
		return "negotiating-offer"
	case StateGatheringCandidates:
		return "gathering-candidates"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateEstablished:
		return "established"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ChannelState tracks the control channel independently of the
// transport: the transport reaches Established before the data channel
// finishes its own open handshake.
type ChannelState int

const (
	ChannelUnopened ChannelState = iota
	ChannelOpen
	ChannelClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelUnopened:
		return "unopened"
	case ChannelOpen:
		return "open"
	case ChannelClosed:
		return "closed"
	}
	return "unknown"
}
