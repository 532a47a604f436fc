// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"github.com/parley-foundation/parley/credential"
	"github.com/parley-foundation/parley/lib/clock"
	"github.com/parley-foundation/parley/realtime"
)

// Handlers bundles the caller-facing notifications. All are optional
// and fire synchronously; keep them cheap.
type Handlers struct {
	// TransportState receives each negotiation state transition in
	// order, plus Failed/Closed on teardown.
	TransportState func(TransportState)

	// ChannelOpen fires when the control channel becomes sendable.
	ChannelOpen func()

	// RemoteTrack fires when the provider's audio track arrives, for
	// playback wiring. The session itself does nothing with it.
	RemoteTrack func(track *webrtc.TrackRemote)

	// Item fires for each transcript append.
	Item func(realtime.Item)

	// Classified fires for each recorded classification result.
	Classified func(realtime.Classification)

	// Event fires for inbound events that matched no routing rule.
	Event func(realtime.ServerEvent)
}

// Options configures a Session.
type Options struct {
	// Broker issues the ephemeral credential at the start of every
	// connect attempt.
	Broker *credential.Broker

	// Negotiator drives the SDP exchange.
	Negotiator *Negotiator

	// Media acquires the local audio feed. Nil means acquisition
	// fails and connect attempts abort with *MediaError.
	Media MediaAcquirer

	// ICEServers lists STUN/TURN URLs. Empty means host candidates
	// only.
	ICEServers []string

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to a discard logger.
	Logger *slog.Logger

	Handlers Handlers
}

// Session owns the single live peer session. All mutation of the peer
// handle routes through Connect and Disconnect; the transcript and
// classification log are owned here and shared read-only with the UI.
type Session struct {
	broker          *credential.Broker
	negotiator      *Negotiator
	media           MediaAcquirer
	iceServers      []string
	clock           clock.Clock
	logger          *slog.Logger
	handlers        Handlers
	transcript      *realtime.Transcript
	classifications *realtime.ClassificationLog

	// connectMu serializes Connect/Disconnect; mu guards the peer
	// handle for cheap readers (SendText, State).
	connectMu sync.Mutex
	mu        sync.Mutex
	peer      *Peer
}

// Peer is one established (or establishing) peer session. Owned by
// Session; destroyed on disconnect or fatal negotiation failure with no
// partial-teardown state.
type Peer struct {
	// ID identifies this session attempt in logs.
	ID string

	connection *webrtc.PeerConnection
	channel    *Channel
	media      MediaSource

	stateMu   sync.Mutex
	transport TransportState

	done      chan struct{}
	closeOnce sync.Once
}

// TransportState returns the peer's current transport state.
func (p *Peer) TransportState() TransportState {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.transport
}

func (p *Peer) setTransportState(state TransportState) {
	p.stateMu.Lock()
	p.transport = state
	p.stateMu.Unlock()
}

// close releases every resource exactly once and lands in StateClosed
// regardless of the state it interrupts.
func (p *Peer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.channel.Close()
		p.connection.Close()
		if p.media != nil {
			p.media.Close()
		}
		p.setTransportState(StateClosed)
	})
}

// New creates a Session. No transport exists until Connect.
func New(options Options) *Session {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		broker:          options.Broker,
		negotiator:      options.Negotiator,
		media:           options.Media,
		iceServers:      options.ICEServers,
		clock:           options.Clock,
		logger:          options.Logger,
		handlers:        options.Handlers,
		transcript:      realtime.NewTranscript(),
		classifications: realtime.NewClassificationLog(),
	}
}

// Transcript returns the visible conversation log.
func (s *Session) Transcript() *realtime.Transcript { return s.transcript }

// Classifications returns the sidecar result log.
func (s *Session) Classifications() *realtime.ClassificationLog { return s.classifications }

// State returns the live peer's transport state, or StateIdle when no
// peer session exists.
func (s *Session) State() TransportState {
	s.mu.Lock()
	peer := s.peer
	s.mu.Unlock()
	if peer == nil {
		return StateIdle
	}
	return peer.TransportState()
}

// Connect establishes a new peer session: issue credential, acquire
// media, negotiate transport. A live or mid-negotiation session is
// forcibly disconnected first. On any failure the attempt is fully torn
// down and the error returned; recovery is another Connect.
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.disconnect()

	// Credential first: if issuance fails, no transport resources were
	// ever allocated and no negotiation request goes out.
	issued, err := s.broker.Issue(ctx)
	if err != nil {
		return err
	}

	peerConnection, err := s.newPeerConnection()
	if err != nil {
		return fmt.Errorf("session: creating peer connection: %w", err)
	}

	source, err := s.acquireMedia()
	if err != nil {
		peerConnection.Close()
		return err
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusSampleRate, Channels: 2},
		"audio", "parley-microphone",
	)
	if err != nil {
		source.Close()
		peerConnection.Close()
		return fmt.Errorf("session: creating audio track: %w", err)
	}
	if _, err := peerConnection.AddTrack(track); err != nil {
		source.Close()
		peerConnection.Close()
		return fmt.Errorf("session: adding audio track: %w", err)
	}

	peerConnection.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		s.logger.Info("remote media track received", "kind", remote.Kind().String())
		if s.handlers.RemoteTrack != nil {
			s.handlers.RemoteTrack(remote)
		}
	})

	dataChannel, err := peerConnection.CreateDataChannel(controlChannelLabel, nil)
	if err != nil {
		source.Close()
		peerConnection.Close()
		return fmt.Errorf("session: creating control channel: %w", err)
	}

	channel := NewChannel(dataChannel, s.logger)
	sidecar := NewSidecar(channel, s.logger)
	router := NewRouter(s.transcript, s.classifications, sidecar, s.clock, s.logger, RouterObservers{
		Item:       s.handlers.Item,
		Classified: s.handlers.Classified,
		Event:      s.handlers.Event,
	})
	channel.Bind(s.handlers.ChannelOpen, router.Dispatch)

	peer := &Peer{
		ID:         uuid.NewString(),
		connection: peerConnection,
		channel:    channel,
		media:      source,
		transport:  StateIdle,
		done:       make(chan struct{}),
	}
	s.mu.Lock()
	s.peer = peer
	s.mu.Unlock()

	observe := func(state TransportState) {
		peer.setTransportState(state)
		s.logger.Info("transport state", "session", peer.ID, "state", state.String())
		if s.handlers.TransportState != nil {
			s.handlers.TransportState(state)
		}
	}

	if err := s.negotiator.Negotiate(ctx, peerConnection, issued, observe); err != nil {
		observe(StateFailed)
		s.disconnect()
		return err
	}

	go s.pumpMedia(peer, track)
	return nil
}

// Disconnect tears down the live peer session, releasing the media
// transport and control channel, and lands in StateClosed. Idempotent:
// disconnecting with no live session is a no-op.
func (s *Session) Disconnect() {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	s.disconnect()
}

// disconnect does the teardown without taking connectMu. Callers hold
// connectMu.
func (s *Session) disconnect() {
	s.mu.Lock()
	peer := s.peer
	s.peer = nil
	s.mu.Unlock()

	if peer == nil {
		return
	}
	peer.close()

	s.logger.Info("session disconnected", "session", peer.ID)
	if s.handlers.TransportState != nil {
		s.handlers.TransportState(StateClosed)
	}
}

// SendText publishes one user text message and requests a normal reply
// (text plus audio). Fails with ErrChannelNotOpen until the control
// channel is up.
func (s *Session) SendText(text string) error {
	s.mu.Lock()
	peer := s.peer
	s.mu.Unlock()
	if peer == nil {
		return ErrChannelNotOpen
	}

	if err := peer.channel.Send(realtime.NewUserMessage(text)); err != nil {
		return err
	}
	return peer.channel.Send(realtime.NewResponseRequest())
}

// acquireMedia runs the configured acquirer, normalizing every failure
// to *MediaError.
func (s *Session) acquireMedia() (MediaSource, error) {
	if s.media == nil {
		return nil, &MediaError{Cause: fmt.Errorf("no capture source configured")}
	}
	source, err := s.media()
	if err != nil {
		var mediaErr *MediaError
		if errors.As(err, &mediaErr) {
			return nil, err
		}
		return nil, &MediaError{Cause: err}
	}
	s.logger.Info("local audio source acquired", "source", source.Label())
	return source, nil
}

// newPeerConnection builds a pion PeerConnection with the configured
// ICE servers. Loopback candidates are enabled so in-process tests can
// negotiate against a local answerer.
func (s *Session) newPeerConnection() (*webrtc.PeerConnection, error) {
	configuration := webrtc.Configuration{}
	if len(s.iceServers) > 0 {
		configuration.ICEServers = []webrtc.ICEServer{{URLs: s.iceServers}}
	}

	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	return api.NewPeerConnection(configuration)
}

// pumpMedia feeds samples from the acquired source to the outbound
// track, paced by each sample's duration, until the source drains or
// the peer closes.
func (s *Session) pumpMedia(peer *Peer, track *webrtc.TrackLocalStaticSample) {
	for {
		sample, err := peer.media.Next()
		if err != nil {
			if err != io.EOF {
				s.logger.Warn("audio source failed, outbound track going silent", "error", err)
			}
			return
		}
		if err := track.WriteSample(sample); err != nil {
			s.logger.Warn("writing audio sample failed", "error", err)
			return
		}

		pace := sample.Duration
		if pace <= 0 {
			pace = 20 * time.Millisecond
		}
		select {
		case <-peer.done:
			return
		case <-time.After(pace):
		}
	}
}
