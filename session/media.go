// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

// MediaError reports that local audio capture could not be acquired.
// Acquisition is a precondition for negotiation: the connect attempt
// aborts before any offer is created, and there is no retry.
type MediaError struct {
	Cause error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("session: media acquisition failed: %v", e.Cause)
}

func (e *MediaError) Unwrap() error { return e.Cause }

// MediaSource supplies encoded audio samples for the outbound track.
// Implementations own their underlying resource and release it on Close.
type MediaSource interface {
	// Label names the source for logging.
	Label() string

	// Next returns the next audio sample. Returns io.EOF when the
	// source is exhausted; the outbound track then goes silent while
	// the session stays up.
	Next() (media.Sample, error)

	// Close releases the source. Idempotent.
	Close() error
}

// MediaAcquirer acquires a MediaSource at connect time. Failure aborts
// the connect attempt with a *MediaError.
type MediaAcquirer func() (MediaSource, error)

// FileAcquirer returns an acquirer that opens an Ogg Opus file as the
// microphone feed.
func FileAcquirer(path string) MediaAcquirer {
	return func() (MediaSource, error) {
		source, err := OpenFileSource(path)
		if err != nil {
			return nil, &MediaError{Cause: err}
		}
		return source, nil
	}
}

// SilenceAcquirer returns an acquirer producing Opus silence frames.
// Used when no capture file is configured but a live outbound track is
// still wanted (text-driven sessions, tests).
func SilenceAcquirer() MediaAcquirer {
	return func() (MediaSource, error) {
		return &silenceSource{}, nil
	}
}

// opusSampleRate is the Opus RTP clock rate used to convert Ogg granule
// positions to sample durations.
const opusSampleRate = 48000

// FileSource reads Opus pages from an Ogg file.
type FileSource struct {
	file        *os.File
	reader      *oggreader.OggReader
	lastGranule uint64
	closed      bool
}

// OpenFileSource opens an Ogg Opus file for playback as the local
// audio feed.
func OpenFileSource(path string) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening audio source: %w", err)
	}
	reader, _, err := oggreader.NewWith(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("parsing ogg container %s: %w", path, err)
	}
	return &FileSource{file: file, reader: reader}, nil
}

func (s *FileSource) Label() string { return s.file.Name() }

// Next returns the next Ogg page as one sample. Duration is derived
// from the granule position delta at the Opus clock rate.
func (s *FileSource) Next() (media.Sample, error) {
	pageData, pageHeader, err := s.reader.ParseNextPage()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return media.Sample{}, io.EOF
		}
		return media.Sample{}, fmt.Errorf("reading ogg page: %w", err)
	}

	sampleCount := pageHeader.GranulePosition - s.lastGranule
	s.lastGranule = pageHeader.GranulePosition

	return media.Sample{
		Data:     pageData,
		Duration: time.Duration(sampleCount) * time.Second / opusSampleRate,
	}, nil
}

func (s *FileSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// opusSilence is a minimal Opus frame decoding to silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// silenceSource emits 20ms Opus silence frames forever.
type silenceSource struct{}

func (*silenceSource) Label() string { return "silence" }

func (*silenceSource) Next() (media.Sample, error) {
	return media.Sample{Data: opusSilence, Duration: 20 * time.Millisecond}, nil
}

func (*silenceSource) Close() error { return nil }
