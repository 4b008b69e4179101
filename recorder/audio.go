package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Audio stream parameters: 16 kHz mono signed 16-bit little-endian PCM.
const (
	AudioSampleRate = 16000
	AudioFrameMs    = 20
	audioGapMinMs   = 500
	bytesPerSample  = 2
)

// AudioFrameBytes is the size of one silence frame.
const AudioFrameBytes = AudioSampleRate * AudioFrameMs / 1000 * bytesPerSample

// SilentAudioFrame returns one AudioFrameMs worth of PCM silence.
func SilentAudioFrame() []byte {
	return make([]byte, AudioFrameBytes)
}

// SilenceFor returns durationMs worth of PCM silence.
func SilenceFor(durationMs int64) []byte {
	samples := AudioSampleRate * durationMs / 1000
	return make([]byte, samples*bytesPerSample)
}

type userStream struct {
	mu            sync.Mutex
	file          *os.File
	closed        bool
	lastTimestamp int64
	hasTimestamp  bool
}

// AudioWriter appends each user's audio to a continuous <userID>.raw stream
// inside the meeting directory. A timeline hole of audioGapMinMs or more
// between consecutive payloads is covered with whole frames of silence so
// the stream stays aligned with wall-clock time.
//
// Writes for the same user are serialized by a per-user lock. A timestamp
// smaller than the last one fills no gap; the payload is still appended and
// the last timestamp is updated to the incoming value. Once Close has run,
// further writes are rejected so late frames cannot reopen a flushed stream.
type AudioWriter struct {
	dir string

	mu     sync.Mutex
	closed bool
	users  map[int64]*userStream
}

// NewAudioWriter creates a writer rooted at the meeting directory.
func NewAudioWriter(meetingDir string) *AudioWriter {
	return &AudioWriter{
		dir:   meetingDir,
		users: make(map[int64]*userStream),
	}
}

func (w *AudioWriter) stream(userID int64) (*userStream, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, fmt.Errorf("audio writer is closed, dropping frame for user %d", userID)
	}
	us, ok := w.users[userID]
	if !ok {
		us = &userStream{}
		w.users[userID] = us
	}
	return us, nil
}

// Write appends one payload for a user, filling any detected gap first.
// timestamp is the payload's capture time in ms.
func (w *AudioWriter) Write(userID int64, timestamp int64, payload []byte) error {
	us, err := w.stream(userID)
	if err != nil {
		return err
	}
	us.mu.Lock()
	defer us.mu.Unlock()

	if us.closed {
		return fmt.Errorf("audio stream for user %d is closed, dropping frame", userID)
	}
	if us.file == nil {
		if err := os.MkdirAll(w.dir, 0755); err != nil {
			return fmt.Errorf("failed to create meeting directory: %w", err)
		}
		path := filepath.Join(w.dir, fmt.Sprintf("%d.raw", userID))
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open audio stream for user %d: %w", userID, err)
		}
		us.file = f
	}

	// The first payload for a user establishes the timeline; gap detection
	// only fires once a previous timestamp exists.
	if us.hasTimestamp {
		gap := timestamp - us.lastTimestamp
		if gap >= audioGapMinMs {
			frames := gap / AudioFrameMs
			slog.Info("Audio gap detected, filling with silence",
				"userID", userID, "gapMs", gap, "frames", frames)
			silent := SilentAudioFrame()
			for i := int64(0); i < frames; i++ {
				if _, err := us.file.Write(silent); err != nil {
					return fmt.Errorf("failed to write silence for user %d: %w", userID, err)
				}
			}
		}
	}

	us.lastTimestamp = timestamp
	us.hasTimestamp = true

	if _, err := us.file.Write(payload); err != nil {
		return fmt.Errorf("failed to write audio for user %d: %w", userID, err)
	}
	return nil
}

// Close flushes and closes every open per-user stream. The writer rejects
// all writes from then on.
func (w *AudioWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true

	var firstErr error
	for userID, us := range w.users {
		us.mu.Lock()
		us.closed = true
		if us.file != nil {
			if err := us.file.Sync(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("failed to sync audio stream for user %d: %w", userID, err)
			}
			if err := us.file.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("failed to close audio stream for user %d: %w", userID, err)
			}
			us.file = nil
		}
		us.mu.Unlock()
	}
	w.users = make(map[int64]*userStream)
	return firstErr
}
