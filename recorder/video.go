package recorder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Video gap filling assumes a 25 fps cadence: one frame every 40 ms.
const (
	VideoFrameMs  = 40
	videoGapMinMs = 500
)

// VideoWriter appends every participant's video to one combined.h264 stream
// per meeting. The H.264 parameter-set keyframe header is written exactly
// once, before the first payload. Holes longer than videoGapMinMs are
// covered with copies of a pre-encoded black frame.
type VideoWriter struct {
	dir        string
	header     []byte
	blackFrame []byte

	mu            sync.Mutex
	file          *os.File
	closed        bool
	headerWritten bool
	lastTimestamp int64
	hasTimestamp  bool
}

// NewVideoWriter creates a writer rooted at the meeting directory. header is
// the SPS/PPS keyframe prefix; blackFrame is one encoded black frame.
func NewVideoWriter(meetingDir string, header, blackFrame []byte) *VideoWriter {
	return &VideoWriter{
		dir:        meetingDir,
		header:     header,
		blackFrame: blackFrame,
	}
}

// Write appends one video payload with its sender-supplied timestamp in ms.
// Writes after Close are rejected so late frames cannot reopen the stream.
func (w *VideoWriter) Write(timestamp int64, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("video writer is closed, dropping frame")
	}
	if w.file == nil {
		if err := os.MkdirAll(w.dir, 0755); err != nil {
			return fmt.Errorf("failed to create meeting directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(w.dir, "combined.h264"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open combined video stream: %w", err)
		}
		w.file = f
	}

	if !w.headerWritten {
		if _, err := w.file.Write(w.header); err != nil {
			return fmt.Errorf("failed to write video header: %w", err)
		}
		w.headerWritten = true
	}

	if w.hasTimestamp {
		gap := timestamp - w.lastTimestamp
		if gap > videoGapMinMs {
			missing := gap / VideoFrameMs
			slog.Info("Video gap detected, filling with black frames",
				"gapMs", gap, "frames", missing)
			for i := int64(0); i < missing; i++ {
				if _, err := w.file.Write(w.blackFrame); err != nil {
					return fmt.Errorf("failed to write black frame: %w", err)
				}
			}
		}
	}

	if _, err := w.file.Write(payload); err != nil {
		return fmt.Errorf("failed to write video payload: %w", err)
	}
	w.lastTimestamp = timestamp
	w.hasTimestamp = true
	return nil
}

// Close flushes and closes the combined stream. The writer rejects all
// writes from then on.
func (w *VideoWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true

	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		w.file = nil
		return fmt.Errorf("failed to sync combined video stream: %w", err)
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("failed to close combined video stream: %w", err)
	}
	return nil
}
