// Package sharescreen filters screen-share frames down to the visually
// unique ones. Frames survive only when they differ perceptibly from the
// last accepted frame, which keeps the downstream document generator from
// receiving hundreds of identical slides.
package sharescreen

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// minFrameBytes drops partial or placeholder JPEGs.
	minFrameBytes = 1000

	// perChannelThreshold marks a pixel as differing when any channel moves
	// more than ~10% of full scale.
	perChannelThreshold = 26

	// acceptRatio accepts a frame when more than 1% of pixels differ.
	acceptRatio = 0.01
)

var (
	jpegSOI = []byte{0xff, 0xd8}
	jpegEOI = []byte{0xff, 0xd9}
)

// Frame records one accepted screen-share frame.
type Frame struct {
	Path      string
	Timestamp int64
}

// Session deduplicates screen-share frames for one meeting. Accepted frames
// are persisted under processed/jpg and listed in arrival order; Finalize
// writes the page index and discards the state.
type Session struct {
	meetingDir string

	mu      sync.Mutex
	counter int
	last    image.Image
	frames  []Frame
}

// NewSession creates a session writing under the meeting directory.
func NewSession(meetingDir string) *Session {
	return &Session{meetingDir: meetingDir}
}

// HandleFrame considers one frame. Invalid frames are dropped with a logged
// reason; comparison errors fail open so content is never silently lost.
func (s *Session) HandleFrame(payload []byte, timestamp int64) error {
	if !bytes.HasPrefix(payload, jpegSOI) || !bytes.HasSuffix(payload, jpegEOI) {
		slog.Info("Dropping non-JPEG sharescreen frame", "bytes", len(payload))
		return nil
	}
	if len(payload) < minFrameBytes {
		slog.Warn("Dropping undersized sharescreen frame", "bytes", len(payload))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accept := true
	current, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		slog.Error("Failed to decode sharescreen frame, accepting anyway", "error", err)
		current = nil
	} else if s.last != nil {
		ratio := diffRatio(s.last, current)
		accept = ratio > acceptRatio
	}

	if !accept {
		slog.Debug("Skipping similar sharescreen frame",
			"timestamp", timestamp)
		return nil
	}

	dir := filepath.Join(s.meetingDir, "processed", "jpg")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create processed directory: %w", err)
	}

	s.counter++
	path := filepath.Join(dir, fmt.Sprintf("unique_%d.jpg", s.counter))
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("failed to persist sharescreen frame: %w", err)
	}

	if current != nil {
		s.last = current
	}
	s.frames = append(s.frames, Frame{Path: path, Timestamp: timestamp})
	slog.Info("Saved unique sharescreen frame", "index", s.counter, "path", path)
	return nil
}

// AcceptedFrames returns the ordered accepted frames so far.
func (s *Session) AcceptedFrames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Finalize writes processed/frames.txt (one "Page N: time" line per accepted
// frame) and discards the session state. Document rendering itself happens
// downstream.
func (s *Session) Finalize() error {
	s.mu.Lock()
	frames := s.frames
	s.frames = nil
	s.last = nil
	s.counter = 0
	s.mu.Unlock()

	if len(frames) == 0 {
		slog.Info("No unique sharescreen frames, skipping index")
		return nil
	}

	var b bytes.Buffer
	for i, frame := range frames {
		ts := time.UnixMilli(frame.Timestamp).UTC().Format("2006-01-02T15:04:05.000Z")
		fmt.Fprintf(&b, "Page %d: %s\n", i+1, ts)
	}

	path := filepath.Join(s.meetingDir, "processed", "frames.txt")
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write frame index: %w", err)
	}
	slog.Info("Wrote sharescreen frame index", "path", path, "frames", len(frames))
	return nil
}

// diffRatio reports the share of pixels that differ perceptibly between two
// frames. Dimension changes count as fully different.
func diffRatio(a, b image.Image) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 1
	}

	var differing int
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			ar, ag, abl, _ := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			br, bg, bbl, _ := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			if channelDiff(ar, br) > perChannelThreshold ||
				channelDiff(ag, bg) > perChannelThreshold ||
				channelDiff(abl, bbl) > perChannelThreshold {
				differing++
			}
		}
	}
	return float64(differing) / float64(ab.Dx()*ab.Dy())
}

func channelDiff(a, b uint32) int {
	av, bv := int(a>>8), int(b>>8)
	if av > bv {
		return av - bv
	}
	return bv - av
}
