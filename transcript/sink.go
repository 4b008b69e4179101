// Package transcript turns live transcript frames into time-coded subtitle
// artifacts. Every artifact is append-only; cues are never reordered or
// rewritten after the fact.
package transcript

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// CueDuration is the fixed display time of one caption.
const CueDuration = 2000 // ms

const vttHeader = "WEBVTT\n\n"

// Sink appends transcript cues for one meeting to three parallel artifacts:
// transcript.vtt, transcript.srt and transcript.txt inside the meeting dir.
type Sink struct {
	dir string

	mu             sync.Mutex
	startTimestamp int64 // ms epoch; zero means not yet established
	srtIndex       int
}

// NewSink creates a sink writing into the given meeting directory.
func NewSink(dir string) *Sink {
	return &Sink{dir: dir, srtIndex: 1}
}

// SetStartTimestamp pins the session-start reference (ms epoch). When it is
// never called, the first observed cue establishes the reference instead.
func (s *Sink) SetStartTimestamp(ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTimestamp = ts
	slog.Info("Transcript start time set", "startTimestamp", ts)
}

// Write appends one cue. timestamp is the cue's capture time in ms epoch.
func (s *Sink) Write(userName string, timestamp int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create meeting directory: %w", err)
	}

	if s.startTimestamp == 0 {
		s.startTimestamp = timestamp
		slog.Warn("Transcript start timestamp not set, defaulting to first cue",
			"startTimestamp", timestamp)
	}

	relative := timestamp - s.startTimestamp

	vttLine := fmt.Sprintf("%s --> %s\n%s: %s\n\n",
		VTTTimestamp(relative), VTTTimestamp(relative+CueDuration), userName, text)
	if err := s.appendLine("transcript.vtt", vttHeader, vttLine); err != nil {
		return err
	}

	srtLine := fmt.Sprintf("%d\n%s --> %s\n%s: %s\n\n",
		s.srtIndex, SRTTimestamp(relative), SRTTimestamp(relative+CueDuration), userName, text)
	if err := s.appendLine("transcript.srt", "", srtLine); err != nil {
		return err
	}
	s.srtIndex++

	txtLine := fmt.Sprintf("[%s] %s: %s\n", isoTimestamp(timestamp), userName, text)
	return s.appendLine("transcript.txt", "", txtLine)
}

// appendLine appends to the named artifact, writing the header first when the
// file is empty.
func (s *Sink) appendLine(name, header, line string) error {
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	if header != "" {
		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", name, err)
		}
		if info.Size() == 0 {
			if _, err := f.WriteString(header); err != nil {
				return fmt.Errorf("failed to write %s header: %w", name, err)
			}
		}
	}

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append to %s: %w", name, err)
	}
	return nil
}
