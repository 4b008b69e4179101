package rtms

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// eventLog appends meeting events as one JSON object per line to events.log
// in the meeting directory. Timestamps are recorded as a VTT-formatted
// offset from session start.
type eventLog struct {
	dir string
	mu  sync.Mutex
}

type eventLogLine struct {
	Timestamp string         `json:"timestamp"`
	Event     map[string]any `json:"event"`
}

// clockTimestamp formats an elapsed offset in ms as HH:MM:SS.mmm.
func clockTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d",
		ms/3600000, (ms%3600000)/60000, (ms%60000)/1000, ms%1000)
}

// Append records one event. Events without a persistable type are logged
// and dropped.
func (l *eventLog) Append(elapsedMs int64, raw json.RawMessage) error {
	var event map[string]any
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("failed to decode event payload: %w", err)
	}

	eventType, _ := event["event_type"].(float64)
	switch int(eventType) {
	case EventFirstPacketTimestamp:
		slog.Info("First packet capture timestamp received")
		return nil
	case EventActiveSpeakerChanged, EventParticipantJoined, EventParticipantLeft:
	default:
		slog.Info("Unknown meeting event type, dropping", "eventType", int(eventType))
		return nil
	}
	event["event_type"] = EventTypeName(int(eventType))

	line, err := json.Marshal(eventLogLine{
		Timestamp: clockTimestamp(elapsedMs),
		Event:     event,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event line: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create meeting directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(l.dir, "events.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open events.log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append to events.log: %w", err)
	}
	return nil
}
