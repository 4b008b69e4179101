package rtms

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00.000", clockTimestamp(0))
	assert.Equal(t, "01:02:03.045", clockTimestamp(3723045))
	assert.Equal(t, "00:00:00.000", clockTimestamp(-10))
}

func TestEventLogAppendPersistsNamedEvents(t *testing.T) {
	dir := t.TempDir()
	l := &eventLog{dir: dir}

	require.NoError(t, l.Append(1500,
		json.RawMessage(`{"event_type":3,"user_name":"Ana"}`)))

	data, err := os.ReadFile(filepath.Join(dir, "events.log"))
	require.NoError(t, err)

	var line struct {
		Timestamp string         `json:"timestamp"`
		Event     map[string]any `json:"event"`
	}
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "00:00:01.500", line.Timestamp)
	assert.Equal(t, "participant_joined", line.Event["event_type"])
	assert.Equal(t, "Ana", line.Event["user_name"])
}

func TestEventLogDropsUnpersistableEvents(t *testing.T) {
	dir := t.TempDir()
	l := &eventLog{dir: dir}

	// First-packet timestamps and unknown event types are logged only.
	require.NoError(t, l.Append(100, json.RawMessage(`{"event_type":1}`)))
	require.NoError(t, l.Append(200, json.RawMessage(`{"event_type":99}`)))

	_, err := os.Stat(filepath.Join(dir, "events.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestEventLogAppendsLines(t *testing.T) {
	dir := t.TempDir()
	l := &eventLog{dir: dir}

	require.NoError(t, l.Append(1000, json.RawMessage(`{"event_type":3}`)))
	require.NoError(t, l.Append(2000, json.RawMessage(`{"event_type":4}`)))

	data, err := os.ReadFile(filepath.Join(dir, "events.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
}
