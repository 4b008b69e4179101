package recorder

import (
	"fmt"
	"os"
	"path/filepath"
)

// ChunkStore writes one immutable file per received media payload, named by
// kind, owner and capture timestamp. These files are the input contract of
// the assembly stage and are never mutated after creation.
type ChunkStore struct {
	dir string
}

// NewChunkStore creates a store rooted at the meeting directory.
func NewChunkStore(meetingDir string) *ChunkStore {
	return &ChunkStore{dir: meetingDir}
}

// WriteAudioChunk persists one audio payload as
// raw/audio/audio_<user>_<timestamp>.raw.
func (c *ChunkStore) WriteAudioChunk(userID int64, timestamp int64, payload []byte) error {
	dir := filepath.Join(c.dir, RawAudioSubdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create raw audio directory: %w", err)
	}
	name := fmt.Sprintf("audio_%d_%d.raw", userID, timestamp)
	if err := os.WriteFile(filepath.Join(dir, name), payload, 0644); err != nil {
		return fmt.Errorf("failed to write audio chunk: %w", err)
	}
	return nil
}

// WriteVideoChunk persists one video payload as
// raw/video/video_<user>_<timestamp>.h264.
func (c *ChunkStore) WriteVideoChunk(userName string, timestamp int64, payload []byte) error {
	dir := filepath.Join(c.dir, RawVideoSubdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create raw video directory: %w", err)
	}
	if userName == "" {
		userName = "default-view"
	}
	name := fmt.Sprintf("video_%s_%d.h264", SanitizeName(userName), timestamp)
	if err := os.WriteFile(filepath.Join(dir, name), payload, 0644); err != nil {
		return fmt.Errorf("failed to write video chunk: %w", err)
	}
	return nil
}
