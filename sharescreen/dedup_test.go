package sharescreen

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyJPEG encodes a high-entropy test image so the payload clears the
// minimum size check. invert flips every channel, producing a frame that
// differs on every pixel.
func noisyJPEG(t *testing.T, invert bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 160, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 160; x++ {
			v := uint8((x*7 + y*13) % 256)
			if invert {
				v = 255 - v
			}
			img.Set(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	require.GreaterOrEqual(t, buf.Len(), minFrameBytes)
	return buf.Bytes()
}

func TestSessionAcceptsFirstFrame(t *testing.T) {
	dir := t.TempDir()
	s := NewSession(dir)

	require.NoError(t, s.HandleFrame(noisyJPEG(t, false), 1000))

	frames := s.AcceptedFrames()
	require.Len(t, frames, 1)
	assert.Equal(t, filepath.Join(dir, "processed", "jpg", "unique_1.jpg"), frames[0].Path)
	_, err := os.Stat(frames[0].Path)
	assert.NoError(t, err)
}

func TestSessionRejectsIdenticalFrame(t *testing.T) {
	s := NewSession(t.TempDir())
	frame := noisyJPEG(t, false)

	require.NoError(t, s.HandleFrame(frame, 1000))
	require.NoError(t, s.HandleFrame(frame, 2000))

	assert.Len(t, s.AcceptedFrames(), 1)
}

func TestSessionAcceptsChangedFrame(t *testing.T) {
	s := NewSession(t.TempDir())

	require.NoError(t, s.HandleFrame(noisyJPEG(t, false), 1000))
	require.NoError(t, s.HandleFrame(noisyJPEG(t, true), 2000))

	frames := s.AcceptedFrames()
	require.Len(t, frames, 2)
	assert.True(t, strings.HasSuffix(frames[1].Path, "unique_2.jpg"))
}

func TestSessionDropsNonJPEG(t *testing.T) {
	s := NewSession(t.TempDir())

	payload := bytes.Repeat([]byte("not a jpeg "), 200)
	require.NoError(t, s.HandleFrame(payload, 1000))

	assert.Empty(t, s.AcceptedFrames())
}

func TestSessionDropsUndersizedFrame(t *testing.T) {
	s := NewSession(t.TempDir())

	payload := append([]byte{0xff, 0xd8}, 0xff, 0xd9)
	require.NoError(t, s.HandleFrame(payload, 1000))

	assert.Empty(t, s.AcceptedFrames())
}

func TestSessionFinalizeWritesIndexAndResets(t *testing.T) {
	dir := t.TempDir()
	s := NewSession(dir)

	require.NoError(t, s.HandleFrame(noisyJPEG(t, false), 1_700_000_000_000))
	require.NoError(t, s.HandleFrame(noisyJPEG(t, true), 1_700_000_005_000))
	require.NoError(t, s.Finalize())

	data, err := os.ReadFile(filepath.Join(dir, "processed", "frames.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Page 1: 2023-11-14T"))
	assert.True(t, strings.HasPrefix(lines[1], "Page 2: 2023-11-14T"))

	assert.Empty(t, s.AcceptedFrames())
	// Counting restarts after finalize.
	require.NoError(t, s.HandleFrame(noisyJPEG(t, false), 1_700_000_010_000))
	frames := s.AcceptedFrames()
	require.Len(t, frames, 1)
	assert.True(t, strings.HasSuffix(frames[0].Path, "unique_1.jpg"))
}

func TestSessionFinalizeWithNoFramesWritesNothing(t *testing.T) {
	dir := t.TempDir()
	s := NewSession(dir)

	require.NoError(t, s.Finalize())
	_, err := os.Stat(filepath.Join(dir, "processed", "frames.txt"))
	assert.True(t, os.IsNotExist(err))
}
