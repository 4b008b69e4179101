package recorder

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testHeader = []byte("HDR!")
	testBlack  = []byte("BLK")
)

func readCombined(t *testing.T, dir string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "combined.h264"))
	require.NoError(t, err)
	return data
}

func TestVideoWriterWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	w := NewVideoWriter(dir, testHeader, testBlack)

	require.NoError(t, w.Write(1000, []byte("f1")))
	require.NoError(t, w.Write(1040, []byte("f2")))
	require.NoError(t, w.Close())

	assert.Equal(t, []byte("HDR!f1f2"), readCombined(t, dir))
}

func TestVideoWriterFillsGapWithBlackFrames(t *testing.T) {
	dir := t.TempDir()
	w := NewVideoWriter(dir, testHeader, testBlack)

	require.NoError(t, w.Write(1000, []byte("f1")))
	// A 1000 ms hole at 25 fps means 25 missing frames.
	require.NoError(t, w.Write(2000, []byte("f2")))
	require.NoError(t, w.Close())

	want := append([]byte{}, testHeader...)
	want = append(want, []byte("f1")...)
	want = append(want, bytes.Repeat(testBlack, 25)...)
	want = append(want, []byte("f2")...)
	assert.Equal(t, want, readCombined(t, dir))
}

func TestVideoWriterGapAtThresholdDoesNotFill(t *testing.T) {
	dir := t.TempDir()
	w := NewVideoWriter(dir, testHeader, testBlack)

	// Filling starts strictly above 500 ms.
	require.NoError(t, w.Write(1000, []byte("f1")))
	require.NoError(t, w.Write(1500, []byte("f2")))
	require.NoError(t, w.Close())

	assert.Equal(t, []byte("HDR!f1f2"), readCombined(t, dir))
}

func TestVideoWriterCloseWithoutWrites(t *testing.T) {
	w := NewVideoWriter(t.TempDir(), testHeader, testBlack)
	require.NoError(t, w.Close())
}

func TestVideoWriterRejectsWriteAfterClose(t *testing.T) {
	dir := t.TempDir()
	w := NewVideoWriter(dir, testHeader, testBlack)

	require.NoError(t, w.Write(1000, []byte("f1")))
	require.NoError(t, w.Close())
	require.Error(t, w.Write(1040, []byte("late")))

	assert.Equal(t, []byte("HDR!f1"), readCombined(t, dir))
}
