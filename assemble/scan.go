package assemble

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// chunkFile is one persisted raw media chunk, keyed by the capture timestamp
// parsed from the trailing filename field.
type chunkFile struct {
	timestamp int64
	path      string
}

// scanChunks lists every chunk with the given extension in dir, parsing the
// trailing _<timestamp> filename field. Files that do not parse are skipped
// with a logged reason. A missing directory yields an empty set.
func scanChunks(dir, ext string) ([]chunkFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []chunkFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		base := strings.TrimSuffix(name, ext)
		parts := strings.Split(base, "_")
		ts, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
		if err != nil {
			slog.Warn("Skipping chunk with unparsable timestamp", "file", name)
			continue
		}
		files = append(files, chunkFile{timestamp: ts, path: filepath.Join(dir, name)})
	}
	return files, nil
}

// normalize subtracts origin from every timestamp and sorts ascending.
func normalize(files []chunkFile, origin int64) []chunkFile {
	out := make([]chunkFile, len(files))
	for i, f := range files {
		out[i] = chunkFile{timestamp: f.timestamp - origin, path: f.path}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].timestamp < out[j].timestamp })
	return out
}

// minTimestamp returns the smallest timestamp in the set; ok is false for an
// empty set.
func minTimestamp(files []chunkFile) (int64, bool) {
	if len(files) == 0 {
		return 0, false
	}
	min := files[0].timestamp
	for _, f := range files[1:] {
		if f.timestamp < min {
			min = f.timestamp
		}
	}
	return min, true
}
