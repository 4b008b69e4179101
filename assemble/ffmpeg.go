package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// runFFmpeg invokes the external transcoder with the given arguments. The
// subprocess is treated as opaque; on failure the captured output is folded
// into the returned error.
func (a *Assembler) runFFmpeg(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, a.cfg.FFmpegPath, args...)
	slog.Debug("Executing ffmpeg", "command", cmd.String())

	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := lastLines(string(output), 5)
		return fmt.Errorf("ffmpeg failed: %w: %s", err, detail)
	}
	return nil
}

// lastLines keeps error messages readable: ffmpeg prints its banner and
// stream maps before the actual failure.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
