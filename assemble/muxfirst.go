package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kettleby/rtmstap/recorder"
)

// MuxFirst is the single-pass fallback: it takes the first WAV and first MP4
// found directly in the meeting folder and produces a best-effort combined
// file, re-encoded, with the audio stream's duration as the limiting factor.
// No gap filling and no per-chunk concatenation happens on this path.
func (a *Assembler) MuxFirst(ctx context.Context, meetingUUID string) error {
	if err := a.begin(meetingUUID); err != nil {
		return err
	}
	defer a.end(meetingUUID)

	meetingDir := recorder.MeetingDir(a.cfg.RecordingsDir, meetingUUID)
	entries, err := os.ReadDir(meetingDir)
	if err != nil {
		return fmt.Errorf("meeting folder does not exist: %s", meetingDir)
	}

	var wavFile, mp4File string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if wavFile == "" && strings.HasSuffix(name, ".wav") {
			wavFile = name
		}
		if mp4File == "" && strings.HasSuffix(name, ".mp4") && name != "final_output.mp4" {
			mp4File = name
		}
	}
	if wavFile == "" || mp4File == "" {
		return fmt.Errorf("cannot find both a WAV and an MP4 file to mux in %s", meetingDir)
	}

	audioPath := filepath.Join(meetingDir, wavFile)
	videoPath := filepath.Join(meetingDir, mp4File)
	outputPath := filepath.Join(meetingDir, "final_output.mp4")

	if duration, err := wavDuration(audioPath); err == nil {
		slog.Info("Muxing first audio and video",
			"audio", wavFile, "video", mp4File,
			"audioDuration", duration, "meetingUUID", meetingUUID)
	} else {
		slog.Warn("Could not determine audio duration",
			"error", err, "audio", wavFile, "meetingUUID", meetingUUID)
	}

	err = a.runFFmpeg(ctx,
		"-i", audioPath,
		"-i", videoPath,
		"-itsoffset", "0.0",
		"-i", audioPath,
		"-map", "1:v:0",
		"-map", "2:a:0",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "64k",
		"-ar", fmt.Sprintf("%d", recorder.AudioSampleRate),
		"-ac", "1",
		"-shortest",
		"-y", outputPath)
	if err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("mux failed for meeting %s: %w", meetingUUID, err)
	}

	slog.Info("Muxing completed", "output", outputPath, "meetingUUID", meetingUUID)
	return nil
}
