// Package assemble is the offline post-meeting stage: it reassembles the
// persisted per-user chunks into one synchronized container. Chunks are
// normalized to a common time origin, concatenated with gap filling, run
// through the external transcoder, and muxed with a computed offset that
// corrects residual start-time skew between the audio and video streams.
package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kettleby/rtmstap/recorder"
)

// Gap thresholds for the assembly pass. Audio tolerates only small holes
// between chunk files; video follows the live writer's 500 ms rule.
const (
	audioGapMinMs = 100
	videoGapMinMs = 500
)

// Config parameterizes the assembly stage.
type Config struct {
	RecordingsDir string
	FFmpegPath    string

	// VideoHeader is the H.264 parameter-set keyframe prepended to the
	// assembled video stream; BlackFrame fills video gaps.
	VideoHeader []byte
	BlackFrame  []byte
}

// Assembler runs assembly and mux jobs. At most one job runs per meeting at
// a time; a second request while one is active is rejected.
type Assembler struct {
	cfg Config

	mu      sync.Mutex
	running map[string]bool
}

// New creates an Assembler.
func New(cfg Config) *Assembler {
	return &Assembler{
		cfg:     cfg,
		running: make(map[string]bool),
	}
}

func (a *Assembler) begin(meetingUUID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running[meetingUUID] {
		return fmt.Errorf("assembly already running for meeting %s", meetingUUID)
	}
	a.running[meetingUUID] = true
	return nil
}

func (a *Assembler) end(meetingUUID string) {
	a.mu.Lock()
	delete(a.running, meetingUUID)
	a.mu.Unlock()
}

// Assemble runs the gap-aware pipeline for one meeting and reports the first
// failed step. The final container only exists when every step succeeded.
func (a *Assembler) Assemble(ctx context.Context, meetingUUID string) error {
	if err := a.begin(meetingUUID); err != nil {
		return err
	}
	defer a.end(meetingUUID)

	meetingDir := recorder.MeetingDir(a.cfg.RecordingsDir, meetingUUID)
	if _, err := os.Stat(meetingDir); err != nil {
		return fmt.Errorf("meeting folder does not exist: %s", meetingDir)
	}

	audioFiles, err := scanChunks(filepath.Join(meetingDir, recorder.RawAudioSubdir), ".raw")
	if err != nil {
		return err
	}
	videoFiles, err := scanChunks(filepath.Join(meetingDir, recorder.RawVideoSubdir), ".h264")
	if err != nil {
		return err
	}

	audioMin, haveAudio := minTimestamp(audioFiles)
	videoMin, haveVideo := minTimestamp(videoFiles)
	if !haveAudio && !haveVideo {
		return fmt.Errorf("no chunks to assemble for meeting %s", meetingUUID)
	}

	// The origin is the earliest timestamp across both kinds, so the two
	// assembled streams share one timeline.
	origin := audioMin
	if !haveAudio || (haveVideo && videoMin < origin) {
		origin = videoMin
	}
	audioSorted := normalize(audioFiles, origin)
	videoSorted := normalize(videoFiles, origin)

	assembledDir := filepath.Join(meetingDir, "assembled")
	if err := os.MkdirAll(assembledDir, 0755); err != nil {
		return fmt.Errorf("failed to create assembled directory: %w", err)
	}

	rawAudioPath := filepath.Join(assembledDir, "assembled_audio.raw")
	if err := a.concatAudio(rawAudioPath, audioSorted); err != nil {
		return fmt.Errorf("audio concatenation failed: %w", err)
	}
	rawVideoPath := filepath.Join(assembledDir, "assembled_video.h264")
	if err := a.concatVideo(rawVideoPath, videoSorted); err != nil {
		return fmt.Errorf("video concatenation failed: %w", err)
	}

	wavPath := filepath.Join(assembledDir, "assembled_audio.wav")
	mp4Path := filepath.Join(assembledDir, "assembled_video.mp4")

	// Conversions fail independently: a broken audio stream must not stop
	// the video conversion from being attempted.
	var audioErr, videoErr error
	slog.Info("Converting assembled audio to WAV", "meetingUUID", meetingUUID)
	audioErr = a.runFFmpeg(ctx,
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", recorder.AudioSampleRate),
		"-ac", "1",
		"-i", rawAudioPath,
		"-y", wavPath)
	if audioErr != nil {
		slog.Error("Audio conversion failed", "error", audioErr, "meetingUUID", meetingUUID)
	}

	slog.Info("Converting assembled video to MP4", "meetingUUID", meetingUUID)
	videoErr = a.runFFmpeg(ctx,
		"-framerate", "25",
		"-i", rawVideoPath,
		"-r", "25",
		"-c:v", "copy",
		"-avoid_negative_ts", "make_zero",
		"-y", mp4Path)
	if videoErr != nil {
		slog.Error("Video conversion failed", "error", videoErr, "meetingUUID", meetingUUID)
	}

	if audioErr != nil || videoErr != nil {
		return fmt.Errorf("assembly incomplete for meeting %s (audio: %v, video: %v)",
			meetingUUID, audioErr, videoErr)
	}

	if duration, err := wavDuration(wavPath); err == nil {
		slog.Info("Assembled audio converted", "duration", duration, "meetingUUID", meetingUUID)
	}

	audioDelayMs, videoDelayMs := streamDelays(audioMin, haveAudio, videoMin, haveVideo)
	finalPath := filepath.Join(meetingDir, "final_output_new.mkv")

	args := []string{}
	if audioDelayMs > 0 {
		args = append(args, "-itsoffset", fmt.Sprintf("%.3f", float64(audioDelayMs)/1000))
	}
	args = append(args, "-i", wavPath)
	if videoDelayMs > 0 {
		args = append(args, "-itsoffset", fmt.Sprintf("%.3f", float64(videoDelayMs)/1000))
	}
	args = append(args, "-i", mp4Path, "-c", "copy", "-y", finalPath)

	slog.Info("Muxing final output",
		"audioDelayMs", audioDelayMs, "videoDelayMs", videoDelayMs,
		"output", finalPath, "meetingUUID", meetingUUID)
	if err := a.runFFmpeg(ctx, args...); err != nil {
		// A truncated final container must not look like success.
		os.Remove(finalPath)
		return fmt.Errorf("mux failed for meeting %s: %w", meetingUUID, err)
	}

	slog.Info("Assembly and muxing complete", "output", finalPath, "meetingUUID", meetingUUID)
	return nil
}

// concatAudio writes the assembled raw audio stream, inserting the full gap
// duration of silence whenever consecutive chunks are more than
// audioGapMinMs apart on the normalized timeline.
func (a *Assembler) concatAudio(outPath string, files []chunkFile) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}

	var lastTs int64
	haveLast := false
	for _, item := range files {
		if haveLast && item.timestamp-lastTs > audioGapMinMs {
			gap := item.timestamp - lastTs
			if _, err := out.Write(recorder.SilenceFor(gap)); err != nil {
				out.Close()
				return fmt.Errorf("failed to write silence: %w", err)
			}
		}
		buf, err := os.ReadFile(item.path)
		if err != nil {
			out.Close()
			return fmt.Errorf("failed to read chunk %s: %w", item.path, err)
		}
		if _, err := out.Write(buf); err != nil {
			out.Close()
			return fmt.Errorf("failed to append chunk %s: %w", item.path, err)
		}
		lastTs = item.timestamp
		haveLast = true
	}

	// Explicit flush before the transcoder reads the file back.
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("failed to sync %s: %w", outPath, err)
	}
	return out.Close()
}

// concatVideo writes the assembled raw video stream: the parameter-set
// header once, then each chunk with black frames covering any gap larger
// than videoGapMinMs.
func (a *Assembler) concatVideo(outPath string, files []chunkFile) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	if _, err := out.Write(a.cfg.VideoHeader); err != nil {
		out.Close()
		return fmt.Errorf("failed to write video header: %w", err)
	}

	var lastTs int64
	haveLast := false
	for _, item := range files {
		if haveLast && item.timestamp-lastTs > videoGapMinMs {
			gap := item.timestamp - lastTs
			for i := int64(0); i < gap/recorder.VideoFrameMs; i++ {
				if _, err := out.Write(a.cfg.BlackFrame); err != nil {
					out.Close()
					return fmt.Errorf("failed to write black frame: %w", err)
				}
			}
		}
		buf, err := os.ReadFile(item.path)
		if err != nil {
			out.Close()
			return fmt.Errorf("failed to read chunk %s: %w", item.path, err)
		}
		if _, err := out.Write(buf); err != nil {
			out.Close()
			return fmt.Errorf("failed to append chunk %s: %w", item.path, err)
		}
		lastTs = item.timestamp
		haveLast = true
	}

	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("failed to sync %s: %w", outPath, err)
	}
	return out.Close()
}

// streamDelays computes the mux start-time delays from each kind's original
// (pre-normalization) minimum timestamp. The later-starting stream is
// delayed; the earlier one is never truncated.
func streamDelays(audioMin int64, haveAudio bool, videoMin int64, haveVideo bool) (audioDelayMs, videoDelayMs int64) {
	if !haveAudio || !haveVideo {
		return 0, 0
	}
	if audioMin > videoMin {
		return audioMin - videoMin, 0
	}
	return 0, videoMin - audioMin
}
