package webhook

import (
	"log/slog"
	"time"

	"github.com/kettleby/rtmstap/recorder"
	"github.com/kettleby/rtmstap/sharescreen"
	"github.com/kettleby/rtmstap/transcript"
)

// pipeline routes one meeting's demultiplexed frames into the persistence
// layer: immutable chunks for assembly, the live gap-filled streams, the
// transcript sink and the screen-share deduplicator. Write failures are
// fatal only to the writer involved; the live stream keeps flowing.
type pipeline struct {
	meetingUUID string
	chunks      *recorder.ChunkStore
	audio       *recorder.AudioWriter
	video       *recorder.VideoWriter
	transcripts *transcript.Sink
	screens     *sharescreen.Session
}

func newPipeline(meetingUUID, meetingDir string, videoHeader, blackFrame []byte) *pipeline {
	return &pipeline{
		meetingUUID: meetingUUID,
		chunks:      recorder.NewChunkStore(meetingDir),
		audio:       recorder.NewAudioWriter(meetingDir),
		video:       recorder.NewVideoWriter(meetingDir, videoHeader, blackFrame),
		transcripts: transcript.NewSink(meetingDir),
		screens:     sharescreen.NewSession(meetingDir),
	}
}

// OnAudio keys audio by arrival time: the per-user logical clocks have no
// shared origin, and assembly normalizes everything to a common one anyway.
func (p *pipeline) OnAudio(userID int64, userName string, payload []byte, _ int64) {
	now := time.Now().UnixMilli()
	if err := p.chunks.WriteAudioChunk(userID, now, payload); err != nil {
		slog.Error("Failed to persist audio chunk",
			"error", err, "userID", userID, "meetingUUID", p.meetingUUID)
	}
	if err := p.audio.Write(userID, now, payload); err != nil {
		slog.Error("Failed to append audio stream",
			"error", err, "userID", userID, "meetingUUID", p.meetingUUID)
	}
}

func (p *pipeline) OnVideo(userName string, payload []byte, timestamp int64) {
	if err := p.chunks.WriteVideoChunk(userName, timestamp, payload); err != nil {
		slog.Error("Failed to persist video chunk",
			"error", err, "userName", userName, "meetingUUID", p.meetingUUID)
	}
	if err := p.video.Write(timestamp, payload); err != nil {
		slog.Error("Failed to append video stream",
			"error", err, "meetingUUID", p.meetingUUID)
	}
}

func (p *pipeline) OnSharescreen(userID int64, payload []byte, timestamp int64) {
	if err := p.screens.HandleFrame(payload, timestamp); err != nil {
		slog.Error("Failed to handle sharescreen frame",
			"error", err, "userID", userID, "meetingUUID", p.meetingUUID)
	}
}

func (p *pipeline) OnTranscript(userName string, timestamp int64, text string) {
	if err := p.transcripts.Write(userName, timestamp, text); err != nil {
		slog.Error("Failed to append transcript cue",
			"error", err, "userName", userName, "meetingUUID", p.meetingUUID)
	}
}

// close flushes every writer and finalizes the screen-share session.
func (p *pipeline) close() {
	if err := p.audio.Close(); err != nil {
		slog.Error("Failed to close audio streams",
			"error", err, "meetingUUID", p.meetingUUID)
	}
	if err := p.video.Close(); err != nil {
		slog.Error("Failed to close video stream",
			"error", err, "meetingUUID", p.meetingUUID)
	}
	if err := p.screens.Finalize(); err != nil {
		slog.Error("Failed to finalize sharescreen session",
			"error", err, "meetingUUID", p.meetingUUID)
	}
}
