// Package rtms implements the realtime media stream client: the signaling
// and media WebSocket state machines, the wire protocol, and the registry of
// active meeting sessions.
package rtms

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionConfig identifies one meeting stream and how to authenticate to it.
type SessionConfig struct {
	MeetingUUID  string
	StreamID     string
	ClientID     string
	ClientSecret string

	// MeetingDir receives the events log.
	MeetingDir string

	// Handler receives demultiplexed media frames.
	Handler MediaHandler
}

// MeetingSession owns the signaling and media connections for one live
// meeting. It is created on a stream-started notification and closed on the
// stream-stopped notification; sockets closing on their own do not revive.
type MeetingSession struct {
	ID          uuid.UUID
	MeetingUUID string
	StreamID    string
	StartTime   time.Time

	cfg SessionConfig

	mu        sync.Mutex
	signaling *SignalingSession
	media     *MediaSession
	closed    bool
}

// Connect dials the signaling server and starts the handshake chain:
// signaling handshake -> media endpoint discovery -> media handshake ->
// client ready ack back over the signaling socket.
func Connect(serverURL string, cfg SessionConfig) (*MeetingSession, error) {
	s := &MeetingSession{
		ID:          uuid.New(),
		MeetingUUID: cfg.MeetingUUID,
		StreamID:    cfg.StreamID,
		StartTime:   time.Now(),
		cfg:         cfg,
	}

	signaling, err := dialSignaling(serverURL, cfg, s.StartTime,
		s.connectMedia, func() { s.dropSignaling() })
	if err != nil {
		return nil, fmt.Errorf("failed to open signaling session: %w", err)
	}

	s.mu.Lock()
	s.signaling = signaling
	s.mu.Unlock()

	signaling.run()
	return s, nil
}

// connectMedia runs when the signaling handshake reveals the media endpoint.
func (s *MeetingSession) connectMedia(mediaURL string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	signaling := s.signaling
	s.mu.Unlock()

	slog.Info("Connecting to media endpoint",
		"meetingUUID", s.MeetingUUID, "mediaURL", mediaURL)

	media, err := dialMedia(mediaURL, s.cfg, s.cfg.Handler,
		func() {
			if signaling != nil {
				signaling.SendClientReady()
			}
		},
		func() { s.dropMedia() })
	if err != nil {
		slog.Error("Failed to open media session",
			"error", err, "meetingUUID", s.MeetingUUID)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		media.Close()
		return
	}
	s.media = media
	s.mu.Unlock()

	media.run()
}

func (s *MeetingSession) dropSignaling() {
	s.mu.Lock()
	s.signaling = nil
	s.mu.Unlock()
}

func (s *MeetingSession) dropMedia() {
	s.mu.Lock()
	s.media = nil
	s.mu.Unlock()
}

// Close shuts both sockets down. Late frames after Close are rejected by the
// closed connections rather than reaching the writers.
func (s *MeetingSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	signaling := s.signaling
	media := s.media
	s.signaling = nil
	s.media = nil
	s.mu.Unlock()

	if media != nil {
		media.Close()
	}
	if signaling != nil {
		signaling.Close()
	}
	slog.Info("Meeting session closed", "sessionID", s.ID, "meetingUUID", s.MeetingUUID)
}
