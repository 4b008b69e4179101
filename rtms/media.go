package rtms

import (
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// MediaHandler receives demultiplexed frames from a media session. Payloads
// arrive already base64-decoded; transcript and chat text is passed as-is.
// Handlers run on the session's read loop and must not block for long.
type MediaHandler interface {
	OnAudio(userID int64, userName string, payload []byte, timestamp int64)
	OnVideo(userName string, payload []byte, timestamp int64)
	OnSharescreen(userID int64, payload []byte, timestamp int64)
	OnTranscript(userName string, timestamp int64, text string)
}

// MediaSession is the data-plane connection for one meeting. It performs its
// own handshake against the endpoint discovered over signaling, then routes
// incoming frames by media type.
type MediaSession struct {
	ID          uuid.UUID
	meetingUUID string
	streamID    string

	conn   *websocket.Conn
	sendMu sync.Mutex

	mu    sync.Mutex
	state State

	handler MediaHandler

	// onReady fires when the media handshake succeeds, so the signaling
	// session can send the client ready ack. onClosed fires on termination.
	onReady  func()
	onClosed func()
}

// mediaDialer skips certificate verification: media endpoints are handed out
// dynamically per meeting and may present certificates for a different host.
var mediaDialer = &websocket.Dialer{
	Proxy:            websocket.DefaultDialer.Proxy,
	HandshakeTimeout: 45 * time.Second,
	TLSClientConfig:  &tls.Config{InsecureSkipVerify: true},
}

// dialMedia connects to the media endpoint and sends the data handshake.
func dialMedia(mediaURL string, cfg SessionConfig, handler MediaHandler,
	onReady, onClosed func()) (*MediaSession, error) {

	conn, _, err := mediaDialer.Dial(mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial media server: %w", err)
	}

	m := &MediaSession{
		ID:          uuid.New(),
		meetingUUID: cfg.MeetingUUID,
		streamID:    cfg.StreamID,
		conn:        conn,
		state:       StateConnecting,
		handler:     handler,
		onReady:     onReady,
		onClosed:    onClosed,
	}

	handshake := dataHandshake{
		MsgType:           MsgDataHandshakeReq,
		ProtocolVersion:   1,
		MeetingUUID:       cfg.MeetingUUID,
		RTMSStreamID:      cfg.StreamID,
		Signature:         Sign(cfg.ClientID, cfg.MeetingUUID, cfg.StreamID, cfg.ClientSecret),
		MediaType:         32, // audio+video+transcript bundle
		PayloadEncryption: false,
		MediaParams:       defaultMediaParams(),
	}
	if err := m.send(handshake); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send media handshake: %w", err)
	}
	m.setState(StateAwaitingHandshakeAck)
	slog.Info("Sent media handshake", "sessionID", m.ID, "meetingUUID", cfg.MeetingUUID)
	return m, nil
}

// run starts the read loop. Split from dialing so the owner can register the
// session before the first response is handled.
func (m *MediaSession) run() {
	go m.readLoop()
}

func (m *MediaSession) setState(st State) {
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
}

// CurrentState reports the session state.
func (m *MediaSession) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *MediaSession) send(v any) error {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()
	return m.conn.WriteJSON(v)
}

// Close tears the socket down. Safe to call more than once.
func (m *MediaSession) Close() {
	m.conn.Close()
}

func (m *MediaSession) readLoop() {
	defer func() {
		m.setState(StateClosed)
		m.conn.Close()
		slog.Info("Media socket closed", "sessionID", m.ID, "meetingUUID", m.meetingUUID)
		if m.onClosed != nil {
			m.onClosed()
		}
	}()

	for {
		_, data, err := m.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Error("Media socket error", "error", err, "meetingUUID", m.meetingUUID)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames are dropped; the connection stays up.
			slog.Error("Failed to parse media message",
				"error", err, "meetingUUID", m.meetingUUID)
			continue
		}
		m.handle(&msg)
	}
}

func (m *MediaSession) handle(msg *inboundMessage) {
	switch msg.MsgType {
	case MsgDataHandshakeResp:
		if msg.StatusCode != StatusOK {
			slog.Error("Media handshake rejected",
				"statusCode", msg.StatusCode, "meetingUUID", m.meetingUUID)
			m.conn.Close()
			return
		}
		m.setState(StateStreaming)
		slog.Info("Media handshake successful", "meetingUUID", m.meetingUUID)
		if m.onReady != nil {
			m.onReady()
		}

	case MsgKeepAliveReq:
		resp := keepAliveResponse{MsgType: MsgKeepAliveResp, Timestamp: msg.Timestamp}
		if err := m.send(resp); err != nil {
			slog.Error("Failed to answer media keep-alive",
				"error", err, "meetingUUID", m.meetingUUID)
		}

	case MsgAudioData:
		if msg.Content == nil || msg.Content.Data == "" {
			return
		}
		if msg.Content.UserID == nil {
			slog.Error("Audio frame missing sender id, dropping",
				"meetingUUID", m.meetingUUID)
			return
		}
		payload, err := base64.StdEncoding.DecodeString(msg.Content.Data)
		if err != nil {
			slog.Error("Failed to decode audio payload",
				"error", err, "meetingUUID", m.meetingUUID)
			return
		}
		m.handler.OnAudio(*msg.Content.UserID, msg.Content.UserName, payload, msg.Content.Timestamp)

	case MsgVideoData:
		if msg.Content == nil || msg.Content.Data == "" {
			return
		}
		payload, err := base64.StdEncoding.DecodeString(msg.Content.Data)
		if err != nil {
			slog.Error("Failed to decode video payload",
				"error", err, "meetingUUID", m.meetingUUID)
			return
		}
		m.handler.OnVideo(msg.Content.UserName, payload, msg.Content.Timestamp)

	case MsgSharescreenData:
		if msg.Content == nil || msg.Content.Data == "" {
			return
		}
		payload, err := base64.StdEncoding.DecodeString(msg.Content.Data)
		if err != nil {
			slog.Error("Failed to decode sharescreen payload",
				"error", err, "meetingUUID", m.meetingUUID)
			return
		}
		var userID int64
		if msg.Content.UserID != nil {
			userID = *msg.Content.UserID
		}
		m.handler.OnSharescreen(userID, payload, msg.Content.Timestamp)

	case MsgTranscriptData:
		if msg.Content == nil || msg.Content.Data == "" {
			return
		}
		// Transcript timestamps arrive in microseconds.
		m.handler.OnTranscript(msg.Content.UserName, msg.Content.Timestamp/1000, msg.Content.Data)

	case MsgChatData:
		if msg.Content == nil {
			return
		}
		// Chat is logged only, never persisted.
		slog.Info("Chat message",
			"userName", msg.Content.UserName,
			"text", msg.Content.Data,
			"meetingUUID", m.meetingUUID)

	default:
		slog.Debug("Unhandled media message",
			"msgType", msg.MsgType, "meetingUUID", m.meetingUUID)
	}
}
