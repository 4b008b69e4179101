package rtms

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// State of a signaling or media session.
type State int32

const (
	StateConnecting State = iota
	StateAwaitingHandshakeAck
	StateSubscribed
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAwaitingHandshakeAck:
		return "awaiting-handshake-ack"
	case StateSubscribed:
		return "subscribed"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// SignalingSession is the control-plane connection for one meeting. It
// performs the handshake, subscribes to meeting events, answers keep-alives
// and hands the discovered media endpoint to its owner. It never reconnects;
// a fresh webhook event drives any new connection.
type SignalingSession struct {
	ID          uuid.UUID
	meetingUUID string
	streamID    string
	clientID    string
	secret      string

	conn   *websocket.Conn
	sendMu sync.Mutex

	mu    sync.Mutex
	state State

	startTime time.Time
	events    *eventLog

	// onMediaEndpoint fires once when the handshake response carries a media
	// server URL. onClosed fires when the socket terminates for any reason.
	onMediaEndpoint func(mediaURL string)
	onClosed        func()
}

// dialSignaling connects and sends the handshake. The read loop runs until
// the socket closes.
func dialSignaling(serverURL string, cfg SessionConfig, startTime time.Time,
	onMediaEndpoint func(string), onClosed func()) (*SignalingSession, error) {

	conn, _, err := websocket.DefaultDialer.Dial(serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial signaling server: %w", err)
	}

	s := &SignalingSession{
		ID:              uuid.New(),
		meetingUUID:     cfg.MeetingUUID,
		streamID:        cfg.StreamID,
		clientID:        cfg.ClientID,
		secret:          cfg.ClientSecret,
		conn:            conn,
		state:           StateConnecting,
		startTime:       startTime,
		events:          &eventLog{dir: cfg.MeetingDir},
		onMediaEndpoint: onMediaEndpoint,
		onClosed:        onClosed,
	}

	handshake := signalingHandshake{
		MsgType:         MsgSignalingHandshakeReq,
		ProtocolVersion: 1,
		MeetingUUID:     cfg.MeetingUUID,
		RTMSStreamID:    cfg.StreamID,
		Sequence:        rand.Int63n(1_000_000_000),
		Signature:       Sign(cfg.ClientID, cfg.MeetingUUID, cfg.StreamID, cfg.ClientSecret),
	}
	if err := s.send(handshake); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send signaling handshake: %w", err)
	}
	s.setState(StateAwaitingHandshakeAck)
	slog.Info("Sent signaling handshake",
		"sessionID", s.ID, "meetingUUID", cfg.MeetingUUID)
	return s, nil
}

// run starts the read loop. Split from dialing so the owner can register the
// session before the first response is handled.
func (s *SignalingSession) run() {
	go s.readLoop()
}

func (s *SignalingSession) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// CurrentState reports the session state.
func (s *SignalingSession) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SignalingSession) send(v any) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.conn.WriteJSON(v)
}

// SendClientReady tells the platform streaming may begin. The media session
// triggers this after its own handshake succeeds; the media socket alone
// cannot start the flow.
func (s *SignalingSession) SendClientReady() {
	ack := clientReadyAck{
		MsgType:      MsgClientReadyAck,
		RTMSStreamID: s.streamID,
	}
	if err := s.send(ack); err != nil {
		slog.Error("Failed to send client ready ack",
			"error", err, "sessionID", s.ID, "meetingUUID", s.meetingUUID)
		return
	}
	slog.Info("Sent client ready ack", "sessionID", s.ID, "meetingUUID", s.meetingUUID)
}

// Close tears the socket down. Safe to call more than once.
func (s *SignalingSession) Close() {
	s.conn.Close()
}

func (s *SignalingSession) readLoop() {
	defer func() {
		s.setState(StateClosed)
		s.conn.Close()
		slog.Info("Signaling socket closed", "sessionID", s.ID, "meetingUUID", s.meetingUUID)
		if s.onClosed != nil {
			s.onClosed()
		}
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Error("Signaling socket error", "error", err, "meetingUUID", s.meetingUUID)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Error("Failed to parse signaling message",
				"error", err, "meetingUUID", s.meetingUUID)
			continue
		}
		s.handle(&msg)
	}
}

func (s *SignalingSession) handle(msg *inboundMessage) {
	switch msg.MsgType {
	case MsgSignalingHandshakeResp:
		if msg.StatusCode != StatusOK {
			slog.Error("Signaling handshake rejected",
				"statusCode", msg.StatusCode, "meetingUUID", s.meetingUUID)
			s.conn.Close()
			return
		}
		s.setState(StateSubscribed)

		if msg.MediaServer != nil && msg.MediaServer.ServerURLs.All != "" {
			if s.onMediaEndpoint != nil {
				s.onMediaEndpoint(msg.MediaServer.ServerURLs.All)
			}
		} else {
			slog.Error("Signaling handshake response carried no media endpoint",
				"meetingUUID", s.meetingUUID)
		}

		sub := eventSubscription{
			MsgType: MsgEventSubscription,
			Events: []eventSubscriptionItem{
				{EventType: EventActiveSpeakerChanged, Subscribe: true},
				{EventType: EventParticipantJoined, Subscribe: true},
				{EventType: EventParticipantLeft, Subscribe: true},
			},
		}
		if err := s.send(sub); err != nil {
			slog.Error("Failed to send event subscription",
				"error", err, "meetingUUID", s.meetingUUID)
			return
		}
		slog.Info("Subscribed to meeting events", "meetingUUID", s.meetingUUID)

	case MsgEventUpdate:
		if msg.Event == nil {
			return
		}
		elapsed := time.Since(s.startTime).Milliseconds()
		if err := s.events.Append(elapsed, msg.Event); err != nil {
			slog.Error("Failed to record meeting event",
				"error", err, "meetingUUID", s.meetingUUID)
		}

	case MsgStreamStateUpdate:
		// Informational only. The authoritative close signal is the stream
		// stopped webhook, not anything on this socket.
		slog.Info("Stream state update",
			"state", StreamStateName(msg.State),
			"stopReason", StopReasonName(msg.StopReason),
			"meetingUUID", s.meetingUUID)

	case MsgSessionStateUpdate:
		slog.Info("Session state update",
			"state", SessionStateName(msg.State),
			"stopReason", StopReasonName(msg.StopReason),
			"meetingUUID", s.meetingUUID)

	case MsgKeepAliveReq:
		// The peer enforces a reply deadline; answer immediately.
		resp := keepAliveResponse{MsgType: MsgKeepAliveResp, Timestamp: msg.Timestamp}
		if err := s.send(resp); err != nil {
			slog.Error("Failed to answer signaling keep-alive",
				"error", err, "meetingUUID", s.meetingUUID)
		}

	default:
		slog.Debug("Unhandled signaling message",
			"msgType", msg.MsgType, "meetingUUID", s.meetingUUID)
	}
}
