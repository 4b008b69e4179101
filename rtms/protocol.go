package rtms

import "encoding/json"

// Message type codes used on both the signaling and media sockets. These
// values are fixed by the upstream meeting platform and must not change.
const (
	MsgSignalingHandshakeReq  = 1
	MsgSignalingHandshakeResp = 2
	MsgDataHandshakeReq       = 3
	MsgDataHandshakeResp      = 4
	MsgEventSubscription      = 5
	MsgEventUpdate            = 6
	MsgClientReadyAck         = 7
	MsgStreamStateUpdate      = 8
	MsgSessionStateUpdate     = 9
	MsgKeepAliveReq           = 12
	MsgKeepAliveResp          = 13
	MsgAudioData              = 14
	MsgVideoData              = 15
	MsgSharescreenData        = 16
	MsgTranscriptData         = 17
	MsgChatData               = 18
)

// Meeting event types delivered on the signaling socket.
const (
	EventFirstPacketTimestamp = 1
	EventActiveSpeakerChanged = 2
	EventParticipantJoined    = 3
	EventParticipantLeft      = 4
)

// StatusOK is the status_code of a successful handshake response.
const StatusOK = 0

var eventTypeNames = map[int]string{
	EventActiveSpeakerChanged: "active_speaker_changed",
	EventParticipantJoined:    "participant_joined",
	EventParticipantLeft:      "participant_left",
}

// EventTypeName returns the verbose name for a subscribable event type, or
// the empty string for events that are not persisted.
func EventTypeName(eventType int) string {
	return eventTypeNames[eventType]
}

var streamStateNames = map[int]string{
	0: "inactive",
	1: "active",
	2: "interrupted",
	3: "terminating",
	4: "terminating",
}

var sessionStateNames = map[int]string{
	2: "started",
	3: "paused",
	4: "resumed",
	5: "stopped",
}

var stopReasonNames = map[int]string{
	1:  "host triggered stop",
	2:  "user triggered stop",
	3:  "user left",
	4:  "user ejected",
	5:  "app disabled by host",
	6:  "meeting ended",
	7:  "stream canceled",
	8:  "stream revoked",
	9:  "all apps disabled",
	10: "internal exception",
	11: "connection timed out",
	12: "meeting connection interrupted",
	13: "signaling connection interrupted",
	14: "data connection interrupted",
	15: "signaling connection closed abnormally",
	16: "data connection closed abnormally",
	17: "exit signal received",
	18: "authentication failure",
}

// StreamStateName maps a stream-state code to a readable name.
func StreamStateName(state int) string {
	if name, ok := streamStateNames[state]; ok {
		return name
	}
	return "unknown"
}

// SessionStateName maps a session-state code to a readable name.
func SessionStateName(state int) string {
	if name, ok := sessionStateNames[state]; ok {
		return name
	}
	return "unknown"
}

// StopReasonName maps a stop-reason code to a readable name.
func StopReasonName(reason int) string {
	if name, ok := stopReasonNames[reason]; ok {
		return name
	}
	return "unknown"
}

// inboundMessage is the superset of fields this client reads off either
// socket. Frames it does not understand decode cleanly and are ignored.
type inboundMessage struct {
	MsgType     int              `json:"msg_type"`
	StatusCode  int              `json:"status_code"`
	Timestamp   int64            `json:"timestamp"`
	State       int              `json:"state"`
	StopReason  int              `json:"stop_reason"`
	Event       json.RawMessage  `json:"event"`
	MediaServer *mediaServerInfo `json:"media_server"`
	Content     *frameContent    `json:"content"`
}

type mediaServerInfo struct {
	ServerURLs serverURLs `json:"server_urls"`
}

type serverURLs struct {
	All string `json:"all"`
}

// frameContent carries one demultiplexed media payload. UserID is a pointer
// because a missing sender id must be distinguishable from user 0.
type frameContent struct {
	UserID    *int64 `json:"user_id"`
	UserName  string `json:"user_name"`
	Data      string `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type signalingHandshake struct {
	MsgType         int    `json:"msg_type"`
	ProtocolVersion int    `json:"protocol_version"`
	MeetingUUID     string `json:"meeting_uuid"`
	RTMSStreamID    string `json:"rtms_stream_id"`
	Sequence        int64  `json:"sequence"`
	Signature       string `json:"signature"`
}

type eventSubscriptionItem struct {
	EventType int  `json:"event_type"`
	Subscribe bool `json:"subscribe"`
}

type eventSubscription struct {
	MsgType int                     `json:"msg_type"`
	Events  []eventSubscriptionItem `json:"events"`
}

type keepAliveResponse struct {
	MsgType   int   `json:"msg_type"`
	Timestamp int64 `json:"timestamp"`
}

type clientReadyAck struct {
	MsgType      int    `json:"msg_type"`
	RTMSStreamID string `json:"rtms_stream_id"`
}

type audioParams struct {
	ContentType int `json:"content_type"`
	SampleRate  int `json:"sample_rate"`
	Channel     int `json:"channel"`
	Codec       int `json:"codec"`
	DataOpt     int `json:"data_opt"`
	SendRate    int `json:"send_rate"`
}

type videoParams struct {
	Codec      int `json:"codec"`
	Resolution int `json:"resolution"`
	FPS        int `json:"fps"`
}

type deskshareParams struct {
	Codec      int `json:"codec"`
	Resolution int `json:"resolution"`
	FPS        int `json:"fps"`
}

type textParams struct {
	ContentType int `json:"content_type"`
}

type mediaParams struct {
	Audio      audioParams     `json:"audio"`
	Video      videoParams     `json:"video"`
	Deskshare  deskshareParams `json:"deskshare"`
	Chat       textParams      `json:"chat"`
	Transcript textParams      `json:"transcript"`
}

type dataHandshake struct {
	MsgType           int         `json:"msg_type"`
	ProtocolVersion   int         `json:"protocol_version"`
	MeetingUUID       string      `json:"meeting_uuid"`
	RTMSStreamID      string      `json:"rtms_stream_id"`
	Signature         string      `json:"signature"`
	MediaType         int         `json:"media_type"`
	PayloadEncryption bool        `json:"payload_encryption"`
	MediaParams       mediaParams `json:"media_params"`
}

// defaultMediaParams declares the formats this client records: 16 kHz mono
// PCM audio, 720p H.264 video at 25 fps, JPEG screen share at 1 fps, and
// plain-text chat and transcript.
func defaultMediaParams() mediaParams {
	return mediaParams{
		Audio: audioParams{
			ContentType: 1,
			SampleRate:  1,
			Channel:     1,
			Codec:       1,
			DataOpt:     1,
			SendRate:    100,
		},
		Video: videoParams{
			Codec:      7, // H264
			Resolution: 2,
			FPS:        25,
		},
		Deskshare: deskshareParams{
			Codec:      5, // JPG
			Resolution: 2,
			FPS:        1,
		},
		Chat:       textParams{ContentType: 5},
		Transcript: textParams{ContentType: 5},
	}
}
