// Package webhook is the inbound HTTP surface: it answers URL validation
// challenges, turns stream lifecycle events into meeting sessions, and kicks
// off post-meeting assembly and summarization.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/kettleby/rtmstap/assemble"
	"github.com/kettleby/rtmstap/config"
	"github.com/kettleby/rtmstap/recorder"
	"github.com/kettleby/rtmstap/rtms"
	"github.com/kettleby/rtmstap/summary"
)

// postProcessTimeout bounds one assembly plus summarization run.
const postProcessTimeout = 30 * time.Minute

// Service owns the active-meeting registry and the webhook HTTP server.
type Service struct {
	cfg       *config.Config
	registry  *rtms.Registry
	assembler *assemble.Assembler
	generator *summary.Generator

	videoHeader []byte
	blackFrame  []byte

	mu        sync.Mutex
	pipelines map[string]*pipeline

	baseCtx context.Context
	server  *http.Server
}

// New builds the service. Missing media assets (keyframe header, black
// frame) are tolerated with a warning: recording still captures real
// payloads, only gap filling degrades.
func New(cfg *config.Config, generator *summary.Generator) *Service {
	videoHeader := readAsset(cfg.VideoHeaderPath)
	blackFrame := readAsset(cfg.BlackFramePath)

	return &Service{
		cfg:      cfg,
		registry: rtms.NewRegistry(),
		assembler: assemble.New(assemble.Config{
			RecordingsDir: cfg.RecordingsDir,
			FFmpegPath:    cfg.FFmpegPath,
			VideoHeader:   videoHeader,
			BlackFrame:    blackFrame,
		}),
		generator:   generator,
		videoHeader: videoHeader,
		blackFrame:  blackFrame,
		pipelines:   make(map[string]*pipeline),
	}
}

func readAsset(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Media asset not available, gap filling degraded",
			"error", err, "path", path)
		return nil
	}
	return data
}

// Router builds the HTTP routes.
func (s *Service) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(s.cfg.WebhookPath, s.handleWebhook).Methods("POST")
	r.HandleFunc("/meeting-summary-files", s.handleListSummaries).Methods("GET")
	r.HandleFunc("/meeting-summary/{fileName}", s.handleGetSummary).Methods("GET")
	return r
}

// Start serves until the context is cancelled, then shuts down gracefully
// and closes any sessions still active.
func (s *Service) Start(ctx context.Context) error {
	s.baseCtx = ctx
	s.server = &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Router(),
	}

	go func() {
		slog.Info("Webhook server listening",
			"addr", s.cfg.ListenAddr, "path", s.cfg.WebhookPath)
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	s.closeAllSessions()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Service) closeAllSessions() {
	s.mu.Lock()
	pipelines := s.pipelines
	s.pipelines = make(map[string]*pipeline)
	s.mu.Unlock()

	for meetingUUID, p := range pipelines {
		if sess := s.registry.Remove(meetingUUID); sess != nil {
			sess.Close()
		}
		p.close()
	}
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		PlainToken  string `json:"plainToken"`
		MeetingUUID string `json:"meeting_uuid"`
		StreamID    string `json:"rtms_stream_id"`
		ServerURLs  string `json:"server_urls"`
	} `json:"payload"`
}

type validationResponse struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

// validationHash answers the URL validation challenge: hex HMAC-SHA256 of
// the plain token keyed by the webhook secret.
func validationHash(secret, plainToken string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(plainToken))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		slog.Error("Failed to decode webhook body", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	slog.Info("Webhook received", "event", event.Event)

	switch event.Event {
	case "endpoint.url_validation":
		if event.Payload.PlainToken == "" {
			http.Error(w, "missing plainToken", http.StatusBadRequest)
			return
		}
		resp := validationResponse{
			PlainToken:     event.Payload.PlainToken,
			EncryptedToken: validationHash(s.cfg.WebhookSecret, event.Payload.PlainToken),
		}
		slog.Info("Responding to URL validation challenge")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)

	case "meeting.rtms_started":
		w.WriteHeader(http.StatusOK)
		s.startSession(event.Payload.MeetingUUID, event.Payload.StreamID, event.Payload.ServerURLs)

	case "meeting.rtms_stopped":
		w.WriteHeader(http.StatusOK)
		s.stopSession(event.Payload.MeetingUUID)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Service) startSession(meetingUUID, streamID, serverURL string) {
	if meetingUUID == "" || serverURL == "" {
		slog.Error("Stream started event missing meeting UUID or server URL")
		return
	}
	slog.Info("Stream started", "meetingUUID", meetingUUID, "streamID", streamID)

	meetingDir := recorder.MeetingDir(s.cfg.RecordingsDir, meetingUUID)
	p := newPipeline(meetingUUID, meetingDir, s.videoHeader, s.blackFrame)

	sess, err := rtms.Connect(serverURL, rtms.SessionConfig{
		MeetingUUID:  meetingUUID,
		StreamID:     streamID,
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		MeetingDir:   meetingDir,
		Handler:      p,
	})
	if err != nil {
		slog.Error("Failed to connect to signaling server",
			"error", err, "meetingUUID", meetingUUID)
		return
	}

	s.mu.Lock()
	prevPipeline := s.pipelines[meetingUUID]
	s.pipelines[meetingUUID] = p
	s.mu.Unlock()

	if prev := s.registry.Add(sess); prev != nil {
		slog.Warn("Replacing existing session for meeting", "meetingUUID", meetingUUID)
		prev.Close()
	}
	if prevPipeline != nil {
		prevPipeline.close()
	}
}

func (s *Service) stopSession(meetingUUID string) {
	if meetingUUID == "" {
		return
	}
	slog.Info("Stream stopped", "meetingUUID", meetingUUID)

	if sess := s.registry.Remove(meetingUUID); sess != nil {
		sess.Close()
	}

	s.mu.Lock()
	p := s.pipelines[meetingUUID]
	delete(s.pipelines, meetingUUID)
	s.mu.Unlock()
	if p != nil {
		p.close()
	}

	// Assembly and summarization run off the request path so slow ffmpeg
	// jobs never stall ingestion for other meetings.
	go s.postProcess(meetingUUID)
}

func (s *Service) postProcess(meetingUUID string) {
	base := s.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, postProcessTimeout)
	defer cancel()

	slog.Info("Starting media assembly", "meetingUUID", meetingUUID)
	if err := s.assembler.Assemble(ctx, meetingUUID); err != nil {
		slog.Error("Assembly failed", "error", err, "meetingUUID", meetingUUID)
	}

	if s.generator == nil {
		return
	}
	slog.Info("Starting summary generation", "meetingUUID", meetingUUID)
	if _, err := s.generator.Generate(ctx, meetingUUID); err != nil {
		slog.Error("Summary generation failed", "error", err, "meetingUUID", meetingUUID)
	}
}

func (s *Service) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	files := []string{}
	entries, err := os.ReadDir(s.cfg.SummaryDir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".md") {
				files = append(files, entry.Name())
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(files)
}

func (s *Service) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	fileName := filepath.Base(mux.Vars(r)["fileName"])
	if !strings.HasSuffix(fileName, ".md") {
		http.Error(w, "summary not found", http.StatusNotFound)
		return
	}
	content, err := os.ReadFile(filepath.Join(s.cfg.SummaryDir, fileName))
	if err != nil {
		http.Error(w, "summary not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(content)
}
