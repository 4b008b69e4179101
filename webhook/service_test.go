package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kettleby/rtmstap/config"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.WebhookSecret = "webhook-secret"
	cfg.RecordingsDir = t.TempDir()
	cfg.SummaryDir = t.TempDir()
	return New(cfg, nil)
}

func postWebhook(t *testing.T, s *Service, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestURLValidationChallenge(t *testing.T) {
	s := newTestService(t)

	rec := postWebhook(t, s, `{
		"event": "endpoint.url_validation",
		"payload": {"plainToken": "abc123"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		PlainToken     string `json:"plainToken"`
		EncryptedToken string `json:"encryptedToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc123", resp.PlainToken)

	mac := hmac.New(sha256.New, []byte("webhook-secret"))
	mac.Write([]byte("abc123"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), resp.EncryptedToken)
}

func TestURLValidationRequiresToken(t *testing.T) {
	s := newTestService(t)
	rec := postWebhook(t, s, `{"event": "endpoint.url_validation", "payload": {}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	s := newTestService(t)
	rec := postWebhook(t, s, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookAcknowledgesUnknownEvents(t *testing.T) {
	s := newTestService(t)
	rec := postWebhook(t, s, `{"event": "meeting.participant_jbh_joined", "payload": {}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamStartedWithoutServerURLIsIgnored(t *testing.T) {
	s := newTestService(t)
	rec := postWebhook(t, s, `{
		"event": "meeting.rtms_started",
		"payload": {"meeting_uuid": "m1", "rtms_stream_id": "s1"}
	}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, s.registry.Len())
}

func TestListSummaries(t *testing.T) {
	s := newTestService(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.SummaryDir, "weekly_sync.md"), []byte("# notes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.SummaryDir, "scratch.txt"), []byte("x"), 0644))

	req := httptest.NewRequest("GET", "/meeting-summary-files", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var files []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Equal(t, []string{"weekly_sync.md"}, files)
}

func TestGetSummary(t *testing.T) {
	s := newTestService(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.SummaryDir, "weekly_sync.md"), []byte("# notes"), 0644))

	req := httptest.NewRequest("GET", "/meeting-summary/weekly_sync.md", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# notes", rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown"))
}

func TestGetSummaryMissingFile(t *testing.T) {
	s := newTestService(t)
	req := httptest.NewRequest("GET", "/meeting-summary/nope.md", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSummaryRejectsNonMarkdown(t *testing.T) {
	s := newTestService(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.cfg.SummaryDir, "secrets.toml"), []byte("x"), 0644))

	req := httptest.NewRequest("GET", "/meeting-summary/secrets.toml", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidationHash(t *testing.T) {
	a := validationHash("secret", "token")
	b := validationHash("secret", "token")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, validationHash("other", "token"))
}
