package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, "/webhook", cfg.WebhookPath)
	assert.Equal(t, "recordings", cfg.RecordingsDir)
	assert.Equal(t, "meeting_summary", cfg.SummaryDir)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "sps_pps_keyframe.h264", cfg.VideoHeaderPath)
	assert.Equal(t, "black_frame.h264", cfg.BlackFramePath)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr = ":8080"
client_id = "cid"
client_secret = "csec"
webhook_secret = "wsec"
recordings_dir = "/var/recordings"
openrouter_model = "test/model"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "cid", cfg.ClientID)
	assert.Equal(t, "csec", cfg.ClientSecret)
	assert.Equal(t, "wsec", cfg.WebhookSecret)
	assert.Equal(t, "/var/recordings", cfg.RecordingsDir)
	assert.Equal(t, "test/model", cfg.OpenRouterModel)
	// Unset keys keep their defaults.
	assert.Equal(t, "/webhook", cfg.WebhookPath)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`client_secret = "from-file"`), 0644))

	t.Setenv("RTMSTAP_CLIENT_SECRET", "from-env")
	t.Setenv("RTMSTAP_RECORDINGS_DIR", "/tmp/rec")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ClientSecret)
	assert.Equal(t, "/tmp/rec", cfg.RecordingsDir)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Error(t, cfg.Validate())

	cfg.ClientID = "cid"
	require.Error(t, cfg.Validate())
	cfg.ClientSecret = "csec"
	require.Error(t, cfg.Validate())
	cfg.WebhookSecret = "wsec"
	require.NoError(t, cfg.Validate())
}
