package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds everything the daemon and the offline assembly commands need.
type Config struct {
	// HTTP listen address for the webhook server.
	ListenAddr string

	// Path the meeting platform delivers webhook events to.
	WebhookPath string

	// Credentials for the realtime media stream handshake.
	ClientID     string
	ClientSecret string

	// Shared secret used to answer URL validation challenges.
	WebhookSecret string

	// Base directory for per-meeting recordings.
	RecordingsDir string

	// Directory for generated meeting summaries.
	SummaryDir string

	// Leading H.264 parameter-set keyframe prepended to video streams.
	VideoHeaderPath string

	// Pre-encoded black H.264 frame used for video gap filling.
	BlackFramePath string

	// Path to the ffmpeg executable.
	FFmpegPath string

	// Summary generation via OpenRouter.
	OpenRouterAPIKey string
	OpenRouterModel  string
	SummaryPrompt    string
}

type fileConfig struct {
	ListenAddr       string `toml:"listen_addr"`
	WebhookPath      string `toml:"webhook_path"`
	ClientID         string `toml:"client_id"`
	ClientSecret     string `toml:"client_secret"`
	WebhookSecret    string `toml:"webhook_secret"`
	RecordingsDir    string `toml:"recordings_dir"`
	SummaryDir       string `toml:"summary_dir"`
	VideoHeaderPath  string `toml:"video_header_path"`
	BlackFramePath   string `toml:"black_frame_path"`
	FFmpegPath       string `toml:"ffmpeg_path"`
	OpenRouterAPIKey string `toml:"openrouter_api_key"`
	OpenRouterModel  string `toml:"openrouter_model"`
	SummaryPrompt    string `toml:"summary_prompt"`
}

// Load reads the TOML config at path (optional) and applies environment
// overrides for secrets. Missing credentials are reported by Validate, not
// here, so offline commands can run without them.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ListenAddr:      ":3000",
		WebhookPath:     "/webhook",
		RecordingsDir:   "recordings",
		SummaryDir:      "meeting_summary",
		VideoHeaderPath: "sps_pps_keyframe.h264",
		BlackFramePath:  "black_frame.h264",
		FFmpegPath:      "ffmpeg",
		OpenRouterModel: "openai/gpt-5-chat",
		SummaryPrompt:   "summary_prompt.md",
	}

	if path != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if fc.ListenAddr != "" {
			cfg.ListenAddr = fc.ListenAddr
		}
		if fc.WebhookPath != "" {
			cfg.WebhookPath = fc.WebhookPath
		}
		cfg.ClientID = fc.ClientID
		cfg.ClientSecret = fc.ClientSecret
		cfg.WebhookSecret = fc.WebhookSecret
		if fc.RecordingsDir != "" {
			cfg.RecordingsDir = fc.RecordingsDir
		}
		if fc.SummaryDir != "" {
			cfg.SummaryDir = fc.SummaryDir
		}
		if fc.VideoHeaderPath != "" {
			cfg.VideoHeaderPath = fc.VideoHeaderPath
		}
		if fc.BlackFramePath != "" {
			cfg.BlackFramePath = fc.BlackFramePath
		}
		if fc.FFmpegPath != "" {
			cfg.FFmpegPath = fc.FFmpegPath
		}
		cfg.OpenRouterAPIKey = fc.OpenRouterAPIKey
		if fc.OpenRouterModel != "" {
			cfg.OpenRouterModel = fc.OpenRouterModel
		}
		if fc.SummaryPrompt != "" {
			cfg.SummaryPrompt = fc.SummaryPrompt
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RTMSTAP_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("RTMSTAP_CLIENT_SECRET"); v != "" {
		cfg.ClientSecret = v
	}
	if v := os.Getenv("RTMSTAP_WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
	if v := os.Getenv("RTMSTAP_OPENROUTER_API_KEY"); v != "" {
		cfg.OpenRouterAPIKey = v
	}
	if v := os.Getenv("RTMSTAP_RECORDINGS_DIR"); v != "" {
		cfg.RecordingsDir = v
	}
}

// Validate checks the fields the ingestion daemon cannot run without.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id is not set")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is not set (RTMSTAP_CLIENT_SECRET)")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("webhook_secret is not set (RTMSTAP_WEBHOOK_SECRET)")
	}
	return nil
}
