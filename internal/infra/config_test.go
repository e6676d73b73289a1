package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("VIDEO_POLL_INTERVAL_SECONDS", "")
	t.Setenv("VIDEO_POLL_TIMEOUT_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "" {
		t.Fatalf("GeminiAPIKey = %q, want empty", cfg.GeminiAPIKey)
	}
	if cfg.VideoPollInterval != 10*time.Second {
		t.Fatalf("VideoPollInterval = %s, want 10s", cfg.VideoPollInterval)
	}
	if cfg.VideoPollTimeout != 15*time.Minute {
		t.Fatalf("VideoPollTimeout = %s, want 15m", cfg.VideoPollTimeout)
	}
	if !cfg.VideoKeySelection {
		t.Fatalf("VideoKeySelection should default to true")
	}
}

func TestLoadConfigFallsBackToAmbientAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", " ambient ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.GeminiAPIKey != "ambient" {
		t.Fatalf("GeminiAPIKey = %q, want ambient", cfg.GeminiAPIKey)
	}
}

func TestLoadConfigNormalizesPollSettings(t *testing.T) {
	t.Setenv("VIDEO_POLL_INTERVAL_SECONDS", "0")
	t.Setenv("VIDEO_POLL_TIMEOUT_SECONDS", "-5")
	t.Setenv("VIDEO_KEY_SELECTION", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.VideoPollInterval != 10*time.Second {
		t.Fatalf("VideoPollInterval = %s, want 10s", cfg.VideoPollInterval)
	}
	if cfg.VideoPollTimeout != 0 {
		t.Fatalf("VideoPollTimeout = %s, want unbounded", cfg.VideoPollTimeout)
	}
	if cfg.VideoKeySelection {
		t.Fatalf("VideoKeySelection should be disabled")
	}
}

func TestLoadConfigCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example ,, https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://a.example" || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("CORSOrigins = %#v", cfg.CORSOrigins)
	}
}
