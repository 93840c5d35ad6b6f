package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("CHAT_MODEL", "")
	t.Setenv("CHAT_TEMPERATURE", "")
	t.Setenv("CHAT_TOP_P", "")
	t.Setenv("SWEEP_INTERVAL", "")
	t.Setenv("SESSION_IDLE_TIMEOUT", "")
	t.Setenv("EXPORT_SERVICE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if cfg.Server.Addr != ":8765" {
		t.Errorf("Expected :8765, got '%s'", cfg.Server.Addr)
	}
	if cfg.Store.Path != "data/chat.db" {
		t.Errorf("Expected data/chat.db, got '%s'", cfg.Store.Path)
	}
	if cfg.Chat.Temperature != 1.0 || cfg.Chat.TopP != 0.95 {
		t.Errorf("Unexpected chat defaults: %+v", cfg.Chat)
	}
	if cfg.Sweeper.Interval != 30*time.Second || cfg.Sweeper.IdleThreshold != time.Hour {
		t.Errorf("Unexpected sweeper defaults: %+v", cfg.Sweeper)
	}
	if cfg.Export.BaseURL != "" {
		t.Errorf("Expected export disabled, got '%s'", cfg.Export.BaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CHAT_MODEL", "some-model")
	t.Setenv("CHAT_TEMPERATURE", "0.3")
	t.Setenv("SWEEP_INTERVAL", "10s")
	t.Setenv("SESSION_IDLE_TIMEOUT", "15m")
	t.Setenv("EXPORT_SERVICE_URL", "http://export.local")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Expected explicit addr, got '%s'", cfg.Server.Addr)
	}
	if cfg.Chat.Model != "some-model" || cfg.Chat.Temperature != 0.3 {
		t.Errorf("Unexpected chat config: %+v", cfg.Chat)
	}
	if cfg.Sweeper.Interval != 10*time.Second || cfg.Sweeper.IdleThreshold != 15*time.Minute {
		t.Errorf("Unexpected sweeper config: %+v", cfg.Sweeper)
	}
	if cfg.Export.BaseURL != "http://export.local" {
		t.Errorf("Expected export URL, got '%s'", cfg.Export.BaseURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"PORT":             "not-a-port",
		"CHAT_TEMPERATURE": "warm",
		"SWEEP_INTERVAL":   "sometimes",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", key, value)
			}
		})
	}
}
