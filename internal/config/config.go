// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates the service's configuration.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Chat    ChatConfig
	Sweeper SweeperConfig
	Export  ExportConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// StoreConfig describes the SQLite store.
type StoreConfig struct {
	Path string
}

// ChatConfig carries the default generation parameters a fresh session
// starts with, before any customization or loaded snapshot replaces them.
type ChatConfig struct {
	Model       string
	Temperature float64
	TopP        float64
}

// SweeperConfig controls the liveness sweeper.
type SweeperConfig struct {
	Interval      time.Duration
	IdleThreshold time.Duration
}

// ExportConfig points at the document-export side channel.
type ExportConfig struct {
	BaseURL string
}

// Load reads configuration from the environment, honoring a .env file when
// present.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	sweeper, err := loadSweeperConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Store:   StoreConfig{Path: getEnvOrDefault("DB_PATH", "data/chat.db")},
		Chat:    chat,
		Sweeper: sweeper,
		Export:  ExportConfig{BaseURL: strings.TrimSpace(os.Getenv("EXPORT_SERVICE_URL"))},
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(getEnvOrDefault("PORT", "8765"))
	if strings.Contains(port, ":") {
		// Allow ":8765" or "127.0.0.1:8765" directly.
		return ServerConfig{Addr: port}, nil
	}
	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value %q: %w", port, err)
	}
	return ServerConfig{Addr: ":" + port}, nil
}

func loadChatConfig() (ChatConfig, error) {
	temperature, err := parseFloatEnv("CHAT_TEMPERATURE", 1.0)
	if err != nil {
		return ChatConfig{}, err
	}
	topP, err := parseFloatEnv("CHAT_TOP_P", 0.95)
	if err != nil {
		return ChatConfig{}, err
	}
	return ChatConfig{
		Model:       strings.TrimSpace(os.Getenv("CHAT_MODEL")),
		Temperature: temperature,
		TopP:        topP,
	}, nil
}

func loadSweeperConfig() (SweeperConfig, error) {
	interval, err := parseDurationEnv("SWEEP_INTERVAL", 30*time.Second)
	if err != nil {
		return SweeperConfig{}, err
	}
	idle, err := parseDurationEnv("SESSION_IDLE_TIMEOUT", time.Hour)
	if err != nil {
		return SweeperConfig{}, err
	}
	return SweeperConfig{Interval: interval, IdleThreshold: idle}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
