package config

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ServerConfig defines relay-wide settings, loaded from configs/config.json.
// Every field has a default, so the file is optional.
type ServerConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	ServerName string `json:"serverName"` // Identity used for operator messages

	Framing       string `json:"framing"`       // "line" or "chunk"
	MaxLineLength int    `json:"maxLineLength"` // Line framing only
	ReadChunkSize int    `json:"readChunkSize"` // Chunk framing only
	MaxSessions   int    `json:"maxSessions"`   // 0 = unlimited

	WriteTimeoutSeconds int     `json:"writeTimeoutSeconds"`
	IdleTimeoutSeconds  int     `json:"idleTimeoutSeconds"` // 0 = never kick idle peers
	FloodRate           float64 `json:"floodRate"`          // Frames per second per peer, 0 = unlimited
	FloodBurst          int     `json:"floodBurst"`

	StatsIntervalSeconds int `json:"statsIntervalSeconds"`
	TranscriptSize       int `json:"transcriptSize"`

	WebSocketEnabled bool   `json:"webSocketEnabled"`
	WebSocketHost    string `json:"webSocketHost"`
	WebSocketPort    int    `json:"webSocketPort"`
	WebSocketPath    string `json:"webSocketPath"`
}

// DefaultServerConfig reproduces the classic relay: port 5000, no limits.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:                 "0.0.0.0",
		Port:                 5000,
		ServerName:           "Server",
		Framing:              "line",
		MaxLineLength:        4096,
		ReadChunkSize:        1024,
		MaxSessions:          0,
		WriteTimeoutSeconds:  5,
		IdleTimeoutSeconds:   0,
		FloodRate:            0,
		FloodBurst:           10,
		StatsIntervalSeconds: 2,
		TranscriptSize:       500,
		WebSocketEnabled:     false,
		WebSocketHost:        "0.0.0.0",
		WebSocketPort:        5080,
		WebSocketPath:        "/ws",
	}
}

// LoadServerConfig loads the server configuration from config.json
func LoadServerConfig(configPath string) (ServerConfig, error) {
	filePath := filepath.Join(configPath, "config.json")
	log.Printf("INFO: Loading server configuration from %s", filePath)

	defaultConfig := DefaultServerConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("WARN: config.json not found at %s. Using default settings.", filePath)
			return defaultConfig, nil
		}
		return defaultConfig, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	// Initialize with defaults before unmarshalling
	config := defaultConfig
	err = json.Unmarshal(data, &config)
	if err != nil {
		log.Printf("ERROR: Failed to parse config JSON from %s: %v. Using default settings.", filePath, err)
		return defaultConfig, fmt.Errorf("failed to parse config JSON from %s: %w", filePath, err)
	}

	if err := config.Validate(); err != nil {
		return defaultConfig, fmt.Errorf("invalid config %s: %w", filePath, err)
	}

	log.Printf("INFO: Successfully loaded server configuration from %s", filePath)
	return config, nil
}

// Validate rejects settings the relay cannot run with.
func (c ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch strings.ToLower(c.Framing) {
	case "", "line", "chunk", "legacy":
	default:
		return fmt.Errorf("unknown framing %q (want line or chunk)", c.Framing)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("maxSessions must not be negative")
	}
	if c.FloodRate < 0 || c.FloodBurst < 0 {
		return fmt.Errorf("flood limits must not be negative")
	}
	if c.WebSocketEnabled {
		if c.WebSocketPort <= 0 || c.WebSocketPort > 65535 {
			return fmt.Errorf("invalid webSocketPort: %d", c.WebSocketPort)
		}
		if !strings.HasPrefix(c.WebSocketPath, "/") {
			return fmt.Errorf("webSocketPath must start with '/': %q", c.WebSocketPath)
		}
	}
	return nil
}

// ListenAddr is the host:port the TCP relay binds.
func (c ServerConfig) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WebSocketAddr is the host:port the WebSocket gateway binds.
func (c ServerConfig) WebSocketAddr() string {
	return net.JoinHostPort(c.WebSocketHost, strconv.Itoa(c.WebSocketPort))
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

func (c ServerConfig) StatsInterval() time.Duration {
	if c.StatsIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(c.StatsIntervalSeconds) * time.Second
}
