package main

import (
	"fmt"

	"github.com/stlalpha/tagrelay/internal/broker"
	"github.com/stlalpha/tagrelay/internal/config"
	"github.com/stlalpha/tagrelay/internal/frame"
	"github.com/stlalpha/tagrelay/internal/wsgateway"
)

// brokerConfig translates the loaded settings into broker settings.
func brokerConfig(cfg config.ServerConfig) (broker.Config, error) {
	mode, err := frame.ParseMode(cfg.Framing)
	if err != nil {
		return broker.Config{}, fmt.Errorf("invalid framing: %w", err)
	}
	return broker.Config{
		Addr:        cfg.ListenAddr(),
		ServerName:  cfg.ServerName,
		Framing:     mode,
		MaxLine:     cfg.MaxLineLength,
		ChunkSize:   cfg.ReadChunkSize,
		MaxSessions: cfg.MaxSessions,
		Limits:      limitsFrom(cfg),
	}, nil
}

// limitsFrom extracts the settings that can change without a restart.
func limitsFrom(cfg config.ServerConfig) broker.Limits {
	return broker.Limits{
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout(),
		FloodRate:    cfg.FloodRate,
		FloodBurst:   cfg.FloodBurst,
	}
}

func gatewayConfig(cfg config.ServerConfig) wsgateway.Config {
	return wsgateway.Config{
		Addr:       cfg.WebSocketAddr(),
		Path:       cfg.WebSocketPath,
		MaxMessage: int64(cfg.MaxLineLength),
	}
}

// restartRequired lists changed settings that only take effect on restart.
func restartRequired(old, updated config.ServerConfig) []string {
	var changed []string
	if old.ListenAddr() != updated.ListenAddr() {
		changed = append(changed, "host/port")
	}
	if old.Framing != updated.Framing || old.MaxLineLength != updated.MaxLineLength || old.ReadChunkSize != updated.ReadChunkSize {
		changed = append(changed, "framing")
	}
	if old.MaxSessions != updated.MaxSessions {
		changed = append(changed, "maxSessions")
	}
	if old.StatsIntervalSeconds != updated.StatsIntervalSeconds {
		changed = append(changed, "statsIntervalSeconds")
	}
	if old.TranscriptSize != updated.TranscriptSize {
		changed = append(changed, "transcriptSize")
	}
	if old.WebSocketEnabled != updated.WebSocketEnabled || old.WebSocketAddr() != updated.WebSocketAddr() || old.WebSocketPath != updated.WebSocketPath {
		changed = append(changed, "webSocket")
	}
	return changed
}
