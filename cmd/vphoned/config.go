package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Lakr233/vphone-cli/internal/daemon"
	"github.com/Lakr233/vphone-cli/internal/protocol"
)

type fileConfig struct {
	ListenNetwork       string   `toml:"listen_network"`
	ListenAddr          string   `toml:"listen_addr"`
	AdminAddr           string   `toml:"admin_addr"`
	FilesRoot           string   `toml:"files_root"`
	SimBackends         bool     `toml:"sim_backends"`
	CORSOrigins         []string `toml:"cors_origins"`
	Heartbeat           string   `toml:"heartbeat"`
	HeartbeatInterval   string   `toml:"heartbeat_interval"`
	HeartbeatIntervalMS int64    `toml:"heartbeat_interval_ms"`
	MaxMessageBytes     int64    `toml:"max_message_bytes"`
}

func loadServiceConfig(path string) (daemon.ServiceConfig, error) {
	cfg := daemon.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemon.ServiceConfig{}, fmt.Errorf("load vphoned config: %w", err)
	}

	if meta.IsDefined("listen_network") {
		cfg.ListenNetwork = strings.TrimSpace(raw.ListenNetwork)
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}

	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}

	if meta.IsDefined("files_root") {
		root := strings.TrimSpace(raw.FilesRoot)
		if root != "" {
			cfg.FilesRoot = root
		}
	}

	if meta.IsDefined("sim_backends") {
		cfg.SimBackends = raw.SimBackends
	}

	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeOrigins(raw.CORSOrigins)
	}

	if meta.IsDefined("heartbeat") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Heartbeat))
		if err != nil {
			return daemon.ServiceConfig{}, fmt.Errorf("parse heartbeat: %w", err)
		}
		cfg.HeartbeatInterval = d
	}

	if meta.IsDefined("heartbeat_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.HeartbeatInterval))
		if err != nil {
			return daemon.ServiceConfig{}, fmt.Errorf("parse heartbeat_interval: %w", err)
		}
		cfg.HeartbeatInterval = d
	}

	if meta.IsDefined("heartbeat_interval_ms") {
		cfg.HeartbeatInterval = time.Duration(raw.HeartbeatIntervalMS) * time.Millisecond
	}

	if meta.IsDefined("max_message_bytes") {
		if raw.MaxMessageBytes <= 0 || raw.MaxMessageBytes > math.MaxUint32 {
			return daemon.ServiceConfig{}, fmt.Errorf("max_message_bytes out of range: %d", raw.MaxMessageBytes)
		}
		cfg.Limits = protocol.Limits{MaxMessageBytes: uint32(raw.MaxMessageBytes)}
	}

	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
