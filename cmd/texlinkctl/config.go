package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ServiceConfig is the Process-side runtime configuration.
type ServiceConfig struct {
	// Transport selects how the engine is attached: "stdio" reads stdin
	// and writes stdout, "spec" dials BackChannelSpec for the outgoing
	// stream, "spawn" launches EngineCommand and uses its stdio.
	Transport       string
	BackChannelSpec string
	EngineCommand   []string
	ReadTimeout     time.Duration
	Bootstrap       []string
	MetricsAddr     string
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Transport:   "stdio",
		ReadTimeout: 5 * time.Second,
		Bootstrap:   []string{},
	}
}

type fileConfig struct {
	Transport       string   `toml:"transport"`
	BackChannelSpec string   `toml:"back_channel_spec"`
	EngineCommand   []string `toml:"engine_command"`
	ReadTimeout     string   `toml:"read_timeout"`
	ReadTimeoutMS   int64    `toml:"read_timeout_ms"`
	Bootstrap       []string `toml:"bootstrap"`
	MetricsAddr     string   `toml:"metrics_addr"`
}

func loadServiceConfig(path string) (ServiceConfig, error) {
	cfg := DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ServiceConfig{}, fmt.Errorf("load texlink config: %w", err)
	}

	if meta.IsDefined("transport") {
		mode := strings.TrimSpace(raw.Transport)
		switch mode {
		case "stdio", "spec", "spawn":
			cfg.Transport = mode
		default:
			return ServiceConfig{}, fmt.Errorf("unknown transport %q", raw.Transport)
		}
	}

	if meta.IsDefined("back_channel_spec") {
		cfg.BackChannelSpec = strings.TrimSpace(raw.BackChannelSpec)
	}

	if meta.IsDefined("engine_command") {
		cfg.EngineCommand = raw.EngineCommand
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return ServiceConfig{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}

	if meta.IsDefined("read_timeout_ms") {
		cfg.ReadTimeout = time.Duration(raw.ReadTimeoutMS) * time.Millisecond
	}

	if meta.IsDefined("bootstrap") {
		cfg.Bootstrap = raw.Bootstrap
	}

	if cfg.Transport == "spec" && cfg.BackChannelSpec == "" {
		return ServiceConfig{}, fmt.Errorf("transport %q requires back_channel_spec", cfg.Transport)
	}
	if cfg.Transport == "spawn" && len(cfg.EngineCommand) == 0 {
		return ServiceConfig{}, fmt.Errorf("transport %q requires engine_command", cfg.Transport)
	}

	return cfg, nil
}
