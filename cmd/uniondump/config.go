package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"goa.design/anthropic-codec/features/stream/sse"
)

// config is the optional YAML configuration file. Command line flags take
// precedence over its values.
type config struct {
	Strict        bool   `yaml:"strict"`
	OnDecodeError string `yaml:"on_decode_error"` // skip | abort
	LogFormat     string `yaml:"log_format"`      // auto | json | terminal
	Debug         bool   `yaml:"debug"`
	MaxEventBytes int    `yaml:"max_event_bytes"`
}

func defaultConfig() config {
	return config{OnDecodeError: "skip", LogFormat: "auto", MaxEventBytes: sse.DefaultMaxEventBytes}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	var errs []error
	if _, ok := sse.ParsePolicy(c.OnDecodeError); !ok {
		errs = append(errs, fmt.Errorf("on_decode_error: unknown policy %q", c.OnDecodeError))
	}
	switch c.LogFormat {
	case "", "auto", "json", "terminal":
	default:
		errs = append(errs, fmt.Errorf("log_format: unknown format %q", c.LogFormat))
	}
	if c.MaxEventBytes < 0 {
		errs = append(errs, errors.New("max_event_bytes must not be negative"))
	}
	return errors.Join(errs...)
}

func (c config) policy() sse.Policy {
	p, _ := sse.ParsePolicy(c.OnDecodeError)
	return p
}
