// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Parley.
//
// Configuration is loaded from a single YAML file specified by the
// PARLEY_CONFIG environment variable or the --config flag. When neither
// is set, built-in defaults apply. There is no search path and no merge
// of multiple files; what you point at is what runs.
//
// The provider API key is deliberately not part of the config file; it
// comes only from the OPENAI_API_KEY environment variable or an explicit
// key file (see lib/secret), so config files stay safe to commit.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath is the environment variable naming the config file.
const EnvConfigPath = "PARLEY_CONFIG"

// Default values applied when the config file omits a field.
const (
	DefaultListen  = "127.0.0.1:8000"
	DefaultModel   = "gpt-4o-realtime-preview-2024-12-17"
	DefaultVoice   = "verse"
	DefaultBaseURL = "https://api.openai.com"
)

// Config is the complete Parley configuration.
type Config struct {
	// Listen is the local HTTP listen address for the session endpoint.
	Listen string `yaml:"listen"`

	// Model is the realtime model requested at session issuance and
	// named in the SDP negotiation URL.
	Model string `yaml:"model"`

	// Voice is the synthesized voice requested at session issuance.
	Voice string `yaml:"voice"`

	// BaseURL is the provider API root. Overridden in tests to point
	// at local fixtures; the default is the public endpoint.
	BaseURL string `yaml:"base_url"`

	// AudioSource is the path to an Ogg Opus file used as the local
	// microphone feed. Empty means connect without a capture file and
	// fail media acquisition.
	AudioSource string `yaml:"audio_source"`

	// ICEServers lists STUN/TURN URLs for candidate gathering. Empty
	// means host candidates only, which is sufficient when the provider
	// offers server-reflexive connectivity on its side.
	ICEServers []string `yaml:"ice_servers"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:  DefaultListen,
		Model:   DefaultModel,
		Voice:   DefaultVoice,
		BaseURL: DefaultBaseURL,
	}
}

// Load reads the config file at path. An empty path falls back to the
// PARLEY_CONFIG environment variable, and if that is also unset, the
// defaults are returned. Missing fields in the file take their default
// values.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	configuration := Default()
	if path == "" {
		return configuration, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &configuration); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	configuration.applyDefaults()
	return configuration, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
}
