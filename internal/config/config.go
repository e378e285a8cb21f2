// Package config handles Amadeus configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/amadeus/config.yaml, /etc/amadeus/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "amadeus", "config.yaml"))
	}

	paths = append(paths, "/etc/amadeus/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Amadeus configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Model     ModelConfig     `yaml:"model"`
	Agent     AgentConfig     `yaml:"agent"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	System    SystemConfig    `yaml:"system"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	DataDir   string          `yaml:"data_dir"`
	PublicURL string          `yaml:"public_url"`
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"` // text (default) or json
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelConfig defines the inference engine settings.
type ModelConfig struct {
	Name      string `yaml:"name"`       // Model name passed to Ollama
	OllamaURL string `yaml:"ollama_url"` // Base URL (default: http://localhost:11434)
}

// AgentConfig defines orchestrator behavior.
type AgentConfig struct {
	// PersonaFile is an optional markdown persona document with YAML
	// frontmatter. Empty means the built-in Amadeus persona.
	PersonaFile string `yaml:"persona_file"`
	// HistoryLimit is how many persisted messages are loaded on startup.
	HistoryLimit int `yaml:"history_limit"`
	// MaxToolIterations caps model/tool round-trips within a single turn.
	MaxToolIterations int `yaml:"max_tool_iterations"`
}

// WorkspaceConfig defines the agent's workspace for file operations.
type WorkspaceConfig struct {
	// Path is the root directory for file operations.
	// All file tool paths are relative to this directory.
	// If empty, file tools are disabled.
	Path string `yaml:"path"`
}

// SystemConfig defines the OS capability contracts (screen capture and
// input injection). Both are disabled unless a command is configured.
type SystemConfig struct {
	// ScreenshotCommand is a command that writes a PNG screenshot to the
	// path given as its final argument (e.g. "scrot" or "screencapture -x").
	ScreenshotCommand string `yaml:"screenshot_command"`
	// InputCommand is a command that performs an input action; the action
	// and its parameters are appended as arguments (e.g. "xdotool").
	InputCommand string `yaml:"input_command"`
}

// MQTTConfig defines the optional presence/status publisher.
type MQTTConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Broker     string `yaml:"broker"` // e.g. mqtt://broker.local:1883
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	DeviceName string `yaml:"device_name"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Model: ModelConfig{
			Name:      "qwen2.5:7b-instruct",
			OllamaURL: "http://localhost:11434",
		},
		Agent: AgentConfig{
			HistoryLimit:      50,
			MaxToolIterations: 8,
		},
		DataDir:   "data",
		MQTT:      MQTTConfig{DeviceName: "amadeus"},
		LogFormat: "text",
	}
}

// Validate checks configuration values that would otherwise fail obscurely
// at runtime.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q (valid: text, json)", c.LogFormat)
	}
	if c.Agent.HistoryLimit < 0 {
		return fmt.Errorf("agent.history_limit must not be negative")
	}
	if c.Agent.MaxToolIterations < 1 {
		return fmt.Errorf("agent.max_tool_iterations must be at least 1")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}
