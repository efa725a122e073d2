// Package config provides configuration loading and management for devboard.
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `json:"server"   mapstructure:"server"   yaml:"server"`
	Azure    AzureConfig    `json:"azure"    mapstructure:"azure"    yaml:"azure"`
	Session  SessionConfig  `json:"session"  mapstructure:"session"  yaml:"session"`
	Database DatabaseConfig `json:"database" mapstructure:"database" yaml:"database"`
	Events   EventsConfig   `json:"events"   mapstructure:"events"   yaml:"events"`
}

// ServerConfig configures the HTTP proxy API.
type ServerConfig struct {
	Addr           string        `json:"addr"            mapstructure:"addr"            yaml:"addr"`
	AllowedOrigins []string      `json:"allowed_origins" mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ReadTimeout    time.Duration `json:"read_timeout"    mapstructure:"read_timeout"    yaml:"read_timeout"`
}

// AzureConfig is the default Azure DevOps scope for CLI commands.
// The HTTP server takes organization, project and PAT from each login instead.
type AzureConfig struct {
	BaseURL      string        `json:"base_url"               mapstructure:"base_url"     yaml:"base_url"`
	Organization string        `json:"organization,omitempty" mapstructure:"organization" yaml:"organization,omitempty"`
	Project      string        `json:"project,omitempty"      mapstructure:"project"      yaml:"project,omitempty"`
	PAT          string        `json:"pat,omitempty"          mapstructure:"pat"          yaml:"pat,omitempty"`
	PATEnv       string        `json:"pat_env"                mapstructure:"pat_env"      yaml:"pat_env"`
	Timeout      time.Duration `json:"timeout"                mapstructure:"timeout"      yaml:"timeout"`
}

// SessionConfig controls login sessions. Without KeyFile the key sealing
// session PATs lives only as long as the server process.
type SessionConfig struct {
	TTL     time.Duration `json:"ttl"                mapstructure:"ttl"      yaml:"ttl"`
	KeyFile string        `json:"key_file,omitempty" mapstructure:"key_file" yaml:"key_file,omitempty"`
}

// DatabaseConfig locates the sqlite database.
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path" yaml:"path"`
}

// EventsConfig defines how long audit events are kept.
type EventsConfig struct {
	KeepDays int `json:"keep_days" mapstructure:"keep_days" yaml:"keep_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			ReadTimeout:    15 * time.Second,
		},
		Azure: AzureConfig{
			BaseURL: "https://dev.azure.com",
			PATEnv:  "AZURE_DEVOPS_PAT",
			Timeout: 30 * time.Second,
		},
		Session:  SessionConfig{TTL: 12 * time.Hour},
		Database: DatabaseConfig{Path: ".devboard/devboard.db"},
		Events:   EventsConfig{KeepDays: 30},
	}
}
