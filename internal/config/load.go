package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. DEVBOARD_SERVER_ADDR.
const EnvPrefix = "DEVBOARD"

// DefaultPath is where config init writes and the CLI reads by default.
var DefaultPath = filepath.Join(".devboard", "config.yaml")

// SetDefaults registers every key with its default in v. Durations are
// registered as strings so raw settings validate against the schema.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout.String())
	v.SetDefault("azure.base_url", d.Azure.BaseURL)
	v.SetDefault("azure.organization", "")
	v.SetDefault("azure.project", "")
	v.SetDefault("azure.pat", "")
	v.SetDefault("azure.pat_env", d.Azure.PATEnv)
	v.SetDefault("azure.timeout", d.Azure.Timeout.String())
	v.SetDefault("session.ttl", d.Session.TTL.String())
	v.SetDefault("session.key_file", "")
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("events.keep_days", d.Events.KeepDays)
}

// Load reads path (a missing file is fine), applies environment overrides,
// validates the merged settings and decodes them.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("stat config: %w", err)
		}
	}

	if err := ValidateSettings(v.AllSettings()); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// WriteDefault writes the default config as YAML. It refuses to overwrite an
// existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
