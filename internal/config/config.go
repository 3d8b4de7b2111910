// Package config loads meteora settings from .meteora/config.toml and
// METEORA_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/aretw0/meteora/pkg/core"
)

const (
	// FileName is the config file inside the system directory.
	FileName = "config.toml"
	// EnvPrefix prefixes environment overrides, e.g. METEORA_STORAGE_ADAPTER.
	EnvPrefix = "METEORA"
)

// Config is the persistent configuration. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Storage  StorageConfig  `toml:"storage" mapstructure:"storage"`
	S3       S3Config       `toml:"s3" mapstructure:"s3"`
	Security SecurityConfig `toml:"security" mapstructure:"security"`
	Ranking  RankingConfig  `toml:"ranking" mapstructure:"ranking"`
	Server   ServerConfig   `toml:"server" mapstructure:"server"`
	Log      LogConfig      `toml:"log" mapstructure:"log"`
}

// StorageConfig selects the repository.
type StorageConfig struct {
	// Adapter is one of vault, snapshot, sqlite, postgres, s3.
	Adapter string `toml:"adapter" mapstructure:"adapter"`
	// Path is the snapshot or database file. Relative paths are resolved
	// against the vault. Empty uses the adapter default.
	Path string `toml:"path,omitempty" mapstructure:"path"`
	DSN  string `toml:"dsn,omitempty" mapstructure:"dsn"`
}

// S3Config holds the object storage settings.
type S3Config struct {
	Endpoint  string `toml:"endpoint,omitempty" mapstructure:"endpoint"`
	Bucket    string `toml:"bucket,omitempty" mapstructure:"bucket"`
	Object    string `toml:"object,omitempty" mapstructure:"object"`
	AccessKey string `toml:"access_key,omitempty" mapstructure:"access_key"`
	SecretKey string `toml:"secret_key,omitempty" mapstructure:"secret_key"`
	Secure    bool   `toml:"secure" mapstructure:"secure"`
}

// SecurityConfig holds the sealing passphrase. Prefer METEORA_SECURITY_PASSPHRASE
// over writing it to disk.
type SecurityConfig struct {
	Passphrase string `toml:"passphrase,omitempty" mapstructure:"passphrase"`
}

// RankingConfig tunes the effective score.
type RankingConfig struct {
	PriorityWeight   float64 `toml:"priority_weight" mapstructure:"priority_weight"`
	MaxUrgency       float64 `toml:"max_urgency" mapstructure:"max_urgency"`
	Horizon          string  `toml:"horizon" mapstructure:"horizon"`
	ProgressDiscount float64 `toml:"progress_discount" mapstructure:"progress_discount"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Listen string `toml:"listen" mapstructure:"listen"`
}

// LogConfig selects the log output.
type LogConfig struct {
	Debug  bool `toml:"debug" mapstructure:"debug"`
	Pretty bool `toml:"pretty" mapstructure:"pretty"`
	JSON   bool `toml:"json" mapstructure:"json"`
}

// Default returns the built-in configuration.
func Default() Config {
	w := core.DefaultWeights()
	return Config{
		Storage: StorageConfig{Adapter: "vault"},
		S3:      S3Config{Object: "meteora.json", Secure: true},
		Ranking: RankingConfig{
			PriorityWeight:   w.PriorityWeight,
			MaxUrgency:       w.MaxUrgency,
			Horizon:          w.Horizon.String(),
			ProgressDiscount: w.ProgressDiscount,
		},
		Server: ServerConfig{Listen: "127.0.0.1:7070"},
	}
}

// Path returns the config file of the vault at root.
func Path(root, systemDir string) string {
	return filepath.Join(root, systemDir, FileName)
}

// Load reads the configuration with this precedence (highest first):
//  1. Environment variables (METEORA_STORAGE_ADAPTER, METEORA_LOG_DEBUG, ...)
//  2. The config file at path, if it exists
//  3. Default()
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("reading config: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers Default() with viper using dotted keys, so env
// overrides apply to every key.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("storage.adapter", d.Storage.Adapter)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.dsn", d.Storage.DSN)

	v.SetDefault("s3.endpoint", d.S3.Endpoint)
	v.SetDefault("s3.bucket", d.S3.Bucket)
	v.SetDefault("s3.object", d.S3.Object)
	v.SetDefault("s3.access_key", d.S3.AccessKey)
	v.SetDefault("s3.secret_key", d.S3.SecretKey)
	v.SetDefault("s3.secure", d.S3.Secure)

	v.SetDefault("security.passphrase", d.Security.Passphrase)

	v.SetDefault("ranking.priority_weight", d.Ranking.PriorityWeight)
	v.SetDefault("ranking.max_urgency", d.Ranking.MaxUrgency)
	v.SetDefault("ranking.horizon", d.Ranking.Horizon)
	v.SetDefault("ranking.progress_discount", d.Ranking.ProgressDiscount)

	v.SetDefault("server.listen", d.Server.Listen)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.json", d.Log.JSON)
}

// Save writes cfg as TOML, creating the directory if needed.
func Save(path string, cfg Config) error {
	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// The file may hold credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Security.Passphrase = mask(c.Security.Passphrase)
	c.S3.SecretKey = mask(c.S3.SecretKey)
	c.Storage.DSN = mask(c.Storage.DSN)
	return c
}

// Weights converts the ranking section.
func (c Config) Weights() (core.Weights, error) {
	w := core.Weights{
		PriorityWeight:   c.Ranking.PriorityWeight,
		MaxUrgency:       c.Ranking.MaxUrgency,
		ProgressDiscount: c.Ranking.ProgressDiscount,
	}
	if c.Ranking.Horizon != "" {
		h, err := time.ParseDuration(c.Ranking.Horizon)
		if err != nil {
			return core.Weights{}, fmt.Errorf("ranking.horizon: %w", err)
		}
		w.Horizon = h
	}
	return w, nil
}
