// Package config loads the assistant configuration from a YAML (or JSON) file with
// CONCIERGE_* environment overrides.
package config

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/internal/runtime"
)

// EnvPrefix prefixes every environment override, e.g. CONCIERGE_REDIS_ADDR.
const EnvPrefix = "CONCIERGE_"

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

// Sink backends.
const (
	SinkNone     = "none"
	SinkMemory   = "memory"
	SinkSQLite   = "sqlite"
	SinkDynamoDB = "dynamodb"
)

// Config is the full runtime configuration.
type Config struct {
	ThinkLatency   time.Duration `mapstructure:"think_latency" yaml:"think_latency"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout" yaml:"resolve_timeout"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	LogJSON        bool          `mapstructure:"log_json" yaml:"log_json"`

	Store string `mapstructure:"store" yaml:"store"`
	Sink  string `mapstructure:"sink" yaml:"sink"`

	// Flows is an optional file of extra flow definitions.
	Flows string `mapstructure:"flows" yaml:"flows"`
	// Commands is an optional file of commands run when a flow completes.
	Commands string `mapstructure:"commands" yaml:"commands"`

	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	File     FileConfig     `mapstructure:"file" yaml:"file"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb" yaml:"dynamodb"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`

	// EncryptionKey is a hex-encoded AES-256 key. Empty disables store encryption.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
	// FallbackKeys are older hex keys still accepted for decryption.
	FallbackKeys []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
	// PIIPatterns mask matching record fields before they reach the sink.
	PIIPatterns []string `mapstructure:"pii_patterns" yaml:"pii_patterns"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Lock     bool          `mapstructure:"lock" yaml:"lock"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// FileConfig places one JSON file per conversation under Dir.
type FileConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

type DynamoDBConfig struct {
	Table  string        `mapstructure:"table" yaml:"table"`
	Region string        `mapstructure:"region" yaml:"region"`
	TTL    time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ThinkLatency:   runtime.DefaultThinkLatency,
		ResolveTimeout: runtime.DefaultResolveTimeout,
		LogLevel:       "info",
		Store:          StoreMemory,
		Sink:           SinkMemory,
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "concierge:",
			Lock:   true,
		},
		SQLite: SQLiteConfig{Path: filepath.Join(".concierge", "concierge.db")},
		File:   FileConfig{Dir: filepath.Join(".concierge", "sessions")},
		HTTP:   HTTPConfig{Port: 8080},
		Metrics: MetricsConfig{
			Port: 2112,
		},
	}
}

// Load reads path (YAML unless it ends in .json) over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			err = json.Unmarshal(data, &raw)
		} else {
			err = yaml.Unmarshal(data, &raw)
		}
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	return FromMap(raw, os.Environ())
}

// FromMap decodes raw settings over the defaults and applies KEY=VALUE environment pairs.
func FromMap(raw map[string]any, environ []string) (Config, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	applyEnv(raw, environ)

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv folds CONCIERGE_* variables into raw. Nested sections use the first
// underscore: CONCIERGE_REDIS_ADDR sets redis.addr.
func applyEnv(raw map[string]any, environ []string) {
	sections := sectionNames()
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if name == "max_input_size" {
			// Read by the input sanitizer directly.
			continue
		}

		section, field, nested := strings.Cut(name, "_")
		if nested && sections[section] {
			sub, ok := raw[section].(map[string]any)
			if !ok {
				sub = map[string]any{}
				raw[section] = sub
			}
			sub[field] = value
			continue
		}
		raw[name] = value
	}
}

// sectionNames lists the mapstructure keys of nested Config structs.
func sectionNames() map[string]bool {
	out := map[string]bool{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Duration(0)) {
			out[f.Tag.Get("mapstructure")] = true
		}
	}
	return out
}

// Validate checks enumerations and keys.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory, StoreRedis, StoreSQLite, StoreFile:
	default:
		errs = append(errs, fmt.Errorf("store: unsupported backend %q", c.Store))
	}
	switch c.Sink {
	case SinkNone, SinkMemory, SinkSQLite, SinkDynamoDB:
	default:
		errs = append(errs, fmt.Errorf("sink: unsupported backend %q", c.Sink))
	}
	if c.Sink == SinkDynamoDB && c.DynamoDB.Table == "" {
		errs = append(errs, errors.New("dynamodb.table: required when sink is dynamodb"))
	}
	if c.ResolveTimeout < 0 || c.ThinkLatency < 0 {
		errs = append(errs, errors.New("think_latency and resolve_timeout must not be negative"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.EncryptionKey != "" {
		if _, _, err := c.Keys(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Keys decodes the active and fallback encryption keys.
func (c Config) Keys() (active []byte, fallback [][]byte, err error) {
	active, err = decodeKey(c.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption_key: %w", err)
	}
	for i, k := range c.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("must be hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// StaleAfter is how long a Waiting conversation survives before recovery.
func (c Config) StaleAfter() time.Duration {
	return 2 * c.ResolveTimeout
}
