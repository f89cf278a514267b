// Package config loads the YAML file the assetcache command reads.
//
//	namespace: assets
//	version: "1"
//	max_size: 10000
//	codec: msgpack
//	format_version: "1.0"
//	log:
//	  backend: slog
//	  level: info
//	backend:
//	  type: sqlite
//	  path: .cache/assets.db
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/assetcache/codec"
)

const (
	BackendSQLite = "sqlite"
	BackendFS     = "fs"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Namespace     string  `yaml:"namespace"`
	Version       string  `yaml:"version"`
	MaxSize       int     `yaml:"max_size"`
	MaxValueSize  int     `yaml:"max_value_size"`
	Codec         string  `yaml:"codec"`          // msgpack | cbor | json
	FormatVersion string  `yaml:"format_version"` // "<major>.<minor>"
	Log           Log     `yaml:"log"`
	Backend       Backend `yaml:"backend"`

	// Source is the file the config was read from; empty for defaults.
	Source string `yaml:"-"`
}

type Log struct {
	Backend string `yaml:"backend"` // slog | zap | logrus
	Level   string `yaml:"level"`   // debug | info | warn | error
}

type Backend struct {
	Type string `yaml:"type"`

	Path          string `yaml:"path"`            // sqlite
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"` // sqlite
	Dir           string `yaml:"dir"`             // fs

	Redis  Redis  `yaml:"redis"`
	Memory Memory `yaml:"memory"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Memory struct {
	HardMaxCacheSizeMB int `yaml:"hard_max_cache_size_mb"`
}

// Default is the configuration used when no file is given.
func Default() Config {
	return Config{
		Namespace:     "assets",
		Version:       "1",
		MaxSize:       10000,
		Codec:         "msgpack",
		FormatVersion: "1.0",
		Log:           Log{Backend: "slog", Level: "info"},
		Backend: Backend{
			Type: BackendSQLite,
			Path: ".cache/assetcache.db",
		},
	}
}

// Load reads path over Default and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// Parse decodes YAML over Default. Unknown keys are rejected.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Namespace == "" {
		errs = append(errs, errors.New("namespace is required"))
	}
	if c.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("max_size must be positive, got %d", c.MaxSize))
	}
	if c.MaxValueSize < 0 {
		errs = append(errs, fmt.Errorf("max_value_size must not be negative, got %d", c.MaxValueSize))
	}
	switch c.Codec {
	case "msgpack", "cbor", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown codec %q", c.Codec))
	}
	if _, err := c.ParsedFormatVersion(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Backend {
	case "slog", "zap", "logrus":
	default:
		errs = append(errs, fmt.Errorf("unknown log backend %q", c.Log.Backend))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}

	switch c.Backend.Type {
	case BackendSQLite:
		if c.Backend.Path == "" {
			errs = append(errs, errors.New("backend.path is required for sqlite"))
		}
	case BackendFS:
		if c.Backend.Dir == "" {
			errs = append(errs, errors.New("backend.dir is required for fs"))
		}
	case BackendRedis:
		if c.Backend.Redis.Addr == "" {
			errs = append(errs, errors.New("backend.redis.addr is required for redis"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown backend type %q", c.Backend.Type))
	}
	return errors.Join(errs...)
}

// ParsedFormatVersion parses FormatVersion ("1.0"). 0.0 is rejected.
func (c Config) ParsedFormatVersion() (codec.Version, error) {
	major, minor, ok := strings.Cut(c.FormatVersion, ".")
	if !ok {
		return codec.Version{}, fmt.Errorf("format_version %q: want <major>.<minor>", c.FormatVersion)
	}
	ma, err := strconv.ParseUint(major, 10, 8)
	if err != nil {
		return codec.Version{}, fmt.Errorf("format_version %q: %w", c.FormatVersion, err)
	}
	mi, err := strconv.ParseUint(minor, 10, 8)
	if err != nil {
		return codec.Version{}, fmt.Errorf("format_version %q: %w", c.FormatVersion, err)
	}
	if ma == 0 && mi == 0 {
		// the zero Version selects codec.DefaultVersion in assetcache.Options
		return codec.Version{}, fmt.Errorf("format_version %q: 0.0 is reserved", c.FormatVersion)
	}
	return codec.Version{Major: byte(ma), Minor: byte(mi)}, nil
}
