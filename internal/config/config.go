// Package config loads formbuilder settings from defaults, an optional YAML
// or TOML file, an optional .env file and FORMBUILDER_* environment
// variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbuilder"
	"github.com/goliatone/go-formbuilder/pkg/derive"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORMBUILDER_"

const (
	StoreMemory = formbuilder.StoreMemory
	StoreFile   = formbuilder.StoreFile
	StoreSQLite = formbuilder.StoreSQLite

	EngineBuiltin = formbuilder.EngineBuiltin
	EngineExpr    = formbuilder.EngineExpr
)

// Config is the full application configuration.
type Config struct {
	Store StoreConfig `yaml:"store" toml:"store"`
	Eval  EvalConfig  `yaml:"eval" toml:"eval"`
	Log   LogConfig   `yaml:"log" toml:"log"`
	HTTP  HTTPConfig  `yaml:"http" toml:"http"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
}

// EvalConfig selects the expression engine and its budget.
type EvalConfig struct {
	Engine    string        `yaml:"engine" toml:"engine"`
	MaxSteps  int           `yaml:"maxSteps" toml:"maxSteps"`
	MaxDepth  int           `yaml:"maxDepth" toml:"maxDepth"`
	MaxLength int           `yaml:"maxLength" toml:"maxLength"`
	Timeout   time.Duration `yaml:"timeout" toml:"timeout"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	limits := derive.DefaultLimits()
	return Config{
		Store: StoreConfig{Driver: StoreFile, Path: "formbuilder-forms.json"},
		Eval: EvalConfig{
			Engine:    EngineBuiltin,
			MaxSteps:  limits.MaxSteps,
			MaxDepth:  limits.MaxDepth,
			MaxLength: limits.MaxLength,
			Timeout:   limits.Timeout,
		},
		Log:  LogConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// Options tells Load where to look.
type Options struct {
	// Path is a .yaml, .yml or .toml file. Empty skips the file layer.
	Path string
	// EnvFile is a dotenv file. A missing file is ignored.
	EnvFile string
	// LookupEnv reads process variables; defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds a Config from every layer and validates it.
func Load(opts Options) (Config, error) {
	cfg := Default()

	if opts.Path != "" {
		if err := decodeFile(opts.Path, &cfg); err != nil {
			return Config{}, err
		}
	}

	dotenv := map[string]string{}
	if opts.EnvFile != "" {
		values, err := godotenv.Read(opts.EnvFile)
		switch {
		case err == nil:
			dotenv = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read env file %s: %w", opts.EnvFile, err)
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) (string, bool) {
		if value, ok := lookup(EnvPrefix + key); ok {
			return value, true
		}
		value, ok := dotenv[EnvPrefix+key]
		return value, ok
	}
	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}
	return nil
}

func applyEnv(cfg *Config, env func(string) (string, bool)) error {
	strs := map[string]*string{
		"STORE_DRIVER": &cfg.Store.Driver,
		"STORE_PATH":   &cfg.Store.Path,
		"EVAL_ENGINE":  &cfg.Eval.Engine,
		"LOG_LEVEL":    &cfg.Log.Level,
		"LOG_FORMAT":   &cfg.Log.Format,
		"HTTP_ADDR":    &cfg.HTTP.Addr,
	}
	for key, target := range strs {
		if value, ok := env(key); ok {
			*target = strings.TrimSpace(value)
		}
	}

	ints := map[string]*int{
		"EVAL_MAX_STEPS":  &cfg.Eval.MaxSteps,
		"EVAL_MAX_DEPTH":  &cfg.Eval.MaxDepth,
		"EVAL_MAX_LENGTH": &cfg.Eval.MaxLength,
	}
	for key, target := range ints {
		value, ok := env(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
		*target = n
	}

	if value, ok := env("EVAL_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: %sEVAL_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.Eval.Timeout = d
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreFile, StoreSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("config: store.path is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	switch c.Eval.Engine {
	case EngineBuiltin, EngineExpr:
	default:
		return fmt.Errorf("config: unknown eval.engine %q", c.Eval.Engine)
	}
	if c.Eval.MaxSteps < 0 || c.Eval.MaxDepth < 0 || c.Eval.MaxLength < 0 || c.Eval.Timeout < 0 {
		return errors.New("config: eval limits must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Limits converts the eval settings; zero values fall back to defaults.
func (c Config) Limits() derive.Limits {
	return derive.Limits{
		MaxSteps:  c.Eval.MaxSteps,
		MaxDepth:  c.Eval.MaxDepth,
		MaxLength: c.Eval.MaxLength,
		Timeout:   c.Eval.Timeout,
	}.WithDefaults()
}

// ParseLevel maps a level name onto slog.
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown log.level %q", raw)
	}
}
