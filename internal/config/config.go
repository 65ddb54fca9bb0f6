// Package config loads transcompare settings from a config file, a .env file
// and TRANSCOMPARE_* environment variables, and builds the runtime
// collaborators (provider engine, sheet store, logger) from them.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"google.golang.org/api/option"

	"github.com/valpere/transcompare/internal/jobs"
	"github.com/valpere/transcompare/internal/sheet"
	"github.com/valpere/transcompare/internal/translator"
)

const (
	EnvPrefix  = "TRANSCOMPARE"
	configName = "transcompare"

	BackendGoogle = "google"
	BackendXLSX   = "xlsx"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type SheetsConfig struct {
	Backend         string `mapstructure:"backend"`
	CredentialsFile string `mapstructure:"credentials_file"`
	XLSXDir         string `mapstructure:"xlsx_dir"`
}

type DispatchConfig struct {
	// Concurrency caps translators in flight per run; 0 means no cap.
	Concurrency int `mapstructure:"concurrency"`
	// ValidateTarget counts translations that are not in the target language.
	ValidateTarget bool `mapstructure:"validate_target"`
	// DetectLanguages restricts source and target detection to these ISO
	// 639-1 codes. Empty means every language.
	DetectLanguages []string      `mapstructure:"detect_languages"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ProviderConfig is one entry of the providers map. Its key is the id users
// request; Type selects the implementation.
type ProviderConfig struct {
	Type                     string `mapstructure:"type"`
	translator.ServiceConfig `mapstructure:",squash"`
}

type Config struct {
	LogLevel  string                    `mapstructure:"log_level"`
	DBPath    string                    `mapstructure:"db_path"`
	Server    ServerConfig              `mapstructure:"server"`
	Sheets    SheetsConfig              `mapstructure:"sheets"`
	Dispatch  DispatchConfig            `mapstructure:"dispatch"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "./data/transcompare.db")
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("sheets.backend", BackendGoogle)
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.xlsx_dir", "./data/workbooks")
	v.SetDefault("dispatch.concurrency", 0)
	v.SetDefault("dispatch.validate_target", false)
	v.SetDefault("dispatch.timeout", "0s")
}

// Load reads the configuration. path may be empty, in which case
// $TRANSCOMPARE_CONFIG is used, and failing that transcompare.{yaml,json,toml}
// is looked up in the working directory and ~/.config/transcompare. A .env
// file in the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	for id, p := range cfg.Providers {
		p.APIKey = os.ExpandEnv(p.APIKey)
		p.Credentials = os.ExpandEnv(p.Credentials)
		p.Email = os.ExpandEnv(p.Email)
		p.BaseURL = os.ExpandEnv(p.BaseURL)
		cfg.Providers[id] = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Sheets.Backend {
	case BackendGoogle, BackendXLSX:
	default:
		return fmt.Errorf("unknown sheets backend %q (supported: %s, %s)", c.Sheets.Backend, BackendGoogle, BackendXLSX)
	}
	if c.Dispatch.Concurrency < 0 {
		return fmt.Errorf("dispatch.concurrency must not be negative")
	}
	for _, id := range c.ProviderIDs() {
		p := c.Providers[id]
		if p.Type == "" {
			return fmt.Errorf("provider %q has no type", id)
		}
		known := false
		for _, k := range translator.Kinds {
			if p.Type == k {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("provider %q: unknown type %q (supported: %v)", id, p.Type, translator.Kinds)
		}
	}
	return nil
}

// ProviderIDs returns the configured provider ids, sorted.
func (c *Config) ProviderIDs() []string {
	ids := make([]string, 0, len(c.Providers))
	for id := range c.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewLogger returns a console logger on w at the configured level. Unknown
// levels fall back to info.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().
		Logger()
}

// NewEngine builds the translation engine over every configured provider.
// v may be nil to skip target-language validation.
func (c *Config) NewEngine(log zerolog.Logger, v jobs.LanguageValidator) (*jobs.Engine, error) {
	var providers []jobs.Provider
	for _, id := range c.ProviderIDs() {
		p := c.Providers[id]
		svc, err := translator.NewService(p.Type, p.ServiceConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %q: %w", id, err)
		}
		providers = append(providers, jobs.Provider{ID: id, Service: svc, Config: p.ServiceConfig})
	}

	engine, err := jobs.NewEngine(log, providers...)
	if err != nil {
		return nil, err
	}
	if c.Dispatch.ValidateTarget && v != nil {
		engine.SetValidator(v)
	}
	return engine, nil
}

// NewSheetStore opens the configured sheet backend.
func (c *Config) NewSheetStore(ctx context.Context, log zerolog.Logger) (sheet.Store, error) {
	switch c.Sheets.Backend {
	case BackendXLSX:
		return sheet.NewWorkbookStore(c.Sheets.XLSXDir, log), nil
	default:
		var opts []option.ClientOption
		if c.Sheets.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(c.Sheets.CredentialsFile))
		}
		return sheet.NewGoogleStore(ctx, log, opts...)
	}
}
