// Package config resolves xorbreak settings from defaults, YAML files and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/xorbreak/internal/env"
)

// Config captures the settings shared by the CLI and the daemon.
type Config struct {
	Scoring     ScoringConfig   `yaml:"scoring"`
	KeyLength   KeyLengthConfig `yaml:"key_length"`
	Workers     int             `yaml:"workers"`
	HistoryPath string          `yaml:"history_path"`
	AuditLog    string          `yaml:"audit_log"`
	Server      ServerConfig    `yaml:"server"`
}

// ScoringConfig selects and tunes the plaintext scorer.
type ScoringConfig struct {
	Method    string `yaml:"method"`
	TopN      int    `yaml:"top_n"`
	Strict    bool   `yaml:"strict"`
	TablePath string `yaml:"table_path"`
}

// KeyLengthConfig bounds the repeating-key length search.
type KeyLengthConfig struct {
	Min          int `yaml:"min"`
	Max          int `yaml:"max"`
	SampleBlocks int `yaml:"sample_blocks"`
}

// ServerConfig controls xorbreakd.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
	MaxConns  int    `yaml:"max_conns"`
	// MetricsAddr serves Prometheus metrics when set.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the built-in configuration. History lives under the home
// directory when one can be determined.
func Default() Config {
	cfg := Config{
		Scoring: ScoringConfig{
			Method: "rank",
			TopN:   20,
			Strict: true,
		},
		KeyLength: KeyLengthConfig{
			Min:          2,
			Max:          40,
			SampleBlocks: 10,
		},
		Workers: 1,
		Server: ServerConfig{
			Addr:     "127.0.0.1:50061",
			MaxConns: 64,
		},
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		cfg.HistoryPath = filepath.Join(home, ".xorbreak", "history.jsonl")
	}
	return cfg
}

// Load resolves the configuration. Files are applied in this order, later
// ones winning:
//  1. ~/.xorbreak/config.yaml (or the legacy ~/.cryptopals/config.yaml)
//  2. ./xorbreak.yml
//
// Environment variables prefixed with XORBREAK_ have the highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if err := loadHomeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadLocalConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the breaker would reject.
func (c Config) Validate() error {
	switch strings.ToLower(c.Scoring.Method) {
	case "rank", "chi2":
	default:
		return fmt.Errorf("scoring.method must be rank or chi2, got %q", c.Scoring.Method)
	}
	if c.Scoring.TopN < 1 {
		return fmt.Errorf("scoring.top_n must be positive, got %d", c.Scoring.TopN)
	}
	if c.KeyLength.Min < 1 || c.KeyLength.Max < c.KeyLength.Min {
		return fmt.Errorf("key_length range [%d, %d] is empty", c.KeyLength.Min, c.KeyLength.Max)
	}
	if c.KeyLength.SampleBlocks < 2 || c.KeyLength.SampleBlocks%2 != 0 {
		return fmt.Errorf("key_length.sample_blocks must be a positive even number, got %d", c.KeyLength.SampleBlocks)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Server.MaxConns < 0 {
		return fmt.Errorf("server.max_conns must not be negative, got %d", c.Server.MaxConns)
	}
	return nil
}

func loadHomeConfig(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("determine home directory: %w", err)
	}

	found, err := applyFile(cfg, filepath.Join(home, ".xorbreak", "config.yaml"))
	if err != nil || found {
		return err
	}
	legacy := filepath.Join(home, ".cryptopals", "config.yaml")
	found, err = applyFile(cfg, legacy)
	if found {
		log.Printf("Using legacy config %s", legacy)
	}
	return err
}

func loadLocalConfig(cfg *Config) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}
	_, err = applyFile(cfg, filepath.Join(wd, "xorbreak.yml"))
	return err
}

// applyFile overlays the YAML file at path onto cfg. It reports whether the
// file existed.
func applyFile(cfg *Config, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data); err != nil {
		return true, fmt.Errorf("parse config %s: %w", path, err)
	}
	return true, nil
}

type fileConfig struct {
	Scoring *struct {
		Method    *string `yaml:"method"`
		TopN      *int    `yaml:"top_n"`
		Strict    *bool   `yaml:"strict"`
		TablePath *string `yaml:"table_path"`
	} `yaml:"scoring"`
	KeyLength *struct {
		Min          *int `yaml:"min"`
		Max          *int `yaml:"max"`
		SampleBlocks *int `yaml:"sample_blocks"`
	} `yaml:"key_length"`
	Workers     *int    `yaml:"workers"`
	HistoryPath *string `yaml:"history_path"`
	AuditLog    *string `yaml:"audit_log"`
	Server      *struct {
		Addr        *string `yaml:"addr"`
		AuthToken   *string `yaml:"auth_token"`
		MaxConns    *int    `yaml:"max_conns"`
		MetricsAddr *string `yaml:"metrics_addr"`
	} `yaml:"server"`
}

func applyFileConfig(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if s := fc.Scoring; s != nil {
		setString(&cfg.Scoring.Method, s.Method)
		setInt(&cfg.Scoring.TopN, s.TopN)
		if s.Strict != nil {
			cfg.Scoring.Strict = *s.Strict
		}
		setString(&cfg.Scoring.TablePath, s.TablePath)
	}
	if k := fc.KeyLength; k != nil {
		setInt(&cfg.KeyLength.Min, k.Min)
		setInt(&cfg.KeyLength.Max, k.Max)
		setInt(&cfg.KeyLength.SampleBlocks, k.SampleBlocks)
	}
	setInt(&cfg.Workers, fc.Workers)
	setString(&cfg.HistoryPath, fc.HistoryPath)
	setString(&cfg.AuditLog, fc.AuditLog)
	if s := fc.Server; s != nil {
		setString(&cfg.Server.Addr, s.Addr)
		setString(&cfg.Server.AuthToken, s.AuthToken)
		setInt(&cfg.Server.MaxConns, s.MaxConns)
		setString(&cfg.Server.MetricsAddr, s.MetricsAddr)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"SCORING_METHOD": &cfg.Scoring.Method,
		"TABLE_PATH":     &cfg.Scoring.TablePath,
		"HISTORY_PATH":   &cfg.HistoryPath,
		"AUDIT_LOG":      &cfg.AuditLog,
		"SERVER":         &cfg.Server.Addr,
		"AUTH_TOKEN":     &cfg.Server.AuthToken,
		"METRICS_ADDR":   &cfg.Server.MetricsAddr,
	}
	for name, dst := range strs {
		if val, ok := env.Var(name); ok && strings.TrimSpace(val) != "" {
			*dst = strings.TrimSpace(val)
		}
	}

	ints := map[string]*int{
		"TOP_N":         &cfg.Scoring.TopN,
		"KEYLEN_MIN":    &cfg.KeyLength.Min,
		"KEYLEN_MAX":    &cfg.KeyLength.Max,
		"SAMPLE_BLOCKS": &cfg.KeyLength.SampleBlocks,
		"WORKERS":       &cfg.Workers,
		"MAX_CONNS":     &cfg.Server.MaxConns,
	}
	for name, dst := range ints {
		val, ok := env.Var(name)
		if !ok || strings.TrimSpace(val) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("%s%s: %w", env.Prefix, name, err)
		}
		*dst = n
	}

	if val, ok := env.Var("STRICT"); ok && strings.TrimSpace(val) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("%sSTRICT: %w", env.Prefix, err)
		}
		cfg.Scoring.Strict = b
	}
	return nil
}
