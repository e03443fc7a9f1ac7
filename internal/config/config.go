// Package config loads subplay settings from a YAML file, with environment
// overrides (optionally from a .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jwulff/subplay/internal/db"
)

// CurrentConfigVersion is written to new config files.
const CurrentConfigVersion = 1

// Config holds runtime settings.
type Config struct {
	DBPath        string  `yaml:"db_path"`
	CacheDir      string  `yaml:"cache_dir"`
	LogPath       string  `yaml:"log_path"`
	MpvPath       string  `yaml:"mpv_path"`
	ShareBaseURL  string  `yaml:"share_base_url"`
	VolumeStep    float64 `yaml:"volume_step"`
	InitialVolume float64 `yaml:"initial_volume"`

	ConfigVersion int `yaml:"config_version"`

	path string
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(baseDir(), "config.yaml")
}

func baseDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, _ = os.UserHomeDir()
	}
	return filepath.Join(dir, "subplay")
}

func defaultConfig() *Config {
	base := baseDir()
	cache, err := os.UserCacheDir()
	if err != nil {
		cache = base
	} else {
		cache = filepath.Join(cache, "subplay")
	}
	return &Config{
		DBPath:        db.DefaultDBPath(),
		CacheDir:      cache,
		LogPath:       filepath.Join(base, "subplay.log"),
		MpvPath:       "mpv",
		ShareBaseURL:  "https://subplay.app/",
		VolumeStep:    5,
		InitialVolume: 80,
		ConfigVersion: CurrentConfigVersion,
	}
}

// Load reads the config at path (DefaultPath when empty). A missing file is
// not an error: defaults apply. Environment variables override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // best-effort: load .env if present

	if path == "" {
		path = DefaultPath()
	}

	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Fields absent from the file keep their defaults.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg.path = path

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string { return c.path }

func (c *Config) applyEnv() error {
	for env, dst := range map[string]*string{
		"SUBPLAY_DB":             &c.DBPath,
		"SUBPLAY_CACHE_DIR":      &c.CacheDir,
		"SUBPLAY_LOG":            &c.LogPath,
		"SUBPLAY_MPV":            &c.MpvPath,
		"SUBPLAY_SHARE_BASE_URL": &c.ShareBaseURL,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("SUBPLAY_VOLUME_STEP"); v != "" {
		step, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SUBPLAY_VOLUME_STEP: %w", err)
		}
		c.VolumeStep = step
	}
	return nil
}

func (c *Config) normalize() {
	c.DBPath = filepath.Clean(c.DBPath)
	c.CacheDir = filepath.Clean(c.CacheDir)
	c.MpvPath = strings.TrimSpace(c.MpvPath)
	if c.MpvPath == "" {
		c.MpvPath = "mpv"
	}
	if c.VolumeStep <= 0 {
		c.VolumeStep = 5
	}
	if c.InitialVolume < 0 {
		c.InitialVolume = 0
	}
	if c.InitialVolume > 100 {
		c.InitialVolume = 100
	}
	if !strings.HasSuffix(c.ShareBaseURL, "/") {
		c.ShareBaseURL += "/"
	}
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.DBPath == "" || c.DBPath == "." {
		return errors.New("db_path is required")
	}
	if c.CacheDir == "" || c.CacheDir == "." {
		return errors.New("cache_dir is required")
	}
	if !strings.HasPrefix(c.ShareBaseURL, "http://") && !strings.HasPrefix(c.ShareBaseURL, "https://") {
		return fmt.Errorf("share_base_url must be an http(s) url, got %q", c.ShareBaseURL)
	}
	return nil
}

// Save writes the config back to its file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", c.path, err)
	}
	return nil
}
