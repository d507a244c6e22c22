// Package config loads the attend configuration from ~/.attend/config.yaml
// with ATTEND_* environment overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Location sources.
const (
	LocationStatic = "static"
	LocationHTTP   = "http"
	LocationNone   = "none"
)

// Config is the attend configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Store    StoreConfig    `yaml:"store"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Location LocationConfig `yaml:"location"`
	Device   DeviceConfig   `yaml:"device"`
	Control  ControlConfig  `yaml:"control"`
	Log      LogConfig      `yaml:"log"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type ScheduleConfig struct {
	ChainDelay       time.Duration `yaml:"chain_delay" validate:"gt=0"`
	PeriodicInterval time.Duration `yaml:"periodic_interval" validate:"min=15m"`
	PollInterval     time.Duration `yaml:"poll_interval" validate:"gt=0"`
}

type LocationConfig struct {
	Source    string        `yaml:"source" validate:"oneof=static http none"`
	URL       string        `yaml:"url" validate:"required_if=Source http,omitempty,url"`
	Latitude  float64       `yaml:"latitude" validate:"min=-90,max=90"`
	Longitude float64       `yaml:"longitude" validate:"min=-180,max=180"`
	MaxAge    time.Duration `yaml:"max_age" validate:"gt=0"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
}

type DeviceConfig struct {
	ID               string `yaml:"id"`
	IDFile           string `yaml:"id_file" validate:"required"`
	NetworkInterface string `yaml:"network_interface"`
}

type ControlConfig struct {
	Listen string `yaml:"listen" validate:"required,hostname_port"`
}

type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=trace debug info warn error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

// Dir returns ~/.attend.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".attend"), nil
}

// DefaultPath returns the config file path, honouring ATTEND_CONFIG.
func DefaultPath() (string, error) {
	if p := os.Getenv("ATTEND_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the configuration used when no file sets a value.
func Default(dir string) *Config {
	return &Config{
		Backend: BackendConfig{
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Path: filepath.Join(dir, "attend.db"),
		},
		Schedule: ScheduleConfig{
			ChainDelay:       3 * time.Minute,
			PeriodicInterval: time.Hour,
			PollInterval:     30 * time.Second,
		},
		Location: LocationConfig{
			Source:  LocationNone,
			MaxAge:  5 * time.Second,
			Timeout: 30 * time.Second,
		},
		Device: DeviceConfig{
			IDFile: filepath.Join(dir, "device_id"),
		},
		Control: ControlConfig{
			Listen: "127.0.0.1:7391",
		},
		Log: LogConfig{
			Level:      "info",
			File:       filepath.Join(dir, "attend.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	cfg := Default(dir)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Errorf("failed to read config: %w", err)
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fe.Namespace() + " failed " + fe.Tag()
			}
			return errors.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return errors.Errorf("invalid config: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides fields from ATTEND_* variables.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"ATTEND_BACKEND_URL":      &cfg.Backend.BaseURL,
		"ATTEND_STORE_PATH":       &cfg.Store.Path,
		"ATTEND_LOCATION_SOURCE":  &cfg.Location.Source,
		"ATTEND_LOCATION_URL":     &cfg.Location.URL,
		"ATTEND_DEVICE_ID":        &cfg.Device.ID,
		"ATTEND_DEVICE_INTERFACE": &cfg.Device.NetworkInterface,
		"ATTEND_CONTROL_LISTEN":   &cfg.Control.Listen,
		"ATTEND_LOG_LEVEL":        &cfg.Log.Level,
		"ATTEND_LOG_FILE":         &cfg.Log.File,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ATTEND_BACKEND_TIMEOUT":   &cfg.Backend.Timeout,
		"ATTEND_CHAIN_DELAY":       &cfg.Schedule.ChainDelay,
		"ATTEND_PERIODIC_INTERVAL": &cfg.Schedule.PeriodicInterval,
		"ATTEND_POLL_INTERVAL":     &cfg.Schedule.PollInterval,
		"ATTEND_LOCATION_TIMEOUT":  &cfg.Location.Timeout,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}

	floats := map[string]*float64{
		"ATTEND_LOCATION_LATITUDE":  &cfg.Location.Latitude,
		"ATTEND_LOCATION_LONGITUDE": &cfg.Location.Longitude,
	}
	for key, dst := range floats {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errors.Errorf("invalid %s: %w", key, err)
			}
			*dst = f
		}
	}
	return nil
}
