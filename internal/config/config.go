package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	settings "safetyband-cloud/internal/settings/domain"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultFirmwareVersion = "2.4.0"
	defaultFallbackZone    = "Europe/London"
	defaultLockTTL         = 2 * time.Minute
	defaultMinHAVDuration  = 10
	defaultIngestSkew      = 300
)

// Config is the server configuration.
type Config struct {
	DatabaseURL          string
	HTTPAddr             string
	JWTSecret            string
	IngestSecret         string
	IngestSkew           time.Duration
	RedisAddr            string
	RedisPassword        string
	GroupingLockTTL      time.Duration
	MinHAVDuration       int
	PendingSweepInterval time.Duration
	FirmwareVersion      string
	FallbackZone         string
	OverlayPath          string

	// Categories overrides built-in configuration defaults per category.
	Categories map[string]CategoryOverride
}

// CategoryOverride replaces fields of a built-in configuration default. Unset
// fields keep the built-in value.
type CategoryOverride struct {
	Enabled        *bool `yaml:"enabled"`
	IconAlert      *bool `yaml:"icon_alert"`
	VibrationAlert *bool `yaml:"vibration_alert"`
	SoundAlert     *bool `yaml:"sound_alert"`
	Threshold      *int  `yaml:"threshold"`
}

type overlay struct {
	FirmwareVersion string                      `yaml:"firmware_version"`
	FallbackZone    string                      `yaml:"fallback_zone"`
	Categories      map[string]CategoryOverride `yaml:"categories"`
}

// Load reads the environment, then the optional SAFETYBAND_CONFIG YAML file.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:          getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:             getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		JWTSecret:            getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:         getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkew:           time.Duration(getenvIntDefault("INGEST_MAX_SKEW_SECONDS", defaultIngestSkew)) * time.Second,
		RedisAddr:            getenvDefault("REDIS_ADDR", ""),
		RedisPassword:        getenvDefault("REDIS_PASSWORD", ""),
		GroupingLockTTL:      getenvDuration("GROUPING_LOCK_TTL", defaultLockTTL),
		MinHAVDuration:       getenvIntDefault("MIN_HAV_DURATION_SECONDS", defaultMinHAVDuration),
		PendingSweepInterval: getenvDuration("PENDING_SWEEP_INTERVAL", 0),
		FirmwareVersion:      getenvDefault("FIRMWARE_VERSION", defaultFirmwareVersion),
		FallbackZone:         getenvDefault("FALLBACK_TIMEZONE", defaultFallbackZone),
		OverlayPath:          getenvDefault("SAFETYBAND_CONFIG", ""),
	}

	if cfg.OverlayPath != "" {
		data, err := os.ReadFile(cfg.OverlayPath)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", cfg.OverlayPath, err)
		}
		if err := cfg.apply(data); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func (c *Config) apply(data []byte) error {
	var o overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("config: parse overlay: %w", err)
	}
	if o.FirmwareVersion != "" {
		c.FirmwareVersion = o.FirmwareVersion
	}
	if o.FallbackZone != "" {
		c.FallbackZone = o.FallbackZone
	}
	if len(o.Categories) > 0 {
		c.Categories = o.Categories
	}
	return nil
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL or PG_DSN is required")
	}
	if c.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if c.MinHAVDuration < 0 {
		return errors.New("MIN_HAV_DURATION_SECONDS must not be negative")
	}
	if c.GroupingLockTTL <= 0 {
		return errors.New("GROUPING_LOCK_TTL must be positive")
	}
	if _, err := time.LoadLocation(c.FallbackZone); err != nil {
		return fmt.Errorf("fallback zone %q: %w", c.FallbackZone, err)
	}
	if _, err := c.CategoryDefaults(); err != nil {
		return err
	}
	return nil
}

// CategoryDefaults returns the built-in configuration defaults with the overlay applied.
func (c Config) CategoryDefaults() (settings.Defaults, error) {
	defaults := settings.DefaultConfigurations()
	for name, override := range c.Categories {
		category, ok := settings.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("config: %w: %q", settings.ErrInvalidCategory, name)
		}
		merged := mergeCategory(defaults.Get(category), override)
		if err := merged.Validate(); err != nil {
			return nil, fmt.Errorf("config: category %s: %w", category, err)
		}
		defaults[category] = merged
	}
	return defaults, nil
}

func mergeCategory(base settings.Configuration, override CategoryOverride) settings.Configuration {
	if override.Enabled != nil {
		base.Enabled = *override.Enabled
	}
	if override.IconAlert != nil {
		base.IconAlert = *override.IconAlert
	}
	if override.VibrationAlert != nil {
		base.VibrationAlert = *override.VibrationAlert
	}
	if override.SoundAlert != nil {
		base.SoundAlert = *override.SoundAlert
	}
	if override.Threshold != nil {
		base.Threshold = *override.Threshold
	}
	return base
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
