package settings

import (
	"context"
	"fmt"
	"time"
)

// Configuration is one alert setting. WearableID is empty for organization-wide rows.
type Configuration struct {
	ID             string    `json:"id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	WearableID     string    `json:"wearable_id,omitempty"`
	Category       Category  `json:"category"`
	Enabled        bool      `json:"enabled"`
	IconAlert      bool      `json:"icon_alert"`
	VibrationAlert bool      `json:"vibration_alert"`
	SoundAlert     bool      `json:"sound_alert"`
	Threshold      int       `json:"threshold"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// Validate checks the category and threshold.
func (c Configuration) Validate() error {
	if _, ok := ParseCategory(string(c.Category)); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, c.Category)
	}
	if c.Threshold < 0 {
		return ErrInvalidThreshold
	}
	return nil
}

// ConfigurationMap holds exactly one resolved configuration per category.
type ConfigurationMap map[Category]Configuration

// Defaults are the built-in configurations used when neither the wearable nor
// its organization has a row for a category.
type Defaults map[Category]Configuration

// DefaultConfigurations returns a fresh copy of the built-in defaults.
func DefaultConfigurations() Defaults {
	d := Defaults{
		HAVLow:     {Enabled: true, Threshold: 30},
		HAVMedium:  {Enabled: true, Threshold: 50},
		HAVHigh:    {Enabled: true, Threshold: 100},
		HAVExtreme: {Enabled: true, Threshold: 150},

		NoiseLow:     {Enabled: true, Threshold: 80},
		NoiseMedium:  {Enabled: true, Threshold: 80},
		NoiseHigh:    {Enabled: true, Threshold: 80},
		NoiseExtreme: {Enabled: true, Threshold: 80},
	}
	zones := [][3]Category{
		{PPESmall, PPEMedium, PPELarge},
		{AccessSmall, AccessMedium, AccessLarge},
		{MachinerySmall, MachineryMedium, MachineryLarge},
	}
	for _, zone := range zones {
		for i, threshold := range []int{1, 3, 6} {
			d[zone[i]] = Configuration{Enabled: true, IconAlert: true, Threshold: threshold}
		}
	}
	for c, cfg := range d {
		cfg.Category = c
		d[c] = cfg
	}
	return d
}

// Get returns the default for c, or an enabled zero-threshold row for unknown categories.
func (d Defaults) Get(c Category) Configuration {
	if cfg, ok := d[c]; ok {
		cfg.Category = c
		return cfg
	}
	return Configuration{Category: c, Enabled: true}
}

// Resolve merges configuration rows: a wearable row wins over an organization
// row, which wins over the default.
func Resolve(wearableRows, organizationRows []Configuration, defaults Defaults) ConfigurationMap {
	if defaults == nil {
		defaults = DefaultConfigurations()
	}
	byWearable := indexByCategory(wearableRows)
	byOrganization := indexByCategory(organizationRows)

	merged := make(ConfigurationMap, len(Categories))
	for _, c := range Categories {
		if cfg, ok := byWearable[c]; ok {
			merged[c] = cfg
			continue
		}
		if cfg, ok := byOrganization[c]; ok {
			merged[c] = cfg
			continue
		}
		merged[c] = defaults.Get(c)
	}
	return merged
}

func indexByCategory(rows []Configuration) map[Category]Configuration {
	out := make(map[Category]Configuration, len(rows))
	for _, row := range rows {
		if _, exists := out[row.Category]; exists {
			continue
		}
		out[row.Category] = row
	}
	return out
}

// ConfigurationRepository persists configuration rows.
type ConfigurationRepository interface {
	ListForOrganization(ctx context.Context, organizationID string) ([]Configuration, error)
	ListForWearable(ctx context.Context, organizationID, wearableID string) ([]Configuration, error)
	Upsert(ctx context.Context, cfg *Configuration) error
}
