package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nwah/hudnav-server/hud"
	"github.com/nwah/hudnav-server/maneuver"
	"github.com/nwah/hudnav-server/nav"
	"github.com/nwah/hudnav-server/session"
)

const DefaultPort = ":8080"

// Config holds the application configuration
type Config struct {
	Port     string         `toml:"port" yaml:"port"`
	Nav      nav.NavConfig  `toml:"nav" yaml:"nav"`
	Tracker  TrackerConfig  `toml:"tracker" yaml:"tracker"`
	HUD      HUDConfig      `toml:"hud" yaml:"hud"`
	Settings SettingsConfig `toml:"settings" yaml:"settings"`
}

// TrackerConfig overrides the maneuver thresholds. Zero keeps the default.
type TrackerConfig struct {
	ArrivalMeters        float64 `toml:"arrival_meters" yaml:"arrival_meters" validate:"gte=0"`
	FailsafeMaxMeters    float64 `toml:"failsafe_max_meters" yaml:"failsafe_max_meters" validate:"gte=0"`
	FailsafeMarginMeters float64 `toml:"failsafe_margin_meters" yaml:"failsafe_margin_meters" validate:"gte=0"`
	ArriveOnFinalStep    bool    `toml:"arrive_on_final_step" yaml:"arrive_on_final_step"`
}

type HUDConfig struct {
	AnimationFactor float64 `toml:"animation_factor" yaml:"animation_factor" validate:"gte=0"`
}

type SettingsConfig struct {
	// Path of the sqlite database. Empty keeps settings in memory.
	Path string `toml:"path" yaml:"path"`
}

// Thresholds returns the tracker thresholds with defaults filled in
func (t TrackerConfig) Thresholds() maneuver.Thresholds {
	return maneuver.Thresholds{
		Arrival:             t.ArrivalMeters,
		FailsafeMaxDistance: t.FailsafeMaxMeters,
		FailsafeMargin:      t.FailsafeMarginMeters,
	}.WithDefaults()
}

// Session builds the per-session configuration
func (c *Config) Session() session.Config {
	factor := c.HUD.AnimationFactor
	if factor == 0 {
		factor = hud.DefaultAnimationFactor
	}
	return session.Config{
		Thresholds:        c.Tracker.Thresholds(),
		ArriveOnFinalStep: c.Tracker.ArriveOnFinalStep,
		AnimationFactor:   factor,
	}
}

// Load reads the configuration from a TOML or YAML file
func Load(filename string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("error decoding config file: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(filename, &cfg); err != nil {
			return nil, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.Nav.Router == "" {
		c.Nav.Router = nav.BackendMapbox
	}
	if c.Nav.Geocoder == "" {
		c.Nav.Geocoder = nav.BackendMapbox
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	usesMapbox := c.Nav.Router == nav.BackendMapbox || c.Nav.Geocoder == nav.BackendMapbox
	if usesMapbox && c.Nav.MapboxToken == "" {
		return fmt.Errorf("nav.mapbox_token is required in config file")
	}
	if c.Nav.Router == nav.BackendValhalla && c.Nav.ValhallaURL == "" {
		return fmt.Errorf("nav.valhalla_url is required in config file")
	}
	if c.Nav.Geocoder == nav.BackendNominatim && c.Nav.NominatimURL == "" {
		return fmt.Errorf("nav.nominatim_url is required in config file")
	}
	return nil
}
