// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv = "WAYBARSPEED"

	UnitsMetric   = "metric"
	UnitsImperial = "imperial"
	UnitsNautical = "nautical"

	PresetCoordinates = "coordinates"
	PresetDegrees     = "degrees"
	PresetSpeed       = "speed"

	GPSDModeWatch = "watch"
	GPSDModePoll  = "poll"
)

// TemplateSet holds the templates for the four waybar output fields.
type TemplateSet struct {
	Text       string
	AltText    string
	Tooltip    string
	AltTooltip string
}

const defaultAltTooltipTpl = "{{loc \"Source\"}}: {{.Source}}\n" +
	"{{loc \"Accuracy\"}}: {{floatFormat .Accuracy 1}} m\n" +
	"{{loc \"Altitude\"}}: {{floatFormat .Altitude 1}} m\n" +
	"{{loc \"Last fix\"}}: {{naturalTime .FixTime}}"

// Presets are the built-in display layouts. Explicitly configured templates take precedence.
var Presets = map[string]TemplateSet{
	PresetCoordinates: {
		Text:       "{{floatFormat .Latitude 6}}, {{floatFormat .Longitude 6}}",
		AltText:    "{{floatFormat .Speed 1}} {{.SpeedUnit}}",
		Tooltip:    "{{loc \"Latitude\"}}: {{.Latitude}}\n{{loc \"Longitude\"}}: {{.Longitude}}",
		AltTooltip: defaultAltTooltipTpl,
	},
	PresetDegrees: {
		Text:       "{{degrees .Latitude 4}} {{degrees .Longitude 4}}",
		AltText:    "{{floatFormat .Speed 1}} {{.SpeedUnit}}",
		Tooltip:    "{{loc \"Lat\"}}: {{degrees .Latitude 4}}\n{{loc \"Lng\"}}: {{degrees .Longitude 4}}",
		AltTooltip: defaultAltTooltipTpl,
	},
	PresetSpeed: {
		Text:    "{{floatFormat .Speed 2}} {{.SpeedUnit}}",
		AltText: "{{floatFormat .Latitude 4}}, {{floatFormat .Longitude 4}}",
		Tooltip: "{{loc \"Lat\"}}: {{floatFormat .Latitude 4}}\n{{loc \"Lng\"}}: {{floatFormat .Longitude 4}}\n" +
			"{{loc \"Speed\"}}: {{floatFormat .Speed 2}} {{.SpeedUnit}}",
		AltTooltip: defaultAltTooltipTpl,
	},
}

// Config represents the application's configuration structure.
type Config struct {
	// Allowed values: metric, imperial, nautical
	Units               string     `fig:"units" default:"imperial"`
	Locale              string     `fig:"locale"`
	LogLevel            slog.Level `fig:"loglevel" default:"0"`
	DisableSleepMonitor bool       `fig:"disable_sleep_monitor"`

	Intervals struct {
		Output     time.Duration `fig:"output" default:"5s"`
		StaleAfter time.Duration `fig:"stale_after" default:"30s"`
	} `fig:"intervals"`

	// Updates throttles the fixes that reach the estimator.
	Updates struct {
		MinInterval time.Duration `fig:"min_interval" default:"1s"`
		MinDistance float64       `fig:"min_distance" default:"0"`
		SourceTTL   time.Duration `fig:"source_ttl" default:"30s"`
	} `fig:"updates"`

	// Speed thresholds are given in display units. The defaults fit mph.
	Speed struct {
		PreferReported bool    `fig:"prefer_reported"`
		StopThreshold  float64 `fig:"stop_threshold" default:"1"`
		SlowThreshold  float64 `fig:"slow_threshold" default:"20"`
		FastThreshold  float64 `fig:"fast_threshold" default:"60"`
	} `fig:"speed"`

	Templates struct {
		// Allowed values: coordinates, degrees, speed
		Preset     string `fig:"preset" default:"speed"`
		Text       string `fig:"text"`
		AltText    string `fig:"alt_text"`
		Tooltip    string `fig:"tooltip"`
		AltTooltip string `fig:"alt_tooltip"`
	} `fig:"templates"`

	Source struct {
		GPSD struct {
			Disable bool          `fig:"disable"`
			Host    string        `fig:"host" default:"localhost"`
			Port    string        `fig:"port" default:"2947"`
			Mode    string        `fig:"mode" default:"watch"`
			Period  time.Duration `fig:"period" default:"2s"`
		} `fig:"gpsd"`
		Serial struct {
			Enable bool   `fig:"enable"`
			Port   string `fig:"port" default:"/dev/ttyACM0"`
			Baud   uint   `fig:"baud" default:"9600"`
		} `fig:"serial"`
		NMEAFile struct {
			Path      string `fig:"path"`
			FromStart bool   `fig:"from_start"`
		} `fig:"nmea_file"`
		HTTP struct {
			URL      string        `fig:"url"`
			Interval time.Duration `fig:"interval" default:"2s"`
		} `fig:"http"`
	} `fig:"source"`

	MQTT struct {
		Enable   bool   `fig:"enable"`
		Broker   string `fig:"broker" default:"tcp://localhost:1883"`
		Topic    string `fig:"topic" default:"waybar-speed/reading"`
		ClientID string `fig:"client_id"`
		Username string `fig:"username"`
		Password string `fig:"password"`
		QoS      uint   `fig:"qos" default:"0"`
		Retain   bool   `fig:"retain"`
	} `fig:"mqtt"`

	Feed struct {
		Enable bool   `fig:"enable"`
		Listen string `fig:"listen" default:"127.0.0.1:8088"`
	} `fig:"feed"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	switch c.Units {
	case UnitsMetric, UnitsImperial, UnitsNautical:
	default:
		return fmt.Errorf("invalid units: %s", c.Units)
	}
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Intervals.Output <= 0 {
		return fmt.Errorf("invalid output interval: %s", c.Intervals.Output)
	}
	if c.Updates.MinInterval < 0 {
		return fmt.Errorf("invalid minimum update interval: %s", c.Updates.MinInterval)
	}
	if c.Updates.MinDistance < 0 {
		return fmt.Errorf("invalid minimum update distance: %f", c.Updates.MinDistance)
	}
	if c.Speed.StopThreshold < 0 || c.Speed.SlowThreshold < c.Speed.StopThreshold ||
		c.Speed.FastThreshold < c.Speed.SlowThreshold {
		return fmt.Errorf("invalid speed thresholds: stop %.2f, slow %.2f, fast %.2f",
			c.Speed.StopThreshold, c.Speed.SlowThreshold, c.Speed.FastThreshold)
	}
	mode := strings.ToLower(c.Source.GPSD.Mode)
	if mode != GPSDModeWatch && mode != GPSDModePoll {
		return fmt.Errorf("invalid gpsd mode: %s", c.Source.GPSD.Mode)
	}
	c.Source.GPSD.Mode = mode
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid MQTT QoS: %d", c.MQTT.QoS)
	}

	preset, ok := Presets[strings.ToLower(c.Templates.Preset)]
	if !ok {
		return fmt.Errorf("invalid template preset: %s", c.Templates.Preset)
	}
	if c.Templates.Text == "" {
		c.Templates.Text = preset.Text
	}
	if c.Templates.AltText == "" {
		c.Templates.AltText = preset.AltText
	}
	if c.Templates.Tooltip == "" {
		c.Templates.Tooltip = preset.Tooltip
	}
	if c.Templates.AltTooltip == "" {
		c.Templates.AltTooltip = preset.AltTooltip
	}

	return nil
}

// TemplateSet returns the effective templates after validation.
func (c *Config) TemplateSet() TemplateSet {
	return TemplateSet{
		Text:       c.Templates.Text,
		AltText:    c.Templates.AltText,
		Tooltip:    c.Templates.Tooltip,
		AltTooltip: c.Templates.AltTooltip,
	}
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
