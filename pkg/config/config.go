// Package config loads the viewer configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sudorandom/mtr-history/pkg/scene"
	"github.com/sudorandom/mtr-history/pkg/timeline"
	"github.com/sudorandom/mtr-history/pkg/viewport"
)

type MapConfig struct {
	// Asset is a path or http(s) URL; empty means the bundled map.
	Asset               string `yaml:"asset"`
	LinesLayer          string `yaml:"linesLayer" validate:"required"`
	StationsLayer       string `yaml:"stationsLayer" validate:"required"`
	ZoomRoot            string `yaml:"zoomRoot" validate:"required"`
	LabelAttr           string `yaml:"labelAttr" validate:"required"`
	StationTemplate     string `yaml:"stationTemplate" validate:"required"`
	InterchangeTemplate string `yaml:"interchangeTemplate" validate:"required"`
	SharedSectionID     string `yaml:"sharedSectionID"`
}

type TimelineConfig struct {
	Min          time.Time     `yaml:"min" validate:"required"`
	Max          time.Time     `yaml:"max" validate:"required,gtfield=Min"`
	TickInterval time.Duration `yaml:"tickInterval" validate:"gt=0"`
	StepMonths   int           `yaml:"stepMonths" validate:"gte=1"`
	// KCRMerger is the date KCR stations start showing the MTR badge.
	KCRMerger time.Time `yaml:"kcrMerger"`
}

type AnimationConfig struct {
	Fade     time.Duration `yaml:"fade" validate:"gte=0"`
	Hover    time.Duration `yaml:"hover" validate:"gte=0"`
	Zoom     time.Duration `yaml:"zoom" validate:"gte=0"`
	ZoomStep float64       `yaml:"zoomStep" validate:"gt=1"`
	MaxZoom  float64       `yaml:"maxZoom" validate:"gte=1"`
}

type LegendConfig struct {
	// Source is a path or http(s) URL; empty means the bundled feed.
	Source string `yaml:"source"`
}

type RemoteConfig struct {
	// URL of a control server to follow, e.g. ws://localhost:8765/ws.
	URL string `yaml:"url" validate:"omitempty,url"`
}

type CacheConfig struct {
	Dir string `yaml:"dir"`
}

type Config struct {
	Map       MapConfig       `yaml:"map" validate:"required"`
	Timeline  TimelineConfig  `yaml:"timeline" validate:"required"`
	Animation AnimationConfig `yaml:"animation" validate:"required"`
	Legend    LegendConfig    `yaml:"legend"`
	Remote    RemoteConfig    `yaml:"remote"`
	Cache     CacheConfig     `yaml:"cache"`
}

// Default returns the configuration of the bundled map.
func Default() Config {
	so := scene.DefaultOptions()
	po := timeline.DefaultPlayerOptions
	vo := viewport.DefaultOptions
	return Config{
		Map: MapConfig{
			LinesLayer:          so.LinesLayer,
			StationsLayer:       so.StationsLayer,
			ZoomRoot:            so.ZoomRoot,
			LabelAttr:           so.LabelAttr,
			StationTemplate:     so.StationTemplate,
			InterchangeTemplate: so.InterchangeTemplate,
			SharedSectionID:     so.SharedSectionID,
		},
		Timeline: TimelineConfig{
			Min:          time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC),
			Max:          so.OpenEnd,
			TickInterval: po.Interval,
			StepMonths:   po.StepMonths,
			KCRMerger:    time.Date(2007, time.December, 2, 0, 0, 0, 0, time.UTC),
		},
		Animation: AnimationConfig{
			Fade:     so.FadeDuration,
			Hover:    so.HoverDuration,
			Zoom:     vo.ZoomDuration,
			ZoomStep: vo.ZoomStep,
			MaxZoom:  vo.MaxZoom,
		},
		Cache: CacheConfig{Dir: "data/cache"},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("decode %s: %w", path, err)
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Bounds is the playable time range.
func (c Config) Bounds() timeline.Bounds {
	return timeline.Bounds{Min: c.Timeline.Min, Max: c.Timeline.Max}
}

func (c Config) PlayerOptions() timeline.PlayerOptions {
	return timeline.PlayerOptions{Interval: c.Timeline.TickInterval, StepMonths: c.Timeline.StepMonths}
}

func (c Config) SceneOptions() scene.Options {
	opts := scene.DefaultOptions()
	opts.LinesLayer = c.Map.LinesLayer
	opts.StationsLayer = c.Map.StationsLayer
	opts.ZoomRoot = c.Map.ZoomRoot
	opts.LabelAttr = c.Map.LabelAttr
	opts.StationTemplate = c.Map.StationTemplate
	opts.InterchangeTemplate = c.Map.InterchangeTemplate
	opts.SharedSectionID = c.Map.SharedSectionID
	opts.OpenEnd = c.Timeline.Max
	opts.FadeDuration = c.Animation.Fade
	opts.HoverDuration = c.Animation.Hover
	return opts
}

func (c Config) ViewportOptions() viewport.Options {
	return viewport.Options{MaxZoom: c.Animation.MaxZoom, ZoomStep: c.Animation.ZoomStep, ZoomDuration: c.Animation.Zoom}
}
