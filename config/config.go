// Package config loads and validates the pipeline configuration. A Config is
// an immutable snapshot: the controller copies it when a run is configured and
// a change only takes effect through a reset.
package config

import (
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-motion/background"
	"github.com/nvr-ai/go-motion/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SkipPolicy decides what happens to frames the skip gate passes over.
type SkipPolicy string

const (
	// SkipApply still feeds skipped frames to the background model.
	SkipApply SkipPolicy = "apply"
	// SkipDrop leaves the model untouched on skipped frames.
	SkipDrop SkipPolicy = "drop"
)

// Config represents the complete pipeline configuration.
type Config struct {
	DetectionColor     string     `json:"detection_color" yaml:"detection_color"`           // hex RGB, e.g. #FF0000
	TargetFrameRate    float64    `json:"target_frame_rate" yaml:"target_frame_rate"`       // fps, capped by the source rate
	FrameSkipFactor    int        `json:"frame_skip_factor" yaml:"frame_skip_factor"`       // 1 = every frame
	ResizeFactor       float64    `json:"resize_factor" yaml:"resize_factor"`               // (0, 1], 1 = no resize
	LearningFrameCount int        `json:"learning_frame_count" yaml:"learning_frame_count"` // frames with index <= N never produce boxes
	MinBlobArea        float64    `json:"min_blob_area" yaml:"min_blob_area"`               // px² at source resolution
	SkipPolicy         SkipPolicy `json:"skip_policy" yaml:"skip_policy"`
	BlurRadius         int        `json:"blur_radius" yaml:"blur_radius"`           // 0 disables the pre-model blur
	MaskOpenRadius     int        `json:"mask_open_radius" yaml:"mask_open_radius"` // 0 disables mask opening
	BoxThickness       int        `json:"box_thickness" yaml:"box_thickness"`
	Annotate           bool       `json:"annotate" yaml:"annotate"` // stamp the status line onto rendered frames

	Model background.Params `json:"model" yaml:"model"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		DetectionColor:     "#FF0000",
		TargetFrameRate:    10,
		FrameSkipFactor:    2,
		ResizeFactor:       0.7,
		LearningFrameCount: 20,
		MinBlobArea:        300,
		SkipPolicy:         SkipApply,
		BlurRadius:         0,
		MaskOpenRadius:     0,
		BoxThickness:       2,
		Annotate:           false,
		Model:              background.DefaultParams(),
	}
}

// Load reads and parses a YAML configuration file. Keys missing from the
// file keep their default values.
//
// Arguments:
//   - path: The YAML file.
//
// Returns:
//   - *Config: The validated configuration.
//   - error: A read error, or common.ErrConfiguration for parse and
//     validation failures.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse decodes YAML bytes over DefaultConfig and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(common.ErrConfiguration, "failed to parse config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Color returns DetectionColor as an opaque RGBA colour. It accepts #RRGGBB
// and #RGB, with or without the leading hash.
func (c Config) Color() (color.RGBA, error) {
	return ParseHexColor(c.DetectionColor)
}

// ParseHexColor parses #RRGGBB or #RGB.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, errors.Wrapf(common.ErrConfiguration, "detection_color %q is not #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(common.ErrConfiguration, "detection_color %q is not #RRGGBB", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
