package config

import (
	"github.com/nvr-ai/go-motion/common"
	"github.com/pkg/errors"
)

// Validate checks every field against its allowed range. Failures wrap
// common.ErrConfiguration.
func (c Config) Validate() error {
	if _, err := c.Color(); err != nil {
		return err
	}
	if c.TargetFrameRate <= 0 {
		return errors.Wrapf(common.ErrConfiguration, "target_frame_rate must be > 0, got %v", c.TargetFrameRate)
	}
	if c.FrameSkipFactor < 1 {
		return errors.Wrapf(common.ErrConfiguration, "frame_skip_factor must be >= 1, got %d", c.FrameSkipFactor)
	}
	if !(c.ResizeFactor > 0 && c.ResizeFactor <= 1) {
		return errors.Wrapf(common.ErrConfiguration, "resize_factor must be in (0, 1], got %v", c.ResizeFactor)
	}
	if c.LearningFrameCount < 0 {
		return errors.Wrapf(common.ErrConfiguration, "learning_frame_count must be >= 0, got %d", c.LearningFrameCount)
	}
	if c.MinBlobArea < 0 {
		return errors.Wrapf(common.ErrConfiguration, "min_blob_area must be >= 0, got %v", c.MinBlobArea)
	}
	switch c.SkipPolicy {
	case SkipApply, SkipDrop:
	default:
		return errors.Wrapf(common.ErrConfiguration, "skip_policy must be %q or %q, got %q", SkipApply, SkipDrop, c.SkipPolicy)
	}
	if c.BlurRadius < 0 {
		return errors.Wrapf(common.ErrConfiguration, "blur_radius must be >= 0, got %d", c.BlurRadius)
	}
	if c.MaskOpenRadius < 0 {
		return errors.Wrapf(common.ErrConfiguration, "mask_open_radius must be >= 0, got %d", c.MaskOpenRadius)
	}
	if c.BoxThickness < 1 {
		return errors.Wrapf(common.ErrConfiguration, "box_thickness must be >= 1, got %d", c.BoxThickness)
	}
	if err := c.Model.Validate(); err != nil {
		return errors.Wrap(err, "model")
	}
	return nil
}
