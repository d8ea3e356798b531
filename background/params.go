package background

import (
	"github.com/nvr-ai/go-motion/common"
	"github.com/pkg/errors"
)

// Params configures a Model. The zero value is not usable; start from
// DefaultParams.
type Params struct {
	// MaxComponents is the number of Gaussians kept per pixel.
	MaxComponents int `json:"max_components" yaml:"max_components"`
	// MatchThreshold is the match distance in standard deviations.
	MatchThreshold float64 `json:"match_threshold" yaml:"match_threshold"`
	// BackgroundRatio is the cumulative weight the background components cover.
	BackgroundRatio float64 `json:"background_ratio" yaml:"background_ratio"`
	// VarianceInit is the variance given to a newly created component.
	VarianceInit float64 `json:"variance_init" yaml:"variance_init"`
	// VarianceMin and VarianceMax clamp every component variance.
	VarianceMin float64 `json:"variance_min" yaml:"variance_min"`
	VarianceMax float64 `json:"variance_max" yaml:"variance_max"`
	// History caps the automatic learning-rate schedule at 1/History.
	History int `json:"history" yaml:"history"`
	// LearningRate fixes alpha when > 0, disabling the automatic schedule.
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
	// DetectShadows enables shadow labelling.
	DetectShadows bool `json:"detect_shadows" yaml:"detect_shadows"`
	// ShadowThreshold is the lowest brightness ratio still treated as shadow.
	ShadowThreshold float64 `json:"shadow_threshold" yaml:"shadow_threshold"`
	// Workers splits rows across goroutines inside one Apply. 0 or 1 is serial.
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultParams returns the canonical MOG2 parameter set.
func DefaultParams() Params {
	return Params{
		MaxComponents:   5,
		MatchThreshold:  2.5,
		BackgroundRatio: 0.9,
		VarianceInit:    15,
		VarianceMin:     4,
		VarianceMax:     75,
		History:         1000,
		LearningRate:    0,
		DetectShadows:   true,
		ShadowThreshold: 0.5,
		Workers:         1,
	}
}

// Validate reports the first out-of-range parameter wrapped in
// common.ErrConfiguration.
func (p Params) Validate() error {
	switch {
	case p.MaxComponents < 1 || p.MaxComponents > 255:
		return errors.Wrapf(common.ErrConfiguration, "max_components %d outside [1, 255]", p.MaxComponents)
	case p.MatchThreshold <= 0:
		return errors.Wrapf(common.ErrConfiguration, "match_threshold %v must be positive", p.MatchThreshold)
	case p.BackgroundRatio <= 0 || p.BackgroundRatio > 1:
		return errors.Wrapf(common.ErrConfiguration, "background_ratio %v outside (0, 1]", p.BackgroundRatio)
	case p.VarianceMin <= 0:
		return errors.Wrapf(common.ErrConfiguration, "variance_min %v must be positive", p.VarianceMin)
	case p.VarianceMax < p.VarianceMin:
		return errors.Wrapf(common.ErrConfiguration, "variance_max %v below variance_min %v", p.VarianceMax, p.VarianceMin)
	case p.VarianceInit < p.VarianceMin || p.VarianceInit > p.VarianceMax:
		return errors.Wrapf(common.ErrConfiguration, "variance_init %v outside [%v, %v]", p.VarianceInit, p.VarianceMin, p.VarianceMax)
	case p.History < 1:
		return errors.Wrapf(common.ErrConfiguration, "history %d must be at least 1", p.History)
	case p.LearningRate < 0 || p.LearningRate > 1:
		return errors.Wrapf(common.ErrConfiguration, "learning_rate %v outside [0, 1]", p.LearningRate)
	case p.ShadowThreshold <= 0 || p.ShadowThreshold > 1:
		return errors.Wrapf(common.ErrConfiguration, "shadow_threshold %v outside (0, 1]", p.ShadowThreshold)
	case p.Workers < 0:
		return errors.Wrapf(common.ErrConfiguration, "workers %d must not be negative", p.Workers)
	}
	return nil
}

// ScheduledRate returns the automatic learning rate for the n-th observed
// frame (1-based): 1/min(n², history). The first frame gets 1.
func ScheduledRate(n, history int) float64 {
	if n < 1 {
		n = 1
	}
	// n >= history implies n² >= history.
	if n >= history {
		return 1 / float64(history)
	}
	return 1 / float64(min(n*n, history))
}
