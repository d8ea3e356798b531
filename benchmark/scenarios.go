package benchmark

import (
	"fmt"
	"runtime"

	"github.com/nvr-ai/go-motion/config"
	"github.com/nvr-ai/go-motion/images"
)

// Scenario is one pipeline configuration run over a generated scene.
type Scenario struct {
	Name       string            `json:"name"`
	Resolution images.Resolution `json:"resolution"`
	Frames     int               `json:"frames"`
	Config     config.Config     `json:"config"`
}

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder starts from a VGA scene of 100 frames processed at full
// rate with the default configuration.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	cfg := config.DefaultConfig()
	cfg.FrameSkipFactor = 1
	res, _ := images.ResolutionOf(640, 480)
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Resolution: res,
			Frames:     100,
			Config:     cfg,
		},
	}
}

// WithResolution sets the frame size.
func (sb *ScenarioBuilder) WithResolution(width, height int) *ScenarioBuilder {
	sb.scenario.Resolution, _ = images.ResolutionOf(width, height)
	return sb
}

// WithFrames sets the number of frames.
func (sb *ScenarioBuilder) WithFrames(frames int) *ScenarioBuilder {
	sb.scenario.Frames = frames
	return sb
}

// WithResizeFactor sets the working-resolution factor.
func (sb *ScenarioBuilder) WithResizeFactor(f float64) *ScenarioBuilder {
	sb.scenario.Config.ResizeFactor = f
	return sb
}

// WithBlurRadius enables the pre-model blur.
func (sb *ScenarioBuilder) WithBlurRadius(r int) *ScenarioBuilder {
	sb.scenario.Config.BlurRadius = r
	return sb
}

// WithWorkers sets the background model's row parallelism.
func (sb *ScenarioBuilder) WithWorkers(n int) *ScenarioBuilder {
	sb.scenario.Config.Model.Workers = n
	return sb
}

// WithFrameSkip sets the skip factor.
func (sb *ScenarioBuilder) WithFrameSkip(k int) *ScenarioBuilder {
	sb.scenario.Config.FrameSkipFactor = k
	return sb
}

// WithConfig replaces the whole pipeline configuration.
func (sb *ScenarioBuilder) WithConfig(cfg config.Config) *ScenarioBuilder {
	sb.scenario.Config = cfg
	return sb
}

// Build returns the configured test scenario
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ScenarioSet represents a collection of related test scenarios
type ScenarioSet struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Scenarios   []Scenario `json:"scenarios"`
}

// QuickScenarios compares full and half working resolution at VGA and 720p.
func QuickScenarios() *ScenarioSet {
	var scenarios []Scenario
	for _, size := range [][2]int{{640, 480}, {1280, 720}} {
		for _, f := range []float64{1, 0.5} {
			scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("quick_%dx%d_resize%.1f", size[0], size[1], f)).
				WithResolution(size[0], size[1]).
				WithResizeFactor(f).
				WithFrames(50).
				Build())
		}
	}
	return &ScenarioSet{
		Name:        "Quick Performance Test",
		Description: "VGA and 720p at full and half working resolution",
		Scenarios:   scenarios,
	}
}

// ResolutionScenarios runs base at every standard resolution up to maxPixels.
func ResolutionScenarios(base config.Config, maxPixels int) *ScenarioSet {
	var scenarios []Scenario
	for _, res := range images.Resolutions() {
		if res.Width*res.Height > maxPixels {
			continue
		}
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("resolution_%dx%d", res.Width, res.Height)).
			WithConfig(base).
			WithResolution(res.Width, res.Height).
			Build())
	}
	return &ScenarioSet{
		Name:        "Resolution Comparison",
		Description: "Same configuration across standard camera resolutions",
		Scenarios:   scenarios,
	}
}

// WorkerScenarios compares background-model worker counts at one size.
func WorkerScenarios(width, height int) *ScenarioSet {
	counts := []int{1, 2, 4}
	if n := runtime.NumCPU(); n > 4 {
		counts = append(counts, n)
	}
	var scenarios []Scenario
	for _, n := range counts {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("workers_%d_%dx%d", n, width, height)).
			WithResolution(width, height).
			WithWorkers(n).
			Build())
	}
	return &ScenarioSet{
		Name:        "Worker Comparison",
		Description: fmt.Sprintf("Background model parallelism at %dx%d", width, height),
		Scenarios:   scenarios,
	}
}
