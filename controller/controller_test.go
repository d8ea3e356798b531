package controller

import (
	"context"
	"image"
	"image/color"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/config"
	"github.com/nvr-ai/go-motion/images"
	"github.com/nvr-ai/go-motion/profiler"
	"github.com/nvr-ai/go-motion/source"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	gray  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.RGBA{R: 255, A: 255}
)

// recorder collects every Output shown.
type recorder struct {
	mu   sync.Mutex
	outs []Output
}

func (r *recorder) Show(out Output) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outs = append(r.outs, out)
}

func (r *recorder) all() []Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Output(nil), r.outs...)
}

// failing wraps a source and fails once at frame failAt.
type failing struct {
	Source
	failAt int
	err    error
	read   int
	fired  bool
}

func (f *failing) Next(ctx context.Context) (images.Frame, error) {
	if !f.fired && f.read == f.failAt {
		f.fired = true
		if f.err != nil {
			return images.Frame{}, f.err
		}
		return images.Frame{Index: f.read}, nil
	}
	f.read++
	return f.Source.Next(ctx)
}

func (f *failing) Rewind() error {
	f.read = 0
	return f.Source.Rewind()
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.FrameSkipFactor = 1
	cfg.ResizeFactor = 1
	cfg.LearningFrameCount = 25
	cfg.MinBlobArea = 300
	return cfg
}

// patchScene is a 160x120 gray scene with a static 20x20 white square from
// frame 30 on.
func patchScene(t *testing.T, frames int) *source.Synthetic {
	t.Helper()
	src, err := source.NewSynthetic(source.SyntheticOptions{
		Width: 160, Height: 120, Frames: frames, FPS: 25,
		Background: gray,
		Noise:      true,
		Patch:      image.Rect(60, 40, 80, 60),
		PatchColor: white,
		PatchFrom:  30,
	})
	require.NoError(t, err)
	return src
}

func newController(t *testing.T, cfg config.Config, src Source, opts ...Option) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	ctl, err := New(cfg, src, rec, append([]Option{WithPacer(NoPacer{})}, opts...)...)
	require.NoError(t, err)
	return ctl, rec
}

func runToEnd(t *testing.T, ctl *Controller) {
	t.Helper()
	require.NoError(t, ctl.Start(context.Background()))
	ctl.Wait()
	require.Equal(t, Completed, ctl.State(), ctl.Status())
}

func TestEndToEndPatchAfterLearning(t *testing.T) {
	ctl, rec := newController(t, testConfig(), patchScene(t, 100))
	runToEnd(t, ctl)

	outs := rec.all()
	require.Len(t, outs, 100)
	for i, out := range outs {
		assert.Equal(t, i, out.Index)
		assert.True(t, out.Detected)
		assert.Equal(t, ctl.RunID(), out.RunID)
		assert.Equal(t, i <= 25, out.Learning, "frame %d", i)

		if i < 30 {
			assert.Zero(t, out.Objects, "frame %d", i)
			continue
		}
		require.Len(t, out.Boxes, 1, "frame %d", i)
		box := out.Boxes[0]
		assert.InDelta(t, 60, box.X, 2, "frame %d", i)
		assert.InDelta(t, 40, box.Y, 2, "frame %d", i)
		assert.InDelta(t, 20, box.Width, 2, "frame %d", i)
		assert.InDelta(t, 20, box.Height, 2, "frame %d", i)
	}

	assert.Equal(t, "learning: 3/25", outs[3].Status)
	assert.Equal(t, 160, outs[3].Mask.Width, "learning frames carry their mask")
	assert.Equal(t, 120, outs[3].Mask.Height)
	assert.Zero(t, outs[25].Mask.Count(images.Foreground), "static scene is background by the end of learning")
	assert.Equal(t, "frame 50/100 - 1 objects", outs[50].Status)
	assert.InDelta(t, 0.01, outs[0].Progress, 1e-9)
	assert.InDelta(t, 1.0, outs[99].Progress, 1e-9)
	assert.InDelta(t, 400, outs[50].Mask.Count(images.Foreground), 40)
	assert.Equal(t, red, outs[50].Frame.RGBAAt(outs[50].Boxes[0].X, outs[50].Boxes[0].Y+5))
	assert.Equal(t, white, outs[50].Original.RGBAAt(65, 45), "source frame is not drawn on")
	assert.InDelta(t, 400.0/(160*120), outs[50].Activity.Coverage, 0.005)

	assert.Equal(t, "completed: 100 frames", ctl.Status())
	assert.Equal(t, Stats{
		FramesRead:      100,
		FramesDetected:  100,
		ObjectsDetected: 70,
		LastIndex:       99,
		ModelFrames:     100,
	}, ctl.Stats())
}

func TestEndToEndResized(t *testing.T) {
	tests := []struct {
		name   string
		factor float64
		skip   int
		tol    float64
	}{
		{"half", 0.5, 1, 4},
		{"default factor", 0.7, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.ResizeFactor = tt.factor
			cfg.FrameSkipFactor = tt.skip
			ctl, rec := newController(t, cfg, patchScene(t, 80))
			runToEnd(t, ctl)

			outs := rec.all()
			require.Len(t, outs, 80)
			for _, out := range outs[:30] {
				assert.Zero(t, out.Objects, "frame %d", out.Index)
			}
			for _, out := range outs[30:] {
				if !out.Detected {
					continue
				}
				require.Len(t, out.Boxes, 1, "frame %d", out.Index)
				box := out.Boxes[0]
				assert.InDelta(t, 60, box.X, tt.tol, "frame %d", out.Index)
				assert.InDelta(t, 40, box.Y, tt.tol, "frame %d", out.Index)
				assert.InDelta(t, 20, box.Width, tt.tol, "frame %d", out.Index)
				assert.InDelta(t, 20, box.Height, tt.tol, "frame %d", out.Index)
				assert.Equal(t, 160, out.Mask.Width, "mask is upscaled to source size")
			}
		})
	}
}

func TestStaticSceneNeverDetects(t *testing.T) {
	src, err := source.NewSynthetic(source.SyntheticOptions{
		Width: 64, Height: 48, Frames: 60, Background: gray, Noise: true,
	})
	require.NoError(t, err)
	cfg := testConfig()
	cfg.LearningFrameCount = 5
	ctl, rec := newController(t, cfg, src)
	runToEnd(t, ctl)

	for _, out := range rec.all() {
		assert.Zero(t, out.Objects, "frame %d", out.Index)
	}
	assert.Equal(t, "completed: 60 frames", ctl.Status())
	outs := rec.all()
	require.Len(t, outs, 60)
	assert.Equal(t, "frame 59/60 - 0 objects", outs[59].Status)
}

func TestFrameSkip(t *testing.T) {
	tests := []struct {
		name        string
		skip        int
		policy      config.SkipPolicy
		detected    int
		modelFrames int
	}{
		{"every frame", 1, config.SkipApply, 100, 100},
		{"apply", 3, config.SkipApply, 34, 100},
		{"drop", 3, config.SkipDrop, 34, 34},
		{"apply k=7", 7, config.SkipApply, 15, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.FrameSkipFactor = tt.skip
			cfg.SkipPolicy = tt.policy
			ctl, rec := newController(t, cfg, patchScene(t, 100))
			runToEnd(t, ctl)

			outs := rec.all()
			require.Len(t, outs, 100)
			detected := 0
			for _, out := range outs {
				if out.Index%tt.skip != 0 {
					assert.False(t, out.Detected)
					assert.Same(t, out.Original, out.Frame, "skipped frame %d is passed through", out.Index)
					assert.Empty(t, out.Boxes)
					continue
				}
				detected++
				assert.True(t, out.Detected)
				if out.Index >= 30 {
					assert.Len(t, out.Boxes, 1, "frame %d", out.Index)
				}
			}
			assert.Equal(t, tt.detected, detected)

			stats := ctl.Stats()
			assert.Equal(t, tt.detected, stats.FramesDetected)
			assert.Equal(t, 100-tt.detected, stats.FramesSkipped)
			assert.Equal(t, tt.modelFrames, stats.ModelFrames)
		})
	}
}

func TestStartAfterCompletedRestarts(t *testing.T) {
	ctl, rec := newController(t, testConfig(), patchScene(t, 40))
	runToEnd(t, ctl)
	firstRun, firstStats := ctl.RunID(), ctl.Stats()
	assert.ErrorIs(t, ctl.Stop(), ErrInvalidTransition)

	runToEnd(t, ctl)
	assert.NotEqual(t, firstRun, ctl.RunID())
	assert.Equal(t, firstStats, ctl.Stats(), "the source is rewound and the model rebuilt")

	outs := rec.all()
	require.Len(t, outs, 80)
	second := outs[40:]
	for i, out := range second {
		assert.Equal(t, i, out.Index)
		assert.Equal(t, ctl.RunID(), out.RunID)
	}
	assert.True(t, second[0].Learning)
	assert.Equal(t, outs[39].Boxes, second[39].Boxes)
	assert.Equal(t, "completed: 40 frames", ctl.Status())
}

func TestResetDiscardsRun(t *testing.T) {
	ctl, rec := newController(t, testConfig(), patchScene(t, 40))
	runToEnd(t, ctl)
	firstRun := ctl.RunID()
	require.NotEmpty(t, firstRun)

	require.NoError(t, ctl.Reset())
	assert.Equal(t, Idle, ctl.State())
	assert.Equal(t, Stats{}, ctl.Stats())
	assert.Empty(t, ctl.RunID())
	assert.Equal(t, "idle", ctl.Status())
	_, ok := ctl.Background()
	assert.False(t, ok, "model is empty after reset")

	runToEnd(t, ctl)
	assert.NotEqual(t, firstRun, ctl.RunID())
	assert.Equal(t, 40, ctl.Stats().ModelFrames)

	outs := rec.all()
	require.Len(t, outs, 80)
	second := outs[40:]
	assert.Equal(t, 0, second[0].Index)
	assert.True(t, second[0].Learning)
	assert.Equal(t, ctl.RunID(), second[0].RunID)
}

func TestResetIsValidInEveryState(t *testing.T) {
	ctl, _ := newController(t, testConfig(), patchScene(t, 10))
	require.NoError(t, ctl.Reset())
	assert.Equal(t, Idle, ctl.State())
}

func TestSourceFailureCompletes(t *testing.T) {
	src := &failing{
		Source: patchScene(t, 100),
		failAt: 40,
		err:    errors.Wrap(common.ErrSourceUnavailable, "device lost"),
	}
	ctl, rec := newController(t, testConfig(), src)
	runToEnd(t, ctl)

	assert.Len(t, rec.all(), 40)
	assert.Contains(t, ctl.Status(), "source error")
	assert.Contains(t, ctl.Status(), "device lost")

	require.NoError(t, ctl.Reset())
	runToEnd(t, ctl)
	assert.Equal(t, "completed: 100 frames", ctl.Status())
}

func TestInvalidFrameCompletes(t *testing.T) {
	src := &failing{Source: patchScene(t, 100), failAt: 5}
	ctl, rec := newController(t, testConfig(), src)
	runToEnd(t, ctl)

	assert.Len(t, rec.all(), 5)
	assert.Contains(t, ctl.Status(), "invalid frame 5")
}

func TestStopAndResume(t *testing.T) {
	cfg := testConfig()
	cfg.TargetFrameRate = 2
	rec := &recorder{}
	ctl, err := New(cfg, patchScene(t, 1000), rec)
	require.NoError(t, err)

	require.NoError(t, ctl.Start(context.Background()))
	require.Eventually(t, func() bool { return ctl.Stats().FramesRead >= 1 }, time.Second, 5*time.Millisecond)
	runID := ctl.RunID()

	start := time.Now()
	require.NoError(t, ctl.Stop())
	assert.Less(t, time.Since(start), 300*time.Millisecond, "stop interrupts the pacing wait")
	assert.Equal(t, Stopped, ctl.State())
	assert.Equal(t, "stopped at frame 0", ctl.Status())
	assert.ErrorIs(t, ctl.Stop(), ErrInvalidTransition)

	bg, ok := ctl.Background()
	require.True(t, ok)
	assert.Equal(t, 160, bg.Bounds().Dx())

	require.NoError(t, ctl.Start(context.Background()))
	assert.Equal(t, runID, ctl.RunID(), "resume keeps the run")
	require.Eventually(t, func() bool { return ctl.Stats().FramesRead >= 2 }, 2*time.Second, 5*time.Millisecond)

	start = time.Now()
	require.NoError(t, ctl.Reset())
	assert.Less(t, time.Since(start), 300*time.Millisecond)
	assert.Equal(t, Idle, ctl.State())

	outs := rec.all()
	require.GreaterOrEqual(t, len(outs), 2)
	assert.Equal(t, 1, outs[1].Index, "resumed at the next frame")
}

func TestStartRejectedWhileRunning(t *testing.T) {
	cfg := testConfig()
	cfg.TargetFrameRate = 2
	ctl, err := New(cfg, patchScene(t, 1000), nil)
	require.NoError(t, err)

	require.NoError(t, ctl.Start(context.Background()))
	assert.ErrorIs(t, ctl.Start(context.Background()), ErrInvalidTransition)
	assert.ErrorIs(t, ctl.Configure(cfg), ErrInvalidTransition)
	require.NoError(t, ctl.Stop())
}

func TestContextCancelStops(t *testing.T) {
	cfg := testConfig()
	cfg.TargetFrameRate = 2
	ctl, err := New(cfg, patchScene(t, 1000), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, ctl.Start(ctx))
	cancel()
	ctl.Wait()
	assert.Equal(t, Stopped, ctl.State())

	require.NoError(t, ctl.Start(context.Background()))
	require.NoError(t, ctl.Reset())
}

func TestConfigure(t *testing.T) {
	ctl, rec := newController(t, testConfig(), patchScene(t, 50))

	bad := testConfig()
	bad.ResizeFactor = 0
	assert.ErrorIs(t, ctl.Configure(bad), common.ErrConfiguration)

	cfg := testConfig()
	cfg.FrameSkipFactor = 5
	require.NoError(t, ctl.Configure(cfg))
	assert.Equal(t, 5, ctl.Config().FrameSkipFactor)

	runToEnd(t, ctl)
	assert.Equal(t, 10, ctl.Stats().FramesDetected)
	assert.Len(t, rec.all(), 50)
}

func TestAnnotate(t *testing.T) {
	cfg := testConfig()
	cfg.Annotate = true
	ctl, rec := newController(t, cfg, patchScene(t, 3))
	runToEnd(t, ctl)

	out := rec.all()[1]
	assert.Equal(t, color.RGBA{A: 255}, out.Frame.RGBAAt(0, 0), "label strip")
	assert.NotEqual(t, out.Frame.RGBAAt(0, 0), out.Original.RGBAAt(0, 0))
}

func TestNewValidates(t *testing.T) {
	bad := testConfig()
	bad.FrameSkipFactor = 0
	_, err := New(bad, patchScene(t, 1), nil)
	assert.ErrorIs(t, err, common.ErrConfiguration)

	_, err = New(testConfig(), nil, nil)
	assert.ErrorIs(t, err, common.ErrSourceUnavailable)
}

func TestUnknownFrameCount(t *testing.T) {
	src := &endless{Source: patchScene(t, 0), limit: 40}
	ctl, rec := newController(t, testConfig(), src)
	runToEnd(t, ctl)

	outs := rec.all()
	require.Len(t, outs, 40)
	assert.Zero(t, outs[39].Progress)
	assert.Equal(t, "frame 39 - 1 objects", outs[39].Status)
}

// endless reports an unknown length but ends after limit frames.
type endless struct {
	Source
	limit int
	read  int
}

func (e *endless) Next(ctx context.Context) (images.Frame, error) {
	if e.read >= e.limit {
		return images.Frame{}, io.EOF
	}
	e.read++
	return e.Source.Next(ctx)
}

func TestProfilerCollectsMetrics(t *testing.T) {
	prof := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{})
	ctl, _ := newController(t, testConfig(), patchScene(t, 40), WithProfiler(prof))
	runToEnd(t, ctl)

	stats := prof.Stats()
	apply, ok := stats.Operation("apply")
	require.True(t, ok)
	assert.Equal(t, int64(40), apply.Count)
	extract, ok := stats.Operation("extract")
	require.True(t, ok)
	assert.Equal(t, int64(14), extract.Count)

	metrics := ctl.CollectMetrics()
	assert.Equal(t, 40.0, metrics["frames_read"])
	assert.Equal(t, 10.0, metrics["objects_detected"])
}

func TestDisplayFunc(t *testing.T) {
	var n atomic.Int32
	ctl, err := New(testConfig(), patchScene(t, 5), DisplayFunc(func(Output) { n.Add(1) }), WithPacer(NoPacer{}))
	require.NoError(t, err)
	runToEnd(t, ctl)
	assert.Equal(t, int32(5), n.Load())
}
