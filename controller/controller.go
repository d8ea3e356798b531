// Package controller - Run lifecycle for the motion pipeline: pulls frames from
// a Source, feeds the detector, renders boxes and hands the result to a
// Display at a paced rate.
package controller

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/config"
	"github.com/nvr-ai/go-motion/images"
	"github.com/nvr-ai/go-motion/profiler"
	"github.com/pkg/errors"
)

var labelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Stats counts what the current run has processed since the last reset.
type Stats struct {
	FramesRead      int `json:"frames_read"`
	FramesDetected  int `json:"frames_detected"`
	FramesSkipped   int `json:"frames_skipped"`
	ObjectsDetected int `json:"objects_detected"`
	LastIndex       int `json:"last_index"`
	ModelFrames     int `json:"model_frames"`
}

// Controller owns one Source, one MotionDetector and the run state machine.
// Control methods are safe for concurrent use. Display.Show runs on the
// processing goroutine and must not call control methods.
type Controller struct {
	// ctl serialises control calls, including waiting for the loop to exit.
	ctl sync.Mutex
	// mu guards everything below that the loop reads or writes.
	mu sync.Mutex

	cfg      config.Config
	src      Source
	display  Display
	detector *MotionDetector

	logger *slog.Logger
	pacer  Pacer
	prof   *profiler.RuntimeProfiler

	state  RunState
	status string
	stats  Stats
	runID  string

	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the logger; slog.Default() otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPacer replaces the wall-clock pacer, e.g. with a no-op in tests.
func WithPacer(p Pacer) Option {
	return func(c *Controller) {
		if p != nil {
			c.pacer = p
		}
	}
}

// WithProfiler records stage timings and per-frame metrics.
func WithProfiler(prof *profiler.RuntimeProfiler) Option {
	return func(c *Controller) {
		c.prof = prof
	}
}

// New creates an idle controller.
//
// Arguments:
//   - cfg: The pipeline configuration; validated here.
//   - src: The frame source. The controller rewinds it but does not close it.
//   - display: Receives every frame read; nil discards output.
//   - opts: Logger, pacer and profiler overrides.
//
// Returns:
//   - *Controller: The controller in state Idle.
//   - error: common.ErrConfiguration for an invalid cfg,
//     common.ErrSourceUnavailable for a nil src.
//
// @example
// ctl, err := controller.New(cfg, src, display, controller.WithLogger(logger))
// if err != nil {
//     return err
// }
// if err := ctl.Start(ctx); err != nil {
//     return err
// }
// ctl.Wait()
func New(cfg config.Config, src Source, display Display, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.Wrap(common.ErrSourceUnavailable, "no frame source")
	}
	if display == nil {
		display = discard{}
	}

	c := &Controller{
		cfg:     cfg,
		src:     src,
		display: display,
		logger:  slog.Default(),
		pacer:   SlicedPacer{},
		state:   Idle,
		status:  Idle.String(),
	}
	for _, opt := range opts {
		opt(c)
	}

	det, err := NewMotionDetector(cfg, c.prof)
	if err != nil {
		return nil, err
	}
	c.detector = det
	c.prof.AddMetricsCollector(c)
	return c, nil
}

// Start begins a new run from Idle, resumes a Stopped one, or restarts a
// Completed one from the first frame with a fresh model. The run ends when
// the source is exhausted or fails (Completed), on Stop or Reset, or when ctx
// is cancelled (Stopped).
func (c *Controller) Start(ctx context.Context) error {
	c.ctl.Lock()
	defer c.ctl.Unlock()

	c.mu.Lock()
	prev := c.state
	next, err := Transition(prev, SignalStart)
	done := c.done
	c.mu.Unlock()
	if err != nil {
		return err
	}
	// The previous loop may still be unwinding after Completed or Stopped.
	if done != nil {
		<-done
	}
	if prev == Completed {
		if err := c.rewind(); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev != Stopped {
		c.runID = uuid.NewString()
	}

	if c.cancel != nil {
		c.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.gen++
	c.state = next
	c.cancel = cancel
	c.done = make(chan struct{})

	c.logger.Info("run started",
		"run_id", c.runID,
		"resumed", prev == Stopped,
		"restarted", prev == Completed,
		"frame", c.stats.LastIndex,
	)
	go c.run(runCtx, c.gen, c.done)
	return nil
}

// rewind discards the model and statistics and rewinds the source. The loop
// must not be running.
func (c *Controller) rewind() error {
	c.detector.Reset()
	if err := c.src.Rewind(); err != nil {
		c.mu.Lock()
		c.status = fmt.Sprintf("source error: %v", err)
		c.mu.Unlock()
		return errors.Wrap(err, "rewind")
	}
	c.mu.Lock()
	c.stats = Stats{}
	c.mu.Unlock()
	return nil
}

// Stop pauses a running run and returns once the loop has exited. The model
// and the source position are kept so Start resumes where it left off.
func (c *Controller) Stop() error {
	c.ctl.Lock()
	defer c.ctl.Unlock()

	c.mu.Lock()
	next, err := Transition(c.state, SignalStop)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = next
	c.status = fmt.Sprintf("stopped at frame %d", c.stats.LastIndex)
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
	c.logger.Info("run stopped", "run_id", c.RunID(), "frame", c.Stats().LastIndex)
	return nil
}

// Reset ends any run, discards the background model, rewinds the source and
// clears the statistics. It is valid in every state.
func (c *Controller) Reset() error {
	c.ctl.Lock()
	defer c.ctl.Unlock()

	c.mu.Lock()
	next, _ := Transition(c.state, SignalReset)
	c.state = next
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	rewindErr := c.rewind()

	c.mu.Lock()
	prevRun := c.runID
	c.runID = ""
	c.stats = Stats{}
	if rewindErr == nil {
		c.status = Idle.String()
	}
	c.mu.Unlock()

	if rewindErr != nil {
		c.logger.Error("rewind failed", "run_id", prevRun, "error", rewindErr)
		return errors.Wrap(rewindErr, "reset")
	}
	c.logger.Info("run reset", "run_id", prevRun)
	return nil
}

// Configure replaces the configuration and rebuilds the detector. Only
// allowed while Idle; call Reset first to reconfigure a run.
func (c *Controller) Configure(cfg config.Config) error {
	c.ctl.Lock()
	defer c.ctl.Unlock()

	if err := cfg.Validate(); err != nil {
		return err
	}
	det, err := NewMotionDetector(cfg, c.prof)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return errors.Wrapf(ErrInvalidTransition, "configure in state %s", c.state)
	}
	c.cfg = cfg
	c.detector = det
	c.logger.Info("configuration applied",
		"resize_factor", cfg.ResizeFactor,
		"frame_skip_factor", cfg.FrameSkipFactor,
		"learning_frame_count", cfg.LearningFrameCount,
		"min_blob_area", cfg.MinBlobArea,
	)
	return nil
}

// Wait blocks until the current loop goroutine, if any, has exited.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State returns the current run state.
func (c *Controller) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the latest human-readable status line.
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Stats returns a snapshot of the run counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// RunID returns the id of the current run, or "" while Idle.
func (c *Controller) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// Config returns the active configuration.
func (c *Controller) Config() config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Background renders the model's background estimate at working resolution.
// It reports false while Running or before any frame was observed.
func (c *Controller) Background() (*image.RGBA, bool) {
	c.ctl.Lock()
	defer c.ctl.Unlock()

	c.mu.Lock()
	state, done := c.state, c.done
	c.mu.Unlock()
	if state == Running {
		return nil, false
	}
	if done != nil {
		<-done
	}
	bg := c.detector.Background()
	return bg, bg != nil
}

// CollectMetrics implements profiler.MetricsCollector.
func (c *Controller) CollectMetrics() map[string]float64 {
	s := c.Stats()
	return map[string]float64{
		"frames_read":      float64(s.FramesRead),
		"frames_detected":  float64(s.FramesDetected),
		"frames_skipped":   float64(s.FramesSkipped),
		"objects_detected": float64(s.ObjectsDetected),
		"model_frames":     float64(s.ModelFrames),
	}
}

func (c *Controller) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	c.mu.Lock()
	r := runParams{cfg: c.cfg, det: c.detector, runID: c.runID, total: c.src.FrameCount()}
	c.mu.Unlock()
	// Validated in New and Configure.
	r.boxColor, _ = r.cfg.Color()

	logger := c.logger.With("run_id", r.runID)
	interval := FrameInterval(r.cfg.TargetFrameRate, c.src.FrameRate(), r.cfg.FrameSkipFactor)
	logger.Debug("loop started", "frames", r.total, "interval", interval)

	for {
		if ctx.Err() != nil {
			c.interrupted(gen)
			return
		}
		start := time.Now()

		frame, err := c.src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				n := c.Stats().FramesRead
				c.finish(gen, fmt.Sprintf("completed: %d frames", n))
				logger.Info("run completed", "frames", n)
			case ctx.Err() != nil:
				c.interrupted(gen)
			default:
				c.finish(gen, fmt.Sprintf("source error: %v", err))
				logger.Error("source failed", "error", err)
			}
			return
		}

		out, err := c.process(frame, r)
		if err != nil {
			c.finish(gen, fmt.Sprintf("invalid frame %d: %v", frame.Index, err))
			logger.Error("frame rejected", "frame", frame.Index, "error", err)
			return
		}
		c.display.Show(out)

		if err := c.pacer.Wait(ctx, interval-time.Since(start)); err != nil {
			c.interrupted(gen)
			return
		}
	}
}

// runParams is the per-run snapshot the loop works from.
type runParams struct {
	cfg      config.Config
	det      *MotionDetector
	runID    string
	total    int
	boxColor color.RGBA
}

// process runs one frame through the skip gate, the learning period and
// detection, and builds its Output.
func (c *Controller) process(frame images.Frame, r runParams) (Output, error) {
	if err := frame.Validate(); err != nil {
		return Output{}, err
	}
	cfg, det, total := r.cfg, r.det, r.total

	out := Output{
		RunID:    r.runID,
		Index:    frame.Index,
		Original: frame.Image,
		Learning: frame.Index <= cfg.LearningFrameCount,
		Progress: progress(frame.Index, total),
	}

	if frame.Index%cfg.FrameSkipFactor != 0 {
		if cfg.SkipPolicy == config.SkipApply {
			if _, err := det.Learn(frame); err != nil {
				return Output{}, err
			}
		}
		out.Frame = frame.Image
		c.update(frame.Index, det, func(s *Stats) { s.FramesSkipped++ })
		out.Status = c.Status()
		return out, nil
	}

	out.Detected = true
	rendered := frame.Clone()

	if out.Learning {
		mask, err := det.Learn(frame)
		if err != nil {
			return Output{}, err
		}
		out.Mask = images.UpscaleMask(mask, frame.Width(), frame.Height())
		out.Status = fmt.Sprintf("learning: %d/%d", frame.Index, cfg.LearningFrameCount)
	} else {
		d, err := det.Detect(frame)
		if err != nil {
			return Output{}, err
		}
		out.Boxes = d.Boxes
		out.Objects = len(d.Boxes)
		out.Mask = images.UpscaleMask(d.Mask, frame.Width(), frame.Height())
		out.Activity = MeasureActivity(d.Boxes, frame.Width(), frame.Height())
		out.Status = frameStatus(frame.Index, total, out.Objects)

		images.DrawBoxes(rendered, d.Boxes, r.boxColor, cfg.BoxThickness)
		c.prof.RecordMetric("objects", float64(out.Objects))
		c.prof.RecordMetric("coverage", out.Activity.Coverage)
	}

	if cfg.Annotate {
		images.DrawLabel(rendered, out.Status, labelColor)
	}
	out.Frame = rendered

	c.update(frame.Index, det, func(s *Stats) {
		s.FramesDetected++
		s.ObjectsDetected += out.Objects
	})
	c.mu.Lock()
	c.status = out.Status
	c.mu.Unlock()
	return out, nil
}

func (c *Controller) update(index int, det *MotionDetector, fn func(*Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.FramesRead++
	c.stats.LastIndex = index
	c.stats.ModelFrames = det.FramesObserved()
	fn(&c.stats)
}

// finish moves a running loop to Completed. A loop that was already stopped
// or reset, or that belongs to an older generation, leaves the state alone.
func (c *Controller) finish(gen uint64, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state != Running {
		return
	}
	c.state, _ = Transition(c.state, SignalFinish)
	c.status = status
}

// interrupted handles cancellation of the caller's context while Running.
func (c *Controller) interrupted(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state != Running {
		return
	}
	c.state, _ = Transition(c.state, SignalStop)
	c.status = fmt.Sprintf("stopped at frame %d", c.stats.LastIndex)
}

func progress(index, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(index+1) / float64(total)
	return min(max(p, 0), 1)
}

func frameStatus(index, total, objects int) string {
	if total > 0 {
		return fmt.Sprintf("frame %d/%d - %d objects", index, total, objects)
	}
	return fmt.Sprintf("frame %d - %d objects", index, objects)
}
