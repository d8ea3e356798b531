package controller

import (
	"image"

	"github.com/nvr-ai/go-motion/background"
	"github.com/nvr-ai/go-motion/blob"
	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/config"
	"github.com/nvr-ai/go-motion/images"
	"github.com/nvr-ai/go-motion/images/kernels"
	"github.com/nvr-ai/go-motion/profiler"
)

// MotionDetector runs the per-frame pipeline: downscale, optional blur,
// background model, optional mask opening, blob extraction and box rescaling.
// It owns the background model and is not safe for concurrent use.
type MotionDetector struct {
	cfg     config.Config
	model   *background.Model
	pool    *kernels.Pool
	prof    *profiler.RuntimeProfiler
	minArea float64
}

// Detection is the result of one detected frame.
type Detection struct {
	// Mask is the classification at working resolution.
	Mask images.Mask
	// Boxes are at source resolution.
	Boxes []common.BoundingBox
}

// NewMotionDetector creates a detector with an empty background model.
//
// Arguments:
//   - cfg: A validated configuration.
//   - prof: Optional profiler for stage timings; may be nil.
//
// Returns:
//   - *MotionDetector: The detector.
//   - error: common.ErrConfiguration if the model parameters are invalid.
//
// @example
// md, err := NewMotionDetector(config.DefaultConfig(), nil)
// if err != nil {
//     return err
// }
// det, err := md.Detect(frame)
func NewMotionDetector(cfg config.Config, prof *profiler.RuntimeProfiler) (*MotionDetector, error) {
	model, err := background.New(cfg.Model)
	if err != nil {
		return nil, err
	}
	return &MotionDetector{
		cfg:     cfg,
		model:   model,
		pool:    &kernels.Pool{},
		prof:    prof,
		minArea: images.ScaleMinArea(cfg.MinBlobArea, cfg.ResizeFactor),
	}, nil
}

// Learn feeds frame to the background model without extracting objects and
// returns the working-resolution mask.
func (md *MotionDetector) Learn(frame images.Frame) (images.Mask, error) {
	return md.classify(frame)
}

// Detect feeds frame to the background model and extracts objects from the
// resulting mask.
//
// Returns:
//   - Detection: The working-resolution mask and source-resolution boxes.
//   - error: common.ErrInvalidFrame for empty or mismatched frames.
func (md *MotionDetector) Detect(frame images.Frame) (Detection, error) {
	mask, err := md.classify(frame)
	if err != nil {
		return Detection{}, err
	}

	if md.cfg.MaskOpenRadius > 0 {
		done := md.prof.StartOperation("open")
		mask = blob.Open(mask, md.cfg.MaskOpenRadius)
		done()
	}

	done := md.prof.StartOperation("extract")
	found := blob.Extract(mask, md.minArea)
	done()

	boxes := make([]common.BoundingBox, len(found))
	for i, b := range found {
		boxes[i] = images.RescaleBox(b, md.cfg.ResizeFactor)
	}
	return Detection{Mask: mask, Boxes: boxes}, nil
}

func (md *MotionDetector) classify(frame images.Frame) (images.Mask, error) {
	done := md.prof.StartOperation("downscale")
	small, err := images.Downscale(frame, md.cfg.ResizeFactor)
	done()
	if err != nil {
		return images.Mask{}, err
	}

	img := small.Image
	if md.cfg.BlurRadius > 0 {
		done := md.prof.StartOperation("blur")
		img = kernels.BoxBlur(img, kernels.Options{
			Radius:   md.cfg.BlurRadius,
			Edge:     kernels.EdgeMirror,
			Pool:     md.pool,
			Parallel: md.cfg.Model.Workers != 1,
		})
		done()
	}

	done = md.prof.StartOperation("apply")
	mask, err := md.model.Apply(img)
	done()
	return mask, err
}

// FramesObserved returns how many frames the model has seen since reset.
func (md *MotionDetector) FramesObserved() int {
	return md.model.FrameIndex()
}

// Background renders the current background estimate at working
// resolution, or nil before the first frame.
func (md *MotionDetector) Background() *image.RGBA {
	return md.model.BackgroundImage()
}

// Reset discards the background model.
func (md *MotionDetector) Reset() {
	md.model.Reset()
}
