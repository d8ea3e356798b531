package display

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/nvr-ai/go-motion/controller"
	"github.com/nvr-ai/go-motion/images"
	"github.com/pkg/errors"
)

// Directory writes rendered frames, and optionally their masks, as numbered
// image files. It is a preview sink; write errors are logged and counted.
type Directory struct {
	dir          string
	format       images.ImageFormat
	masks        bool
	detectedOnly bool
	logger       *slog.Logger

	mu      sync.Mutex
	written int
	failed  int
}

// DirectoryOptions configures a Directory display.
type DirectoryOptions struct {
	// Format defaults to JPEG.
	Format images.ImageFormat
	// Masks also writes mask-NNNNNN files for detected frames.
	Masks bool
	// DetectedOnly skips frames that did not pass the skip gate.
	DetectedOnly bool
	Logger       *slog.Logger
}

// NewDirectory creates dir if needed.
//
// Arguments:
//   - dir: The output directory.
//   - opts: Format and mask options.
//
// Returns:
//   - *Directory: The display.
//   - error: Error if dir cannot be created or the format is unknown.
func NewDirectory(dir string, opts DirectoryOptions) (*Directory, error) {
	format := opts.Format
	if format == "" {
		format = images.FormatJPEG
	}
	if _, ok := images.FormatFromPath(format.Extension()); !ok {
		return nil, fmt.Errorf("unsupported image format: %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", dir)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		dir:          dir,
		format:       format,
		masks:        opts.Masks,
		detectedOnly: opts.DetectedOnly,
		logger:       logger,
	}, nil
}

// Show implements controller.Display.
func (d *Directory) Show(out controller.Output) {
	if out.Frame == nil || (d.detectedOnly && !out.Detected) {
		return
	}
	err := d.write(fmt.Sprintf("frame-%06d", out.Index), out.Frame)
	if err == nil && d.masks && !out.Mask.Empty() {
		err = d.write(fmt.Sprintf("mask-%06d", out.Index), out.Mask.ToGray())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.failed++
		d.logger.Warn("preview write failed", "run_id", out.RunID, "frame", out.Index, "error", err)
		return
	}
	d.written++
}

// Save writes img as name in the configured format, e.g. the final
// background estimate.
func (d *Directory) Save(name string, img image.Image) error {
	return d.write(name, img)
}

func (d *Directory) write(name string, img image.Image) error {
	path := filepath.Join(d.dir, name+d.format.Extension())
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := images.Encode(f, img, d.format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Written returns how many frames were written successfully.
func (d *Directory) Written() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}

// Failed returns how many writes failed.
func (d *Directory) Failed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failed
}
