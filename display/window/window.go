// Package window - OpenCV preview windows with keyboard controls.
package window

import (
	"context"
	"image"
	"log/slog"

	"github.com/nvr-ai/go-motion/display"
	"gocv.io/x/gocv"
)

const keyEsc = 27

// Controls is the subset of the controller the keyboard drives.
type Controls interface {
	Start(ctx context.Context) error
	Stop() error
	Reset() error
}

// Window pulls the latest Output from a mailbox and shows its panes: the
// source frame, the rendered frame and the foreground mask. OpenCV's
// HighGUI must be driven from the main goroutine, so Run blocks there.
type Window struct {
	mailbox  *display.Mailbox
	controls Controls
	logger   *slog.Logger
}

// New creates a window driver.
//
// Arguments:
//   - mailbox: The controller's display.
//   - controls: Receives s (start), x (stop) and r (reset) key presses.
//   - logger: Logs rejected control signals; nil uses slog.Default().
func New(mailbox *display.Mailbox, controls Controls, logger *slog.Logger) *Window {
	if logger == nil {
		logger = slog.Default()
	}
	return &Window{mailbox: mailbox, controls: controls, logger: logger}
}

// Run shows frames until q or Esc is pressed or ctx is done. Start signals
// from the keyboard use ctx as the run context.
func (w *Window) Run(ctx context.Context) error {
	windows := map[string]*gocv.Window{}
	defer func() {
		for _, win := range windows {
			win.Close()
		}
	}()
	// The key window exists before the first frame so WaitKey has a target.
	keys := gocv.NewWindow(display.DetectedTitle)
	windows[display.DetectedTitle] = keys

	for ctx.Err() == nil {
		if out, ok := w.mailbox.TryTake(); ok {
			for _, p := range display.Panes(out) {
				win, ok := windows[p.Title]
				if !ok {
					win = gocv.NewWindow(p.Title)
					windows[p.Title] = win
				}
				w.show(win, p.Image)
			}
		}

		var err error
		switch key := keys.WaitKey(10); key {
		case 's':
			err = w.controls.Start(ctx)
		case 'x':
			err = w.controls.Stop()
		case 'r':
			err = w.controls.Reset()
		case 'q', keyEsc:
			return nil
		}
		if err != nil {
			w.logger.Warn("control signal rejected", "error", err)
		}
	}
	return ctx.Err()
}

func (w *Window) show(win *gocv.Window, img image.Image) {
	var (
		mat gocv.Mat
		err error
	)
	switch img := img.(type) {
	case *image.Gray:
		mat, err = gocv.ImageGrayToMatGray(img)
	default:
		mat, err = gocv.ImageToMatRGB(img)
	}
	if err != nil {
		w.logger.Warn("frame conversion failed", "error", err)
		return
	}
	defer mat.Close()
	win.IMShow(mat)
}
