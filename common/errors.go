package common

import "github.com/pkg/errors"

// Error taxonomy for the pipeline. Callers wrap these with context using
// errors.Wrap/Wrapf and match them with errors.Is.
var (
	// ErrSourceUnavailable means a frame source could not be opened or read.
	// It ends the current run but never the host process.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrInvalidFrame covers zero-sized frames and frames whose dimensions
	// differ from the ones the background model was built for.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrConfiguration is returned for out-of-range parameters before a run
	// starts.
	ErrConfiguration = errors.New("configuration error")
)
