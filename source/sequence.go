package source

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/images"
	"github.com/nvr-ai/go-motion/util"
	"github.com/pkg/errors"
)

// Sequence reads a directory of numbered frame images. Frames are indexed by
// their position in the sequence, not by the number in the file name.
type Sequence struct {
	dir   string
	fps   float64
	files []util.FrameFile

	mu  sync.Mutex
	pos int
}

// OpenSequence lists dir once; files added later are not picked up.
//
// Arguments:
//   - dir: The directory of frame images.
//   - fps: The native frame rate of the sequence, or 0 if unknown.
//
// Returns:
//   - *Sequence: The source positioned at the first file.
//   - error: common.ErrSourceUnavailable if dir cannot be read or has no images.
func OpenSequence(dir string, fps float64) (*Sequence, error) {
	files, err := util.ListFrameFiles(dir)
	if err != nil {
		return nil, errors.Wrap(common.ErrSourceUnavailable, err.Error())
	}
	if len(files) == 0 {
		return nil, errors.Wrapf(common.ErrSourceUnavailable, "no frame images in %s", dir)
	}
	return &Sequence{dir: dir, fps: fps, files: files}, nil
}

// Next decodes the next file, or returns io.EOF after the last one.
func (s *Sequence) Next(ctx context.Context) (images.Frame, error) {
	if err := ctx.Err(); err != nil {
		return images.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.files) {
		return images.Frame{}, io.EOF
	}
	index := s.pos
	file := s.files[index]
	s.pos++

	f, err := os.Open(file.Path)
	if err != nil {
		return images.Frame{}, errors.Wrap(common.ErrSourceUnavailable, err.Error())
	}
	defer f.Close()

	img, err := images.Decode(f, file.Format)
	if err != nil {
		return images.Frame{}, errors.Wrapf(common.ErrSourceUnavailable, "%s: %v", file.Path, err)
	}
	return images.NewFrame(img, index, s.fps)
}

// Rewind restarts at the first file.
func (s *Sequence) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
	return nil
}

// FrameCount returns the number of image files.
func (s *Sequence) FrameCount() int {
	return len(s.files)
}

// FrameRate returns the rate given to OpenSequence.
func (s *Sequence) FrameRate() float64 {
	return s.fps
}

// Close is a no-op; files are opened per frame.
func (s *Sequence) Close() error {
	return nil
}
