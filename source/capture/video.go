// Package capture - OpenCV-backed frame source for video files and cameras.
package capture

import (
	"context"
	"io"
	"sync"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// maxEmptyReads bounds how many empty frames a camera may deliver in a row
// before the source is considered lost.
const maxEmptyReads = 50

// Video decodes frames through gocv.VideoCapture.
type Video struct {
	name   string
	device bool

	mu    sync.Mutex
	cap   *gocv.VideoCapture
	mat   gocv.Mat
	index int
	fps   float64
	count int
}

// OpenFile opens a video container. Decoding is delegated to OpenCV.
//
// Arguments:
//   - path: The video file.
//
// Returns:
//   - *Video: The source positioned at the first frame.
//   - error: common.ErrSourceUnavailable if the file cannot be opened.
func OpenFile(path string) (*Video, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(common.ErrSourceUnavailable, "%s: %v", path, err)
	}
	return newVideo(path, vc, false), nil
}

// OpenDevice opens a camera by index. Cameras report an unknown frame count
// and cannot be rewound.
func OpenDevice(id int) (*Video, error) {
	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, errors.Wrapf(common.ErrSourceUnavailable, "device %d: %v", id, err)
	}
	return newVideo("device", vc, true), nil
}

func newVideo(name string, vc *gocv.VideoCapture, device bool) *Video {
	v := &Video{
		name:   name,
		device: device,
		cap:    vc,
		mat:    gocv.NewMat(),
		fps:    vc.Get(gocv.VideoCaptureFPS),
		count:  -1,
	}
	if !device {
		v.count = int(vc.Get(gocv.VideoCaptureFrameCount))
	}
	return v
}

// Next reads and converts the next frame. Files return io.EOF at the end.
func (v *Video) Next(ctx context.Context) (images.Frame, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for empty := 0; ; empty++ {
		if err := ctx.Err(); err != nil {
			return images.Frame{}, err
		}
		if ok := v.cap.Read(&v.mat); !ok {
			if v.device {
				return images.Frame{}, errors.Wrapf(common.ErrSourceUnavailable, "cannot read %s", v.name)
			}
			return images.Frame{}, io.EOF
		}
		if !v.mat.Empty() {
			break
		}
		if !v.device {
			return images.Frame{}, io.EOF
		}
		if empty >= maxEmptyReads {
			return images.Frame{}, errors.Wrapf(common.ErrSourceUnavailable, "%s delivers empty frames", v.name)
		}
	}

	img, err := v.mat.ToImage()
	if err != nil {
		return images.Frame{}, errors.Wrapf(common.ErrInvalidFrame, "frame %d: %v", v.index, err)
	}
	frame, err := images.NewFrame(img, v.index, v.fps)
	v.index++
	return frame, err
}

// Rewind seeks a file back to its first frame. Cameras only reset the index.
func (v *Video) Rewind() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.index = 0
	if v.device {
		return nil
	}
	v.cap.Set(gocv.VideoCapturePosFrames, 0)
	return nil
}

// FrameCount returns the container's frame count, or -1 for cameras.
func (v *Video) FrameCount() int {
	return v.count
}

// FrameRate returns the reported FPS; some containers report 0.
func (v *Video) FrameRate() float64 {
	return v.fps
}

// Close releases the capture and the frame buffer.
func (v *Video) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.mat.Close(); err != nil {
		return err
	}
	return v.cap.Close()
}
