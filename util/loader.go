// Package util - Filesystem helpers for frame-sequence inputs.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-motion/images"
	"github.com/pkg/errors"
)

// FrameFile is one image of a frame sequence on disk.
type FrameFile struct {
	// Path is the path to the image file.
	Path string
	// Format is inferred from the extension.
	Format images.ImageFormat
	// Frame is the number parsed from the trailing digits of the file name,
	// or -1 when the name carries none.
	Frame int
}

// ListFrameFiles lists the image files of a directory in frame order.
//
// Arguments:
//   - dir: Directory path containing image files such as frame-0001.jpg.
//
// Returns:
//   - []FrameFile: Numbered files ascending by frame number, followed by
//     unnumbered files in name order.
//   - error: Error if the directory cannot be read.
func ListFrameFiles(dir string) ([]FrameFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}

	var files []FrameFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := images.FormatFromPath(entry.Name())
		if !ok {
			continue
		}
		files = append(files, FrameFile{
			Path:   filepath.Join(dir, entry.Name()),
			Format: format,
			Frame:  FrameNumber(entry.Name()),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		switch {
		case a.Frame >= 0 && b.Frame >= 0 && a.Frame != b.Frame:
			return a.Frame < b.Frame
		case (a.Frame < 0) != (b.Frame < 0):
			return a.Frame >= 0
		default:
			return a.Path < b.Path
		}
	})

	return files, nil
}

// FrameNumber parses the trailing digits of a file name without extension,
// e.g. 42 for "frame-0042.png". It returns -1 when there are none.
func FrameNumber(name string) int {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	if i == len(base) {
		return -1
	}
	n, err := strconv.Atoi(base[i:])
	if err != nil {
		return -1
	}
	return n
}
