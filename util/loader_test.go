package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-motion/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFrameFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"frame-10.jpg", "frame-2.png", "frame-0001.webp", "cover.bmp",
		"notes.txt", "frame-3.JPEG",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frame-5.png"), 0o700))

	files, err := ListFrameFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
	}
	assert.Equal(t, []string{"frame-0001.webp", "frame-2.png", "frame-3.JPEG", "frame-10.jpg", "cover.bmp"}, names)
	assert.Equal(t, images.FormatWebP, files[0].Format)
	assert.Equal(t, images.FormatJPEG, files[2].Format)
	assert.Equal(t, 10, files[3].Frame)
	assert.Equal(t, -1, files[4].Frame)
}

func TestListFrameFilesMissingDir(t *testing.T) {
	_, err := ListFrameFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFrameNumber(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"frame-0042.png", 42},
		{"000123.jpg", 123},
		{"img_7.webp", 7},
		{"dir/clip-4k-12.bmp", 12},
		{"cover.png", -1},
		{"1x.png", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FrameNumber(tt.name))
		})
	}
}
