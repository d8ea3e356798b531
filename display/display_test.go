package display

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nvr-ai/go-motion/controller"
	"github.com/nvr-ai/go-motion/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func output(index int, detected bool) controller.Output {
	out := controller.Output{
		Index:    index,
		Frame:    image.NewRGBA(image.Rect(0, 0, 8, 6)),
		Detected: detected,
	}
	if detected {
		out.Mask = images.NewMask(8, 6)
		out.Mask.Set(1, 1, images.Foreground)
	}
	return out
}

func TestMailboxKeepsLatest(t *testing.T) {
	m := NewMailbox()
	_, ok := m.TryTake()
	assert.False(t, ok)

	for i := 0; i < 5; i++ {
		m.Show(output(i, true))
	}
	out, ok := m.TryTake()
	require.True(t, ok)
	assert.Equal(t, 4, out.Index)
	assert.Equal(t, 4, m.Dropped())

	_, ok = m.TryTake()
	assert.False(t, ok)
}

func TestMailboxTakeWaits(t *testing.T) {
	m := NewMailbox()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		m.Show(output(3, false))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := m.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Index)
	wg.Wait()
}

func TestMailboxTakeCancelled(t *testing.T) {
	m := NewMailbox()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := m.Take(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDirectoryWritesFramesAndMasks(t *testing.T) {
	for _, format := range []images.ImageFormat{images.FormatJPEG, images.FormatPNG, images.FormatWebP} {
		t.Run(string(format), func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			d, err := NewDirectory(dir, DirectoryOptions{Format: format, Masks: true})
			require.NoError(t, err)

			d.Show(output(1, false))
			d.Show(output(2, true))
			d.Show(controller.Output{Index: 3})
			assert.Equal(t, 2, d.Written())
			assert.Equal(t, 0, d.Failed())

			for _, name := range []string{"frame-000001", "frame-000002", "mask-000002"} {
				_, err := os.Stat(filepath.Join(dir, name+format.Extension()))
				assert.NoError(t, err, name)
			}
			_, err = os.Stat(filepath.Join(dir, "mask-000001"+format.Extension()))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestDirectoryDetectedOnly(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDirectory(dir, DirectoryOptions{Format: images.FormatPNG, DetectedOnly: true})
	require.NoError(t, err)

	d.Show(output(1, false))
	d.Show(output(2, true))
	assert.Equal(t, 1, d.Written())

	require.NoError(t, d.Save("background", image.NewRGBA(image.Rect(0, 0, 4, 4))))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDirectoryWriteFailure(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDirectory(dir, DirectoryOptions{Format: images.FormatPNG})
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	d.Show(output(1, true))
	assert.Equal(t, 0, d.Written())
	assert.Equal(t, 1, d.Failed())
}

func TestNewDirectoryRejectsFormat(t *testing.T) {
	_, err := NewDirectory(t.TempDir(), DirectoryOptions{Format: "gif"})
	assert.Error(t, err)
}

func TestPanesIncludeMask(t *testing.T) {
	out := output(4, true)
	out.Original = image.NewRGBA(image.Rect(0, 0, 8, 6))
	out.Mask.Set(2, 3, images.Foreground)
	out.Mask.Set(5, 1, images.Shadow)

	panes := Panes(out)
	require.Len(t, panes, 3)
	assert.Equal(t, OriginalTitle, panes[0].Title)
	assert.Same(t, out.Original, panes[0].Image)
	assert.Equal(t, DetectedTitle, panes[1].Title)
	assert.Same(t, out.Frame, panes[1].Image)

	assert.Equal(t, MaskTitle, panes[2].Title)
	gray, ok := panes[2].Image.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, images.Foreground.Gray(), gray.GrayAt(2, 3).Y)
	assert.Equal(t, images.Shadow.Gray(), gray.GrayAt(5, 1).Y)
	assert.Equal(t, images.Background.Gray(), gray.GrayAt(0, 0).Y)
}

func TestPanesSkipMissingMask(t *testing.T) {
	panes := Panes(output(3, false))
	require.Len(t, panes, 1)
	assert.Equal(t, DetectedTitle, panes[0].Title)
}
