package display

import (
	"image"

	"github.com/nvr-ai/go-motion/controller"
)

// Window titles of the preview panes.
const (
	OriginalTitle = "Original"
	DetectedTitle = "Detected Objects"
	MaskTitle     = "Foreground Mask"
)

// Pane is one image of a preview, keyed by window title.
type Pane struct {
	Title string
	// Image is *image.RGBA for frames and *image.Gray for the mask.
	Image image.Image
}

// Panes lists what a preview shows for out: the source frame, the rendered
// frame and, when present, the foreground mask as grayscale.
func Panes(out controller.Output) []Pane {
	var panes []Pane
	if out.Original != nil {
		panes = append(panes, Pane{Title: OriginalTitle, Image: out.Original})
	}
	if out.Frame != nil {
		panes = append(panes, Pane{Title: DetectedTitle, Image: out.Frame})
	}
	if !out.Mask.Empty() {
		panes = append(panes, Pane{Title: MaskTitle, Image: out.Mask.ToGray()})
	}
	return panes
}
