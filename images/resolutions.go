package images

import (
	"fmt"
	"math"
)

// AspectRatio represents a camera aspect ratio by name (e.g., "16:9").
type AspectRatio string

// Standard aspect ratios for surveillance cameras.
const (
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
	AspectRatio54  AspectRatio = "5:4"
	AspectRatio32  AspectRatio = "3:2"
)

// ResolutionType is the common name of a camera resolution.
type ResolutionType string

// Resolutions a video source is likely to report.
const (
	ResolutionTypeQVGA     ResolutionType = "QVGA"
	ResolutionTypeNHD      ResolutionType = "nHD"
	ResolutionTypeVGA      ResolutionType = "VGA"
	ResolutionTypeFWVGA    ResolutionType = "FWVGA"
	ResolutionTypeQHD540   ResolutionType = "qHD 540p"
	ResolutionTypeHD720p   ResolutionType = "HD 720p"
	ResolutionType1MP54    ResolutionType = "1MP (5:4)"
	ResolutionTypeFHD1080p ResolutionType = "Full HD 1080p"
	ResolutionType2MP43    ResolutionType = "2MP (4:3)"
	ResolutionTypeQHD1440p ResolutionType = "QHD 1440p"
	ResolutionType3MP43    ResolutionType = "3MP (4:3)"
	ResolutionType6MP32    ResolutionType = "6MP (3:2)"
	ResolutionType4KUHD    ResolutionType = "4K UHD"
)

// Resolution describes a named frame size.
type Resolution struct {
	Name        ResolutionType `json:"name"`
	AspectRatio AspectRatio    `json:"aspectRatio"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
}

// MegaPixels returns the pixel count in millions, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	mp := float64(r.Width*r.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

// String returns a human-readable summary of the resolution.
func (r Resolution) String() string {
	if r.Name == "" {
		return fmt.Sprintf("%dx%d, %.2fMP", r.Width, r.Height, r.MegaPixels())
	}
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Width, r.Height, r.MegaPixels())
}

// resolutions is ordered by pixel count.
var resolutions = []Resolution{
	{Name: ResolutionTypeQVGA, AspectRatio: AspectRatio43, Width: 320, Height: 240},
	{Name: ResolutionTypeNHD, AspectRatio: AspectRatio169, Width: 640, Height: 360},
	{Name: ResolutionTypeVGA, AspectRatio: AspectRatio43, Width: 640, Height: 480},
	{Name: ResolutionTypeFWVGA, AspectRatio: AspectRatio169, Width: 854, Height: 480},
	{Name: ResolutionTypeQHD540, AspectRatio: AspectRatio169, Width: 960, Height: 540},
	{Name: ResolutionTypeHD720p, AspectRatio: AspectRatio169, Width: 1280, Height: 720},
	{Name: ResolutionType1MP54, AspectRatio: AspectRatio54, Width: 1280, Height: 1024},
	{Name: ResolutionType2MP43, AspectRatio: AspectRatio43, Width: 1600, Height: 1200},
	{Name: ResolutionTypeFHD1080p, AspectRatio: AspectRatio169, Width: 1920, Height: 1080},
	{Name: ResolutionType3MP43, AspectRatio: AspectRatio43, Width: 2048, Height: 1536},
	{Name: ResolutionTypeQHD1440p, AspectRatio: AspectRatio169, Width: 2560, Height: 1440},
	{Name: ResolutionType6MP32, AspectRatio: AspectRatio32, Width: 3072, Height: 2048},
	{Name: ResolutionType4KUHD, AspectRatio: AspectRatio169, Width: 3840, Height: 2160},
}

// Resolutions returns the standard resolutions ordered by pixel count.
func Resolutions() []Resolution {
	return append([]Resolution(nil), resolutions...)
}

// ResolutionOf names a frame size. Exact matches return the standard entry;
// anything else returns an unnamed Resolution carrying the given size.
//
// Arguments:
//   - width: The frame width in pixels.
//   - height: The frame height in pixels.
//
// Returns:
//   - Resolution: The matching standard, or an unnamed one.
//   - bool: True if the size is a known standard.
func ResolutionOf(width, height int) (Resolution, bool) {
	for _, res := range resolutions {
		if res.Width == width && res.Height == height {
			return res, true
		}
	}
	return Resolution{Width: width, Height: height}, false
}

// HighestResolutionUnder returns the largest standard resolution that fits
// inside width x height.
func HighestResolutionUnder(width, height int) (Resolution, bool) {
	var (
		highest Resolution
		found   bool
	)
	for _, res := range resolutions {
		if res.Width <= width && res.Height <= height {
			if !found || res.MegaPixels() > highest.MegaPixels() {
				highest = res
				found = true
			}
		}
	}
	return highest, found
}
