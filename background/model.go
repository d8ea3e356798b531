// Package background maintains an adaptive per-pixel Mixture of Gaussians
// background model and classifies every pixel of a frame as background,
// foreground or shadow.
//
// Each pixel keeps up to Params.MaxComponents weighted Gaussians over RGB with
// a single (isotropic) variance. Components are ranked by weight/variance; the
// highest ranked components whose cumulative weight stays below
// Params.BackgroundRatio describe the background.
//
// All component records live in one flat arena indexed by
// (row*width + col)*MaxComponents + slot, allocated when the first frame fixes
// the dimensions.
//
// Usage:
//
//	model, err := background.New(background.DefaultParams())
//	if err != nil {
//	    return err
//	}
//	for frame := range frames {
//	    mask, err := model.Apply(frame.Image)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(mask.Count(images.Foreground))
//	}
package background

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/images"
	"github.com/pkg/errors"
)

type component struct {
	weight   float32
	variance float32
	mean     [3]float32
}

// Model is a per-pixel Gaussian mixture background model. It is not safe for
// concurrent use; frames must be applied sequentially.
type Model struct {
	params Params

	width  int
	height int
	arena  []component
	used   []uint8

	// frameIndex counts frames observed since the last reset.
	frameIndex int

	// float32 copies of the hot parameters.
	matchThreshold2 float32
	bgRatio         float32
	varInit         float32
	varMin          float32
	varMax          float32
	shadowTau       float32
}

// New creates an empty model. Dimensions are fixed by the first applied frame.
//
// Arguments:
//   - params: Model parameters, usually DefaultParams or config-provided.
//
// Returns:
//   - *Model: The model.
//   - error: common.ErrConfiguration if params are out of range.
func New(params Params) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Model{
		params:          params,
		matchThreshold2: float32(params.MatchThreshold * params.MatchThreshold),
		bgRatio:         float32(params.BackgroundRatio),
		varInit:         float32(params.VarianceInit),
		varMin:          float32(params.VarianceMin),
		varMax:          float32(params.VarianceMax),
		shadowTau:       float32(params.ShadowThreshold),
	}, nil
}

// Params returns the parameters the model was created with.
func (m *Model) Params() Params {
	return m.params
}

// FrameIndex returns the number of frames observed since creation or reset.
func (m *Model) FrameIndex() int {
	return m.frameIndex
}

// Size returns the dimensions fixed by the first frame, or 0, 0 before it.
func (m *Model) Size() (int, int) {
	return m.width, m.height
}

// Reset discards all learned state. The next frame may have any dimensions.
func (m *Model) Reset() {
	m.width, m.height = 0, 0
	m.arena = nil
	m.used = nil
	m.frameIndex = 0
}

// rate returns alpha for the frame currently being applied.
func (m *Model) rate() float32 {
	if m.params.LearningRate > 0 {
		return float32(m.params.LearningRate)
	}
	return float32(ScheduledRate(m.frameIndex, m.params.History))
}

// Apply updates the model with frame and returns its classification mask.
//
// Arguments:
//   - frame: An RGBA frame whose bounds start at the origin.
//
// Returns:
//   - images.Mask: A mask congruent to frame.
//   - error: common.ErrInvalidFrame for nil or zero-sized frames, or for
//     frames whose dimensions differ from the first applied frame.
func (m *Model) Apply(frame *image.RGBA) (images.Mask, error) {
	if frame == nil || frame.Rect.Empty() {
		return images.Mask{}, errors.Wrap(common.ErrInvalidFrame, "background: empty frame")
	}
	w, h := frame.Rect.Dx(), frame.Rect.Dy()

	if m.arena == nil {
		m.width, m.height = w, h
		m.arena = make([]component, w*h*m.params.MaxComponents)
		m.used = make([]uint8, w*h)
	} else if w != m.width || h != m.height {
		return images.Mask{}, errors.Wrapf(common.ErrInvalidFrame,
			"background: frame is %dx%d, model is %dx%d", w, h, m.width, m.height)
	}

	m.frameIndex++
	alpha := m.rate()
	mask := images.NewMask(w, h)

	images.Parallel(h, max(m.params.Workers, 1), func(start, end int) {
		for y := start; y < end; y++ {
			row := frame.Pix[y*frame.Stride : y*frame.Stride+w*4]
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+3 : x*4+3]
				px := [3]float32{float32(p[0]), float32(p[1]), float32(p[2])}
				mask.Pix[y*w+x] = m.update(y*w+x, px, alpha)
			}
		}
	})

	return mask, nil
}

// update folds one observation into the mixture of pixel i and classifies it.
func (m *Model) update(i int, px [3]float32, alpha float32) images.Label {
	k := m.params.MaxComponents
	comps := m.arena[i*k : i*k+k]
	n := int(m.used[i])

	matched := -1
	background := false
	var cumulative float32

	for c := 0; c < n; c++ {
		comp := &comps[c]
		if matched < 0 {
			d2 := dist2(px, comp.mean)
			if d2 < m.matchThreshold2*comp.variance {
				matched = c
				background = cumulative < m.bgRatio
			}
		}
		cumulative += comp.weight
	}

	// Decay every weight, then reinforce or create.
	for c := 0; c < n; c++ {
		comps[c].weight *= 1 - alpha
	}

	label := images.Foreground
	if matched >= 0 {
		comp := &comps[matched]
		comp.weight += alpha
		rho := alpha / comp.weight
		var d2 float32
		for ch := 0; ch < 3; ch++ {
			diff := px[ch] - comp.mean[ch]
			comp.mean[ch] += rho * diff
			d2 += diff * diff
		}
		comp.variance = clamp(comp.variance+rho*(d2/3-comp.variance), m.varMin, m.varMax)
		if background {
			label = images.Background
		}
	} else {
		// Shadow test runs against the model as it was before this frame.
		if m.params.DetectShadows && m.isShadow(comps[:n], px) {
			label = images.Shadow
		}
		slot := n
		if n < k {
			n++
			m.used[i] = uint8(n)
		} else {
			slot = n - 1
		}
		comps[slot] = component{weight: alpha, variance: m.varInit, mean: px}
	}

	normalize(comps[:n])
	rank(comps[:n])
	return label
}

// isShadow reports whether px is a darker copy of one of the background
// components. comps must be ranked.
func (m *Model) isShadow(comps []component, px [3]float32) bool {
	var cumulative float32
	for c := range comps {
		comp := &comps[c]
		if cumulative >= m.bgRatio {
			break
		}
		cumulative += comp.weight

		var dot, norm float32
		for ch := 0; ch < 3; ch++ {
			dot += px[ch] * comp.mean[ch]
			norm += comp.mean[ch] * comp.mean[ch]
		}
		if norm == 0 {
			continue
		}
		a := dot / norm
		if a < m.shadowTau || a > 1 {
			continue
		}
		var d2 float32
		for ch := 0; ch < 3; ch++ {
			diff := a*comp.mean[ch] - px[ch]
			d2 += diff * diff
		}
		if d2 < m.matchThreshold2*comp.variance*a*a {
			return true
		}
	}
	return false
}

// BackgroundImage renders the mean of the highest ranked component of every
// pixel. It returns nil before the first frame.
func (m *Model) BackgroundImage() *image.RGBA {
	if m.arena == nil {
		return nil
	}
	k := m.params.MaxComponents
	img := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	for i := 0; i < m.width*m.height; i++ {
		if m.used[i] == 0 {
			continue
		}
		c := m.arena[i*k]
		img.Pix[i*4+0] = uint8(clamp(math32.Floor(c.mean[0]+0.5), 0, 255))
		img.Pix[i*4+1] = uint8(clamp(math32.Floor(c.mean[1]+0.5), 0, 255))
		img.Pix[i*4+2] = uint8(clamp(math32.Floor(c.mean[2]+0.5), 0, 255))
		img.Pix[i*4+3] = 255
	}
	return img
}

func dist2(a, b [3]float32) float32 {
	d0, d1, d2 := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return d0*d0 + d1*d1 + d2*d2
}

func clamp(v, lo, hi float32) float32 {
	return math32.Min(math32.Max(v, lo), hi)
}

// normalize rescales weights to sum to one.
func normalize(comps []component) {
	var total float32
	for c := range comps {
		total += comps[c].weight
	}
	if total <= 0 {
		return
	}
	for c := range comps {
		comps[c].weight /= total
	}
}

// rank sorts components by weight/variance, highest first. Insertion sort is
// enough for a handful of components and avoids allocation.
func rank(comps []component) {
	for i := 1; i < len(comps); i++ {
		cur := comps[i]
		key := cur.weight / cur.variance
		j := i - 1
		for j >= 0 && comps[j].weight/comps[j].variance < key {
			comps[j+1] = comps[j]
			j--
		}
		comps[j+1] = cur
	}
}
