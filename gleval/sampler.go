package gleval

import (
	"image"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"golang.org/x/image/draw"
)

// ImageSampler is a [Sampler] over an image with a full mip chain. Sampling is
// trilinear with clamp to edge wrapping. Row 0 of the image maps to v=1 so that
// textures read upright, as done by engines that flip images on upload.
type ImageSampler struct {
	levels []*image.NRGBA
}

var _ Sampler = (*ImageSampler)(nil)

// NewImageSampler copies img into level 0 and downsamples it with a bilinear
// filter into successive levels down to 1x1. It panics if img is empty.
func NewImageSampler(img image.Image) *ImageSampler {
	bounds := img.Bounds()
	if bounds.Empty() {
		panic("empty image")
	}
	base := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(base, base.Bounds(), img, bounds.Min, draw.Src)
	levels := []*image.NRGBA{base}
	w, h := base.Rect.Dx(), base.Rect.Dy()
	for w > 1 || h > 1 {
		w = max(1, w/2)
		h = max(1, h/2)
		prev := levels[len(levels)-1]
		next := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(next, next.Rect, prev, prev.Rect, draw.Src, nil)
		levels = append(levels, next)
	}
	return &ImageSampler{levels: levels}
}

// Levels returns the number of mip levels.
func (s *ImageSampler) Levels() int { return len(s.levels) }

// Level returns the image of mip level i.
func (s *ImageSampler) Level(i int) *image.NRGBA { return s.levels[i] }

// Size returns the dimensions of the base level.
func (s *ImageSampler) Size() (width, height int) {
	r := s.levels[0].Rect
	return r.Dx(), r.Dy()
}

// SampleLod interpolates between the two mip levels nearest lod.
// lod is clamped to the available levels. A NaN lod samples the base level.
func (s *ImageSampler) SampleLod(uv ms2.Vec, lod float32) RGBA {
	maxLevel := float32(len(s.levels) - 1)
	if math.IsNaN(lod) || lod < 0 {
		lod = 0
	} else if lod > maxLevel {
		lod = maxLevel
	}
	lo := int(lod)
	c0 := s.sampleLevel(lo, uv)
	frac := lod - float32(lo)
	if frac == 0 || lo+1 >= len(s.levels) {
		return c0
	}
	return mix(c0, s.sampleLevel(lo+1, uv), frac)
}

func (s *ImageSampler) sampleLevel(level int, uv ms2.Vec) RGBA {
	img := s.levels[level]
	w, h := img.Rect.Dx(), img.Rect.Dy()
	// Texel centers lie at half integer coordinates.
	x := uv.X*float32(w) - 0.5
	y := (1-uv.Y)*float32(h) - 0.5
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0
	ix, iy := int(x0), int(y0)
	c00 := texel(img, ix, iy)
	c10 := texel(img, ix+1, iy)
	c01 := texel(img, ix, iy+1)
	c11 := texel(img, ix+1, iy+1)
	return mix(mix(c00, c10, fx), mix(c01, c11, fx), fy)
}

func texel(img *image.NRGBA, x, y int) RGBA {
	x = min(max(x, 0), img.Rect.Dx()-1)
	y = min(max(y, 0), img.Rect.Dy()-1)
	c := img.NRGBAAt(x, y)
	return RGBA{R: float32(c.R) / 255, G: float32(c.G) / 255, B: float32(c.B) / 255, A: float32(c.A) / 255}
}

// ConstantSampler is a single colored [Sampler] of the given size.
type ConstantSampler struct {
	Color         RGBA
	Width, Height int
}

// Size returns the configured dimensions.
func (s ConstantSampler) Size() (width, height int) { return s.Width, s.Height }

// SampleLod returns the constant color.
func (s ConstantSampler) SampleLod(uv ms2.Vec, lod float32) RGBA { return s.Color }
