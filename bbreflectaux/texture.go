package bbreflectaux

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/golang/freetype/truetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadTexture decodes a PNG, JPEG, GIF, BMP, TIFF or WebP image.
func LoadTexture(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding texture: %w", err)
	} else if img.Bounds().Empty() {
		return nil, fmt.Errorf("empty %s texture", format)
	}
	return img, nil
}

// LoadTextureFile decodes the image stored in filename. See [LoadTexture].
func LoadTextureFile(filename string) (image.Image, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	img, err := LoadTexture(fp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return img, nil
}

// TextConfig configures [TextTexture]. The zero value draws white Go Regular text on a transparent background.
type TextConfig struct {
	// Size is the font size in points at 72 DPI. If zero 48 is used.
	Size float64
	// Padding around the text in pixels. If zero a quarter of the size is used.
	Padding int
	// Foreground is the text color. If nil white is used.
	Foreground color.Color
	// Background fills the texture. If nil the background is transparent.
	Background color.Color
	// TTF is a TrueType font file. If nil Go Regular is used.
	TTF []byte
}

// TextTexture renders a single line of text into an image sized to fit it.
func TextTexture(text string, cfg TextConfig) (*image.NRGBA, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("no text provided")
	} else if strings.ContainsAny(text, "\n\r") {
		return nil, errors.New("text must be a single line")
	}
	if cfg.Size == 0 {
		cfg.Size = 48
	} else if cfg.Size < 0 {
		return nil, errors.New("negative font size")
	}
	if cfg.Padding == 0 {
		cfg.Padding = int(cfg.Size / 4)
	}
	if cfg.Foreground == nil {
		cfg.Foreground = color.White
	}
	if cfg.Background == nil {
		cfg.Background = color.Transparent
	}
	ttf := cfg.TTF
	if ttf == nil {
		ttf = goregular.TTF
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    cfg.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	metrics := face.Metrics()
	drawer := font.Drawer{Face: face}
	width := drawer.MeasureString(text).Ceil() + 2*cfg.Padding
	height := (metrics.Ascent + metrics.Descent).Ceil() + 2*cfg.Padding
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(cfg.Background), image.Point{}, draw.Src)

	drawer.Dst = img
	drawer.Src = image.NewUniform(cfg.Foreground)
	drawer.Dot = fixed.Point26_6{
		X: fixed.I(cfg.Padding),
		Y: fixed.I(cfg.Padding) + metrics.Ascent,
	}
	drawer.DrawString(text)
	return img, nil
}
