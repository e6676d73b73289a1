// Package editor applies local pixel filters to generated images. Filters
// never modify their input; each application yields a new image.
package editor

import (
	"bytes"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"xstream/internal/domain"
)

// Filters is a set of adjustments applied in a fixed order. Percentages
// range from -100 to 100; zero leaves the image unchanged.
type Filters struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Blur       float64 `json:"blur"`
	Grayscale  bool    `json:"grayscale"`
	Sepia      bool    `json:"sepia"`
	Invert     bool    `json:"invert"`
}

// IsZero reports whether applying f would be a no-op.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

func (f Filters) clamped() Filters {
	f.Brightness = clamp(f.Brightness, -100, 100)
	f.Contrast = clamp(f.Contrast, -100, 100)
	f.Saturation = clamp(f.Saturation, -100, 500)
	f.Blur = clamp(f.Blur, 0, 50)
	return f
}

// Apply decodes img, applies the filters and re-encodes in the original
// format. PNG is used for anything that is not JPEG.
func Apply(img domain.ImageFile, f Filters) (domain.ImageFile, error) {
	if img.IsZero() {
		return domain.ImageFile{}, domain.NewError(domain.ErrMissingInput, "no image to edit")
	}
	if f.IsZero() {
		return domain.ImageFile{}, domain.NewError(domain.ErrMissingInput, "no filter selected")
	}
	raw, err := img.Bytes()
	if err != nil {
		return domain.ImageFile{}, err
	}
	src, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return domain.ImageFile{}, domain.WrapError(domain.ErrLocalIO, err, "failed to decode image")
	}

	out := transform(src, f.clamped())

	format, mimeType := imaging.PNG, "image/png"
	if img.MimeType == "image/jpeg" || img.MimeType == "image/jpg" {
		format, mimeType = imaging.JPEG, "image/jpeg"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, format); err != nil {
		return domain.ImageFile{}, domain.WrapError(domain.ErrLocalIO, err, "failed to encode image")
	}
	return domain.ImageFileFromBytes(buf.Bytes(), mimeType)
}

func transform(src image.Image, f Filters) *image.NRGBA {
	out := imaging.Clone(src)
	if f.Brightness != 0 {
		out = imaging.AdjustBrightness(out, f.Brightness)
	}
	if f.Contrast != 0 {
		out = imaging.AdjustContrast(out, f.Contrast)
	}
	if f.Saturation != 0 {
		out = imaging.AdjustSaturation(out, f.Saturation)
	}
	if f.Grayscale {
		out = imaging.Grayscale(out)
	}
	if f.Sepia {
		out = imaging.AdjustFunc(out, sepia)
	}
	if f.Invert {
		out = imaging.Invert(out)
	}
	if f.Blur > 0 {
		out = imaging.Blur(out, f.Blur)
	}
	return out
}

func sepia(c color.NRGBA) color.NRGBA {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	return color.NRGBA{
		R: channel(0.393*r + 0.769*g + 0.189*b),
		G: channel(0.349*r + 0.686*g + 0.168*b),
		B: channel(0.272*r + 0.534*g + 0.131*b),
		A: c.A,
	}
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, 255)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
