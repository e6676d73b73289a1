package editor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"

	"xstream/internal/domain"
)

func solidPNG(t *testing.T, c color.NRGBA) domain.ImageFile {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f, err := domain.ImageFileFromBytes(buf.Bytes(), "image/png")
	if err != nil {
		t.Fatalf("ImageFileFromBytes: %v", err)
	}
	return f
}

func pixel(t *testing.T, f domain.ImageFile) color.NRGBA {
	t.Helper()
	raw, err := f.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return color.NRGBAModel.Convert(img.At(1, 1)).(color.NRGBA)
}

func TestApplyFilters(t *testing.T) {
	src := solidPNG(t, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	tests := []struct {
		name  string
		f     Filters
		check func(color.NRGBA) bool
	}{
		{"invert", Filters{Invert: true}, func(c color.NRGBA) bool { return c.R == 55 && c.G == 155 && c.B == 205 }},
		{"grayscale", Filters{Grayscale: true}, func(c color.NRGBA) bool { return c.R == c.G && c.G == c.B }},
		{"brighter", Filters{Brightness: 30}, func(c color.NRGBA) bool { return c.G > 100 }},
		{"sepia", Filters{Sepia: true}, func(c color.NRGBA) bool { return c.R >= c.G && c.G >= c.B }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(src, tt.f)
			if err != nil {
				t.Fatalf("Apply returned error: %v", err)
			}
			if out.MimeType != "image/png" {
				t.Fatalf("mime = %q", out.MimeType)
			}
			if out.Data == src.Data {
				t.Fatalf("filter should produce a new image")
			}
			if c := pixel(t, out); !tt.check(c) {
				t.Fatalf("unexpected pixel %+v", c)
			}
		})
	}
	if got := pixel(t, src); got.R != 200 || got.G != 100 || got.B != 50 {
		t.Fatalf("source image modified: %+v", got)
	}
}

func TestApplyRejectsEmpty(t *testing.T) {
	if _, err := Apply(domain.ImageFile{}, Filters{Invert: true}); !errors.Is(err, domain.ErrMissingInput) {
		t.Fatalf("err = %v", err)
	}
	src := solidPNG(t, color.NRGBA{A: 255})
	if _, err := Apply(src, Filters{}); !errors.Is(err, domain.ErrMissingInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestApplyRejectsUndecodable(t *testing.T) {
	_, err := Apply(domain.ImageFile{Data: "bm90IGFuIGltYWdl", MimeType: "image/png"}, Filters{Invert: true})
	if !errors.Is(err, domain.ErrLocalIO) {
		t.Fatalf("err = %v, want local io error", err)
	}
}
