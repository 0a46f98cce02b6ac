package compress

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"

	// Input decoders beyond the PNG and JPEG ones imported above.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type effort int

const (
	effortStandard effort = iota
	effortAggressive
	effortLight
)

const fallbackJPEGQuality = 30

type encodeParams struct {
	pngLevel png.CompressionLevel
	quality  int
}

var paramsByEffort = map[effort]encodeParams{
	effortStandard:   {pngLevel: png.DefaultCompression, quality: 85},
	effortAggressive: {pngLevel: png.BestCompression, quality: 60},
	effortLight:      {pngLevel: png.BestSpeed, quality: 80},
}

func encode(img image.Image, f Format, e effort) ([]byte, error) {
	p := paramsByEffort[e]
	var buf bytes.Buffer
	var err error
	switch f {
	case PNG:
		enc := png.Encoder{CompressionLevel: p.pngLevel}
		err = enc.Encode(&buf, img)
	case JPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality})
	case WEBP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(p.quality)})
	default:
		err = fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// targetSize floors each axis and never returns less than 1x1.
func targetSize(w, h int, scale float64) (int, int) {
	tw := int(math.Floor(float64(w) * scale))
	th := int(math.Floor(float64(h) * scale))
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}

func resize(src image.Image, w, h int, q draw.Interpolator) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	q.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// flatten composites src over white. Opaque images are returned unchanged.
func flatten(src image.Image) image.Image {
	if o, ok := src.(interface{ Opaque() bool }); ok && o.Opaque() {
		return src
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

// prepare drops transparency for formats that cannot store it.
func prepare(img image.Image, f Format) image.Image {
	if f.KeepsAlpha() {
		return img
	}
	return flatten(img)
}
