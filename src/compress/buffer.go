package compress

import (
	"bytes"
	"image"
	"image/color"
	"sync"
)

// ImageBuffer holds encoded image bytes and derives their header lazily.
// The bytes must not be modified after construction.
type ImageBuffer struct {
	data []byte

	once   sync.Once
	config image.Config
	format string
	err    error
}

func NewImageBuffer(data []byte) *ImageBuffer {
	return &ImageBuffer{data: data}
}

func (b *ImageBuffer) Bytes() []byte { return b.data }
func (b *ImageBuffer) Len() int      { return len(b.data) }

func (b *ImageBuffer) probe() {
	b.once.Do(func() {
		b.config, b.format, b.err = image.DecodeConfig(bytes.NewReader(b.data))
	})
}

// Dimensions returns the decoded width and height.
func (b *ImageBuffer) Dimensions() (int, int, error) {
	b.probe()
	return b.config.Width, b.config.Height, b.err
}

// SourceFormat is the registered decoder name ("png", "jpeg", ...).
func (b *ImageBuffer) SourceFormat() string {
	b.probe()
	return b.format
}

// Mode names the color model of the encoded image.
func (b *ImageBuffer) Mode() string {
	b.probe()
	if b.err != nil {
		return ""
	}
	return colorModeName(b.config.ColorModel)
}

// Decode decodes the full image.
func (b *ImageBuffer) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(b.data))
	return img, err
}

func colorModeName(m color.Model) string {
	switch m {
	case color.RGBAModel, color.NRGBAModel:
		return "RGBA"
	case color.RGBA64Model, color.NRGBA64Model:
		return "RGBA64"
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I;16"
	case color.YCbCrModel, color.NYCbCrAModel:
		return "YCbCr"
	case color.CMYKModel:
		return "CMYK"
	case color.AlphaModel, color.Alpha16Model:
		return "A"
	}
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	return "unknown"
}
