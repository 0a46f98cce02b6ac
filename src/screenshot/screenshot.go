package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"strings"

	"github.com/kbinani/screenshot"

	"snapsqueeze/src/errs"
)

// Region represents a screen region to capture, in virtual-screen points.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports a zero or degenerate selection.
func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

// ParseRegion parses "x,y,w,h".
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("region %q: want x,y,w,h", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	r := Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if r.Empty() {
		return Region{}, fmt.Errorf("region %q: width and height must be positive", s)
	}
	return r, nil
}

// Source captures screen regions through the platform capture API and
// returns them as PNG bytes.
type Source struct {
	capture func(image.Rectangle) (*image.RGBA, error)
}

func NewSource() *Source {
	return &Source{capture: screenshot.CaptureRect}
}

// CaptureRegion captures a specific region of the screen
func (s *Source) CaptureRegion(region Region) ([]byte, error) {
	if region.Empty() {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", region.Width, region.Height)
	}
	img, err := s.capture(region.Rect())
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errs.ErrNoCapture
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// PrimaryBounds returns the bounds of the primary display.
func PrimaryBounds() (Region, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return Region{}, fmt.Errorf("no active displays found")
	}
	return fromRect(screenshot.GetDisplayBounds(0)), nil
}

// VirtualBounds returns the union of all active displays.
func VirtualBounds() (Region, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return Region{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return fromRect(union), nil
}

func fromRect(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}
