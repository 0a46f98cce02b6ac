package screenshot

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion(" 10, 20,300 ,200")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r != (Region{X: 10, Y: 20, Width: 300, Height: 200}) {
		t.Errorf("unexpected region %+v", r)
	}

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "0,0,0,10", "0,0,10,-1"} {
		if _, err := ParseRegion(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestRegionEmpty(t *testing.T) {
	cases := map[Region]bool{
		{Width: 0, Height: 10}:  true,
		{Width: 10, Height: 0}:  true,
		{Width: -5, Height: 10}: true,
		{Width: 1, Height: 1}:   false,
	}
	for r, want := range cases {
		if got := r.Empty(); got != want {
			t.Errorf("%+v.Empty() = %v, want %v", r, got, want)
		}
	}
	if got := (Region{X: 5, Y: 6, Width: 7, Height: 8}).Rect(); got != image.Rect(5, 6, 12, 14) {
		t.Errorf("Rect() = %v", got)
	}
}

func TestCaptureRegionRejectsEmpty(t *testing.T) {
	s := NewSource()
	if _, err := s.CaptureRegion(Region{}); err == nil {
		t.Error("expected error for invalid region dimensions")
	}
}

func TestCaptureRegionEncodesPNG(t *testing.T) {
	s := &Source{capture: func(r image.Rectangle) (*image.RGBA, error) {
		return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
	}}
	data, err := s.CaptureRegion(Region{X: 0, Y: 0, Width: 30, Height: 20})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 30 || cfg.Height != 20 {
		t.Errorf("captured %dx%d, want 30x20", cfg.Width, cfg.Height)
	}
}

func TestEncodePNG(t *testing.T) {
	data, err := encodePNG(image.NewRGBA(image.Rect(0, 0, 3, 2)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width != 3 || cfg.Height != 2 {
		t.Errorf("round trip failed: %+v %v", cfg, err)
	}
}
