package compress

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Format is an output encoding.
type Format string

const (
	PNG  Format = "PNG"
	JPEG Format = "JPEG"
	WEBP Format = "WEBP"
)

// Formats lists the supported output formats.
var Formats = []Format{PNG, JPEG, WEBP}

var ErrInvalidRequest = errors.New("invalid compression request")

// ParseFormat accepts format names and common extensions, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "PNG":
		return PNG, nil
	case "JPEG", "JPG":
		return JPEG, nil
	case "WEBP":
		return WEBP, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

func (f Format) Valid() bool {
	switch f {
	case PNG, JPEG, WEBP:
		return true
	}
	return false
}

// KeepsAlpha reports whether the encoding stores transparency.
func (f Format) KeepsAlpha() bool { return f == PNG }

func (f Format) MIMEType() string {
	switch f {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	case WEBP:
		return "image/webp"
	}
	return "application/octet-stream"
}

func (f Format) Extension() string {
	switch f {
	case PNG:
		return ".png"
	case JPEG:
		return ".jpg"
	case WEBP:
		return ".webp"
	}
	return ""
}

func (f Format) String() string { return string(f) }

// Request is a validated compression request. The zero value is invalid;
// build one with NewRequest.
type Request struct {
	scale  float64
	format Format
}

// NewRequest validates scale in (0,1] and a supported format.
func NewRequest(scale float64, format Format) (Request, error) {
	if math.IsNaN(scale) || scale <= 0 || scale > 1 {
		return Request{}, fmt.Errorf("%w: scale %v outside (0,1]", ErrInvalidRequest, scale)
	}
	if !format.Valid() {
		return Request{}, fmt.Errorf("%w: format %q", ErrInvalidRequest, format)
	}
	return Request{scale: scale, format: format}, nil
}

// MustRequest is NewRequest for constant arguments. It panics on invalid input.
func MustRequest(scale float64, format Format) Request {
	req, err := NewRequest(scale, format)
	if err != nil {
		panic(err)
	}
	return req
}

func (r Request) Scale() float64 { return r.scale }
func (r Request) Format() Format { return r.format }

// Valid reports whether r was built by NewRequest.
func (r Request) Valid() bool { return r.scale > 0 && r.scale <= 1 && r.format.Valid() }

func (r Request) String() string {
	return fmt.Sprintf("%s@%.2f", r.format, r.scale)
}
