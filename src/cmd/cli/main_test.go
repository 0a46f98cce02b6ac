package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestPNG(t *testing.T, dir string) (string, []byte) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path, buf.Bytes()
}

func TestNormalizeLegacyArgs(t *testing.T) {
	in := []string{"squeeze", "-file", "a.png", "-scale=0.25", "--json", "-v", "-x"}
	want := []string{"squeeze", "--file", "a.png", "--scale=0.25", "--json", "-v", "-x"}
	got := normalizeLegacyArgs(in)
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("Expected %v, got %v", want, got)
	}
}

func TestJSONReportWritesSiblingFile(t *testing.T) {
	dir := t.TempDir()
	path, data := writeTestPNG(t, dir)

	var out bytes.Buffer
	err := runWithArgs([]string{"squeeze", "--file", path, "--format", "jpeg", "--json"}, strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}

	var report CompressionReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("Invalid JSON output: %v\n%s", err, out.String())
	}
	if report.Source != path {
		t.Errorf("Expected source %q, got %q", path, report.Source)
	}
	if report.OriginalSize != len(data) {
		t.Errorf("Expected original_size %d, got %d", len(data), report.OriginalSize)
	}
	written, err := os.ReadFile(report.Output)
	if err != nil {
		t.Fatalf("Output file missing: %v", err)
	}
	if len(written) != report.CompressedSize {
		t.Errorf("Expected %d bytes on disk, got %d", report.CompressedSize, len(written))
	}
	if !report.UsedOriginal && filepath.Base(report.Output) != "shot_compressed.jpg" {
		t.Errorf("Unexpected output name %q", report.Output)
	}
}

func TestStdinToStdout(t *testing.T) {
	_, data := writeTestPNG(t, t.TempDir())

	var out bytes.Buffer
	err := runWithArgs([]string{"squeeze", "-file", "-", "-scale", "0.5"}, bytes.NewReader(data), &out)
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if out.Len() == 0 {
		t.Fatal("Expected image bytes on stdout")
	}
	if _, _, err := image.Decode(bytes.NewReader(out.Bytes())); err != nil {
		t.Fatalf("stdout is not a decodable image: %v", err)
	}
}

func TestJSONRejectedWithStdoutImage(t *testing.T) {
	_, data := writeTestPNG(t, t.TempDir())
	err := runWithArgs([]string{"squeeze", "--file", "-", "--json"}, bytes.NewReader(data), &bytes.Buffer{})
	if err == nil {
		t.Fatal("Expected error when JSON and image both target stdout")
	}
}

func TestInfoReportsTargetSize(t *testing.T) {
	path, _ := writeTestPNG(t, t.TempDir())

	var out bytes.Buffer
	if err := runWithArgs([]string{"squeeze", "--file", path, "--info", "--scale", "0.5"}, nil, &out); err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	var info struct {
		Width        int
		Height       int
		TargetWidth  int
		TargetHeight int
	}
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if info.Width != 64 || info.Height != 48 || info.TargetWidth != 32 || info.TargetHeight != 24 {
		t.Fatalf("Unexpected info %+v", info)
	}
}

func TestInvalidArguments(t *testing.T) {
	path, _ := writeTestPNG(t, t.TempDir())
	empty := filepath.Join(t.TempDir(), "empty.png")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"MissingFile", []string{"squeeze"}},
		{"ScaleTooLarge", []string{"squeeze", "--file", path, "--scale", "2"}},
		{"UnknownFormat", []string{"squeeze", "--file", path, "--format", "gif"}},
		{"EmptyInput", []string{"squeeze", "--file", empty}},
		{"NotFound", []string{"squeeze", "--file", filepath.Join(t.TempDir(), "nope.png")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runWithArgs(tt.args, strings.NewReader(""), &bytes.Buffer{}); err == nil {
				t.Fatal("Expected error")
			}
		})
	}
}

func TestResolveOutPath(t *testing.T) {
	if got := resolveOutPath("/tmp/a.png", "", "WEBP"); got != "/tmp/a_compressed.webp" {
		t.Errorf("Unexpected default path %q", got)
	}
	if got := resolveOutPath("-", "", "PNG"); got != "-" {
		t.Errorf("Expected stdout for stdin input, got %q", got)
	}
	if got := resolveOutPath("a.png", "b.png", "PNG"); got != "b.png" {
		t.Errorf("Expected explicit path, got %q", got)
	}
}
