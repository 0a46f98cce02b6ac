package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"snapsqueeze/src/compress"
	"snapsqueeze/src/errs"
	"snapsqueeze/src/notification"
	"snapsqueeze/src/screenshot"
	"snapsqueeze/src/singleinstance"
)

var ErrSelectionCancelled = errors.New("selection cancelled")

// CaptureSource grabs a screen region as encoded image bytes.
type CaptureSource interface {
	CaptureRegion(r screenshot.Region) ([]byte, error)
}

// ClipboardSink places image bytes on the clipboard.
type ClipboardSink interface {
	Write(data []byte, mimeType string) error
}

// PermissionGate reports whether screen capture is allowed.
type PermissionGate interface {
	EnsureGranted() bool
}

// Compressor is the part of compress.Compressor a capture needs.
type Compressor interface {
	CompressResult(data []byte, req compress.Request) compress.Result
}

type RegionSelectorFunc func(ctx context.Context) (screenshot.Region, bool, error)

// ResultTarget receives the outcome of a capture.
type ResultTarget interface {
	OnSuccess(res compress.Result) error
	OnFailure(err error) error
}

type Options struct {
	Gate         PermissionGate
	SelectRegion RegionSelectorFunc
	Capture      CaptureSource
	Compressor   Compressor
	Request      compress.Request
	Target       ResultTarget
}

// Execute runs one capture synchronously: permission, selection, capture,
// compression and delivery. It is used when no resident instance owns the
// event loop.
func Execute(ctx context.Context, opts Options) (compress.Result, error) {
	if opts.SelectRegion == nil {
		return compress.Result{}, errors.New("SelectRegion is required")
	}
	if opts.Capture == nil || opts.Compressor == nil {
		return compress.Result{}, errors.New("Capture and Compressor are required")
	}
	if opts.Target == nil {
		return compress.Result{}, errors.New("Target is required")
	}

	fail := func(err error) (compress.Result, error) {
		_ = opts.Target.OnFailure(err)
		return compress.Result{}, err
	}

	if opts.Gate != nil && !opts.Gate.EnsureGranted() {
		return fail(errs.New(errs.KindPermissionDenied, "permission check", errs.ErrPermissionDenied))
	}

	region, cancelled, err := opts.SelectRegion(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to select region: %w", err))
	}
	if cancelled || region.Empty() {
		return fail(ErrSelectionCancelled)
	}

	data, err := opts.Capture.CaptureRegion(region)
	if err != nil {
		return fail(errs.Wrap(errs.KindScreenshotCapture, "capture", err))
	}
	if len(data) == 0 {
		return fail(errs.New(errs.KindScreenshotCapture, "capture", errs.ErrNoCapture))
	}

	req := opts.Request
	if req == (compress.Request{}) {
		req = compress.MustRequest(0.5, compress.PNG)
	}
	res := opts.Compressor.CompressResult(data, req)

	if err := opts.Target.OnSuccess(res); err != nil {
		_ = opts.Target.OnFailure(err)
		return res, err
	}
	return res, nil
}

// MIMEType returns the clipboard type for a result.
func MIMEType(res compress.Result) string {
	if res.Format == "" {
		return compress.PNG.MIMEType()
	}
	return res.Format.MIMEType()
}

// Summary renders a one-line description of a result.
func Summary(res compress.Result) string {
	format := res.Format
	if format == "" {
		format = compress.PNG
	}
	return fmt.Sprintf("%s %dx%d, %s", format,
		res.Width, res.Height,
		notification.CompressionMessage(res.OriginalSize, res.CompressedSize, res.Ratio))
}

type ClipboardTarget struct {
	Sink ClipboardSink
}

func (t ClipboardTarget) OnSuccess(res compress.Result) error {
	return t.Sink.Write(res.Data, MIMEType(res))
}

func (ClipboardTarget) OnFailure(err error) error {
	return nil
}

// WriterTarget streams the compressed bytes, for example to stdout.
type WriterTarget struct {
	Writer io.Writer
}

func (t WriterTarget) OnSuccess(res compress.Result) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	_, err := w.Write(res.Data)
	return err
}

func (WriterTarget) OnFailure(err error) error {
	return nil
}

// FileTarget writes the compressed bytes to Path.
type FileTarget struct {
	Path string
}

func (t FileTarget) OnSuccess(res compress.Result) error {
	if err := os.WriteFile(t.Path, res.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", t.Path, err)
	}
	return nil
}

func (FileTarget) OnFailure(err error) error {
	return nil
}

// DelegatedTarget answers a run-once client of the resident instance.
// STDOUT clients receive the image bytes; CLIPBOARD clients receive a
// summary after the resident wrote the clipboard.
type DelegatedTarget struct {
	Conn           singleinstance.Conn
	OutputToStdout bool
}

func (t DelegatedTarget) OnSuccess(res compress.Result) error {
	if t.Conn == nil {
		return errors.New("delegated target missing connection")
	}
	if t.OutputToStdout {
		return t.Conn.RespondSuccess(res.Data)
	}
	return t.Conn.RespondSuccess([]byte(Summary(res) + "\n"))
}

func (t DelegatedTarget) OnFailure(err error) error {
	if t.Conn == nil {
		return nil
	}
	if err == nil {
		return t.Conn.RespondError("unknown session error")
	}
	return t.Conn.RespondError(err.Error())
}
