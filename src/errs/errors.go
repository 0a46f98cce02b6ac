package errs

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind is the closed set of failure classes surfaced to the user.
type Kind string

const (
	KindPermissionDenied   Kind = "permission-denied"
	KindSystem             Kind = "system-error"
	KindImageTooLarge      Kind = "image-too-large"
	KindImageLoad          Kind = "image-load-error"
	KindImageCompress      Kind = "image-compress-error"
	KindOutOfMemory        Kind = "out-of-memory"
	KindMemoryAllocation   Kind = "memory-allocation-error"
	KindClipboardAccess    Kind = "clipboard-access-error"
	KindClipboardWrite     Kind = "clipboard-write-error"
	KindScreenshotCapture  Kind = "screenshot-capture-error"
	KindHotkeyRegistration Kind = "hotkey-registration-error"
	KindUnknown            Kind = "unknown"
)

// Kinds lists every Kind in display order.
var Kinds = []Kind{
	KindPermissionDenied,
	KindSystem,
	KindImageTooLarge,
	KindImageLoad,
	KindImageCompress,
	KindOutOfMemory,
	KindMemoryAllocation,
	KindClipboardAccess,
	KindClipboardWrite,
	KindScreenshotCapture,
	KindHotkeyRegistration,
	KindUnknown,
}

func (k Kind) String() string { return string(k) }

// Error carries an explicit Kind so the classifier does not have to guess.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("[%s] %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(kind Kind, op string, err error) *Error {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap classifies err, returning nil when err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(kind, op, err)
}

// KindOf returns the explicit kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given explicit kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

var (
	ErrEmptyInput       = errors.New("empty input")
	ErrTooLarge         = errors.New("image exceeds size cap")
	ErrLowMemory        = errors.New("available memory below floor")
	ErrNoCapture        = errors.New("capture returned no data")
	ErrPermissionDenied = fmt.Errorf("screen recording permission not granted: %w", fs.ErrPermission)
	ErrUnsupportedMIME  = errors.New("unsupported clipboard mime type")
)
