package clipboard

import (
	"sync"

	"golang.design/x/clipboard"

	"snapsqueeze/src/errs"
)

var (
	initOnce sync.Once
	initErr  error
	writeMu  sync.Mutex
)

// Init prepares the platform clipboard. It is safe to call repeatedly.
func Init() error {
	initOnce.Do(func() {
		initErr = clipboard.Init()
	})
	return initErr
}

// Sink places compressed image bytes on the system clipboard.
type Sink struct {
	writeImage func(data []byte) error
	writeTyped func(data []byte, mimeType string) error
}

func NewSink() *Sink {
	return &Sink{writeImage: writePNG, writeTyped: writeTyped}
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
// PNG goes through the portable image format; other types use the
// platform-specific path.
func (s *Sink) Write(data []byte, mimeType string) error {
	if len(data) == 0 {
		return errs.New(errs.KindClipboardAccess, "clipboard write", errs.ErrEmptyInput)
	}

	writeMu.Lock()
	defer writeMu.Unlock()

	var err error
	switch mimeType {
	case "", "image/png":
		err = s.writeImage(data)
	default:
		err = s.writeTyped(data, mimeType)
	}
	if err == nil {
		return nil
	}
	if _, ok := errs.KindOf(err); ok {
		return err
	}
	return errs.New(errs.KindClipboardWrite, "clipboard write", err)
}

// Clear empties the clipboard. The error classifier uses it as the
// clipboard recovery step.
func (s *Sink) Clear() error {
	if err := Init(); err != nil {
		return errs.New(errs.KindClipboardAccess, "clipboard init", err)
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte{})
	return nil
}

func writePNG(data []byte) error {
	if err := Init(); err != nil {
		return errs.New(errs.KindClipboardAccess, "clipboard init", err)
	}
	clipboard.Write(clipboard.FmtImage, data)
	return nil
}
