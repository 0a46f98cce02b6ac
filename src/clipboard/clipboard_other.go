//go:build !darwin

package clipboard

import (
	"fmt"

	"snapsqueeze/src/errs"
)

func writeTyped(data []byte, mimeType string) error {
	return errs.New(errs.KindClipboardWrite, "clipboard write", fmt.Errorf("%w: %s", errs.ErrUnsupportedMIME, mimeType))
}
