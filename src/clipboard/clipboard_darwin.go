//go:build darwin

package clipboard

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// writeTyped hands non-PNG images to the pasteboard through osascript.
// JPEG is stored as picture data; anything else is placed as a file
// reference to a stable temp file so it can still be pasted into apps.
func writeTyped(data []byte, mimeType string) error {
	dir := filepath.Join(os.TempDir(), "snapsqueeze")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create clipboard staging dir: %w", err)
	}

	var script string
	switch mimeType {
	case "image/jpeg":
		path := filepath.Join(dir, "clipboard.jpg")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("failed to stage clipboard data: %w", err)
		}
		defer os.Remove(path)
		script = fmt.Sprintf(`set the clipboard to (read (POSIX file %s) as JPEG picture)`, quote(path))
	default:
		path := filepath.Join(dir, "clipboard"+extensionFor(mimeType))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("failed to stage clipboard data: %w", err)
		}
		script = fmt.Sprintf(`set the clipboard to (POSIX file %s)`, quote(path))
	}

	out, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/tiff":
		return ".tiff"
	}
	return ".bin"
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
