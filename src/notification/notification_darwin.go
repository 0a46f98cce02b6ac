//go:build darwin

package notification

import (
	"fmt"
	"os/exec"
	"strings"
)

// showPlatform posts a Notification Center banner through osascript.
func showPlatform(title, message string, sound bool) error {
	script := fmt.Sprintf("display notification %s with title %s", appleScriptString(message), appleScriptString(title))
	if sound {
		script += ` sound name "Glass"`
	}
	out, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// ShowBlockingError shows a modal alert and waits for the user to dismiss it.
func ShowBlockingError(title, message string) {
	script := fmt.Sprintf("display alert %s message %s as critical", appleScriptString(title), appleScriptString(message))
	_ = exec.Command("osascript", "-e", script).Run()
}
