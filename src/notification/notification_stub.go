//go:build !darwin

package notification

import "log"

// ShowBlockingError logs a blocking error message on non-macOS platforms.
func ShowBlockingError(title, message string) {
	log.Printf("%s: %s", title, message)
}

func showPlatform(title, message string, sound bool) error {
	log.Printf("Banner: %s: %s", title, message)
	return nil
}
