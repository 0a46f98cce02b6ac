package notification

import (
	"fmt"
	"log"
	"sync"
)

// Kind selects the banner style.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

const maxMessageLen = 200

// Notifier delivers a user-visible banner. Implementations must not block
// the caller for longer than it takes to hand the banner to the OS.
type Notifier interface {
	Notify(kind Kind, title, message string)
}

// Func adapts a function to Notifier.
type Func func(kind Kind, title, message string)

func (f Func) Notify(kind Kind, title, message string) { f(kind, title, message) }

// Center shows banners through the platform backend and can be muted from
// the menu.
type Center struct {
	mu      sync.Mutex
	enabled bool
	sound   bool
	show    func(title, message string, sound bool) error
}

// NewCenter returns a Center using the platform backend.
func NewCenter() *Center {
	return &Center{enabled: true, sound: true, show: showPlatform}
}

func (c *Center) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

func (c *Center) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Notify logs the banner and shows it asynchronously.
func (c *Center) Notify(kind Kind, title, message string) {
	c.mu.Lock()
	enabled, sound, show := c.enabled, c.sound, c.show
	c.mu.Unlock()

	message = truncate(message, maxMessageLen)
	log.Printf("notification [%s] %s: %s", kind, title, message)
	if !enabled || show == nil {
		return
	}
	// Errors and warnings always play a sound; info stays silent.
	playSound := sound && kind != KindInfo
	go func() {
		if err := show(title, message, playSound); err != nil {
			log.Printf("Failed to show notification: %v", err)
		}
	}()
}

// CompressionMessage renders the success banner body.
func CompressionMessage(originalSize, compressedSize int, reductionPercent float64) string {
	return fmt.Sprintf("%s → %s (%.1f%% smaller)", FormatSize(originalSize), FormatSize(compressedSize), reductionPercent)
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	size := float64(n)
	for _, u := range []string{"B", "KB", "MB", "GB"} {
		if size < unit {
			return fmt.Sprintf("%.1f %s", size, u)
		}
		size /= unit
	}
	return fmt.Sprintf("%.1f TB", size)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
