package permissions

import (
	"log"
	"sync"
)

// Gate checks screen-recording permission before each capture.
type Gate struct {
	mu        sync.Mutex
	requested bool
	preflight func() bool
	request   func() bool
}

func NewGate() *Gate {
	return &Gate{preflight: preflight, request: request}
}

// EnsureGranted reports whether screen capture is allowed. The first denial
// triggers the system prompt once per process; later calls only re-check.
func (g *Gate) EnsureGranted() bool {
	if g.preflight() {
		return true
	}

	g.mu.Lock()
	first := !g.requested
	g.requested = true
	g.mu.Unlock()

	if !first {
		return false
	}
	log.Printf("Screen recording permission missing, requesting access")
	if g.request() {
		return true
	}
	return g.preflight()
}

// Granted reports the current permission state without prompting.
func (g *Gate) Granted() bool { return g.preflight() }

// OpenSettings opens the system privacy pane where the permission is granted.
func OpenSettings() error { return openSettings() }
