//go:build !darwin

package permissions

// Other platforms have no screen-recording gate.
func preflight() bool { return true }

func request() bool { return true }

func openSettings() error { return nil }
