//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>
*/
import "C"

import "os/exec"

func preflight() bool { return bool(C.CGPreflightScreenCaptureAccess()) }

func request() bool { return bool(C.CGRequestScreenCaptureAccess()) }

func openSettings() error {
	return exec.Command("open", "x-apple.systempreferences:com.apple.preference.security?Privacy_ScreenCapture").Run()
}
