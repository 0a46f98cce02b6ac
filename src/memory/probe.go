// Package memory samples system memory and watches for memory pressure.
package memory

import (
	"runtime"
	"runtime/debug"

	"github.com/shirou/gopsutil/v4/mem"
)

const MB = 1024 * 1024

// Probe reports system memory availability.
type Probe interface {
	// Available returns the bytes of memory available to new allocations.
	Available() (uint64, error)
	// UsedPercent returns system-wide memory usage in percent (0-100).
	UsedPercent() (float64, error)
}

// SystemProbe reads virtual memory statistics through gopsutil.
type SystemProbe struct{}

func NewSystemProbe() SystemProbe { return SystemProbe{} }

func (SystemProbe) Available() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

func (SystemProbe) UsedPercent() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// StaticProbe returns fixed values. Useful for tests and for platforms where
// gopsutil has no backend.
type StaticProbe struct {
	AvailableBytes uint64
	Percent        float64
	Err            error
}

func (p StaticProbe) Available() (uint64, error)    { return p.AvailableBytes, p.Err }
func (p StaticProbe) UsedPercent() (float64, error) { return p.Percent, p.Err }

// Reclaim forces a collection and returns freed pages to the OS.
func Reclaim() {
	runtime.GC()
	debug.FreeOSMemory()
}
