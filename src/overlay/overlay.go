package overlay

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"snapsqueeze/src/screenshot"
)

// Selector defines a blocking region-selection API. The event loop calls it
// from a helper goroutine and turns the outcome into a message.
// Returns (region, cancelled, error). If cancelled is true, region is undefined and err is nil.
type Selector interface {
	Select(ctx context.Context) (screenshot.Region, bool, error)
}

// Func adapts a plain function to Selector.
type Func func(ctx context.Context) (screenshot.Region, bool, error)

func (f Func) Select(ctx context.Context) (screenshot.Region, bool, error) { return f(ctx) }

// AllDisplays is the CAPTURE_REGION value that captures the union of every
// active display.
const AllDisplays = "all"

// FixedSelector returns a preconfigured region, or a display when none is
// configured. It stands in for an interactive overlay.
type FixedSelector struct {
	mu     sync.RWMutex
	region screenshot.Region
	all    bool

	bounds  func() (screenshot.Region, error)
	virtual func() (screenshot.Region, error)
}

// NewSelector returns a selector for the configured CAPTURE_REGION value.
// An empty or invalid value selects the whole primary display; "all" selects
// every display.
func NewSelector(region string) *FixedSelector {
	s := &FixedSelector{bounds: screenshot.PrimaryBounds, virtual: screenshot.VirtualBounds}
	s.SetRegion(region)
	return s
}

// SetRegion replaces the configured region. It reports false when region was
// non-empty but could not be parsed.
func (s *FixedSelector) SetRegion(region string) bool {
	var r screenshot.Region
	all := strings.EqualFold(strings.TrimSpace(region), AllDisplays)
	ok := true
	if region != "" && !all {
		parsed, err := screenshot.ParseRegion(region)
		if err != nil {
			ok = false
		} else {
			r = parsed
		}
	}
	s.mu.Lock()
	s.region = r
	s.all = all
	s.mu.Unlock()
	return ok
}

func (s *FixedSelector) Select(ctx context.Context) (screenshot.Region, bool, error) {
	if err := ctx.Err(); err != nil {
		return screenshot.Region{}, true, nil
	}
	s.mu.RLock()
	r, all := s.region, s.all
	s.mu.RUnlock()
	if !r.Empty() {
		return r, false, nil
	}
	resolve := s.bounds
	if all {
		resolve = s.virtual
	}
	r, err := resolve()
	if err != nil {
		return screenshot.Region{}, false, fmt.Errorf("failed to resolve display bounds: %w", err)
	}
	return r, false, nil
}
