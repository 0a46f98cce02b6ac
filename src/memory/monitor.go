package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultInterval  = 5 * time.Second
	DefaultThreshold = 85.0
	errorBackoff     = 10 * time.Second
)

// PressureFunc is invoked from the monitor goroutine with the sampled usage.
// It must not block; post to a channel instead.
type PressureFunc func(usedPercent float64)

// Monitor polls memory usage on a fixed interval and fires callbacks while
// usage is above the threshold.
type Monitor struct {
	probe     Probe
	interval  time.Duration
	threshold float64
	log       *zap.Logger

	mu        sync.Mutex
	callbacks []PressureFunc
	cancel    context.CancelFunc
	done      chan struct{}
}

type MonitorOptions struct {
	Interval  time.Duration
	Threshold float64
	Logger    *zap.Logger
}

func NewMonitor(probe Probe, opts MonitorOptions) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Threshold <= 0 || opts.Threshold > 100 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Monitor{
		probe:     probe,
		interval:  opts.Interval,
		threshold: opts.Threshold,
		log:       opts.Logger.Named("memory"),
	}
}

// OnPressure registers a callback.
func (m *Monitor) OnPressure(fn PressureFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.callbacks = append(m.callbacks, fn)
	m.mu.Unlock()
}

// Start launches the polling goroutine. Calling Start on a running monitor
// is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(ctx, m.done)
	m.log.Info("memory monitoring started",
		zap.Duration("interval", m.interval),
		zap.Float64("threshold_percent", m.threshold))
}

// Stop halts polling and waits for the goroutine to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.log.Info("memory monitoring stopped")
}

// Running reports whether the polling goroutine is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	wait := m.check()
	for {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			wait = m.check()
		}
	}
}

// check samples once and returns how long to wait before the next sample.
func (m *Monitor) check() time.Duration {
	pct, err := m.probe.UsedPercent()
	if err != nil {
		m.log.Warn("memory sample failed", zap.Error(err))
		return errorBackoff
	}
	if pct <= m.threshold {
		return m.interval
	}

	m.mu.Lock()
	cbs := make([]PressureFunc, len(m.callbacks))
	copy(cbs, m.callbacks)
	m.mu.Unlock()

	m.log.Warn("high memory usage", zap.Float64("used_percent", pct))
	for _, cb := range cbs {
		m.invoke(cb, pct)
	}
	return m.interval
}

func (m *Monitor) invoke(cb PressureFunc, pct float64) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("memory callback panicked", zap.Any("panic", r))
		}
	}()
	cb(pct)
}
