package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorFiresAboveThreshold(t *testing.T) {
	m := NewMonitor(StaticProbe{Percent: 92}, MonitorOptions{Interval: 5 * time.Millisecond, Threshold: 85})
	fired := make(chan float64, 16)
	m.OnPressure(func(p float64) {
		select {
		case fired <- p:
		default:
		}
	})
	m.Start(context.Background())
	defer m.Stop()

	select {
	case p := <-fired:
		assert.Equal(t, 92.0, p)
	case <-time.After(2 * time.Second):
		t.Fatal("pressure callback not invoked")
	}
}

func TestMonitorQuietBelowThreshold(t *testing.T) {
	m := NewMonitor(StaticProbe{Percent: 50}, MonitorOptions{Interval: 2 * time.Millisecond, Threshold: 85})
	var calls atomic.Int32
	m.OnPressure(func(float64) { calls.Add(1) })
	m.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	assert.Zero(t, calls.Load())
}

func TestMonitorStopHaltsPolling(t *testing.T) {
	m := NewMonitor(StaticProbe{Percent: 99}, MonitorOptions{Interval: 2 * time.Millisecond})
	var calls atomic.Int32
	m.OnPressure(func(float64) { calls.Add(1) })

	m.Start(context.Background())
	m.Start(context.Background())
	require.True(t, m.Running())
	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, time.Millisecond)

	m.Stop()
	assert.False(t, m.Running())
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())

	m.Stop()
}

func TestMonitorSurvivesPanickingCallback(t *testing.T) {
	m := NewMonitor(StaticProbe{Percent: 99}, MonitorOptions{Interval: 2 * time.Millisecond})
	var good atomic.Int32
	m.OnPressure(func(float64) { panic("bad callback") })
	m.OnPressure(func(float64) { good.Add(1) })
	m.Start(context.Background())
	defer m.Stop()
	require.Eventually(t, func() bool { return good.Load() >= 2 }, 2*time.Second, time.Millisecond)
}

func TestMonitorProbeErrorBacksOff(t *testing.T) {
	m := NewMonitor(StaticProbe{Err: errors.New("unavailable")}, MonitorOptions{Interval: time.Millisecond})
	assert.Equal(t, errorBackoff, m.check())
}

func TestMonitorDefaults(t *testing.T) {
	m := NewMonitor(StaticProbe{}, MonitorOptions{Threshold: 150})
	assert.Equal(t, DefaultInterval, m.interval)
	assert.Equal(t, DefaultThreshold, m.threshold)
}

func TestMonitorContextCancelStopsLoop(t *testing.T) {
	m := NewMonitor(StaticProbe{Percent: 10}, MonitorOptions{Interval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	done := m.done
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit on context cancel")
	}
	m.Stop()
}
