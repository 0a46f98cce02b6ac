package messages

import (
	"snapsqueeze/src/compress"
	"snapsqueeze/src/config"
	"snapsqueeze/src/screenshot"
)

// Message is the base interface for everything posted to the event loop inbox.
type Message interface {
	Type() string
}

// MessageType constants for type identification
const (
	TypeTriggerCapture   = "TriggerCapture"
	TypeRegionSelected   = "RegionSelected"
	TypeRegionCancelled  = "RegionCancelled"
	TypeCompressComplete = "CompressComplete"
	TypeMemoryPressure   = "MemoryPressure"
	TypeConfigChanged    = "ConfigChanged"
	TypeUpdateRequest    = "UpdateRequest"
)

// Sources of a capture trigger.
const (
	SourceHotkey  = "hotkey"
	SourceMenu    = "menu"
	SourceRunOnce = "run-once"
)

// Outcome is reported to the trigger's Done callback when a capture ends.
type Outcome struct {
	Result compress.Result
	Err    error
}

// TriggerCapture - sent by the hotkey, the menu or a delegated run-once
// request to start a capture sequence.
type TriggerCapture struct {
	Source string
	// Request overrides the loop's current request when valid.
	Request compress.Request
	// SkipClipboard delivers the result only through Done.
	SkipClipboard bool
	// Done is called once when the sequence ends, including when the
	// trigger is dropped because a capture is already running.
	Done func(Outcome)
}

func (m TriggerCapture) Type() string { return TypeTriggerCapture }

// RegionSelected - sent by the selector goroutine when the user picks a region
type RegionSelected struct {
	Region screenshot.Region
}

func (m RegionSelected) Type() string { return TypeRegionSelected }

// RegionCancelled - sent by the selector goroutine on cancel or failure.
// Err is nil for a plain cancel.
type RegionCancelled struct {
	Err error
}

func (m RegionCancelled) Type() string { return TypeRegionCancelled }

// CompressComplete - sent by a worker when compression finished
type CompressComplete struct {
	Result compress.Result
}

func (m CompressComplete) Type() string { return TypeCompressComplete }

// MemoryPressure - sent by the memory monitor when usage crosses the threshold
type MemoryPressure struct {
	UsedPercent float64
}

func (m MemoryPressure) Type() string { return TypeMemoryPressure }

// ConfigChanged - sent by the config watcher when the configuration file changes
type ConfigChanged struct {
	Config config.Config
}

func (m ConfigChanged) Type() string { return TypeConfigChanged }

// UpdateRequest - sent by the menu to change scale or format. Zero fields
// leave the current value unchanged.
type UpdateRequest struct {
	Scale  float64
	Format compress.Format
}

func (m UpdateRequest) Type() string { return TypeUpdateRequest }
