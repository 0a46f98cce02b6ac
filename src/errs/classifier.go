package errs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"snapsqueeze/src/memory"
	"snapsqueeze/src/notification"
)

const (
	// MaxRecords bounds the ring of recent errors.
	MaxRecords = 10
	// DefaultMemoryFloor is the availability a memory recovery must reach.
	DefaultMemoryFloor = 100 * memory.MB
)

// Record is one classified failure.
type Record struct {
	Kind      Kind
	Message   string
	Context   string
	Timestamp time.Time
}

// Stats is a copy of the classifier counters.
type Stats struct {
	Total  int
	Counts map[Kind]int
	Recent []Record
}

// RecoveryFunc tries to repair the condition behind err. It returns true
// when the caller may retry.
type RecoveryFunc func(err error, source string) bool

// Options configure a Classifier. Zero values select defaults.
type Options struct {
	Logger      *zap.Logger
	Probe       memory.Probe
	Notifier    notification.Notifier
	MemoryFloor uint64
	// Reclaim releases memory before a memory recovery re-checks availability.
	Reclaim func()
}

// Classifier is the single place where failures become user-visible.
// Safe for concurrent use.
type Classifier struct {
	log         *zap.Logger
	probe       memory.Probe
	memoryFloor uint64
	reclaim     func()

	mu             sync.Mutex
	notifier       notification.Notifier
	recoveries     map[Kind]RecoveryFunc
	clearClipboard func() error
	total          int
	counts         map[Kind]int
	recent         []Record
}

func NewClassifier(opts Options) *Classifier {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Probe == nil {
		opts.Probe = memory.NewSystemProbe()
	}
	if opts.MemoryFloor == 0 {
		opts.MemoryFloor = DefaultMemoryFloor
	}
	if opts.Reclaim == nil {
		opts.Reclaim = memory.Reclaim
	}
	return &Classifier{
		log:         opts.Logger.Named("errs"),
		probe:       opts.Probe,
		memoryFloor: opts.MemoryFloor,
		reclaim:     opts.Reclaim,
		notifier:    opts.Notifier,
		recoveries:  make(map[Kind]RecoveryFunc),
		counts:      make(map[Kind]int),
		recent:      make([]Record, 0, MaxRecords),
	}
}

// SetNotifier replaces the notification sink. A nil notifier disables
// user notifications.
func (c *Classifier) SetNotifier(n notification.Notifier) {
	c.mu.Lock()
	c.notifier = n
	c.mu.Unlock()
}

// RegisterRecovery installs a strategy that takes precedence over the
// default one for kind.
func (c *Classifier) RegisterRecovery(kind Kind, fn RecoveryFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn == nil {
		delete(c.recoveries, kind)
		return
	}
	c.recoveries[kind] = fn
}

// SetClipboardClearer installs the best-effort clear used to recover from
// clipboard failures.
func (c *Classifier) SetClipboardClearer(fn func() error) {
	c.mu.Lock()
	c.clearClipboard = fn
	c.mu.Unlock()
}

// Handle classifies err, records it, attempts recovery and notifies the
// user. source names the operation that failed.
func (c *Classifier) Handle(err error, source string) bool {
	return c.Report(err, source, true)
}

// Report is Handle with control over the user notification. A nil err is
// ignored and reports false.
func (c *Classifier) Report(err error, source string, notify bool) (recovered bool) {
	if err == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("panic in error handler", zap.Any("panic", r))
			recovered = false
		}
	}()

	kind := Classify(err)
	c.record(kind, err, source)
	c.log.Error("error",
		zap.String("kind", kind.String()),
		zap.String("context", source),
		zap.Error(err))

	recovered = c.attemptRecovery(kind, err, source)
	if notify {
		c.notify(kind, recovered)
	}
	return recovered
}

func (c *Classifier) record(kind Kind, err error, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	c.counts[kind]++
	if len(c.recent) == MaxRecords {
		copy(c.recent, c.recent[1:])
		c.recent = c.recent[:MaxRecords-1]
	}
	c.recent = append(c.recent, Record{
		Kind:      kind,
		Message:   err.Error(),
		Context:   source,
		Timestamp: time.Now(),
	})
}

func (c *Classifier) attemptRecovery(kind Kind, err error, source string) (ok bool) {
	c.mu.Lock()
	custom := c.recoveries[kind]
	c.mu.Unlock()

	if custom != nil {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("recovery strategy panicked", zap.String("kind", kind.String()), zap.Any("panic", r))
				ok = false
			}
		}()
		return custom(err, source)
	}

	switch kind {
	case KindOutOfMemory, KindMemoryAllocation:
		return c.recoverMemory()
	case KindPermissionDenied:
		c.log.Info("permission error detected, user intervention required")
		return false
	case KindImageLoad, KindImageCompress:
		c.reclaim()
		return true
	case KindClipboardAccess, KindClipboardWrite:
		return c.recoverClipboard()
	}
	return false
}

func (c *Classifier) recoverMemory() bool {
	c.reclaim()
	avail, err := c.probe.Available()
	if err != nil {
		c.log.Warn("memory recovery could not read availability", zap.Error(err))
		return false
	}
	if avail < c.memoryFloor {
		c.log.Warn("low memory after reclaim", zap.Uint64("available_mb", avail/memory.MB))
		return false
	}
	return true
}

func (c *Classifier) recoverClipboard() bool {
	c.mu.Lock()
	clearFn := c.clearClipboard
	c.mu.Unlock()
	if clearFn == nil {
		return false
	}
	if err := clearFn(); err != nil {
		c.log.Warn("clipboard recovery failed", zap.Error(err))
		return false
	}
	return true
}

type userMessage struct{ title, body string }

var userMessages = map[Kind]userMessage{
	KindPermissionDenied:   {"Permission Required", "Please grant Screen Recording permission in System Settings"},
	KindImageTooLarge:      {"Image Too Large", "The selected image is too large to process"},
	KindOutOfMemory:        {"Memory Error", "Not enough memory to complete the operation"},
	KindScreenshotCapture:  {"Capture Failed", "Failed to capture screenshot. Please try again"},
	KindClipboardAccess:    {"Clipboard Error", "Failed to copy image to clipboard"},
	KindClipboardWrite:     {"Clipboard Error", "Failed to copy image to clipboard"},
	KindHotkeyRegistration: {"Hotkey Error", "Failed to register hotkey. Use the menu instead"},
	KindUnknown:            {"Unexpected Error", "An unexpected error occurred"},
}

func (c *Classifier) notify(kind Kind, recovered bool) {
	msg, ok := userMessages[kind]
	if !ok {
		return
	}
	c.mu.Lock()
	n := c.notifier
	c.mu.Unlock()
	if n == nil {
		return
	}
	if recovered {
		n.Notify(notification.KindWarning, msg.title, msg.body+" (Automatically recovered)")
		return
	}
	n.Notify(notification.KindError, msg.title, msg.body)
}

// Stats returns a copy of the counters.
func (c *Classifier) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[Kind]int, len(c.counts))
	for k, v := range c.counts {
		counts[k] = v
	}
	recent := make([]Record, len(c.recent))
	copy(recent, c.recent)
	return Stats{Total: c.total, Counts: counts, Recent: recent}
}

func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = 0
	c.counts = make(map[Kind]int)
	c.recent = c.recent[:0]
}

// Classify maps err to a Kind: explicit kind first, then known error
// types, then keywords in the message.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if kind, ok := KindOf(err); ok {
		return kind
	}
	if kind, ok := classifyType(err); ok {
		return kind
	}
	return classifyMessage(err.Error())
}

func classifyType(err error) (Kind, bool) {
	if errors.Is(err, fs.ErrPermission) {
		return KindPermissionDenied, true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindSystem, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindSystem, true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOMEM:
			return KindOutOfMemory, true
		case syscall.EACCES, syscall.EPERM:
			return KindPermissionDenied, true
		}
		return KindSystem, true
	}
	var rtErr runtime.Error
	if errors.As(err, &rtErr) {
		msg := rtErr.Error()
		if strings.Contains(msg, "makeslice") || strings.Contains(msg, "memory") {
			return KindMemoryAllocation, true
		}
	}
	var pathErr *fs.PathError
	var sysErr *os.SyscallError
	if errors.As(err, &pathErr) || errors.As(err, &sysErr) {
		return KindSystem, true
	}
	return "", false
}

func classifyMessage(msg string) Kind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "memory") || strings.Contains(msg, "allocation"):
		return KindMemoryAllocation
	case strings.Contains(msg, "clipboard"):
		return KindClipboardAccess
	case strings.Contains(msg, "image"):
		return KindImageLoad
	case strings.Contains(msg, "screenshot") || strings.Contains(msg, "capture"):
		return KindScreenshotCapture
	case strings.Contains(msg, "hotkey"):
		return KindHotkeyRegistration
	}
	return KindUnknown
}

// Recovered converts a panic value into an error for Report.
func Recovered(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
