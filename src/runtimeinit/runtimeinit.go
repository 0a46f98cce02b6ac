package runtimeinit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"snapsqueeze/src/clipboard"
	"snapsqueeze/src/compress"
	"snapsqueeze/src/config"
	"snapsqueeze/src/errs"
	"snapsqueeze/src/eventloop"
	"snapsqueeze/src/hotkey"
	"snapsqueeze/src/logutil"
	"snapsqueeze/src/memory"
	"snapsqueeze/src/messages"
	"snapsqueeze/src/notification"
	"snapsqueeze/src/overlay"
	"snapsqueeze/src/permissions"
	"snapsqueeze/src/screenshot"
	"snapsqueeze/src/session"
	"snapsqueeze/src/singleinstance"
	"snapsqueeze/src/stats"
	"snapsqueeze/src/worker"
)

type Options struct {
	LoadOptions config.LoadOptions
	// Console mirrors logs to stderr.
	Console bool
	// SetupLogging replaces logutil.Setup, for tests.
	SetupLogging func(logutil.Options) (*zap.Logger, func(), error)
}

// App holds the process-wide objects. Every collaborator of the event loop
// is built here and injected.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Notifier   *notification.Center
	Classifier *errs.Classifier
	Stats      *stats.Performance
	Compressor *compress.Compressor
	Pool       *worker.Pool
	Monitor    *memory.Monitor
	Clipboard  *clipboard.Sink
	Gate       *permissions.Gate
	Selector   *overlay.FixedSelector
	Capture    *screenshot.Source

	loadOptions config.LoadOptions
	closers     []func()
}

// Bootstrap loads configuration, sets up logging and builds the capture
// pipeline.
func Bootstrap(opts Options) (*App, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	setup := opts.SetupLogging
	if setup == nil {
		setup = logutil.Setup
	}
	logger, closeLog, err := setup(logutil.Options{
		FileLogging: cfg.EnableFileLogging,
		Console:     opts.Console,
		Level:       cfg.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	for _, w := range cfg.Warnings {
		logger.Warn("configuration value ignored", zap.String("detail", w))
	}

	app := &App{
		Config:      cfg,
		Logger:      logger,
		loadOptions: opts.LoadOptions,
		closers:     []func(){closeLog},
	}
	app.Notifier = notification.NewCenter()
	app.Clipboard = clipboard.NewSink()
	app.Gate = permissions.NewGate()
	app.Capture = screenshot.NewSource()
	app.Selector = overlay.NewSelector(cfg.CaptureRegion)

	probe := memory.NewSystemProbe()
	app.Classifier = errs.NewClassifier(errs.Options{
		Logger:   logger,
		Probe:    probe,
		Notifier: app.Notifier,
	})
	app.Classifier.SetClipboardClearer(app.Clipboard.Clear)

	app.Stats = stats.NewPerformance()
	app.Compressor = compress.New(compress.Options{
		Logger:   logger,
		Probe:    probe,
		Stats:    app.Stats,
		Reporter: app.Classifier,
	})
	app.Pool = worker.New(cfg.WorkerPoolSize, app.Compressor)
	app.Monitor = memory.NewMonitor(probe, memory.MonitorOptions{
		Interval:  time.Duration(cfg.MemoryCheckIntervalSec) * time.Second,
		Threshold: cfg.MemoryThresholdPercent,
		Logger:    logger,
	})
	app.closers = append(app.closers, app.Pool.Close, app.Monitor.Stop)

	if err := clipboard.Init(); err != nil {
		logger.Warn("clipboard unavailable", zap.Error(err))
	}
	logger.Info("initialized",
		zap.String("hotkey", cfg.Hotkey),
		zap.Stringer("request", cfg.Request()),
		zap.Int("workers", cfg.WorkerPoolSize))
	return app, nil
}

// Close stops background work and flushes logs, in reverse order of setup.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// NewLoop builds the capture orchestrator. srv may be nil.
func (a *App) NewLoop(srv singleinstance.Server, onState func(eventloop.State)) *eventloop.Loop {
	deps := eventloop.Deps{
		Gate:      a.Gate,
		Selector:  a.Selector,
		Capture:   a.Capture,
		Clipboard: a.Clipboard,
		Pool:      a.Pool,
		Reporter:  a.Classifier,
		Notifier:  a.Notifier,
		Logger:    a.Logger,
		Request:   a.Config.Request(),
		OnState:   onState,
	}
	if srv != nil {
		deps.Server = srv
	}
	return eventloop.New(deps)
}

// Resident wires the background producers of a long-running instance to
// loop: the global hotkey, the memory monitor and the config watcher. It
// returns once they are started; they stop with ctx.
func (a *App) Resident(ctx context.Context, loop *eventloop.Loop, onConfig func(*config.Config)) {
	listener := hotkey.NewListener(hotkey.NewRegistry())
	if _, err := listener.Bind(a.Config.Hotkey, func() { loop.TriggerCapture(messages.SourceHotkey) }); err != nil {
		a.Classifier.Handle(err, "hotkey")
	} else {
		listener.Start()
		a.closers = append(a.closers, listener.Stop)
	}

	a.Monitor.OnPressure(func(pct float64) {
		loop.Post(messages.MemoryPressure{UsedPercent: pct})
	})
	a.Monitor.Start(ctx)

	files := a.Config.Files()
	if len(files) == 0 {
		return
	}
	go func() {
		err := config.Watch(ctx, a.loadOptions, files, func(cfg *config.Config, err error) {
			if err != nil {
				a.Logger.Warn("config reload failed", zap.Error(err))
				return
			}
			a.Logger.Info("configuration reloaded", zap.Stringer("request", cfg.Request()))
			if !a.Selector.SetRegion(cfg.CaptureRegion) {
				a.Logger.Warn("invalid CAPTURE_REGION ignored", zap.String("value", cfg.CaptureRegion))
			}
			loop.Post(messages.ConfigChanged{Config: *cfg})
			if onConfig != nil {
				onConfig(cfg)
			}
		})
		if err != nil && ctx.Err() == nil {
			a.Logger.Warn("config watcher stopped", zap.Error(err))
		}
	}()
}

// RunOnce captures once without a resident event loop.
func (a *App) RunOnce(ctx context.Context, req compress.Request, target session.ResultTarget) (compress.Result, error) {
	if !req.Valid() {
		req = a.Config.Request()
	}
	res, err := session.Execute(ctx, session.Options{
		Gate:         a.Gate,
		SelectRegion: a.Selector.Select,
		Capture:      a.Capture,
		Compressor:   a.Compressor,
		Request:      req,
		Target:       target,
	})
	if err != nil && !errors.Is(err, session.ErrSelectionCancelled) {
		a.Classifier.Report(err, "run-once", false)
	}
	return res, err
}

// StatsSummary renders compression and error counters for display.
func (a *App) StatsSummary() string {
	s := a.Stats.Snapshot()
	e := a.Classifier.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, "Compressions: %d (avg %s)", s.TotalOperations, s.AverageTime.Round(time.Millisecond))
	if s.BytesIn > 0 {
		saved := float64(s.BytesIn-s.BytesOut) / float64(s.BytesIn) * 100
		fmt.Fprintf(&b, "\nSaved: %.1f%% of %s", saved, notification.FormatSize(int(s.BytesIn)))
	}
	if s.OptimizationsApplied > 0 {
		fmt.Fprintf(&b, "\nLarge-image optimizations: %d", s.OptimizationsApplied)
	}
	fmt.Fprintf(&b, "\nErrors: %d", e.Total)
	return b.String()
}

// CheckPermissions reports the permission state to the user and opens the
// settings pane when capture is not allowed.
func (a *App) CheckPermissions() {
	if a.Gate.Granted() {
		a.Notifier.Notify(notification.KindSuccess, "Permissions", "Screen recording permission granted")
		return
	}
	a.Classifier.Handle(errs.New(errs.KindPermissionDenied, "permission check", errs.ErrPermissionDenied), "menu")
	if err := permissions.OpenSettings(); err != nil {
		log.Printf("Failed to open privacy settings: %v", err)
	}
}
