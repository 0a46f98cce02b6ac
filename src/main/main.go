package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"snapsqueeze/src/compress"
	"snapsqueeze/src/config"
	"snapsqueeze/src/eventloop"
	"snapsqueeze/src/messages"
	"snapsqueeze/src/notification"
	"snapsqueeze/src/runtimeinit"
	"snapsqueeze/src/session"
	"snapsqueeze/src/singleinstance"
	"snapsqueeze/src/tray"
)

type mainOptions struct {
	runOnce    bool
	stdout     bool
	scale      float64
	format     string
	hotkey     string
	envPath    string
	configPath string
	verbose    bool
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	// The menu-bar loop must own the main thread
	runtime.LockOSThread()

	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"snapsqueeze"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "snapsqueeze",
		Short:         "Menu-bar screenshot compressor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.runOnce {
				return runOnce(cmd.Context(), *opts)
			}
			return runResident(*opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.runOnce, "run-once", false, "Capture once and exit (delegates to a running instance when present)")
	f.BoolVar(&opts.stdout, "stdout", false, "With --run-once, write the compressed image to stdout instead of the clipboard")
	f.Float64Var(&opts.scale, "scale", 0, "Scale factor in (0,1] (overrides TARGET_SCALE)")
	f.StringVar(&opts.format, "format", "", "Output format: png, jpeg or webp (overrides OUTPUT_FORMAT)")
	f.StringVar(&opts.hotkey, "hotkey", "", "Global hotkey (overrides HOTKEY)")
	f.StringVar(&opts.envPath, "env", "", "Path to .env file")
	f.StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	return cmd
}

// normalizeLegacyArgs maps single-dash long flags (-run-once) to the
// double-dash form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") || len(arg) == 2 {
			continue
		}
		name, _, _ := strings.Cut(arg[1:], "=")
		switch name {
		case "run-once", "stdout", "scale", "format", "hotkey", "env", "config", "verbose":
			normalized[i] = "-" + arg
		}
	}
	return normalized
}

func (o mainOptions) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		EnvPath:        o.envPath,
		ConfigPath:     o.configPath,
		ScaleOverride:  o.scale,
		FormatOverride: o.format,
		HotkeyOverride: o.hotkey,
	}
}

func bootstrap(opts mainOptions) (*runtimeinit.App, error) {
	return runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: opts.loadOptions(),
		Console:     opts.verbose,
	})
}

func runOnce(ctx context.Context, opts mainOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !opts.verbose {
		log.SetOutput(io.Discard)
	}
	// Load .env early so SNAPSQUEEZE_PORT_* apply before the delegation scan
	_, _ = config.LoadWithOptions(opts.loadOptions())

	req := singleinstance.Request{OutputToStdout: opts.stdout, Scale: opts.scale, Format: opts.format}
	return handleRunOnceWithDelegation(ctx, req, singleinstance.NewClient(), os.Stdout, func() error {
		return runStandalone(ctx, opts)
	})
}

// handleRunOnceWithDelegation hands the capture to a resident instance, or
// runs fallback when none answers.
func handleRunOnceWithDelegation(ctx context.Context, req singleinstance.Request, client singleinstance.Client, stdout io.Writer, fallback func() error) error {
	delegated, payload, err := client.TryRunOnce(ctx, req)
	if err != nil {
		if delegated {
			return fmt.Errorf("resident instance: %w", err)
		}
		log.Printf("Delegation error: %v; falling back to standalone", err)
		return fallback()
	}
	if !delegated {
		log.Printf("No resident detected, running standalone")
		return fallback()
	}

	log.Printf("Delegated to resident (%d bytes)", len(payload))
	if req.OutputToStdout {
		_, err := stdout.Write(payload)
		return err
	}
	fmt.Fprint(os.Stderr, string(payload))
	return nil
}

func runStandalone(ctx context.Context, opts mainOptions) error {
	app, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	var target session.ResultTarget = session.ClipboardTarget{Sink: app.Clipboard}
	if opts.stdout {
		target = session.WriterTarget{Writer: os.Stdout}
	}
	res, err := app.RunOnce(ctx, compress.Request{}, target)
	if err != nil {
		return err
	}
	if !opts.stdout {
		fmt.Fprintln(os.Stderr, session.Summary(res))
	}
	return nil
}

// describeConflict explains a failed single-instance claim: either a resident
// answered, or some other program holds the port.
func describeConflict(ctx context.Context, startErr error) (string, error) {
	if port, ok := singleinstance.DetectResidentPort(ctx); ok {
		return fmt.Sprintf("SnapSqueeze is already running (port %d).", port),
			fmt.Errorf("another instance is already running on port %d: %w", port, startErr)
	}
	start, _ := singleinstance.PortRange()
	return fmt.Sprintf("Port %d is in use by another program. Set %s to a free port.", start, singleinstance.PortStartEnvVar),
		fmt.Errorf("single-instance port %d unavailable: %w", start, startErr)
}

func runResident(opts mainOptions) error {
	app, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := singleinstance.NewServer()
	if err := srv.Start(ctx); err != nil {
		msg, err := describeConflict(ctx, err)
		notification.ShowBlockingError("SnapSqueeze", msg)
		return err
	}
	defer srv.Close()
	tray.SetAboutExtra(fmt.Sprintf("port %d", srv.Port()))

	loop := app.NewLoop(srv, func(s eventloop.State) { tray.SetStatus(s.String()) })
	app.Resident(ctx, loop, func(cfg *config.Config) {
		tray.SelectScale(cfg.TargetScale)
		tray.SelectFormat(cfg.OutputFormat)
	})

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			app.Logger.Sugar().Errorf("event loop stopped: %v", err)
		}
	}()

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			tray.Quit()
		case <-ctx.Done():
		}
	}()

	cfg := app.Config
	tray.Run(tray.Options{
		Scale:  cfg.TargetScale,
		Format: cfg.OutputFormat,
		Hotkey: cfg.Hotkey,
		OnCapture: func() {
			loop.TriggerCapture(messages.SourceMenu)
		},
		OnScale: func(s float64) {
			loop.Post(messages.UpdateRequest{Scale: s})
		},
		OnFormat: func(f compress.Format) {
			loop.Post(messages.UpdateRequest{Format: f})
		},
		OnStats: func() {
			app.Notifier.Notify(notification.KindSuccess, "Statistics", app.StatsSummary())
		},
		OnCheckPermissions: app.CheckPermissions,
		OnQuit:             cancel,
	}, func() {
		app.Logger.Sugar().Infof("SnapSqueeze ready, press %s to capture", cfg.Hotkey)
	})

	cancel()
	select {
	case <-loopDone:
	case <-time.After(2 * time.Second):
		log.Printf("event loop did not stop in time")
	}
	return nil
}
