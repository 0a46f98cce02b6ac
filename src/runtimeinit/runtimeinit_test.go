package runtimeinit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"snapsqueeze/src/compress"
	"snapsqueeze/src/config"
	"snapsqueeze/src/logutil"
)

func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range []string{
		"HOTKEY", "TARGET_SCALE", "OUTPUT_FORMAT", "ENABLE_FILE_LOGGING", "LOG_LEVEL",
		"MEMORY_CHECK_INTERVAL_SEC", "MEMORY_THRESHOLD_PERCENT", "WORKER_POOL_SIZE",
		"CAPTURE_REGION", config.EnvPathEnvVar, config.ConfigPathEnvVar,
	} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	content := "TARGET_SCALE=0.25\nOUTPUT_FORMAT=webp\nCAPTURE_REGION=0,0,10,10\nLOG_LEVEL=debug\n"
	if err := os.WriteFile(env, []byte(content), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	return env
}

func nopLogging(got *logutil.Options) func(logutil.Options) (*zap.Logger, func(), error) {
	return func(o logutil.Options) (*zap.Logger, func(), error) {
		*got = o
		return zap.NewNop(), func() {}, nil
	}
}

func TestBootstrap(t *testing.T) {
	env := isolate(t)
	var logOpts logutil.Options
	app, err := Bootstrap(Options{
		LoadOptions:  config.LoadOptions{EnvPath: env},
		Console:      true,
		SetupLogging: nopLogging(&logOpts),
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	if !logOpts.Console || logOpts.Level != "debug" || logOpts.FileLogging {
		t.Errorf("unexpected logging options %+v", logOpts)
	}
	want := compress.MustRequest(0.25, compress.WEBP)
	if got := app.Config.Request(); got != want {
		t.Errorf("request = %s, want %s", got, want)
	}

	loop := app.NewLoop(nil, nil)
	if loop.Request() != want {
		t.Errorf("loop request = %s, want %s", loop.Request(), want)
	}

	summary := app.StatsSummary()
	for _, part := range []string{"Compressions: 0", "Errors: 0"} {
		if !strings.Contains(summary, part) {
			t.Errorf("summary %q missing %q", summary, part)
		}
	}
}

func TestBootstrapLoggingFailure(t *testing.T) {
	env := isolate(t)
	failing := func(logutil.Options) (*zap.Logger, func(), error) {
		return nil, nil, errors.New("disk full")
	}
	_, err := Bootstrap(Options{LoadOptions: config.LoadOptions{EnvPath: env}, SetupLogging: failing})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected logging error, got %v", err)
	}
}
