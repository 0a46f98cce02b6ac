package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LogFileName  = "snapsqueeze.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
)

// Options selects the log sinks.
type Options struct {
	// FileLogging writes JSON lines to Dir/snapsqueeze.log with rotation.
	FileLogging bool
	// Console writes human-readable lines to stderr.
	Console bool
	Level   string
	Dir     string
}

// Setup builds the process logger, installs it as the zap global and
// routes the standard library logger into it. With no sink enabled, logs
// are discarded (keeps stdout clean). The returned func flushes and closes
// the sinks.
func Setup(opts Options) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}

	var cores []zapcore.Core
	var file *RotatingWriter
	if opts.FileLogging {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		w, err := NewRotatingWriter(filepath.Join(dir, LogFileName), maxSizeBytes, maxArchives)
		if err != nil {
			return nil, nil, err
		}
		file = w
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), level))
	}
	if opts.Console {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), level))
	}

	if len(cores) == 0 {
		log.SetOutput(io.Discard)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		return zap.NewNop(), func() {}, nil
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	undoGlobals := zap.ReplaceGlobals(logger)
	undoStdLog := zap.RedirectStdLog(logger.Named("std"))

	cleanup := func() {
		_ = logger.Sync()
		undoStdLog()
		undoGlobals()
		if file != nil {
			_ = file.Close()
		}
	}
	return logger, cleanup, nil
}

// TruncateForLog shortens s for logging, keeping user content out of logs.
func TruncateForLog(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return fmt.Sprintf("%s... (%d chars)", string(r[:max]), len(r))
}
