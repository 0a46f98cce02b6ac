package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"snapsqueeze/src/compress"
	"snapsqueeze/src/logutil"
	"snapsqueeze/src/session"
)

const (
	maxFileSizeMB = 50
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

type cliOptions struct {
	filePath   string
	outPath    string
	scale      float64
	format     string
	jsonOutput bool
	infoOnly   bool
	verbose    bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), os.Stdin, os.Stdout)
}

func runWithArgs(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		args = []string{"squeeze"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts, stdin, stdout)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "squeeze",
		Short:         "Downscale and re-encode an image file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, stdin, stdout)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to image file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "Output path (use '-' for stdout; default <name>_compressed<ext>)")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0.5, "Scale factor in (0,1]")
	cmd.Flags().StringVar(&opts.format, "format", "png", "Output format: png, jpeg or webp")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print a JSON summary to stdout")
	cmd.Flags().BoolVar(&opts.infoOnly, "info", false, "Report what the request would do without compressing")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(opts cliOptions, stdin io.Reader, stdout io.Writer) error {
	logger, cleanup, err := logutil.Setup(logutil.Options{Console: opts.verbose, Level: "debug"})
	if err != nil {
		return err
	}
	defer cleanup()

	format, err := compress.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	req, err := compress.NewRequest(opts.scale, format)
	if err != nil {
		return err
	}

	data, err := readInput(opts.filePath, stdin)
	if err != nil {
		return err
	}
	logger.Debug("input read", zap.String("source", opts.filePath), zap.Int("bytes", len(data)))

	c := compress.New(compress.Options{Logger: logger})
	if opts.infoOnly {
		info, err := c.Info(data, req)
		if err != nil {
			return err
		}
		return writeJSON(stdout, info)
	}

	start := time.Now()
	res := c.CompressResult(data, req)
	logger.Debug("compression finished",
		zap.String("strategy", string(res.Strategy)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("used_original", res.UsedOriginal))

	outPath := resolveOutPath(opts.filePath, opts.outPath, res.Format)
	if outPath == "-" {
		if opts.jsonOutput {
			return fmt.Errorf("--json cannot be combined with image output on stdout")
		}
		_, err := stdout.Write(res.Data)
		return err
	}
	if err := (session.FileTarget{Path: outPath}).OnSuccess(res); err != nil {
		return err
	}

	if opts.jsonOutput {
		return writeJSON(stdout, newCompressionReport(opts.filePath, outPath, res))
	}
	fmt.Fprintf(stdout, "%s -> %s\n", session.Summary(res), outPath)
	return nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		if strings.HasPrefix(arg, "--") || !strings.HasPrefix(arg, "-") {
			continue
		}
		name, _, _ := strings.Cut(arg[1:], "=")
		switch name {
		case "file", "out", "scale", "format", "json", "info", "verbose":
			normalized[i] = "-" + arg
		}
	}

	return normalized
}

func readInput(filePath string, stdin io.Reader) ([]byte, error) {
	var data []byte
	var err error
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	return data, nil
}

// resolveOutPath picks the destination: explicit path, stdout for stdin
// input, or a sibling of the input named after the output format.
func resolveOutPath(inPath, outPath string, f compress.Format) string {
	if outPath != "" {
		return outPath
	}
	if inPath == "-" {
		return "-"
	}
	base := strings.TrimSuffix(inPath, filepath.Ext(inPath))
	return base + "_compressed" + f.Extension()
}

// CompressionReport is the --json output.
type CompressionReport struct {
	Source         string  `json:"source"`
	Output         string  `json:"output"`
	Format         string  `json:"format"`
	Strategy       string  `json:"strategy"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	OriginalSize   int     `json:"original_size"`
	CompressedSize int     `json:"compressed_size"`
	Reduction      float64 `json:"reduction_percent"`
	UsedOriginal   bool    `json:"used_original"`
	Duration       float64 `json:"duration_seconds"`
	Timestamp      string  `json:"timestamp"`
}

func newCompressionReport(source, output string, res compress.Result) CompressionReport {
	return CompressionReport{
		Source:         source,
		Output:         output,
		Format:         string(res.Format),
		Strategy:       string(res.Strategy),
		Width:          res.Width,
		Height:         res.Height,
		OriginalSize:   res.OriginalSize,
		CompressedSize: res.CompressedSize,
		Reduction:      res.Ratio,
		UsedOriginal:   res.UsedOriginal,
		Duration:       res.Elapsed.Seconds(),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
