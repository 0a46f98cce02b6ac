package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"snapsqueeze/src/singleinstance"
)

type stressOptions struct {
	n        int
	mode     string
	scale    float64
	format   string
	deadline time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-runonce",
		Short:         "Stress test run-once delegation against a resident instance",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.mode != "std" && opts.mode != "clip" {
				return fmt.Errorf("unknown mode %q (want std or clip)", opts.mode)
			}
			t := stress(*opts, singleinstance.NewClient)
			t.print(os.Stdout, opts.n)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", "std", "std|clip: image on stdout or clipboard write by the resident")
	cmd.Flags().Float64Var(&opts.scale, "scale", 0, "scale override sent with each request (0 keeps the resident's)")
	cmd.Flags().StringVar(&opts.format, "format", "", "format override sent with each request")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

type tally struct {
	ok       atomic.Int32
	busy     atomic.Int32
	noServer atomic.Int32
	errs     atomic.Int32
	bytes    atomic.Int64
	elapsed  time.Duration
}

func (t *tally) record(delegated bool, payload []byte, err error) {
	switch {
	case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
		t.busy.Add(1)
	case err != nil:
		t.errs.Add(1)
	case !delegated:
		t.noServer.Add(1)
	default:
		t.ok.Add(1)
		t.bytes.Add(int64(len(payload)))
	}
}

func (t *tally) print(w io.Writer, launched int) {
	fmt.Fprintf(w, "launched=%d ok=%d busy=%d no-resident=%d err=%d bytes=%d elapsed=%s\n",
		launched, t.ok.Load(), t.busy.Load(), t.noServer.Load(), t.errs.Load(), t.bytes.Load(), t.elapsed)
}

// stress fires opts.n concurrent run-once requests. Only one capture runs
// at a time on the resident, so most clients are expected to come back busy.
func stress(opts stressOptions, newClient func() singleinstance.Client) *tally {
	req := singleinstance.Request{
		OutputToStdout: opts.mode == "std",
		Scale:          opts.scale,
		Format:         opts.format,
	}

	t := &tally{}
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			t.record(newClient().TryRunOnce(ctx, req))
		}()
	}
	wg.Wait()
	t.elapsed = time.Since(start)
	return t
}
