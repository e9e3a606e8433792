package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"labload/internal/report"
	"labload/internal/runner"
	"labload/internal/storage"
)

type Options struct {
	Out      io.Writer // header and summary
	Progress io.Writer // live progress line; nil disables it
	Store    *storage.Store
	Log      *logrus.Logger
	Tick     time.Duration
}

// Start runs r headless until it finishes or ctx is cancelled, then prints
// the summary, writes reports and saves the run to history.
func Start(ctx context.Context, r *runner.Runner, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Tick <= 0 {
		opts.Tick = 500 * time.Millisecond
	}
	cfg := r.Cfg

	PrintHeader(opts.Out, cfg)

	// Start Runner
	go r.Run(ctx)

	// Start Monitor Loop
	ticker := time.NewTicker(opts.Tick)
	defer ticker.Stop()

monitor:
	for {
		select {
		case <-r.Updates:
			// Drain updates
		case <-r.Done():
			break monitor
		case <-ticker.C:
			if opts.Progress != nil {
				printProgress(opts.Progress, r.Snapshot(), cfg.RunTime)
			}
		}
	}

	if opts.Progress != nil {
		printProgress(opts.Progress, r.Snapshot(), cfg.RunTime)
		fmt.Fprintln(opts.Progress)
	}
	return Finish(r, opts)
}

// Finish prints the summary of a stopped runner, writes the reports and
// saves the run to history.
func Finish(r *runner.Runner, opts Options) error {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	printSummary(opts.Out, r.Snapshot())

	var errs []error
	if err := handleAutoReport(opts.Out, r, r.Cfg); err != nil {
		errs = append(errs, err)
	}
	if opts.Store != nil {
		if err := opts.Store.Save(storage.NewRun(r)); err != nil {
			errs = append(errs, fmt.Errorf("save history: %w", err))
		} else if opts.Log != nil {
			opts.Log.Debug("Run saved to history")
		}
	}
	return errors.Join(errs...)
}

// PrintHeader prints the run banner.
func PrintHeader(w io.Writer, cfg runner.Config) {
	runTime := "until interrupted"
	if cfg.RunTime > 0 {
		runTime = cfg.RunTime.String()
	}
	fmt.Fprintf(w, "\n🚀 STARTING LOAD TEST\n")
	fmt.Fprintf(w, "======================================================================\n")
	fmt.Fprintf(w, "Host       : %s\n", cfg.Host)
	fmt.Fprintf(w, "Users      : %d (spawn rate %.1f/s)\n", cfg.NumUsers, cfg.SpawnRate)
	fmt.Fprintf(w, "Run Time   : %s\n", runTime)
	fmt.Fprintf(w, "Wait Time  : %s - %s\n", cfg.WaitMin, cfg.WaitMax)
	fmt.Fprintf(w, "Timeout    : %ds\n", cfg.TimeoutSec)
	fmt.Fprintf(w, "======================================================================\n\n")
}

func printProgress(w io.Writer, s runner.StatsSnapshot, total time.Duration) {
	rps := 0.0
	if s.Elapsed.Seconds() > 0 {
		rps = float64(s.Requests) / s.Elapsed.Seconds()
	}

	if total <= 0 {
		fmt.Fprintf(w, "\r%s | Users: %3d | RPS: %.1f | OK: %d | Err: %d",
			s.Elapsed.Round(time.Second), s.Users, rps, s.Success, s.Fail)
		return
	}

	pct := s.Elapsed.Seconds() / total.Seconds()
	if pct > 1.0 {
		pct = 1.0
	}
	fmt.Fprintf(w, "\r%s %3.0f%% | %s/%s | Users: %3d | RPS: %.1f | OK: %d | Err: %d",
		progressBar(pct, 20), pct*100,
		s.Elapsed.Round(time.Second), total,
		s.Users, rps, s.Success, s.Fail,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func printSummary(w io.Writer, s runner.StatsSnapshot) {
	rps := 0.0
	if s.Elapsed.Seconds() > 0 {
		rps = float64(s.Requests) / s.Elapsed.Seconds()
	}

	fmt.Fprintf(w, "\n📊 LOAD TEST RESULTS\n")
	fmt.Fprintf(w, "======================================================================\n")
	fmt.Fprintf(w, "Total Duration : %s\n", s.Elapsed.Round(time.Second))
	fmt.Fprintf(w, "Requests Sent  : %d\n", s.Requests)
	fmt.Fprintf(w, "Success        : %d\n", s.Success)
	fmt.Fprintf(w, "Failures       : %d\n", s.Fail)
	fmt.Fprintf(w, "Actual RPS     : %.2f\n", rps)
	fmt.Fprintf(w, "\n⏱️  RESPONSE TIMES (ms)\n")
	fmt.Fprintf(w, "   Avg : %.2f\n", s.MeanMs)
	fmt.Fprintf(w, "   P50 : %.2f\n", s.P50Ms)
	fmt.Fprintf(w, "   P90 : %.2f\n", s.P90Ms)
	fmt.Fprintf(w, "   P95 : %.2f\n", s.P95Ms)
	fmt.Fprintf(w, "   P99 : %.2f\n", s.P99Ms)
	fmt.Fprintf(w, "   Max : %d\n", s.MaxMs)

	if len(s.StatusCodes) > 0 {
		codes := make([]int, 0, len(s.StatusCodes))
		for c := range s.StatusCodes {
			codes = append(codes, c)
		}
		sort.Ints(codes)

		fmt.Fprintf(w, "\n🔢 STATUS CODES\n")
		for _, c := range codes {
			label := fmt.Sprintf("%d", c)
			if c == 0 {
				label = "ERR"
			}
			fmt.Fprintf(w, "   %3s : %d\n", label, s.StatusCodes[c])
		}
	}

	if len(s.ErrorCounts) > 0 {
		msgs := make([]string, 0, len(s.ErrorCounts))
		for m := range s.ErrorCounts {
			msgs = append(msgs, m)
		}
		sort.Strings(msgs)

		fmt.Fprintf(w, "\n❌ FAILURE SUMMARY\n")
		for _, m := range msgs {
			fmt.Fprintf(w, "   %d x %s\n", s.ErrorCounts[m], m)
		}
	}
	fmt.Fprintf(w, "======================================================================\n")
}

func handleAutoReport(w io.Writer, r *runner.Runner, cfg runner.Config) error {
	if cfg.OutPrefix == "" || len(r.ResultsCopy()) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\n💾 Generating reports with prefix: %s\n", cfg.OutPrefix)
	if err := report.ExportAll(r, cfg.OutPrefix); err != nil {
		return err
	}
	fmt.Fprintf(w, "✅ Reports saved to %s.csv, %s.json and %s_summary.json\n",
		cfg.OutPrefix, cfg.OutPrefix, cfg.OutPrefix)
	return nil
}
