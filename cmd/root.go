package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"labload/internal/banner"
	"labload/internal/cli"
	"labload/internal/config"
	"labload/internal/logging"
	"labload/internal/runner"
	"labload/internal/storage"
	"labload/internal/tui"
)

var (
	v = viper.New()

	cfgFile     string
	logLevel    string
	historyPath string

	useTUI      bool
	metricsAddr string
	noHistory   bool
)

var rootCmd = &cobra.Command{
	Use:   "labload",
	Short: "labload - homepage load test",
	Long: `
labload runs simulated users against a host. Each user repeatedly issues
GET / ("Get the homepage"), pausing between requests, and every response
other than 200 is counted as a failure.

Scenario console output is controlled by ENABLE_LOGGING (exactly "True"
enables it, the default). A .env file in the working directory is honoured.`,
	Example: `  labload --host http://PUBLIC_IP -u 200 -r 10 -t 120s
  ENABLE_LOGGING=False labload -H http://localhost:8080 -u 50 -r 5 -t 1m -o report
  labload --tui -u 20 -r 2 -t 5m`,
	SilenceUsage: true,
	RunE:         runTest,
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd, historyCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&historyPath, "history", "", "history database (default is $HOME/.labload/history.db)")

	f := rootCmd.Flags()
	f.StringP(config.KeyHost, "H", config.DefaultHost, "Target host (base URL)")
	f.IntP(config.KeyUsers, "u", 1, "Number of concurrent users")
	f.Float64P(config.KeySpawnRate, "r", 1, "Users started per second")
	f.DurationP(config.KeyRunTime, "t", 0, "Stop after this long, e.g. 120s (0 runs until interrupted)")
	f.Int(config.KeyTimeout, config.DefaultTimeout, "Request timeout in seconds")
	f.Duration(config.KeyWaitMin, time.Second, "Minimum wait between tasks")
	f.Duration(config.KeyWaitMax, 3*time.Second, "Maximum wait between tasks")
	f.StringP(config.KeyOut, "o", "", "Output filename prefix for reports")
	f.BoolVar(&useTUI, "tui", false, "Show the live dashboard")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9646")
	f.BoolVar(&noHistory, "no-history", false, "Do not save the run to history")

	config.SetDefaults(v)
	for _, key := range []string{
		config.KeyHost, config.KeyUsers, config.KeySpawnRate, config.KeyRunTime,
		config.KeyTimeout, config.KeyWaitMin, config.KeyWaitMax, config.KeyOut,
	} {
		if err := v.BindPFlag(key, f.Lookup(key)); err != nil {
			panic(err)
		}
	}
}

func initConfig() {
	if err := config.BindEnv(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	if err := config.ReadFiles(v, wd, cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// --- Runners ---

func runTest(cmd *cobra.Command, args []string) error {
	log, err := logging.New(os.Stderr, logLevel)
	if err != nil {
		return err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := openHistory(log)
	if store != nil {
		defer store.Close()
	}

	updates := make(runner.StatsUpdateChan, 100)
	r := runner.NewRunner(cfg, updates)
	r.Log = log

	if metricsAddr != "" {
		go func() {
			if err := r.Metrics.Serve(ctx, metricsAddr); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
		log.WithField("addr", metricsAddr).Info("Serving Prometheus metrics on /metrics")
	}

	if useTUI {
		return runTUI(ctx, r, store, log)
	}
	return runHeadless(ctx, r, store, log)
}

func runHeadless(ctx context.Context, r *runner.Runner, store *storage.Store, log *logrus.Logger) error {
	r.Console = logging.NewConsole(os.Stdout)

	// Scenario lines are the live feed when logging is on.
	var progress io.Writer
	if !r.Cfg.EnableLogging {
		progress = os.Stderr
	}

	return cli.Start(ctx, r, cli.Options{
		Out:      os.Stdout,
		Progress: progress,
		Store:    store,
		Log:      log,
	})
}

func runTUI(ctx context.Context, r *runner.Runner, store *storage.Store, log *logrus.Logger) error {
	// The dashboard owns the terminal; everything else goes to its log panel.
	logs := tui.NewLogBuffer(500)
	r.Console = logging.NewConsole(logs)
	log.SetOutput(logs)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.Run(runCtx)

	p := tea.NewProgram(tui.NewModel(r, cancel, logs), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()

	cancel()
	<-r.Done()
	log.SetOutput(os.Stderr)

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard: %w", err)
	}

	cli.PrintHeader(os.Stdout, r.Cfg)
	return cli.Finish(r, cli.Options{Out: os.Stdout, Store: store, Log: log})
}

func openHistory(log *logrus.Logger) *storage.Store {
	if noHistory {
		return nil
	}

	path := historyPath
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			log.WithError(err).Warn("History disabled")
			return nil
		}
	}

	store, err := storage.Open(path)
	if err != nil {
		log.WithError(err).Warn("History disabled")
		return nil
	}
	return store
}
