// Package main provides the camera-timing-analyzer CLI entry point.
//
// camera-timing-analyzer reads a camera capture log, classifies its timing
// lines, and prints a report that separates grab() stalls from scheduling
// delays and correlates system monitor samples with the anomalies.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/randomizedcoder/camera-timing-analyzer/internal/config"
	"github.com/randomizedcoder/camera-timing-analyzer/internal/logging"
	"github.com/randomizedcoder/camera-timing-analyzer/internal/metrics"
	"github.com/randomizedcoder/camera-timing-analyzer/internal/parser"
	"github.com/randomizedcoder/camera-timing-analyzer/internal/preflight"
	"github.com/randomizedcoder/camera-timing-analyzer/internal/stats"
	"github.com/randomizedcoder/camera-timing-analyzer/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/camera-timing-analyzer
var version = "dev"

var errPreflight = errors.New("preflight checks failed")

// skippedSamples is how many recent malformed lines --show-skipped lists.
const skippedSamples = 5

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, config.ErrUsage) {
			printUsage(stderr, cmd)
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cfg := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:     "camera-timing-analyzer <log_file>",
		Short:   "Analyze camera capture timing logs",
		Version: version,
		Args:    exactlyOneLogFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.LogPath = args[0]
			return analyze(cmd, cfg, stdout)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("camera-timing-analyzer {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", config.ErrUsage, err)
	})
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		printUsage(c.OutOrStdout(), c)
	})
	cmd.SetUsageFunc(func(c *cobra.Command) error {
		printUsage(c.ErrOrStderr(), c)
		return nil
	})

	config.BindFlags(cmd.Flags(), cfg)

	return cmd
}

// exactlyOneLogFile rejects any argument count other than one before the
// command touches the filesystem.
func exactlyOneLogFile(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return fmt.Errorf("%w: %v", config.ErrUsage, err)
	}
	return nil
}

func printUsage(w io.Writer, cmd *cobra.Command) {
	fmt.Fprintf(w, "Usage: %s [flags]\n", cmd.Use)
	fmt.Fprintf(w, "\n%s\n", cmd.Short)
	config.PrintFlagCategories(w, cmd.Flags())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  -h, --help      Show this help")
	fmt.Fprintln(w, "      --version   Print version and exit")
}

func analyze(cmd *cobra.Command, cfg *config.Config, stdout io.Writer) error {
	if err := config.ApplyFile(cmd.Flags(), cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// The pager owns the terminal, so logs are dropped while it runs.
	var logger *slog.Logger
	if cfg.Interactive {
		logger = logging.Discard()
	} else {
		logger = logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	}
	logging.SetDefault(logger)

	logger.Info("analysis_starting",
		"version", version,
		"log_file", cfg.LogPath,
		"config_file", cfg.ConfigFile,
	)

	pre := preflight.RunAll(preflight.Options{
		LogPath:         cfg.LogPath,
		MetricsTextfile: cfg.MetricsTextfile,
		Interactive:     cfg.Interactive,
		TerminalFd:      os.Stdout.Fd(),
	})
	for _, c := range pre.Checks {
		if c.Warning {
			logger.Warn("preflight_warning", "check", c.Name, "message", c.Message)
		}
	}
	if !pre.Passed {
		preflight.PrintResults(cmd.ErrOrStderr(), pre)
		return errPreflight
	}

	// The header goes out before parsing so a failed read still names the file.
	// The pager shows it as part of the report instead.
	if !cfg.Interactive {
		if _, err := io.WriteString(stdout, stats.FormatSourceLine(cfg.LogPath)); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	skips := logging.NewSkipHandler(logger)
	start := time.Now()

	result, err := parser.ParseFile(cfg.LogPath, parser.WithSkipRecorder(skips))
	if err != nil {
		logger.Error("analysis_failed", "error", err)
		return err
	}

	logger.Info("parse_complete",
		"lines_read", result.LinesRead,
		"lines_skipped", result.LinesSkipped,
		"frames", len(result.Frames),
		"long_delays", len(result.Delays),
		"grab_failures", len(result.GrabFailures),
		"slow_grabs", len(result.SlowGrabs),
		"sysmon", len(result.SystemEvents),
		"duration", time.Since(start),
	)

	analysis := stats.Analyze(result, thresholds(cfg))
	report := stats.FormatReport(analysis, reportOptions(cfg, skips, stdout))

	if cfg.MetricsTextfile != "" {
		collector := metrics.NewCollector(metrics.CollectorConfig{
			Version: version,
			Source:  cfg.LogPath,
		})
		collector.Record(analysis)
		collector.RecordSkips(skips.Counts())
		if err := collector.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("metrics_write_failed", "error", err)
			return err
		}
		logger.Info("metrics_written", "path", cfg.MetricsTextfile)
	}

	if cfg.Interactive {
		return tui.Run(cfg.LogPath, report)
	}

	if _, err := io.WriteString(stdout, report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func thresholds(cfg *config.Config) stats.Thresholds {
	return stats.Thresholds{
		GrabCauseMs:    cfg.GrabCauseMs,
		GrabCauseRatio: cfg.GrabCauseRatio,
		DelayRateRatio: cfg.DelayRateRatio,
		WorstDelays:    cfg.WorstDelays,
	}
}

func reportOptions(cfg *config.Config, skips *logging.SkipHandler, stdout io.Writer) stats.ReportOptions {
	var opts stats.ReportOptions
	if cfg.Interactive {
		opts.Source = cfg.LogPath
	}

	if cfg.Color {
		opts.Styler = tui.NewReportStyler(tui.NewColorRenderer(stdout))
	}

	if cfg.ShowSkipped && skips.Total() > 0 {
		counts := skips.Counts()
		for _, kind := range skips.Kinds() {
			opts.Skipped = append(opts.Skipped, stats.SkipCount{Kind: kind, Count: counts[kind]})
		}
		for _, l := range skips.RecentLines(skippedSamples) {
			opts.SkippedSamples = append(opts.SkippedSamples,
				fmt.Sprintf("line %d (%s): %s", l.LineNum, l.Kind, l.Text))
		}
	}

	return opts
}
