package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"polysim/internal/config"
	"polysim/internal/logger"
	"polysim/internal/replay"
	"polysim/internal/report"
)

const (
	exitOK          = 0
	exitDegenerate  = 1
	exitConfigError = 2
	exitDataError   = 3
)

type flags struct {
	configPath string
	markets    string
	trades     string
	startDate  string
	endDate    string

	capital       float64
	minConfidence float64
	minVolume     float64
	seed          uint64

	reportPath string
	jsonPath   string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var fl flags

	cmd := &cobra.Command{
		Use:           "backtest",
		Short:         "Replay historical prediction-market trades against the signal detectors",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, fl)
		},
	}

	cmd.Flags().StringVar(&fl.configPath, "config", "", "path to config file (optional, defaults apply)")
	cmd.Flags().StringVar(&fl.markets, "markets", "", "path to markets CSV")
	cmd.Flags().StringVar(&fl.trades, "trades", "", "path to trades CSV")
	cmd.Flags().StringVar(&fl.startDate, "start-date", "", "replay window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&fl.endDate, "end-date", "", "replay window end (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&fl.capital, "capital", 0, "starting capital in USD (overrides config)")
	cmd.Flags().Float64Var(&fl.minConfidence, "min-confidence", 0, "minimum signal confidence (overrides config)")
	cmd.Flags().Float64Var(&fl.minVolume, "min-volume", -1, "minimum market volume in USD (overrides config)")
	cmd.Flags().Uint64Var(&fl.seed, "seed", 0, "slippage seed (overrides config)")
	cmd.Flags().StringVar(&fl.reportPath, "report", "", "write a markdown report to this path")
	cmd.Flags().StringVar(&fl.jsonPath, "json", "", "write the machine-readable report to this path")

	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var cfgErr *replay.ConfigError
		if errors.As(err, &cfgErr) {
			return exitConfigError
		}
		var dataErr *replay.DataError
		if errors.As(err, &dataErr) {
			return exitDataError
		}
		// Unknown flags and other cobra-level failures are invocation errors.
		return exitConfigError
	}
	if degenerate {
		return exitDegenerate
	}
	return exitOK
}

// degenerate is set by execute when the replay completed but produced an
// empty ledger; cobra's RunE only distinguishes error from no error.
var degenerate bool

func execute(cmd *cobra.Command, fl flags) error {
	cfg, err := config.Load(fl.configPath, fl.configPath == "")
	if err != nil {
		return &replay.ConfigError{Err: err}
	}

	if cmd.Flags().Changed("capital") {
		if fl.capital <= 0 {
			return &replay.ConfigError{Err: fmt.Errorf("capital must be positive, got %v", fl.capital)}
		}
		cfg.Backtest.StartingCapitalUSD = fl.capital
	}
	if cmd.Flags().Changed("min-confidence") {
		if fl.minConfidence < 0 || fl.minConfidence > 1 {
			return &replay.ConfigError{Err: fmt.Errorf("min-confidence must be in [0, 1], got %v", fl.minConfidence)}
		}
		cfg.Backtest.MinConfidence = fl.minConfidence
	}
	if cmd.Flags().Changed("min-volume") {
		if fl.minVolume < 0 {
			return &replay.ConfigError{Err: fmt.Errorf("min-volume must be non-negative, got %v", fl.minVolume)}
		}
		cfg.Backtest.MinMarketVolumeUSD = fl.minVolume
	}
	if cmd.Flags().Changed("seed") {
		cfg.Backtest.Seed = fl.seed
	}

	opts := replay.Options{
		MarketsPath: fl.markets,
		TradesPath:  fl.trades,
	}
	if fl.startDate != "" {
		ts, err := time.Parse(time.DateOnly, fl.startDate)
		if err != nil {
			return &replay.ConfigError{Err: fmt.Errorf("start-date: %w", err)}
		}
		opts.StartDate = ts
	}
	if fl.endDate != "" {
		ts, err := time.Parse(time.DateOnly, fl.endDate)
		if err != nil {
			return &replay.ConfigError{Err: fmt.Errorf("end-date: %w", err)}
		}
		// Inclusive: the window covers the whole end day.
		opts.EndDate = ts.Add(24*time.Hour - time.Nanosecond)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return &replay.ConfigError{Err: err}
	}
	defer log.Sync()

	runner := &replay.Runner{Config: cfg, Logger: log}
	result, err := runner.Run(opts)
	if err != nil {
		return err
	}

	if fl.reportPath != "" {
		if err := report.WriteMarkdown(fl.reportPath, result.Report); err != nil {
			return &replay.DataError{Err: fmt.Errorf("write report: %w", err)}
		}
		log.Info("report written", zap.String("path", fl.reportPath))
	}
	if fl.jsonPath != "" {
		if err := report.WriteJSON(fl.jsonPath, result.Report); err != nil {
			return &replay.DataError{Err: fmt.Errorf("write json: %w", err)}
		}
		log.Info("json written", zap.String("path", fl.jsonPath))
	}
	if fl.reportPath == "" && fl.jsonPath == "" {
		fmt.Print(report.Markdown(result.Report))
	}

	if len(result.Ledger) == 0 {
		log.Warn("replay produced an empty ledger")
		degenerate = true
	}
	return nil
}
