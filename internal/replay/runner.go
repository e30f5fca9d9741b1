package replay

import (
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"polysim/internal/config"
	"polysim/internal/dataset"
	"polysim/internal/detector"
	"polysim/internal/market"
	"polysim/internal/models"
	"polysim/internal/perf"
	"polysim/internal/sim"
	"polysim/internal/wallet"
)

// Options are the per-run inputs that come from the command line rather than
// the configuration file.
type Options struct {
	MarketsPath string
	TradesPath  string

	// StartDate and EndDate bound the replayed window; either may be zero.
	StartDate time.Time
	EndDate   time.Time
}

// Result is everything a run produces.
type Result struct {
	Report models.PerformanceReport
	Ledger []models.Position

	EventsProcessed int
	EventsFiltered  int
	SignalsEmitted  int
	SignalsAccepted int
	MarketsReplayed int
	MarketsFiltered int
	WalletsObserved int
	SkippedRecords  int
}

// Runner wires the trackers, evaluator and simulator together and drives the
// event loop. Data flow per event is fixed: observe, tick, evaluate, act,
// then exit checks.
type Runner struct {
	Config config.Config
	Logger *zap.Logger
}

func (r *Runner) Run(opts Options) (Result, error) {
	if opts.MarketsPath == "" || opts.TradesPath == "" {
		return Result{}, configErrorf("both markets and trades paths are required")
	}
	if !opts.StartDate.IsZero() && !opts.EndDate.IsZero() && opts.EndDate.Before(opts.StartDate) {
		return Result{}, configErrorf("end date %s before start date %s",
			opts.EndDate.Format(time.DateOnly), opts.StartDate.Format(time.DateOnly))
	}
	// A path that does not exist is a bad invocation, not bad data.
	for _, path := range []string{opts.MarketsPath, opts.TradesPath} {
		if _, err := os.Stat(path); err != nil {
			return Result{}, configErrorf("dataset path %s: %v", path, err)
		}
	}

	loader := &dataset.Loader{Config: r.Config.Dataset, Logger: r.Logger}
	ds, err := loader.Load(opts.MarketsPath, opts.TradesPath, opts.StartDate, opts.EndDate)
	if err != nil {
		return Result{}, dataError(err)
	}

	res := Result{SkippedRecords: ds.Skipped}

	wallets := wallet.NewTracker(r.Logger)
	markets := market.NewTracker(r.Logger)

	minVolume := decimal.NewFromFloat(r.Config.Backtest.MinMarketVolumeUSD)
	allowed := make(map[string]bool, len(ds.Markets))
	for _, m := range ds.Markets {
		if m.VolumeUSD.LessThan(minVolume) {
			res.MarketsFiltered++
			continue
		}
		allowed[m.ID] = true
		markets.Register(m)
	}
	res.MarketsReplayed = len(allowed)

	simulator := sim.NewSimulator(
		r.Config.Sim,
		decimal.NewFromFloat(r.Config.Backtest.StartingCapitalUSD),
		sim.Slippage{
			Seed:   r.Config.Backtest.Seed,
			MinBps: r.Config.Sim.SlippageMinBps,
			MaxBps: r.Config.Sim.SlippageMaxBps,
		},
		r.Logger,
	)
	simulator.OnSettle = wallets.RecordOutcome

	evaluator := detector.NewEvaluator(r.Config.Detector, wallets, r.Logger)

	var lastTS time.Time
	for _, ev := range ds.Trades {
		if !allowed[ev.MarketID] {
			res.EventsFiltered++
			continue
		}
		lastTS = ev.Timestamp

		wallets.Observe(ev)
		markets.Observe(ev)
		markets.Tick(ev.Timestamp)

		snap, ok := markets.Query(ev.MarketID, ev.Timestamp)
		if ok && !snap.Resolved {
			signals := evaluator.Evaluate(detector.Context{
				Event:  ev,
				Wallet: wallets.Query(ev.Wallet),
				Market: snap,
			})
			for _, sig := range signals {
				res.SignalsEmitted++
				if sig.Confidence < r.Config.Backtest.MinConfidence {
					continue
				}
				if simulator.OnSignal(sig, snap) {
					res.SignalsAccepted++
				}
			}
		}

		// Exit checks run against every open position on every event.
		lookup := func(id string) (market.Snapshot, bool) {
			return markets.Query(id, ev.Timestamp)
		}
		simulator.CheckExits(ev.Timestamp, lookup)

		res.EventsProcessed++
		if r.Logger != nil && r.Config.Backtest.ProgressEvery > 0 &&
			res.EventsProcessed%r.Config.Backtest.ProgressEvery == 0 {
			r.Logger.Info("replay progress",
				zap.Int("events", res.EventsProcessed),
				zap.Int("open_positions", simulator.OpenCount()),
				zap.String("capital", simulator.Capital().StringFixed(2)),
			)
		}
	}

	// Drain: resolve everything past its close, run exits once more, then
	// force-close whatever is still open at the end of the window.
	endTS := opts.EndDate
	if endTS.IsZero() || (!lastTS.IsZero() && lastTS.After(endTS)) {
		endTS = lastTS
	}
	if !endTS.IsZero() {
		markets.Tick(endTS)
		lookup := func(id string) (market.Snapshot, bool) {
			return markets.Query(id, endTS)
		}
		simulator.CheckExits(endTS, lookup)
		simulator.CloseRemaining(endTS, lookup)
	}

	res.Ledger = simulator.Ledger()
	res.WalletsObserved = wallets.Count()

	startDate := opts.StartDate
	if startDate.IsZero() && len(ds.Trades) > 0 {
		startDate = ds.Trades[0].Timestamp
	}
	res.Report = perf.Summarize(res.Ledger, perf.Input{
		StartingCapital: decimal.NewFromFloat(r.Config.Backtest.StartingCapitalUSD),
		StartDate:       startDate,
		EndDate:         endTS,
		SkippedRecords:  ds.Skipped,
	}, r.Config.Perf)

	if r.Logger != nil {
		r.Logger.Info("replay complete",
			zap.Int("events", res.EventsProcessed),
			zap.Int("signals", res.SignalsEmitted),
			zap.Int("accepted", res.SignalsAccepted),
			zap.Int("closed", len(res.Ledger)),
			zap.String("final_capital", res.Report.FinalCapital.StringFixed(2)),
		)
	}
	return res, nil
}
