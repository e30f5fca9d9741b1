package perf

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"polysim/internal/config"
	"polysim/internal/models"
)

// Input carries everything Summarize needs beyond the ledger itself.
type Input struct {
	StartingCapital decimal.Decimal
	StartDate       time.Time
	EndDate         time.Time
	SkippedRecords  int
}

// Summarize computes the full performance report over a closed-position
// ledger. It is a pure function: given the same ledger and input twice it
// produces identical reports. An empty ledger yields a report whose rate and
// ratio fields are all undefined rather than silently zero.
func Summarize(ledger []models.Position, in Input, cfg config.PerfConfig) models.PerformanceReport {
	rep := models.PerformanceReport{
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		StartingCapital: in.StartingCapital,
		FinalCapital:    in.StartingCapital,
		TotalPnL:        decimal.Zero,
		TotalFees:       decimal.Zero,
		LargestWin:      decimal.Zero,
		LargestLoss:     decimal.Zero,
		ByKind:          make(map[models.SignalKind]models.KindPerformance),
		ExitReasons:     make(map[models.ExitReason]int),
		SkippedRecords:  in.SkippedRecords,
	}
	if len(ledger) == 0 {
		return rep
	}

	rep.TotalTrades = len(ledger)

	var (
		grossWins   = decimal.Zero
		grossLosses = decimal.Zero
		returns     []float64
		holds       []float64
		firstEntry  = ledger[0].EntryTime
		lastExit    = ledger[0].ExitTime
	)
	for _, p := range ledger {
		rep.TotalPnL = rep.TotalPnL.Add(p.RealizedPnL)
		rep.TotalFees = rep.TotalFees.Add(p.Fee)
		rep.ExitReasons[p.ExitReason]++

		if p.Win() {
			rep.Wins++
			grossWins = grossWins.Add(p.RealizedPnL)
			if p.RealizedPnL.GreaterThan(rep.LargestWin) {
				rep.LargestWin = p.RealizedPnL
			}
		} else {
			rep.Losses++
			grossLosses = grossLosses.Add(p.RealizedPnL)
			if p.RealizedPnL.LessThan(rep.LargestLoss) {
				rep.LargestLoss = p.RealizedPnL
			}
		}

		if !p.Notional.IsZero() {
			r, _ := p.RealizedPnL.Div(p.Notional).Float64()
			returns = append(returns, r)
		}
		holds = append(holds, p.HoldDuration().Hours())

		if p.EntryTime.Before(firstEntry) {
			firstEntry = p.EntryTime
		}
		if p.ExitTime.After(lastExit) {
			lastExit = p.ExitTime
		}
	}

	rep.FinalCapital = in.StartingCapital.Add(rep.TotalPnL)
	rep.WinRate = models.Defined(float64(rep.Wins) / float64(rep.TotalTrades))

	if in.StartingCapital.GreaterThan(decimal.Zero) {
		ret, _ := rep.TotalPnL.Div(in.StartingCapital).Float64()
		rep.TotalReturnPct = models.Defined(ret * 100)
	}

	// Elapsed span between first entry and last exit; a zero span would
	// divide the monthly extrapolation by zero, so substitute one day.
	days := lastExit.Sub(firstEntry).Hours() / 24
	if days <= 0 {
		days = 1
	}
	rep.ElapsedDays = days
	if rep.TotalReturnPct.Valid {
		rep.MonthlyROIPct = models.Defined(rep.TotalReturnPct.Value / days * 30)
	}

	rep.SharpeRatio = sharpe(returns, cfg.TradingPeriodsPerYear)
	rep.MaxDrawdownPct = maxDrawdown(ledger, in.StartingCapital)

	if rep.Wins > 0 {
		v, _ := grossWins.Div(decimal.NewFromInt(int64(rep.Wins))).Float64()
		rep.AvgWin = models.Defined(v)
	}
	if rep.Losses > 0 {
		v, _ := grossLosses.Div(decimal.NewFromInt(int64(rep.Losses))).Float64()
		rep.AvgLoss = models.Defined(v)
	}
	if grossLosses.IsNegative() {
		v, _ := grossWins.Div(grossLosses.Abs()).Float64()
		rep.ProfitFactor = models.Defined(v)
	}
	if mean, err := stats.Mean(holds); err == nil {
		rep.AvgHoldHours = models.Defined(mean)
	}

	rep.ByKind = byKind(ledger)
	return rep
}

// sharpe annualizes the mean per-trade return over its sample standard
// deviation. Undefined with fewer than two samples or zero variance.
func sharpe(returns []float64, periodsPerYear float64) models.Ratio {
	if len(returns) < 2 {
		return models.Undefined()
	}
	mean, err := stats.Mean(returns)
	if err != nil {
		return models.Undefined()
	}
	sd, err := stats.StandardDeviationSample(returns)
	if err != nil || sd == 0 {
		return models.Undefined()
	}
	return models.Defined(mean / sd * math.Sqrt(periodsPerYear))
}

// maxDrawdown walks cumulative realized P&L in close order and reports the
// worst peak-to-trough decline as a percentage of starting capital.
func maxDrawdown(ledger []models.Position, startingCapital decimal.Decimal) models.Ratio {
	if len(ledger) == 0 || !startingCapital.GreaterThan(decimal.Zero) {
		return models.Undefined()
	}
	cum := decimal.Zero
	peak := decimal.Zero
	worst := decimal.Zero
	for _, p := range ledger {
		cum = cum.Add(p.RealizedPnL)
		if cum.GreaterThan(peak) {
			peak = cum
		}
		dd := peak.Sub(cum)
		if dd.GreaterThan(worst) {
			worst = dd
		}
	}
	v, _ := worst.Div(startingCapital).Float64()
	return models.Defined(v * 100)
}

func byKind(ledger []models.Position) map[models.SignalKind]models.KindPerformance {
	type agg struct {
		count      int
		wins       int
		pnl        decimal.Decimal
		confidence float64
	}
	accum := make(map[models.SignalKind]*agg)
	for _, p := range ledger {
		a, ok := accum[p.Signal.Kind]
		if !ok {
			a = &agg{pnl: decimal.Zero}
			accum[p.Signal.Kind] = a
		}
		a.count++
		if p.Win() {
			a.wins++
		}
		a.pnl = a.pnl.Add(p.RealizedPnL)
		a.confidence += p.Signal.Confidence
	}

	out := make(map[models.SignalKind]models.KindPerformance, len(accum))
	for kind, a := range accum {
		kp := models.KindPerformance{
			Count:    a.count,
			Wins:     a.wins,
			TotalPnL: a.pnl,
		}
		if a.count > 0 {
			kp.WinRate = models.Defined(float64(a.wins) / float64(a.count))
			avg, _ := a.pnl.Div(decimal.NewFromInt(int64(a.count))).Float64()
			kp.AvgPnL = models.Defined(avg)
			kp.AvgConfidence = models.Defined(a.confidence / float64(a.count))
		}
		out[kind] = kp
	}
	return out
}
