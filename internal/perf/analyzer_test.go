package perf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"polysim/internal/config"
	"polysim/internal/models"
)

func input() Input {
	return Input{
		StartingCapital: decimal.NewFromInt(5000),
		StartDate:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func closed(kind models.SignalKind, entry, exit time.Time, notional, realized int64) models.Position {
	n := decimal.NewFromInt(notional)
	r := decimal.NewFromInt(realized)
	return models.Position{
		Signal:      models.Signal{Kind: kind, Confidence: 0.75},
		MarketID:    "m1",
		Side:        models.SideBuy,
		EntryTime:   entry,
		EntryPrice:  decimal.RequireFromString("0.5"),
		Notional:    n,
		Shares:      n.Div(decimal.RequireFromString("0.5")),
		Status:      models.PositionClosed,
		ExitTime:    exit,
		ExitReason:  models.ExitResolution,
		GrossPnL:    r.Add(n.Mul(decimal.RequireFromString("0.02"))),
		Fee:         n.Mul(decimal.RequireFromString("0.02")),
		RealizedPnL: r,
	}
}

func TestSummarize_EmptyLedgerAllUndefined(t *testing.T) {
	rep := Summarize(nil, input(), config.Default().Perf)

	if rep.TotalTrades != 0 {
		t.Fatalf("trades=%d want=0", rep.TotalTrades)
	}
	for name, r := range map[string]models.Ratio{
		"win_rate":       rep.WinRate,
		"total_return":   rep.TotalReturnPct,
		"monthly_roi":    rep.MonthlyROIPct,
		"sharpe":         rep.SharpeRatio,
		"max_drawdown":   rep.MaxDrawdownPct,
		"avg_win":        rep.AvgWin,
		"avg_loss":       rep.AvgLoss,
		"profit_factor":  rep.ProfitFactor,
		"avg_hold_hours": rep.AvgHoldHours,
	} {
		if r.Valid {
			t.Fatalf("%s defined on empty ledger: %v", name, r.Value)
		}
	}
	if rep.FinalCapital.Cmp(decimal.NewFromInt(5000)) != 0 {
		t.Fatalf("final=%s want=5000", rep.FinalCapital.String())
	}
}

func TestSummarize_BasicCounts(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ledger := []models.Position{
		closed(models.SignalFreshAccount, t0, t0.Add(12*time.Hour), 1000, 500),
		closed(models.SignalFreshAccount, t0.Add(24*time.Hour), t0.Add(36*time.Hour), 1000, -200),
		closed(models.SignalVolumeSpike, t0.Add(48*time.Hour), t0.Add(60*time.Hour), 1000, 300),
	}
	rep := Summarize(ledger, input(), config.Default().Perf)

	if rep.TotalTrades != 3 || rep.Wins != 2 || rep.Losses != 1 {
		t.Fatalf("trades=%d wins=%d losses=%d want=3/2/1", rep.TotalTrades, rep.Wins, rep.Losses)
	}
	if !rep.WinRate.Valid || rep.WinRate.Value < 0.66 || rep.WinRate.Value > 0.67 {
		t.Fatalf("win_rate=%+v want~0.667", rep.WinRate)
	}
	if rep.TotalPnL.Cmp(decimal.NewFromInt(600)) != 0 {
		t.Fatalf("pnl=%s want=600", rep.TotalPnL.String())
	}
	if rep.FinalCapital.Cmp(decimal.NewFromInt(5600)) != 0 {
		t.Fatalf("final=%s want=5600", rep.FinalCapital.String())
	}
	if !rep.TotalReturnPct.Valid || rep.TotalReturnPct.Value != 12 {
		t.Fatalf("return=%+v want=12%%", rep.TotalReturnPct)
	}
	if !rep.AvgHoldHours.Valid || rep.AvgHoldHours.Value != 12 {
		t.Fatalf("avg_hold=%+v want=12h", rep.AvgHoldHours)
	}
	if rep.ExitReasons[models.ExitResolution] != 3 {
		t.Fatalf("exit_reasons=%v want resolution=3", rep.ExitReasons)
	}
}

func TestSummarize_ProfitFactorUndefinedWithoutLosses(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ledger := []models.Position{
		closed(models.SignalFreshAccount, t0, t0.Add(time.Hour), 1000, 500),
		closed(models.SignalFreshAccount, t0, t0.Add(time.Hour), 1000, 400),
	}
	rep := Summarize(ledger, input(), config.Default().Perf)

	if rep.ProfitFactor.Valid {
		t.Fatalf("profit factor defined with zero losses: %v", rep.ProfitFactor.Value)
	}
	if rep.AvgLoss.Valid {
		t.Fatalf("avg loss defined with zero losses")
	}
}

func TestSummarize_SharpeUndefinedForSingleTrade(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ledger := []models.Position{
		closed(models.SignalFreshAccount, t0, t0.Add(time.Hour), 1000, 500),
	}
	rep := Summarize(ledger, input(), config.Default().Perf)

	if rep.SharpeRatio.Valid {
		t.Fatalf("sharpe defined for a single sample: %v", rep.SharpeRatio.Value)
	}
}

func TestSummarize_SharpeUndefinedForZeroVariance(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ledger := []models.Position{
		closed(models.SignalFreshAccount, t0, t0.Add(time.Hour), 1000, 100),
		closed(models.SignalFreshAccount, t0, t0.Add(time.Hour), 1000, 100),
	}
	rep := Summarize(ledger, input(), config.Default().Perf)

	if rep.SharpeRatio.Valid {
		t.Fatalf("sharpe defined for zero variance: %v", rep.SharpeRatio.Value)
	}
}

func TestSummarize_MaxDrawdown(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	// Cumulative: +1000, peak; then -500, -250 => trough -750 below peak.
	ledger := []models.Position{
		closed(models.SignalFreshAccount, t0, t0.Add(time.Hour), 1000, 1000),
		closed(models.SignalFreshAccount, t0, t0.Add(2*time.Hour), 1000, -500),
		closed(models.SignalFreshAccount, t0, t0.Add(3*time.Hour), 1000, -250),
	}
	rep := Summarize(ledger, input(), config.Default().Perf)

	if !rep.MaxDrawdownPct.Valid {
		t.Fatalf("drawdown undefined")
	}
	// 750 against 5,000 starting capital = 15%.
	if rep.MaxDrawdownPct.Value != 15 {
		t.Fatalf("drawdown=%v want=15", rep.MaxDrawdownPct.Value)
	}
}

func TestSummarize_ByKindBreakdown(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ledger := []models.Position{
		closed(models.SignalFreshAccount, t0, t0.Add(time.Hour), 1000, 500),
		closed(models.SignalFreshAccount, t0, t0.Add(time.Hour), 1000, -100),
		closed(models.SignalVolumeSpike, t0, t0.Add(time.Hour), 1000, 200),
	}
	rep := Summarize(ledger, input(), config.Default().Perf)

	fa := rep.ByKind[models.SignalFreshAccount]
	if fa.Count != 2 || fa.Wins != 1 {
		t.Fatalf("fresh_account count=%d wins=%d want=2/1", fa.Count, fa.Wins)
	}
	if fa.TotalPnL.Cmp(decimal.NewFromInt(400)) != 0 {
		t.Fatalf("fresh_account pnl=%s want=400", fa.TotalPnL.String())
	}
	vs := rep.ByKind[models.SignalVolumeSpike]
	if vs.Count != 1 || !vs.WinRate.Valid || vs.WinRate.Value != 1 {
		t.Fatalf("volume_spike=%+v want count=1 win_rate=1", vs)
	}
}

func TestSummarize_MonthlyROIScalesByElapsed(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	// 15 days first entry to last exit, +10% total => ~20% monthly.
	ledger := []models.Position{
		closed(models.SignalFreshAccount, t0, t0.Add(15*24*time.Hour), 1000, 500),
	}
	rep := Summarize(ledger, input(), config.Default().Perf)

	if rep.ElapsedDays != 15 {
		t.Fatalf("elapsed=%v want=15", rep.ElapsedDays)
	}
	if !rep.MonthlyROIPct.Valid || rep.MonthlyROIPct.Value != 20 {
		t.Fatalf("monthly=%+v want=20", rep.MonthlyROIPct)
	}
}
