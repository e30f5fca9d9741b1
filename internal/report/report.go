package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"polysim/internal/models"
)

// Markdown renders the performance report as a human-readable document. The
// report object itself is the contract; this rendering is a convenience.
func Markdown(rep models.PerformanceReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Backtest Results\n\n")
	fmt.Fprintf(&b, "**Period:** %s to %s (%.1f days)\n\n",
		rep.StartDate.Format(time.DateOnly), rep.EndDate.Format(time.DateOnly), rep.ElapsedDays)

	fmt.Fprintf(&b, "## Capital\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Starting capital | $%s |\n", rep.StartingCapital.StringFixed(2))
	fmt.Fprintf(&b, "| Final capital | $%s |\n", rep.FinalCapital.StringFixed(2))
	fmt.Fprintf(&b, "| Total P&L | $%s |\n", rep.TotalPnL.StringFixed(2))
	fmt.Fprintf(&b, "| Total fees | $%s |\n", rep.TotalFees.StringFixed(2))
	fmt.Fprintf(&b, "| Total return | %s |\n", pct(rep.TotalReturnPct))
	fmt.Fprintf(&b, "| Monthly ROI | %s |\n", pct(rep.MonthlyROIPct))

	fmt.Fprintf(&b, "\n## Trades\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total trades | %d |\n", rep.TotalTrades)
	fmt.Fprintf(&b, "| Wins / losses | %d / %d |\n", rep.Wins, rep.Losses)
	fmt.Fprintf(&b, "| Win rate | %s |\n", ratioPct(rep.WinRate))
	fmt.Fprintf(&b, "| Avg win | %s |\n", usd(rep.AvgWin))
	fmt.Fprintf(&b, "| Avg loss | %s |\n", usd(rep.AvgLoss))
	fmt.Fprintf(&b, "| Largest win | $%s |\n", rep.LargestWin.StringFixed(2))
	fmt.Fprintf(&b, "| Largest loss | $%s |\n", rep.LargestLoss.StringFixed(2))
	fmt.Fprintf(&b, "| Avg hold | %s |\n", hours(rep.AvgHoldHours))

	fmt.Fprintf(&b, "\n## Risk\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Sharpe ratio | %s |\n", plain(rep.SharpeRatio))
	fmt.Fprintf(&b, "| Max drawdown | %s |\n", pct(rep.MaxDrawdownPct))
	fmt.Fprintf(&b, "| Profit factor | %s |\n", plain(rep.ProfitFactor))

	if len(rep.ByKind) > 0 {
		fmt.Fprintf(&b, "\n## By Signal\n\n")
		fmt.Fprintf(&b, "| Signal | Trades | Wins | Win rate | Total P&L | Avg confidence |\n")
		fmt.Fprintf(&b, "|---|---|---|---|---|---|\n")
		for _, kind := range models.SignalKinds() {
			kp, ok := rep.ByKind[kind]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "| %s | %d | %d | %s | $%s | %s |\n",
				kind, kp.Count, kp.Wins, ratioPct(kp.WinRate),
				kp.TotalPnL.StringFixed(2), plain(kp.AvgConfidence))
		}
	}

	if len(rep.ExitReasons) > 0 {
		fmt.Fprintf(&b, "\n## Exits\n\n")
		fmt.Fprintf(&b, "| Reason | Count |\n|---|---|\n")
		reasons := make([]string, 0, len(rep.ExitReasons))
		for reason := range rep.ExitReasons {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(&b, "| %s | %d |\n", reason, rep.ExitReasons[models.ExitReason(reason)])
		}
	}

	fmt.Fprintf(&b, "\n## Success Criteria\n\n")
	fmt.Fprintf(&b, "| Criterion | Target | Actual | Met |\n|---|---|---|---|\n")
	fmt.Fprintf(&b, "| Win rate | >= 55%% | %s | %s |\n",
		ratioPct(rep.WinRate), met(rep.WinRate, func(v float64) bool { return v >= 0.55 }))
	fmt.Fprintf(&b, "| Monthly ROI | >= 10%% | %s | %s |\n",
		pct(rep.MonthlyROIPct), met(rep.MonthlyROIPct, func(v float64) bool { return v >= 10 }))
	fmt.Fprintf(&b, "| Profit factor | >= 1.5 | %s | %s |\n",
		plain(rep.ProfitFactor), met(rep.ProfitFactor, func(v float64) bool { return v >= 1.5 }))
	fmt.Fprintf(&b, "| Max drawdown | <= 25%% | %s | %s |\n",
		pct(rep.MaxDrawdownPct), met(rep.MaxDrawdownPct, func(v float64) bool { return v <= 25 }))

	if rep.SkippedRecords > 0 {
		fmt.Fprintf(&b, "\n%d malformed input rows were skipped during loading.\n", rep.SkippedRecords)
	}
	return b.String()
}

// WriteMarkdown renders the report and writes it to path.
func WriteMarkdown(path string, rep models.PerformanceReport) error {
	return os.WriteFile(path, []byte(Markdown(rep)), 0o644)
}

// WriteJSON writes the machine-readable report to path.
func WriteJSON(path string, rep models.PerformanceReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func pct(r models.Ratio) string {
	if !r.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", r.Value)
}

func ratioPct(r models.Ratio) string {
	if !r.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", r.Value*100)
}

func usd(r models.Ratio) string {
	if !r.Valid {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", r.Value)
}

func hours(r models.Ratio) string {
	if !r.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.1fh", r.Value)
}

func met(r models.Ratio, ok func(float64) bool) string {
	if !r.Valid {
		return "n/a"
	}
	if ok(r.Value) {
		return "yes"
	}
	return "no"
}

func plain(r models.Ratio) string {
	if !r.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", r.Value)
}
