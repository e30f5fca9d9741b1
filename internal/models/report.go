package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Ratio is a statistic that may be mathematically undefined (for example the
// standard deviation of a single sample). Callers must check Valid before
// using Value; an invalid Ratio marshals to JSON null rather than NaN or a
// silent zero.
type Ratio struct {
	Value float64
	Valid bool
}

// Defined wraps a value in a valid Ratio.
func Defined(v float64) Ratio { return Ratio{Value: v, Valid: true} }

// Undefined is the sentinel for statistics that cannot be computed.
func Undefined() Ratio { return Ratio{} }

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ratio{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Defined(v)
	return nil
}

// KindPerformance is the per-detector-kind breakdown over the ledger.
type KindPerformance struct {
	Count         int             `json:"count"`
	Wins          int             `json:"wins"`
	WinRate       Ratio           `json:"win_rate"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	AvgPnL        Ratio           `json:"avg_pnl"`
	AvgConfidence Ratio           `json:"avg_confidence"`
}

// PerformanceReport is an immutable snapshot computed once over the full
// closed-position ledger at the end of a run.
type PerformanceReport struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	StartingCapital decimal.Decimal `json:"starting_capital"`
	FinalCapital    decimal.Decimal `json:"final_capital"`

	TotalTrades int `json:"total_trades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`

	WinRate        Ratio `json:"win_rate"`
	TotalReturnPct Ratio `json:"total_return_pct"`
	MonthlyROIPct  Ratio `json:"monthly_roi_pct"`
	SharpeRatio    Ratio `json:"sharpe_ratio"`

	// MaxDrawdownPct is the magnitude of the worst peak-to-trough decline of
	// cumulative realized P&L, as a percentage of starting capital.
	MaxDrawdownPct Ratio `json:"max_drawdown_pct"`

	TotalPnL  decimal.Decimal `json:"total_pnl"`
	TotalFees decimal.Decimal `json:"total_fees"`

	AvgWin       Ratio `json:"avg_win"`
	AvgLoss      Ratio `json:"avg_loss"`
	ProfitFactor Ratio `json:"profit_factor"`
	AvgHoldHours Ratio `json:"avg_hold_hours"`

	LargestWin  decimal.Decimal `json:"largest_win"`
	LargestLoss decimal.Decimal `json:"largest_loss"`

	ByKind      map[SignalKind]KindPerformance `json:"by_kind"`
	ExitReasons map[ExitReason]int             `json:"exit_reasons"`

	// SkippedRecords counts malformed input rows dropped during loading.
	SkippedRecords int `json:"skipped_records"`

	ElapsedDays float64 `json:"elapsed_days"`
}
