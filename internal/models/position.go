package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus is the lifecycle state of a simulated position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// ExitReason records which rule closed a position. A position closes via
// exactly one reason and is never reopened.
type ExitReason string

const (
	ExitResolution  ExitReason = "resolution"
	ExitStopLoss    ExitReason = "stop_loss"
	ExitTimeDecay   ExitReason = "time_decay"
	ExitBacktestEnd ExitReason = "backtest_end"
)

// Position is owned exclusively by the simulator from creation to settlement.
// Exit fields and P&L are defined only once Status is PositionClosed.
type Position struct {
	Signal   Signal
	MarketID string
	Side     Side

	EntryTime  time.Time
	EntryPrice decimal.Decimal
	Notional   decimal.Decimal
	Shares     decimal.Decimal

	Status     PositionStatus
	ExitTime   time.Time
	ExitPrice  decimal.Decimal
	ExitReason ExitReason

	// GrossPnL excludes the exit fee; RealizedPnL = GrossPnL - Fee.
	GrossPnL    decimal.Decimal
	Fee         decimal.Decimal
	RealizedPnL decimal.Decimal
}

// HoldDuration is the time between entry and exit for a closed position.
func (p Position) HoldDuration() time.Duration {
	if p.Status != PositionClosed {
		return 0
	}
	return p.ExitTime.Sub(p.EntryTime)
}

// Win reports whether the closed position realized a positive P&L.
func (p Position) Win() bool {
	return p.Status == PositionClosed && p.RealizedPnL.GreaterThan(decimal.Zero)
}
