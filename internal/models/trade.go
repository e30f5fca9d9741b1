package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade or position on a binary market.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// TradeEvent is one maker-side fill from the historical record. Events are
// immutable once loaded; Seq preserves input order so that simultaneous
// timestamps replay identically between runs.
type TradeEvent struct {
	Seq       int64
	Timestamp time.Time
	MarketID  string
	Wallet    string
	Side      Side
	Price     decimal.Decimal
	AmountUSD decimal.Decimal
}

// MarketMeta is the static metadata for one market, supplied by the dataset
// rather than inferred from trades.
type MarketMeta struct {
	ID        string
	Question  string
	TokenYes  string
	TokenNo   string
	VolumeUSD decimal.Decimal

	// CloseTime is zero when the dataset does not carry a scheduled close.
	CloseTime time.Time

	// Resolution is the authoritative winning side when known ("" otherwise).
	Resolution Side
}

// HasCloseTime reports whether a scheduled close is known for the market.
func (m MarketMeta) HasCloseTime() bool { return !m.CloseTime.IsZero() }

// HasResolution reports whether the dataset carries an authoritative outcome.
func (m MarketMeta) HasResolution() bool {
	return m.Resolution == SideBuy || m.Resolution == SideSell
}

// ResolutionPrice maps the authoritative outcome to a settlement price.
func (m MarketMeta) ResolutionPrice() decimal.Decimal {
	if m.Resolution == SideBuy {
		return decimal.NewFromInt(1)
	}
	return decimal.Zero
}
