package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalKind enumerates the five pattern detectors. The set is closed:
// adding a detector means adding a kind here and a Detector implementation,
// nothing else.
type SignalKind string

const (
	SignalFreshAccount     SignalKind = "fresh_account"
	SignalProvenWinner     SignalKind = "proven_winner"
	SignalVolumeSpike      SignalKind = "volume_spike"
	SignalWalletClustering SignalKind = "wallet_clustering"
	SignalPerfectTiming    SignalKind = "perfect_timing"
)

// SignalKinds lists all detector kinds in evaluation order.
func SignalKinds() []SignalKind {
	return []SignalKind{
		SignalFreshAccount,
		SignalProvenWinner,
		SignalVolumeSpike,
		SignalWalletClustering,
		SignalPerfectTiming,
	}
}

// Signal is an immutable detector emission. At most one Signal per
// (detector, event) pair is produced.
type Signal struct {
	Kind      SignalKind
	MarketID  string
	Timestamp time.Time

	// Wallet is the source wallet for wallet-scoped detectors; empty for
	// market-wide kinds (volume_spike, wallet_clustering).
	Wallet string

	Confidence float64
	Side       Side
	EntryPrice decimal.Decimal

	// SizeFraction is the detector-suggested fraction of capital, before the
	// simulator applies its fractional-Kelly multiplier and position cap.
	SizeFraction float64

	Reasoning string
}
