package detector

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"polysim/internal/config"
	"polysim/internal/market"
	"polysim/internal/models"
	"polysim/internal/wallet"
)

// Context is the complete input to one detector evaluation: the trade event
// and snapshots taken after the trackers observed it.
type Context struct {
	Event  models.TradeEvent
	Wallet wallet.Profile
	Market market.Snapshot
}

// Detector evaluates one pattern against a single event. Evaluate returns nil
// when the pattern does not match; it must not retain the Context.
type Detector interface {
	Kind() models.SignalKind
	Evaluate(ctx Context) *models.Signal
}

// WalletLookup resolves wallets other than the event's own, used by the
// clustering detector to age-check cluster members.
type WalletLookup interface {
	Query(wallet string) wallet.Profile
}

// sizeFraction maps confidence in (0.5, 1] onto a raw capital fraction in
// (0, 1]. The simulator applies its Kelly multiplier and cap on top.
func sizeFraction(confidence float64) float64 {
	return (confidence - 0.5) / 0.5
}

// Evaluator runs every detector against each event in a fixed order and
// applies per-detector cooldowns so a burst of qualifying events does not
// emit a burst of identical signals.
type Evaluator struct {
	Detectors []Detector
	Logger    *zap.Logger

	cooldowns map[models.SignalKind]time.Duration
	lastFired map[string]time.Time
}

func NewEvaluator(cfg config.DetectorConfig, wallets WalletLookup, logger *zap.Logger) *Evaluator {
	hours := func(h float64) time.Duration {
		return time.Duration(h * float64(time.Hour))
	}
	return &Evaluator{
		Detectors: []Detector{
			&FreshAccount{Config: cfg.FreshAccount},
			&ProvenWinner{Config: cfg.ProvenWinner},
			&VolumeSpike{Config: cfg.VolumeSpike},
			&WalletClustering{Config: cfg.WalletClustering, Wallets: wallets},
			&PerfectTiming{Config: cfg.PerfectTiming},
		},
		Logger: logger,
		cooldowns: map[models.SignalKind]time.Duration{
			models.SignalFreshAccount:     hours(cfg.FreshAccount.CooldownHours),
			models.SignalProvenWinner:     hours(cfg.ProvenWinner.CooldownHours),
			models.SignalVolumeSpike:      hours(cfg.VolumeSpike.CooldownHours),
			models.SignalWalletClustering: hours(cfg.WalletClustering.CooldownHours),
			models.SignalPerfectTiming:    hours(cfg.PerfectTiming.CooldownHours),
		},
		lastFired: make(map[string]time.Time),
	}
}

// Evaluate runs all detectors against the event, in order. Each detector
// emits at most one signal per event.
func (e *Evaluator) Evaluate(ctx Context) []models.Signal {
	var out []models.Signal
	for _, d := range e.Detectors {
		sig := d.Evaluate(ctx)
		if sig == nil {
			continue
		}
		if e.onCooldown(*sig) {
			continue
		}
		out = append(out, *sig)
		if e.Logger != nil {
			e.Logger.Debug("signal",
				zap.String("kind", string(sig.Kind)),
				zap.String("market", sig.MarketID),
				zap.String("wallet", sig.Wallet),
				zap.Float64("confidence", sig.Confidence),
				zap.String("reasoning", sig.Reasoning),
			)
		}
	}
	return out
}

func (e *Evaluator) onCooldown(sig models.Signal) bool {
	cd := e.cooldowns[sig.Kind]
	if cd <= 0 {
		return false
	}
	key := fmt.Sprintf("%s|%s|%s", sig.Kind, sig.MarketID, sig.Wallet)
	if last, ok := e.lastFired[key]; ok && sig.Timestamp.Sub(last) < cd {
		return true
	}
	e.lastFired[key] = sig.Timestamp
	return false
}
