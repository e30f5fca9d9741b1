package sim

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"polysim/internal/config"
	"polysim/internal/market"
	"polysim/internal/models"
	"polysim/internal/wallet"
)

// SnapshotFunc resolves the current snapshot for a market, false if unknown.
type SnapshotFunc func(marketID string) (market.Snapshot, bool)

// SettleFunc is invoked synchronously for every closed position so the
// wallet tracker can fold the outcome back into its profiles.
type SettleFunc func(walletAddr string, o wallet.Outcome)

// Simulator manages open positions against simulated capital. It owns every
// position from acceptance to settlement; closed positions are immutable and
// appended to the ledger.
type Simulator struct {
	Config   config.SimConfig
	Slippage Slippage
	Logger   *zap.Logger
	OnSettle SettleFunc

	capital decimal.Decimal
	open    []*models.Position
	ledger  []models.Position
	fees    decimal.Decimal

	rejectedCap  int
	rejectedSize int
}

func NewSimulator(cfg config.SimConfig, startingCapital decimal.Decimal, sl Slippage, logger *zap.Logger) *Simulator {
	return &Simulator{
		Config:   cfg,
		Slippage: sl,
		Logger:   logger,
		capital:  startingCapital,
		fees:     decimal.Zero,
	}
}

// Capital is the current free (unreserved) capital.
func (s *Simulator) Capital() decimal.Decimal { return s.capital }

// OpenCount is the number of currently open positions.
func (s *Simulator) OpenCount() int { return len(s.open) }

// Ledger returns the closed positions in close order.
func (s *Simulator) Ledger() []models.Position { return s.ledger }

// FeesCharged is the cumulative exit fees taken across the ledger.
func (s *Simulator) FeesCharged() decimal.Decimal { return s.fees }

// RejectedByCap counts signals refused because the position cap was hit.
func (s *Simulator) RejectedByCap() int { return s.rejectedCap }

// RejectedBySize counts signals refused because the sized notional was dust.
func (s *Simulator) RejectedBySize() int { return s.rejectedSize }

// plannedNotional sizes a signal against current capital: raw fraction times
// the Kelly multiplier, then capped at the per-position fraction of capital.
func plannedNotional(capital decimal.Decimal, fraction float64, cfg config.SimConfig) decimal.Decimal {
	size := capital.
		Mul(decimal.NewFromFloat(fraction)).
		Mul(decimal.NewFromFloat(cfg.FractionalKelly))
	limit := capital.Mul(decimal.NewFromFloat(cfg.MaxPositionFraction))
	if size.GreaterThan(limit) {
		size = limit
	}
	return size
}

// OnSignal attempts to open a position for the signal. It reports whether the
// signal was accepted; capital is debited by the notional at acceptance.
func (s *Simulator) OnSignal(sig models.Signal, snap market.Snapshot) bool {
	if len(s.open) >= s.Config.MaxOpenPositions {
		s.rejectedCap++
		return false
	}
	if snap.Resolved {
		return false
	}
	for _, p := range s.open {
		if p.MarketID == sig.MarketID {
			return false
		}
	}

	notional := plannedNotional(s.capital, sig.SizeFraction, s.Config)
	if notional.LessThan(decimal.NewFromFloat(s.Config.MinPositionUSD)) {
		s.rejectedSize++
		return false
	}
	if notional.GreaterThan(s.capital) {
		s.rejectedSize++
		return false
	}

	entry := s.Slippage.EntryPrice(sig, sig.EntryPrice)
	pos := &models.Position{
		Signal:     sig,
		MarketID:   sig.MarketID,
		Side:       sig.Side,
		EntryTime:  sig.Timestamp,
		EntryPrice: entry,
		Notional:   notional,
		Shares:     notional.Div(entry),
		Status:     models.PositionOpen,
	}
	s.capital = s.capital.Sub(notional)
	s.open = append(s.open, pos)

	if s.Logger != nil {
		s.Logger.Debug("position opened",
			zap.String("market", pos.MarketID),
			zap.String("kind", string(sig.Kind)),
			zap.String("side", string(pos.Side)),
			zap.String("notional", notional.StringFixed(2)),
			zap.String("entry", entry.StringFixed(4)),
		)
	}
	return true
}

// grossAt computes direction-adjusted P&L against a mark price before fees.
func grossAt(p *models.Position, price decimal.Decimal) decimal.Decimal {
	value := p.Shares.Mul(price)
	if p.Side == models.SideBuy {
		return value.Sub(p.Notional)
	}
	return p.Notional.Sub(value)
}

// CheckExits evaluates the exit rules for every open position at now. Rules
// apply in fixed priority: resolution, then stop loss, then time decay. The
// first matching rule wins and a position closes at most once per tick.
func (s *Simulator) CheckExits(now time.Time, lookup SnapshotFunc) []models.Position {
	var closed []models.Position
	kept := s.open[:0]
	for _, p := range s.open {
		snap, ok := lookup(p.MarketID)
		if !ok {
			kept = append(kept, p)
			continue
		}

		if snap.Resolved {
			closed = append(closed, s.close(p, now, snap.ResolutionPrice, models.ExitResolution))
			continue
		}
		if !snap.HasPrice {
			kept = append(kept, p)
			continue
		}

		pnlPct := pnlFraction(grossAt(p, snap.CurrentPrice), p.Notional)
		if pnlPct < -s.Config.StopLossPct {
			exit := s.Slippage.ExitPrice(p.Signal, snap.CurrentPrice)
			closed = append(closed, s.close(p, now, exit, models.ExitStopLoss))
			continue
		}
		if snap.HasCloseTime && snap.HoursToClose < s.Config.TimeDecayHours && pnlPct < s.Config.TimeDecayMinGainPct {
			exit := s.Slippage.ExitPrice(p.Signal, snap.CurrentPrice)
			closed = append(closed, s.close(p, now, exit, models.ExitTimeDecay))
			continue
		}
		kept = append(kept, p)
	}
	s.open = kept
	return closed
}

// CloseRemaining force-closes every still-open position at the end of the
// replay, at the market's last price without slippage.
func (s *Simulator) CloseRemaining(now time.Time, lookup SnapshotFunc) []models.Position {
	var closed []models.Position
	for _, p := range s.open {
		price := p.EntryPrice
		if snap, ok := lookup(p.MarketID); ok {
			if snap.Resolved {
				closed = append(closed, s.close(p, now, snap.ResolutionPrice, models.ExitResolution))
				continue
			}
			if snap.HasPrice {
				price = snap.CurrentPrice
			}
		}
		closed = append(closed, s.close(p, now, price, models.ExitBacktestEnd))
	}
	s.open = s.open[:0]
	return closed
}

func pnlFraction(gross, notional decimal.Decimal) float64 {
	if notional.IsZero() {
		return 0
	}
	f, _ := gross.Div(notional).Float64()
	return f
}

// close settles a position: flat exit fee on notional, capital credited with
// notional plus realized P&L, outcome hook fired, ledger appended.
func (s *Simulator) close(p *models.Position, now time.Time, exitPrice decimal.Decimal, reason models.ExitReason) models.Position {
	gross := grossAt(p, exitPrice)
	fee := p.Notional.Mul(decimal.NewFromFloat(s.Config.FeeRate))

	p.Status = models.PositionClosed
	p.ExitTime = now
	p.ExitPrice = exitPrice
	p.ExitReason = reason
	p.GrossPnL = gross
	p.Fee = fee
	p.RealizedPnL = gross.Sub(fee)

	s.capital = s.capital.Add(p.Notional).Add(p.RealizedPnL)
	s.fees = s.fees.Add(fee)
	s.ledger = append(s.ledger, *p)

	if s.OnSettle != nil && p.Signal.Wallet != "" {
		s.OnSettle(p.Signal.Wallet, wallet.Outcome{
			PnL:        p.RealizedPnL,
			EntryTime:  p.EntryTime,
			SettledAt:  now,
			EarlyEntry: earlyEntry(*p),
		})
	}

	if s.Logger != nil {
		s.Logger.Debug("position closed",
			zap.String("market", p.MarketID),
			zap.String("reason", string(reason)),
			zap.String("exit", exitPrice.StringFixed(4)),
			zap.String("pnl", p.RealizedPnL.StringFixed(2)),
		)
	}
	return *p
}

// earlyEntry marks a settled position that was held long enough before
// settlement and moved enough to suggest the entry anticipated the outcome.
func earlyEntry(p models.Position) bool {
	hold := p.ExitTime.Sub(p.EntryTime)
	if hold < 6*time.Hour || hold > 24*time.Hour {
		return false
	}
	if p.EntryPrice.IsZero() {
		return false
	}
	move := p.ExitPrice.Sub(p.EntryPrice).Abs().Div(p.EntryPrice)
	return move.GreaterThanOrEqual(decimal.RequireFromString("0.10"))
}
