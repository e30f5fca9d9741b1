package wallet

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"polysim/internal/models"
)

// RecentTradeWindow is the fixed capacity of the per-wallet settled-trade
// ring buffer consumed by the perfect-timing detector.
const RecentTradeWindow = 5

// SettledTrade is one settled position outcome attributed to a wallet.
type SettledTrade struct {
	PnL        decimal.Decimal
	Win        bool
	EarlyEntry bool
	EntryTime  time.Time
	SettledAt  time.Time
}

// Outcome is the payload of the settlement hook invoked by the simulator.
type Outcome struct {
	PnL        decimal.Decimal
	EntryTime  time.Time
	SettledAt  time.Time
	EarlyEntry bool
}

// Profile is the rolling state for one wallet. The tracker owns the live
// copies; Query hands out value snapshots.
type Profile struct {
	Wallet    string
	FirstSeen time.Time
	LastSeen  time.Time

	TradeCount int
	Wins       int
	Losses     int

	TotalProfit decimal.Decimal
	TotalVolume decimal.Decimal
	LargestBet  decimal.Decimal

	// Running sums over bet sizes; the average is derived on query, never
	// cached stale.
	BetSum        decimal.Decimal
	BetSumSquares decimal.Decimal

	// recent is an arena-indexed ring: head points at the next write slot,
	// length saturates at RecentTradeWindow.
	recent     [RecentTradeWindow]SettledTrade
	recentHead int
	recentLen  int
}

// AvgBetSize is the mean bet size, zero until the wallet has traded.
func (p Profile) AvgBetSize() decimal.Decimal {
	if p.TradeCount == 0 {
		return decimal.Zero
	}
	return p.BetSum.Div(decimal.NewFromInt(int64(p.TradeCount)))
}

// WinRate returns wins/(wins+losses); ok is false with no settled trades.
func (p Profile) WinRate() (float64, bool) {
	settled := p.Wins + p.Losses
	if settled == 0 {
		return 0, false
	}
	return float64(p.Wins) / float64(settled), true
}

// Age is the wallet age at ts, zero for an unseen wallet.
func (p Profile) Age(ts time.Time) time.Duration {
	if p.FirstSeen.IsZero() {
		return 0
	}
	return ts.Sub(p.FirstSeen)
}

// RecentSettled returns the ring buffer contents oldest-first.
func (p Profile) RecentSettled() []SettledTrade {
	out := make([]SettledTrade, 0, p.recentLen)
	start := p.recentHead - p.recentLen
	for i := 0; i < p.recentLen; i++ {
		idx := (start + i + RecentTradeWindow) % RecentTradeWindow
		out = append(out, p.recent[idx])
	}
	return out
}

// RecentFull reports whether the ring buffer holds RecentTradeWindow entries.
func (p Profile) RecentFull() bool { return p.recentLen == RecentTradeWindow }

// Tracker maintains per-wallet rolling statistics over the replay. It is an
// owned state store passed by reference into the components that need it;
// there is no package-level state.
type Tracker struct {
	profiles map[string]*Profile
	observed int64
	logger   *zap.Logger
}

func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		profiles: make(map[string]*Profile),
		logger:   logger,
	}
}

func (t *Tracker) get(wallet string) *Profile {
	p, ok := t.profiles[wallet]
	if !ok {
		p = &Profile{
			Wallet:        wallet,
			TotalProfit:   decimal.Zero,
			TotalVolume:   decimal.Zero,
			LargestBet:    decimal.Zero,
			BetSum:        decimal.Zero,
			BetSumSquares: decimal.Zero,
		}
		t.profiles[wallet] = p
	}
	return p
}

// Observe updates the maker wallet's rolling stats from one trade event.
// Win/loss tallies are not touched here; outcomes are unknown until
// settlement and arrive through RecordOutcome.
func (t *Tracker) Observe(ev models.TradeEvent) {
	p := t.get(ev.Wallet)

	if p.FirstSeen.IsZero() {
		p.FirstSeen = ev.Timestamp
	}
	p.LastSeen = ev.Timestamp

	p.TradeCount++
	p.TotalVolume = p.TotalVolume.Add(ev.AmountUSD)
	p.BetSum = p.BetSum.Add(ev.AmountUSD)
	p.BetSumSquares = p.BetSumSquares.Add(ev.AmountUSD.Mul(ev.AmountUSD))
	if ev.AmountUSD.GreaterThan(p.LargestBet) {
		p.LargestBet = ev.AmountUSD
	}

	t.observed++
	if t.logger != nil && t.observed%100000 == 0 {
		t.logger.Debug("wallet tracker progress",
			zap.Int64("events", t.observed),
			zap.Int("wallets", len(t.profiles)),
		)
	}
}

// RecordOutcome is the settlement hook invoked synchronously by the position
// simulator when a position attributed to this wallet closes.
func (t *Tracker) RecordOutcome(wallet string, o Outcome) {
	if wallet == "" {
		return
	}
	p := t.get(wallet)

	win := o.PnL.GreaterThan(decimal.Zero)
	if win {
		p.Wins++
	} else {
		p.Losses++
	}
	p.TotalProfit = p.TotalProfit.Add(o.PnL)

	p.recent[p.recentHead] = SettledTrade{
		PnL:        o.PnL,
		Win:        win,
		EarlyEntry: o.EarlyEntry,
		EntryTime:  o.EntryTime,
		SettledAt:  o.SettledAt,
	}
	p.recentHead = (p.recentHead + 1) % RecentTradeWindow
	if p.recentLen < RecentTradeWindow {
		p.recentLen++
	}
}

// Query returns a snapshot of the wallet's profile. An unseen wallet yields a
// zero-initialized profile rather than an error.
func (t *Tracker) Query(wallet string) Profile {
	if p, ok := t.profiles[wallet]; ok {
		return *p
	}
	return Profile{
		Wallet:        wallet,
		TotalProfit:   decimal.Zero,
		TotalVolume:   decimal.Zero,
		LargestBet:    decimal.Zero,
		BetSum:        decimal.Zero,
		BetSumSquares: decimal.Zero,
	}
}

// Count reports how many distinct wallets have been observed.
func (t *Tracker) Count() int { return len(t.profiles) }
