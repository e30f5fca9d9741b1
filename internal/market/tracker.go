package market

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"polysim/internal/models"
)

// recentTradeCap bounds the per-market recent-trade ring handed out through
// snapshots to the clustering detector.
const recentTradeCap = 256

type volumePoint struct {
	ts     time.Time
	amount decimal.Decimal
}

type pricePoint struct {
	ts    time.Time
	price decimal.Decimal
}

// state is the live per-market record. The tracker owns it; snapshots are
// value copies with derived fields filled in.
type state struct {
	meta models.MarketMeta

	currentPrice decimal.Decimal
	hasPrice     bool
	lastTradeAt  time.Time

	totalVolume decimal.Decimal
	tradeCount  int

	// volume and prices are pruned to a trailing 24 hours on every Observe
	// and Query.
	volume []volumePoint
	prices []pricePoint

	recent     [recentTradeCap]models.TradeEvent
	recentHead int
	recentLen  int

	resolved         bool
	resolutionPrice  decimal.Decimal
	resolutionApprox bool
}

// Snapshot is the point-in-time view consumed by detectors and the simulator.
type Snapshot struct {
	MarketID string
	Meta     models.MarketMeta

	CurrentPrice decimal.Decimal
	HasPrice     bool

	TotalVolume decimal.Decimal
	TradeCount  int

	// HourVolume is the USD volume over the trailing hour; AvgHourlyVolume is
	// the trailing 24h volume divided by 24, the spike baseline.
	HourVolume      decimal.Decimal
	AvgHourlyVolume decimal.Decimal

	// PriceChange1h is |now - then| for the oldest price within the trailing
	// hour; zero when fewer than two observations exist in the window.
	PriceChange1h decimal.Decimal

	HoursToClose float64
	HasCloseTime bool

	Resolved         bool
	ResolutionPrice  decimal.Decimal
	ResolutionApprox bool

	// Recent holds the market's latest trades oldest-first, capped.
	Recent []models.TradeEvent
}

// Tracker maintains per-market rolling state over the replay.
type Tracker struct {
	markets map[string]*state
	logger  *zap.Logger
}

func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		markets: make(map[string]*state),
		logger:  logger,
	}
}

// Register installs market metadata before replay starts. Trades for
// unregistered markets are still tracked, just without close or resolution
// information.
func (t *Tracker) Register(meta models.MarketMeta) {
	s := t.get(meta.ID)
	s.meta = meta
}

func (t *Tracker) get(id string) *state {
	s, ok := t.markets[id]
	if !ok {
		s = &state{
			meta:        models.MarketMeta{ID: id},
			totalVolume: decimal.Zero,
		}
		t.markets[id] = s
	}
	return s
}

// Observe folds one trade event into the market's rolling state. Events for a
// resolved market are ignored; the terminal price is final.
func (t *Tracker) Observe(ev models.TradeEvent) {
	s := t.get(ev.MarketID)
	if s.resolved {
		return
	}

	s.currentPrice = ev.Price
	s.hasPrice = true
	s.lastTradeAt = ev.Timestamp
	s.totalVolume = s.totalVolume.Add(ev.AmountUSD)
	s.tradeCount++

	s.volume = append(s.volume, volumePoint{ts: ev.Timestamp, amount: ev.AmountUSD})
	s.prices = append(s.prices, pricePoint{ts: ev.Timestamp, price: ev.Price})
	s.prune(ev.Timestamp)

	s.recent[s.recentHead] = ev
	s.recentHead = (s.recentHead + 1) % recentTradeCap
	if s.recentLen < recentTradeCap {
		s.recentLen++
	}
}

func (s *state) prune(now time.Time) {
	cutoff := now.Add(-24 * time.Hour)
	i := 0
	for i < len(s.volume) && s.volume[i].ts.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.volume = s.volume[i:]
	}
	j := 0
	for j < len(s.prices) && s.prices[j].ts.Before(cutoff) {
		j++
	}
	if j > 0 {
		s.prices = s.prices[j:]
	}
}

// Tick advances simulated time and resolves every market whose close time has
// passed. Markets with an authoritative resolution settle at 1 or 0; markets
// without one settle approximately at their last traded price.
func (t *Tracker) Tick(now time.Time) []string {
	var resolved []string
	for id, s := range t.markets {
		if s.resolved || !s.meta.HasCloseTime() || now.Before(s.meta.CloseTime) {
			continue
		}
		s.resolved = true
		if s.meta.HasResolution() {
			s.resolutionPrice = s.meta.ResolutionPrice()
		} else if s.hasPrice {
			s.resolutionPrice = s.currentPrice
			s.resolutionApprox = true
		} else {
			// No trades and no outcome. Settle worthless.
			s.resolutionPrice = decimal.Zero
			s.resolutionApprox = true
		}
		resolved = append(resolved, id)
		if t.logger != nil {
			t.logger.Debug("market resolved",
				zap.String("market", id),
				zap.String("price", s.resolutionPrice.String()),
				zap.Bool("approx", s.resolutionApprox),
			)
		}
	}
	// Map iteration order is random; downstream settlement must not be.
	sort.Strings(resolved)
	return resolved
}

// Query returns a derived snapshot of the market at ts. Unknown markets yield
// a zero snapshot with ok=false.
func (t *Tracker) Query(id string, ts time.Time) (Snapshot, bool) {
	s, ok := t.markets[id]
	if !ok {
		return Snapshot{MarketID: id}, false
	}
	s.prune(ts)

	snap := Snapshot{
		MarketID:         id,
		Meta:             s.meta,
		CurrentPrice:     s.currentPrice,
		HasPrice:         s.hasPrice,
		TotalVolume:      s.totalVolume,
		TradeCount:       s.tradeCount,
		HourVolume:       decimal.Zero,
		AvgHourlyVolume:  decimal.Zero,
		PriceChange1h:    decimal.Zero,
		Resolved:         s.resolved,
		ResolutionPrice:  s.resolutionPrice,
		ResolutionApprox: s.resolutionApprox,
	}

	hourCutoff := ts.Add(-time.Hour)
	day := decimal.Zero
	for _, vp := range s.volume {
		day = day.Add(vp.amount)
		if !vp.ts.Before(hourCutoff) {
			snap.HourVolume = snap.HourVolume.Add(vp.amount)
		}
	}
	snap.AvgHourlyVolume = day.Div(decimal.NewFromInt(24))

	var oldest *pricePoint
	for i := range s.prices {
		if !s.prices[i].ts.Before(hourCutoff) {
			oldest = &s.prices[i]
			break
		}
	}
	if oldest != nil && s.hasPrice {
		snap.PriceChange1h = s.currentPrice.Sub(oldest.price).Abs()
	}

	if s.meta.HasCloseTime() {
		snap.HasCloseTime = true
		snap.HoursToClose = s.meta.CloseTime.Sub(ts).Hours()
	}

	snap.Recent = make([]models.TradeEvent, 0, s.recentLen)
	start := s.recentHead - s.recentLen
	for i := 0; i < s.recentLen; i++ {
		idx := (start + i + recentTradeCap) % recentTradeCap
		snap.Recent = append(snap.Recent, s.recent[idx])
	}

	return snap, true
}

// Count reports how many distinct markets have been seen.
func (t *Tracker) Count() int { return len(t.markets) }
