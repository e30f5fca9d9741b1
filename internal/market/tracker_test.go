package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"polysim/internal/models"
)

func trade(market string, ts time.Time, price string, amount int64) models.TradeEvent {
	return models.TradeEvent{
		Timestamp: ts,
		MarketID:  market,
		Wallet:    "0xw",
		Side:      models.SideBuy,
		Price:     decimal.RequireFromString(price),
		AmountUSD: decimal.NewFromInt(amount),
	}
}

func TestQuery_UnknownMarket(t *testing.T) {
	tr := NewTracker(nil)
	_, ok := tr.Query("nope", time.Now())
	if ok {
		t.Fatalf("unknown market reported ok")
	}
}

func TestObserve_HourVolumeWindow(t *testing.T) {
	tr := NewTracker(nil)
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tr.Observe(trade("m1", t0, "0.50", 1000))
	tr.Observe(trade("m1", t0.Add(30*time.Minute), "0.51", 2000))
	tr.Observe(trade("m1", t0.Add(90*time.Minute), "0.52", 4000))

	snap, ok := tr.Query("m1", t0.Add(90*time.Minute))
	if !ok {
		t.Fatalf("market missing")
	}
	// Only the trades within [t+30m, t+90m] fall inside the trailing hour.
	if snap.HourVolume.Cmp(decimal.NewFromInt(6000)) != 0 {
		t.Fatalf("hour_volume=%s want=6000", snap.HourVolume.String())
	}
	if snap.TotalVolume.Cmp(decimal.NewFromInt(7000)) != 0 {
		t.Fatalf("total_volume=%s want=7000", snap.TotalVolume.String())
	}
}

func TestQuery_AvgHourlyVolumeIsDayOver24(t *testing.T) {
	tr := NewTracker(nil)
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tr.Observe(trade("m1", t0, "0.50", 2400))
	snap, _ := tr.Query("m1", t0)

	if snap.AvgHourlyVolume.Cmp(decimal.NewFromInt(100)) != 0 {
		t.Fatalf("avg_hourly=%s want=100", snap.AvgHourlyVolume.String())
	}
}

func TestQuery_PriceChange1h(t *testing.T) {
	tr := NewTracker(nil)
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tr.Observe(trade("m1", t0, "0.50", 100))
	tr.Observe(trade("m1", t0.Add(20*time.Minute), "0.58", 100))

	snap, _ := tr.Query("m1", t0.Add(20*time.Minute))
	if snap.PriceChange1h.Cmp(decimal.RequireFromString("0.08")) != 0 {
		t.Fatalf("change=%s want=0.08", snap.PriceChange1h.String())
	}
}

func TestTick_AuthoritativeResolution(t *testing.T) {
	tr := NewTracker(nil)
	closeAt := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	tr.Register(models.MarketMeta{ID: "m1", CloseTime: closeAt, Resolution: models.SideBuy})
	tr.Observe(trade("m1", closeAt.Add(-time.Hour), "0.80", 100))

	resolved := tr.Tick(closeAt)
	if len(resolved) != 1 || resolved[0] != "m1" {
		t.Fatalf("resolved=%v want=[m1]", resolved)
	}
	snap, _ := tr.Query("m1", closeAt)
	if !snap.Resolved {
		t.Fatalf("market not resolved at close")
	}
	if snap.ResolutionPrice.Cmp(decimal.NewFromInt(1)) != 0 {
		t.Fatalf("resolution=%s want=1", snap.ResolutionPrice.String())
	}
	if snap.ResolutionApprox {
		t.Fatalf("authoritative resolution marked approximate")
	}
}

func TestTick_ApproximateResolutionUsesLastPrice(t *testing.T) {
	tr := NewTracker(nil)
	closeAt := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	tr.Register(models.MarketMeta{ID: "m1", CloseTime: closeAt})
	tr.Observe(trade("m1", closeAt.Add(-time.Hour), "0.73", 100))

	tr.Tick(closeAt.Add(time.Minute))
	snap, _ := tr.Query("m1", closeAt.Add(time.Minute))
	if !snap.Resolved || !snap.ResolutionApprox {
		t.Fatalf("resolved=%v approx=%v want=true/true", snap.Resolved, snap.ResolutionApprox)
	}
	if snap.ResolutionPrice.Cmp(decimal.RequireFromString("0.73")) != 0 {
		t.Fatalf("resolution=%s want=0.73", snap.ResolutionPrice.String())
	}
}

func TestTick_BeforeCloseDoesNothing(t *testing.T) {
	tr := NewTracker(nil)
	closeAt := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	tr.Register(models.MarketMeta{ID: "m1", CloseTime: closeAt, Resolution: models.SideSell})

	if resolved := tr.Tick(closeAt.Add(-time.Second)); len(resolved) != 0 {
		t.Fatalf("resolved=%v want empty before close", resolved)
	}
}

func TestObserve_IgnoredAfterResolution(t *testing.T) {
	tr := NewTracker(nil)
	closeAt := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	tr.Register(models.MarketMeta{ID: "m1", CloseTime: closeAt, Resolution: models.SideSell})
	tr.Observe(trade("m1", closeAt.Add(-time.Hour), "0.40", 100))
	tr.Tick(closeAt)

	tr.Observe(trade("m1", closeAt.Add(time.Hour), "0.90", 100))
	snap, _ := tr.Query("m1", closeAt.Add(time.Hour))
	if snap.TradeCount != 1 {
		t.Fatalf("trade_count=%d want=1 (post-resolution trade counted)", snap.TradeCount)
	}
	if snap.ResolutionPrice.Cmp(decimal.Zero) != 0 {
		t.Fatalf("resolution=%s want=0", snap.ResolutionPrice.String())
	}
}

func TestSnapshot_RecentOldestFirst(t *testing.T) {
	tr := NewTracker(nil)
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.Observe(trade("m1", t0, "0.50", 10))
	tr.Observe(trade("m1", t0.Add(time.Minute), "0.51", 20))

	snap, _ := tr.Query("m1", t0.Add(time.Minute))
	if len(snap.Recent) != 2 {
		t.Fatalf("recent=%d want=2", len(snap.Recent))
	}
	if !snap.Recent[0].Timestamp.Equal(t0) {
		t.Fatalf("recent not oldest-first")
	}
}
