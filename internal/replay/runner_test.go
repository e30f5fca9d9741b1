package replay

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"polysim/internal/config"
	"polysim/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// fixture is a small but complete replay: one liquid market that resolves
// YES, a fresh wallet making an outsized bet before the close, and one thin
// market that the volume filter drops.
func fixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	markets := strings.Join([]string{
		"id,question,token1,token2,volume,closedTime,resolution",
		"m1,Will the bill pass,tY,tN,50000,2024-03-02T00:00:00Z,YES",
		"m2,Thin market,tY,tN,500,2024-03-02T00:00:00Z,NO",
		"m3,Open ended,tY,tN,40000,,",
	}, "\n") + "\n"

	trades := strings.Join([]string{
		"timestamp,market_id,wallet,side,price,usd_amount",
		"2024-03-01T08:00:00Z,m1,0xbg1,BUY,0.40,200",
		"2024-03-01T09:00:00Z,m1,0xbg2,SELL,0.41,150",
		"2024-03-01T10:00:00Z,m1,0xfresh,BUY,0.40,15000",
		"2024-03-01T11:00:00Z,m2,0xthin,BUY,0.30,12000",
		"2024-03-01T12:00:00Z,m3,0xbg3,BUY,0.55,300",
		"2024-03-02T01:00:00Z,m3,0xbg4,SELL,0.54,250",
	}, "\n") + "\n"

	return writeFile(t, dir, "markets.csv", markets), writeFile(t, dir, "trades.csv", trades)
}

func runFixture(t *testing.T, cfg config.Config) Result {
	t.Helper()
	marketsPath, tradesPath := fixture(t)
	runner := &Runner{Config: cfg}
	res, err := runner.Run(Options{MarketsPath: marketsPath, TradesPath: tradesPath})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestRun_FreshAccountRoundTrip(t *testing.T) {
	res := runFixture(t, config.Default())

	if res.MarketsFiltered != 1 {
		t.Fatalf("markets_filtered=%d want=1 (thin m2)", res.MarketsFiltered)
	}
	if res.EventsFiltered != 1 {
		t.Fatalf("events_filtered=%d want=1 (m2 trade)", res.EventsFiltered)
	}
	if res.SignalsAccepted == 0 {
		t.Fatalf("no signals accepted")
	}
	if len(res.Ledger) == 0 {
		t.Fatalf("empty ledger")
	}

	// The fresh-account position on m1 must settle via resolution at 1.0.
	var found bool
	for _, p := range res.Ledger {
		if p.Signal.Kind == models.SignalFreshAccount && p.MarketID == "m1" {
			found = true
			if p.ExitReason != models.ExitResolution {
				t.Fatalf("exit=%s want=resolution", p.ExitReason)
			}
			if !p.RealizedPnL.IsPositive() {
				t.Fatalf("pnl=%s want positive on YES resolution", p.RealizedPnL.String())
			}
		}
	}
	if !found {
		t.Fatalf("fresh-account position on m1 missing from ledger: %+v", res.Ledger)
	}
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	cfg := config.Default()
	a := runFixture(t, cfg)
	b := runFixture(t, cfg)

	aj, err := json.Marshal(a.Report)
	if err != nil {
		t.Fatalf("marshal a: %v", err)
	}
	bj, err := json.Marshal(b.Report)
	if err != nil {
		t.Fatalf("marshal b: %v", err)
	}
	if !bytes.Equal(aj, bj) {
		t.Fatalf("reports differ between identical runs:\n%s\n%s", aj, bj)
	}
	if len(a.Ledger) != len(b.Ledger) {
		t.Fatalf("ledger sizes differ: %d vs %d", len(a.Ledger), len(b.Ledger))
	}
	for i := range a.Ledger {
		if a.Ledger[i].RealizedPnL.Cmp(b.Ledger[i].RealizedPnL) != 0 {
			t.Fatalf("ledger[%d] pnl differs: %s vs %s", i,
				a.Ledger[i].RealizedPnL.String(), b.Ledger[i].RealizedPnL.String())
		}
	}
}

func TestRun_SeedChangesSlippage(t *testing.T) {
	cfgA := config.Default()
	cfgB := config.Default()
	cfgB.Backtest.Seed = 99

	a := runFixture(t, cfgA)
	b := runFixture(t, cfgB)

	if len(a.Ledger) == 0 || len(b.Ledger) == 0 {
		t.Fatalf("fixtures produced empty ledgers")
	}
	// Same trades, same signals; only the fills move.
	if a.Ledger[0].EntryPrice.Cmp(b.Ledger[0].EntryPrice) == 0 {
		t.Fatalf("entry price identical across seeds: %s", a.Ledger[0].EntryPrice.String())
	}
}

func TestRun_MinConfidenceIsMonotonic(t *testing.T) {
	low := config.Default()
	low.Backtest.MinConfidence = 0.60
	high := config.Default()
	high.Backtest.MinConfidence = 0.90

	a := runFixture(t, low)
	b := runFixture(t, high)

	if b.SignalsAccepted > a.SignalsAccepted {
		t.Fatalf("accepted rose with threshold: low=%d high=%d", a.SignalsAccepted, b.SignalsAccepted)
	}
	if a.SignalsEmitted != b.SignalsEmitted {
		t.Fatalf("emitted should not depend on threshold: %d vs %d", a.SignalsEmitted, b.SignalsEmitted)
	}
}

func TestRun_MissingPathsAreConfigErrors(t *testing.T) {
	runner := &Runner{Config: config.Default()}
	_, err := runner.Run(Options{})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err=%v want ConfigError", err)
	}
}

func TestRun_InvertedWindowIsConfigError(t *testing.T) {
	runner := &Runner{Config: config.Default()}
	_, err := runner.Run(Options{
		MarketsPath: "x",
		TradesPath:  "y",
		StartDate:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err=%v want ConfigError", err)
	}
}

func TestRun_NonexistentPathIsConfigError(t *testing.T) {
	runner := &Runner{Config: config.Default()}
	_, err := runner.Run(Options{MarketsPath: "/nonexistent/m.csv", TradesPath: "/nonexistent/t.csv"})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err=%v want ConfigError", err)
	}
}

func TestRun_MalformedDatasetIsDataError(t *testing.T) {
	dir := t.TempDir()
	marketsPath := writeFile(t, dir, "markets.csv", "id,question\n") // columns missing
	tradesPath := writeFile(t, dir, "trades.csv", "timestamp\n")

	runner := &Runner{Config: config.Default()}
	_, err := runner.Run(Options{MarketsPath: marketsPath, TradesPath: tradesPath})
	var dataErr *DataError
	if !errors.As(err, &dataErr) {
		t.Fatalf("err=%v want DataError", err)
	}
}
