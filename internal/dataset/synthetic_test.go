package dataset

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"polysim/internal/models"
)

// writeSyntheticDataset generates a deterministic fixture: n markets closing
// a day apart, each with a burst of trades from rotating wallets. Every row
// is well formed, so loads must be lossless.
func writeSyntheticDataset(t *testing.T, dir string, markets, tradesPerMarket int) (string, string) {
	t.Helper()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	var mb strings.Builder
	mb.WriteString("id,question,token1,token2,volume,closedTime,resolution\n")
	for i := 0; i < markets; i++ {
		resolution := "YES"
		if i%2 == 1 {
			resolution = "NO"
		}
		closeAt := base.Add(time.Duration(i+1) * 24 * time.Hour)
		fmt.Fprintf(&mb, "m%d,Synthetic market %d,tY%d,tN%d,%d,%s,%s\n",
			i, i, i, i, 20000+i*1000, closeAt.Format(time.RFC3339), resolution)
	}

	var tb strings.Builder
	tb.WriteString("timestamp,market_id,wallet,side,price,usd_amount\n")
	for i := 0; i < markets; i++ {
		for j := 0; j < tradesPerMarket; j++ {
			ts := base.Add(time.Duration(i*tradesPerMarket+j) * time.Minute)
			side := "BUY"
			if j%3 == 2 {
				side = "SELL"
			}
			fmt.Fprintf(&tb, "%s,m%d,0xw%d,%s,0.%02d,%d\n",
				ts.Format(time.RFC3339), i, j%7, side, 30+j%40, 100+j*50)
		}
	}

	return writeFile(t, dir, "markets.csv", mb.String()),
		writeFile(t, dir, "trades.csv", tb.String())
}

func TestLoad_SyntheticDatasetIsLossless(t *testing.T) {
	dir := t.TempDir()
	marketsPath, tradesPath := writeSyntheticDataset(t, dir, 4, 25)

	res, err := newLoader().Load(marketsPath, tradesPath, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Skipped != 0 {
		t.Fatalf("skipped=%d want=0 for well-formed fixture", res.Skipped)
	}
	if len(res.Markets) != 4 {
		t.Fatalf("markets=%d want=4", len(res.Markets))
	}
	if len(res.Trades) != 100 {
		t.Fatalf("trades=%d want=100", len(res.Trades))
	}
	for i := 1; i < len(res.Trades); i++ {
		if res.Trades[i].Timestamp.Before(res.Trades[i-1].Timestamp) {
			t.Fatalf("trades out of order at %d", i)
		}
	}
	if res.Markets[1].Resolution != models.SideSell {
		t.Fatalf("m1 resolution=%s want=SELL", res.Markets[1].Resolution)
	}
}
