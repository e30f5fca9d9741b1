package detector

import (
	"fmt"

	"github.com/shopspring/decimal"

	"polysim/internal/config"
	"polysim/internal/models"
	"polysim/internal/wallet"
)

// PerfectTiming flags a wallet whose recent settled trades entered early and
// still won almost every time. Consistently early and consistently right is
// hard to do without knowing something.
type PerfectTiming struct {
	Config config.PerfectTimingConfig
}

func (d *PerfectTiming) Kind() models.SignalKind { return models.SignalPerfectTiming }

func (d *PerfectTiming) Evaluate(ctx Context) *models.Signal {
	ev := ctx.Event
	p := ctx.Wallet

	// The rule reads over the full window; a wallet with fewer settled trades
	// has not earned the pattern yet.
	if !p.RecentFull() {
		return nil
	}
	early, wins := 0, 0
	for _, st := range p.RecentSettled() {
		if st.EarlyEntry {
			early++
		}
		if st.Win {
			wins++
		}
	}
	if early < d.Config.MinEarlyEntries || wins < d.Config.MinWins {
		return nil
	}

	// The triggering bet must itself be above the wallet's usual size.
	prior := p.TradeCount - 1
	if prior <= 0 {
		return nil
	}
	avg := p.BetSum.Sub(ev.AmountUSD).Div(decimal.NewFromInt(int64(prior)))
	if !ev.AmountUSD.GreaterThan(avg) {
		return nil
	}

	return &models.Signal{
		Kind:         d.Kind(),
		MarketID:     ev.MarketID,
		Timestamp:    ev.Timestamp,
		Wallet:       ev.Wallet,
		Confidence:   d.Config.Confidence,
		Side:         ev.Side,
		EntryPrice:   ev.Price,
		SizeFraction: sizeFraction(d.Config.Confidence),
		Reasoning: fmt.Sprintf("%d of %d recent settles were early entries, %d wins",
			early, wallet.RecentTradeWindow, wins),
	}
}
