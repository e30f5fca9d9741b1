package detector

import (
	"fmt"

	"github.com/shopspring/decimal"

	"polysim/internal/config"
	"polysim/internal/models"
)

// ProvenWinner follows a wallet with a long profitable record when it bets
// well above its usual size.
type ProvenWinner struct {
	Config config.ProvenWinnerConfig
}

func (d *ProvenWinner) Kind() models.SignalKind { return models.SignalProvenWinner }

func (d *ProvenWinner) Evaluate(ctx Context) *models.Signal {
	ev := ctx.Event
	p := ctx.Wallet

	if p.TradeCount <= d.Config.MinTradeCount {
		return nil
	}
	rate, ok := p.WinRate()
	if !ok || rate <= d.Config.MinWinRate {
		return nil
	}
	if !p.TotalProfit.GreaterThan(decimal.NewFromFloat(d.Config.MinTotalProfitUSD)) {
		return nil
	}

	// Compare against the average bet before this event; including the
	// triggering bet itself would dilute the multiple.
	prior := p.TradeCount - 1
	if prior <= 0 {
		return nil
	}
	avg := p.BetSum.Sub(ev.AmountUSD).Div(decimal.NewFromInt(int64(prior)))
	if avg.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	threshold := avg.Mul(decimal.NewFromFloat(d.Config.AvgBetMultiple))
	if !ev.AmountUSD.GreaterThan(threshold) {
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
		Reasoning: fmt.Sprintf("winner (%.0f%% over %d trades, $%s profit) bet %.1fx usual size",
			rate*100, p.TradeCount, p.TotalProfit.StringFixed(0),
			amountMultiple(ev.AmountUSD, avg)),
	}
}

func amountMultiple(amount, avg decimal.Decimal) float64 {
	if avg.IsZero() {
		return 0
	}
	f, _ := amount.Div(avg).Float64()
	return f
}
