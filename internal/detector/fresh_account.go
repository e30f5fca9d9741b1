package detector

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"polysim/internal/config"
	"polysim/internal/models"
)

// FreshAccount flags a young wallet making an outsized bet on a market that
// resolves soon. New accounts betting big close to resolution is the classic
// informed-money footprint.
type FreshAccount struct {
	Config config.FreshAccountConfig
}

func (d *FreshAccount) Kind() models.SignalKind { return models.SignalFreshAccount }

func (d *FreshAccount) Evaluate(ctx Context) *models.Signal {
	ev := ctx.Event
	p := ctx.Wallet

	// The profile already includes this event, so the first trade of a brand
	// new wallet shows TradeCount == 1 and age zero.
	maxAge := time.Duration(d.Config.MaxAccountAgeHours * float64(time.Hour))
	if p.Age(ev.Timestamp) >= maxAge {
		return nil
	}
	if p.TradeCount >= d.Config.MaxTradeCount {
		return nil
	}
	if !ev.AmountUSD.GreaterThan(decimal.NewFromFloat(d.Config.MinAmountUSD)) {
		return nil
	}
	m := ctx.Market
	if !m.HasCloseTime || m.HoursToClose <= 0 || m.HoursToClose >= d.Config.MaxHoursToResolution {
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
		Reasoning: fmt.Sprintf("fresh wallet (age %.1fh, %d trades) bet $%s with %.1fh to close",
			p.Age(ev.Timestamp).Hours(), p.TradeCount, ev.AmountUSD.StringFixed(0), m.HoursToClose),
	}
}
