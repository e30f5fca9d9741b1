package detector

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"polysim/internal/config"
	"polysim/internal/models"
)

// WalletClustering flags several wallets, a quorum of them young, piling onto
// the same side of a market within a short window. Coordinated fresh wallets
// usually share one owner or one tip.
type WalletClustering struct {
	Config  config.WalletClusteringConfig
	Wallets WalletLookup
}

func (d *WalletClustering) Kind() models.SignalKind { return models.SignalWalletClustering }

func (d *WalletClustering) Evaluate(ctx Context) *models.Signal {
	ev := ctx.Event
	window := time.Duration(d.Config.WindowHours * float64(time.Hour))
	cutoff := ev.Timestamp.Add(-window)
	freshMax := time.Duration(d.Config.FreshWalletMaxAgeDays * 24 * float64(time.Hour))

	seen := make(map[string]bool)
	combined := decimal.Zero
	fresh := 0
	for _, rec := range ctx.Market.Recent {
		if rec.Side != ev.Side || rec.Timestamp.Before(cutoff) {
			continue
		}
		combined = combined.Add(rec.AmountUSD)
		if seen[rec.Wallet] {
			continue
		}
		seen[rec.Wallet] = true
		if d.Wallets != nil {
			p := d.Wallets.Query(rec.Wallet)
			if !p.FirstSeen.IsZero() && ev.Timestamp.Sub(p.FirstSeen) < freshMax {
				fresh++
			}
		}
	}

	if len(seen) < d.Config.MinWallets {
		return nil
	}
	if fresh < d.Config.MinFreshWallets {
		return nil
	}
	if !combined.GreaterThan(decimal.NewFromFloat(d.Config.MinCombinedUSD)) {
		return nil
	}

	return &models.Signal{
		Kind:         d.Kind(),
		MarketID:     ev.MarketID,
		Timestamp:    ev.Timestamp,
		Confidence:   d.Config.Confidence,
		Side:         ev.Side,
		EntryPrice:   ev.Price,
		SizeFraction: sizeFraction(d.Config.Confidence),
		Reasoning: fmt.Sprintf("%d wallets (%d fresh) bet $%s on %s within %.0fh",
			len(seen), fresh, combined.StringFixed(0), ev.Side, d.Config.WindowHours),
	}
}
