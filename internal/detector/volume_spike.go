package detector

import (
	"fmt"

	"github.com/shopspring/decimal"

	"polysim/internal/config"
	"polysim/internal/models"
)

// VolumeSpike flags a market whose trailing-hour volume far exceeds its
// 24-hour hourly baseline while the price has barely moved. Quiet
// accumulation ahead of news tends to look exactly like this.
type VolumeSpike struct {
	Config config.VolumeSpikeConfig
}

func (d *VolumeSpike) Kind() models.SignalKind { return models.SignalVolumeSpike }

func (d *VolumeSpike) Evaluate(ctx Context) *models.Signal {
	ev := ctx.Event
	m := ctx.Market

	if !m.HourVolume.GreaterThan(decimal.NewFromFloat(d.Config.MinHourVolumeUSD)) {
		return nil
	}
	if m.AvgHourlyVolume.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	baseline := m.AvgHourlyVolume.Mul(decimal.NewFromFloat(d.Config.SpikeMultiple))
	if !m.HourVolume.GreaterThan(baseline) {
		return nil
	}
	if !m.PriceChange1h.LessThan(decimal.NewFromFloat(d.Config.MaxPriceChange1h)) {
		return nil
	}

	mult, _ := m.HourVolume.Div(m.AvgHourlyVolume).Float64()
	return &models.Signal{
		Kind:         d.Kind(),
		MarketID:     ev.MarketID,
		Timestamp:    ev.Timestamp,
		Confidence:   d.Config.Confidence,
		Side:         ev.Side,
		EntryPrice:   ev.Price,
		SizeFraction: sizeFraction(d.Config.Confidence),
		Reasoning: fmt.Sprintf("hour volume $%s is %.1fx hourly baseline with price move %s",
			m.HourVolume.StringFixed(0), mult, m.PriceChange1h.StringFixed(4)),
	}
}
