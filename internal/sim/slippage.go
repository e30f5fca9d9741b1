package sim

import (
	"encoding/binary"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"polysim/internal/models"
)

// Slippage draws an adverse price adjustment from a bounded range. The draw
// is a pure function of the seed and the signal identity, so replaying the
// same input with the same seed reproduces every fill exactly.
type Slippage struct {
	Seed   uint64
	MinBps float64
	MaxBps float64
}

// draw returns the slippage fraction (not bps) for one fill. The exit leg
// hashes differently from the entry leg so the two draws are independent.
func (s Slippage) draw(sig models.Signal, leg string) decimal.Decimal {
	var d xxhash.Digest
	d.Reset()

	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], s.Seed)
	_, _ = d.Write(seed[:])
	_, _ = d.WriteString(string(sig.Kind))
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(sig.MarketID)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(sig.Wallet)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(strconv.FormatInt(sig.Timestamp.UnixNano(), 10))
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(leg)

	span := s.MaxBps - s.MinBps
	if span < 0 {
		span = 0
	}
	frac := float64(d.Sum64()%10001) / 10000
	bps := s.MinBps + frac*span
	return decimal.NewFromFloat(bps / 10000)
}

// EntryPrice applies adverse slippage to the fill price for the given side:
// longs pay up, shorts fill lower.
func (s Slippage) EntryPrice(sig models.Signal, price decimal.Decimal) decimal.Decimal {
	sl := s.draw(sig, "entry")
	if sig.Side == models.SideBuy {
		return clampPrice(price.Mul(decimal.NewFromInt(1).Add(sl)))
	}
	return clampPrice(price.Mul(decimal.NewFromInt(1).Sub(sl)))
}

// ExitPrice applies adverse slippage to a market-priced close. Resolution
// settles at the terminal price and does not go through here.
func (s Slippage) ExitPrice(sig models.Signal, price decimal.Decimal) decimal.Decimal {
	sl := s.draw(sig, "exit")
	if sig.Side == models.SideBuy {
		return clampPrice(price.Mul(decimal.NewFromInt(1).Sub(sl)))
	}
	return clampPrice(price.Mul(decimal.NewFromInt(1).Add(sl)))
}

var (
	priceFloor = decimal.RequireFromString("0.0001")
	priceCeil  = decimal.RequireFromString("0.9999")
)

func clampPrice(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(priceFloor) {
		return priceFloor
	}
	if p.GreaterThan(priceCeil) {
		return priceCeil
	}
	return p
}
