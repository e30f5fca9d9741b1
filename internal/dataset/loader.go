package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"polysim/internal/config"
	"polysim/internal/models"
)

// Loader reads market metadata and trade events from CSV files. Column names
// come from configuration; types, ranges and ordering do not.
type Loader struct {
	Config config.DatasetConfig
	Logger *zap.Logger
}

// Result is a fully loaded, validated and ordered dataset.
type Result struct {
	Markets []models.MarketMeta
	Trades  []models.TradeEvent

	// Skipped counts malformed trade rows dropped during loading.
	Skipped int
}

// Load reads both files and returns the dataset with trades in replay order.
// Trades outside [start, end] are filtered out before ordering; either bound
// may be zero to leave that end open.
func (l *Loader) Load(marketsPath, tradesPath string, start, end time.Time) (Result, error) {
	markets, err := l.LoadMarkets(marketsPath)
	if err != nil {
		return Result{}, err
	}
	trades, skipped, err := l.LoadTrades(tradesPath, start, end)
	if err != nil {
		return Result{}, err
	}
	return Result{Markets: markets, Trades: trades, Skipped: skipped}, nil
}

func headerIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("missing column %q", name)
}

// LoadMarkets reads the market metadata file. A malformed market row is a
// hard error: unlike trades, markets are few and every one matters.
func (l *Loader) LoadMarkets(path string) ([]models.MarketMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open markets: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read markets header: %w", err)
	}
	cols := l.Config.MarketColumns
	idIdx, err := headerIndex(header, cols.ID)
	if err != nil {
		return nil, fmt.Errorf("markets: %w", err)
	}
	// Everything beyond the id is optional metadata.
	questionIdx, _ := headerIndex(header, cols.Question)
	tokenYesIdx, errYes := headerIndex(header, cols.TokenYes)
	tokenNoIdx, errNo := headerIndex(header, cols.TokenNo)
	volumeIdx, errVol := headerIndex(header, cols.VolumeUSD)
	closeIdx, errClose := headerIndex(header, cols.CloseTime)
	resIdx, errRes := headerIndex(header, cols.Resolution)

	var out []models.MarketMeta
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("markets line %d: %w", line+1, err)
		}
		line++

		field := func(idx int, idxErr error) string {
			if idxErr != nil || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}

		id := field(idIdx, nil)
		if id == "" {
			return nil, fmt.Errorf("markets line %d: empty id", line)
		}
		m := models.MarketMeta{
			ID:        id,
			Question:  field(questionIdx, nil),
			TokenYes:  field(tokenYesIdx, errYes),
			TokenNo:   field(tokenNoIdx, errNo),
			VolumeUSD: decimal.Zero,
		}
		if v := field(volumeIdx, errVol); v != "" {
			vol, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("markets line %d: volume %q: %w", line, v, err)
			}
			m.VolumeUSD = vol
		}
		if v := field(closeIdx, errClose); v != "" {
			ts, err := time.Parse(l.Config.TimeLayout, v)
			if err != nil {
				return nil, fmt.Errorf("markets line %d: close time %q: %w", line, v, err)
			}
			m.CloseTime = ts
		}
		if v := field(resIdx, errRes); v != "" {
			side, err := parseSide(v)
			if err != nil {
				return nil, fmt.Errorf("markets line %d: resolution %q: %w", line, v, err)
			}
			m.Resolution = side
		}
		out = append(out, m)
	}
	if l.Logger != nil {
		l.Logger.Info("markets loaded", zap.Int("count", len(out)))
	}
	return out, nil
}

// LoadTrades reads the trade file, dropping malformed rows individually and
// failing the run outright once the skip fraction exceeds the configured
// ceiling. Rows are returned ordered by (timestamp, input position).
func (l *Loader) LoadTrades(path string, start, end time.Time) ([]models.TradeEvent, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open trades: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read trades header: %w", err)
	}
	cols := l.Config.TradeColumns
	idx := struct{ ts, market, wallet, side, price, amount int }{}
	for _, bind := range []struct {
		name string
		dst  *int
	}{
		{cols.Timestamp, &idx.ts},
		{cols.MarketID, &idx.market},
		{cols.Wallet, &idx.wallet},
		{cols.Side, &idx.side},
		{cols.Price, &idx.price},
		{cols.AmountUSD, &idx.amount},
	} {
		i, err := headerIndex(header, bind.name)
		if err != nil {
			return nil, 0, fmt.Errorf("trades: %w", err)
		}
		*bind.dst = i
	}
	maxField := idx.ts
	for _, v := range []int{idx.market, idx.wallet, idx.side, idx.price, idx.amount} {
		if v > maxField {
			maxField = v
		}
	}

	tolerance := time.Duration(l.Config.TimestampToleranceSec) * time.Second
	var (
		out     []models.TradeEvent
		skipped int
		total   int
		prev    time.Time
		seq     int64
	)
	skip := func(line int, reason string) {
		skipped++
		if l.Logger != nil {
			l.Logger.Debug("skipping trade row", zap.Int("line", line), zap.String("reason", reason))
		}
	}

	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		total++
		if err != nil {
			skip(line, "csv: "+err.Error())
			continue
		}
		if len(rec) <= maxField {
			skip(line, "short row")
			continue
		}

		ts, err := time.Parse(l.Config.TimeLayout, strings.TrimSpace(rec[idx.ts]))
		if err != nil {
			skip(line, "bad timestamp")
			continue
		}
		if !prev.IsZero() && ts.Before(prev.Add(-tolerance)) {
			skip(line, "timestamp regression")
			continue
		}

		marketID := strings.TrimSpace(rec[idx.market])
		walletAddr := strings.TrimSpace(rec[idx.wallet])
		if marketID == "" || walletAddr == "" {
			skip(line, "empty market or wallet")
			continue
		}
		side, err := parseSide(rec[idx.side])
		if err != nil {
			skip(line, "bad side")
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(rec[idx.price]))
		if err != nil || !price.GreaterThan(decimal.Zero) || !price.LessThan(decimal.NewFromInt(1)) {
			skip(line, "price out of range")
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(rec[idx.amount]))
		if err != nil || !amount.GreaterThan(decimal.Zero) {
			skip(line, "amount out of range")
			continue
		}

		prev = ts
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !end.IsZero() && ts.After(end) {
			continue
		}

		seq++
		out = append(out, models.TradeEvent{
			Seq:       seq,
			Timestamp: ts,
			MarketID:  marketID,
			Wallet:    walletAddr,
			Side:      side,
			Price:     price,
			AmountUSD: amount,
		})
	}

	if total > 0 {
		rate := float64(skipped) / float64(total)
		if rate > l.Config.MaxSkipRate {
			return nil, skipped, fmt.Errorf("skipped %d of %d trade rows (%.1f%%), above the %.0f%% ceiling",
				skipped, total, rate*100, l.Config.MaxSkipRate*100)
		}
	}

	// Stable on Seq so simultaneous trades replay in input order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	if l.Logger != nil {
		l.Logger.Info("trades loaded",
			zap.Int("count", len(out)),
			zap.Int("skipped", skipped),
		)
	}
	return out, skipped, nil
}

func parseSide(raw string) (models.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY", "YES":
		return models.SideBuy, nil
	case "SELL", "NO":
		return models.SideSell, nil
	}
	return "", fmt.Errorf("unknown side %q", raw)
}
