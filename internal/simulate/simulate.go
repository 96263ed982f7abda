// Package simulate produces synthetic indicator snapshots for demos, the
// stream endpoint and scenario checks. Nothing here touches a market feed.
package simulate

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"forex-signal-bot/internal/common"
	"forex-signal-bot/internal/features"
)

// BasePrice returns the reference mid price for a pair, 1.0 when unknown.
func BasePrice(pair string) float64 {
	switch strings.ToUpper(pair) {
	case common.EURUSDPair:
		return 1.0850
	case common.GBPUSDPair:
		return 1.2650
	case common.USDJPYPair:
		return 149.50
	case common.USDCHFPair:
		return 0.8850
	case common.AUDUSDPair:
		return 0.6550
	default:
		return 1.0
	}
}

// Generator draws random snapshots. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator seeds a generator; seed 0 uses the clock.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), now: time.Now}
}

// Simulated returns a plausible snapshot around the pair's base price:
// RSI in [25, 75), ATR in [0.001, 0.004), volume in [8000, 28000).
func (g *Generator) Simulated(pair string) features.FeatureVector {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.rng.Float64
	base := BasePrice(pair)

	rsi := 25 + r()*50
	closePrice := base + (r()-0.5)*0.0100
	open := closePrice - (r()-0.5)*0.0020
	high := math.Max(open, closePrice) + r()*0.0015
	low := math.Min(open, closePrice) - r()*0.0015
	volume := 8000 + r()*20000

	emaFast := closePrice + (r()-0.5)*0.0010
	emaSlow := closePrice + (r()-0.5)*0.0020
	macd := emaFast - emaSlow
	macdSignal := macd + (r()-0.5)*0.0005

	stdDev := 0.0030 + r()*0.0020
	atr := 0.0010 + r()*0.0030

	return features.FeatureVector{
		Pair:       strings.ToUpper(pair),
		RSI:        round(rsi, 2),
		MACD:       round(macd, 5),
		MACDSignal: round(macdSignal, 5),
		EMAFast:    round(emaFast, 5),
		EMASlow:    round(emaSlow, 5),
		BBUpper:    round(closePrice+2*stdDev, 5),
		BBLower:    round(closePrice-2*stdDev, 5),
		ATR:        round(atr, 5),
		Volume:     round(volume, 0),
		Open:       round(open, 5),
		High:       round(high, 5),
		Low:        round(low, 5),
		Close:      round(closePrice, 5),
		Timestamp:  g.now().UTC(),
	}
}

// Batch returns one simulated snapshot per pair, in order.
func (g *Generator) Batch(pairs []string) []features.FeatureVector {
	out := make([]features.FeatureVector, len(pairs))
	for i, pair := range pairs {
		out[i] = g.Simulated(pair)
	}
	return out
}

func round(v float64, decimals int) float64 {
	f := math.Pow(10, float64(decimals))
	return math.Round(v*f) / f
}
