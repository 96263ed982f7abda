package simulate

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"forex-signal-bot/internal/features"
)

// walkWindow bounds the candle history kept by a Walk.
const walkWindow = 120

// Walk is a random-walk price series whose indicators are recomputed with
// features.Compute on every step. A Walk is not safe for concurrent use.
type Walk struct {
	pair     string
	rng      *rand.Rand
	interval time.Duration
	candles  []features.Candle
	vol      float64
}

// NewWalk seeds a series of features.MinCandles bars ending now.
func NewWalk(pair string, interval time.Duration, seed int64) *Walk {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	w := &Walk{
		pair:     strings.ToUpper(pair),
		rng:      rand.New(rand.NewSource(seed)),
		interval: interval,
		vol:      BasePrice(pair) * 0.0008,
	}
	start := time.Now().UTC().Add(-time.Duration(features.MinCandles) * interval)
	last := BasePrice(pair)
	for i := 0; i < features.MinCandles; i++ {
		c := w.bar(last, start.Add(time.Duration(i)*interval))
		w.candles = append(w.candles, c)
		last = c.Close
	}
	return w
}

// Candles returns a copy of the current history.
func (w *Walk) Candles() []features.Candle {
	return append([]features.Candle(nil), w.candles...)
}

// Next appends one bar and returns the indicators at it.
func (w *Walk) Next() (features.FeatureVector, error) {
	prev := w.candles[len(w.candles)-1]
	w.candles = append(w.candles, w.bar(prev.Close, prev.Time.Add(w.interval)))
	if len(w.candles) > walkWindow {
		w.candles = w.candles[len(w.candles)-walkWindow:]
	}
	return features.Compute(w.pair, w.candles)
}

func (w *Walk) bar(prevClose float64, at time.Time) features.Candle {
	open := prevClose
	closePrice := open + w.rng.NormFloat64()*w.vol
	if closePrice <= 0 {
		closePrice = open
	}
	wick := math.Abs(w.rng.NormFloat64()) * w.vol / 2
	return features.Candle{
		Time:   at,
		Open:   round(open, 5),
		High:   round(math.Max(open, closePrice)+wick, 5),
		Low:    round(math.Min(open, closePrice)-wick, 5),
		Close:  round(closePrice, 5),
		Volume: round(8000+w.rng.Float64()*20000, 0),
	}
}
