package features

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"
)

// Indicator periods
const (
	RSIPeriod      = 14
	EMAFastPeriod  = 12
	EMASlowPeriod  = 26
	MACDSignalSpan = 9
	BBPeriod       = 20
	BBDeviations   = 2.0
	ATRPeriod      = 14
)

// MinCandles is the shortest series Compute accepts: MACD needs the slow EMA
// warmed up plus the signal span.
const MinCandles = EMASlowPeriod + MACDSignalSpan

// Candle is one OHLCV bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Compute derives the indicator snapshot at the last candle of the series.
func Compute(pair string, candles []Candle) (FeatureVector, error) {
	if len(candles) < MinCandles {
		return FeatureVector{}, fmt.Errorf("need at least %d candles, got %d", MinCandles, len(candles))
	}

	n := len(candles)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i, c := range candles {
		opens[i] = c.Open
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
	}

	rsi := talib.Rsi(closes, RSIPeriod)
	macd, signal, _ := talib.Macd(closes, EMAFastPeriod, EMASlowPeriod, MACDSignalSpan)
	emaFast := talib.Ema(closes, EMAFastPeriod)
	emaSlow := talib.Ema(closes, EMASlowPeriod)
	// MAType 0 = SMA
	upper, _, lower := talib.BBands(closes, BBPeriod, BBDeviations, BBDeviations, 0)
	atr := talib.Atr(highs, lows, closes, ATRPeriod)

	last := candles[n-1]
	fv := FeatureVector{
		Pair:       pair,
		RSI:        lastOf(rsi),
		MACD:       lastOf(macd),
		MACDSignal: lastOf(signal),
		EMAFast:    lastOf(emaFast),
		EMASlow:    lastOf(emaSlow),
		BBUpper:    lastOf(upper),
		BBLower:    lastOf(lower),
		ATR:        lastOf(atr),
		Volume:     last.Volume,
		Open:       last.Open,
		High:       last.High,
		Low:        last.Low,
		Close:      last.Close,
		Timestamp:  last.Time,
	}

	if err := fv.Validate(); err != nil {
		return FeatureVector{}, fmt.Errorf("computed indicators invalid: %w", err)
	}
	return fv, nil
}

func lastOf(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}
