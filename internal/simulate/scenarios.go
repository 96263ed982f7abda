package simulate

import (
	"strings"
	"time"

	"forex-signal-bot/internal/features"
	"forex-signal-bot/internal/ml"
)

// Oversold is a textbook BUY setup: RSI 28.3, price pinned to the lower band.
func Oversold(pair string) features.FeatureVector {
	base := BasePrice(pair)
	return features.FeatureVector{
		Pair:       strings.ToUpper(pair),
		RSI:        28.3,
		MACD:       -0.0020,
		MACDSignal: -0.0015,
		EMAFast:    base - 0.0088,
		EMASlow:    base - 0.0070,
		BBUpper:    base - 0.0045,
		BBLower:    base - 0.0095,
		ATR:        0.0022,
		Volume:     18000,
		Open:       base - 0.0080,
		High:       base - 0.0060,
		Low:        base - 0.0100,
		Close:      base - 0.0090,
		Timestamp:  time.Now().UTC(),
	}
}

// Overbought is a textbook SELL setup: RSI 76.5, price near the upper band.
func Overbought(pair string) features.FeatureVector {
	base := BasePrice(pair)
	return features.FeatureVector{
		Pair:       strings.ToUpper(pair),
		RSI:        76.5,
		MACD:       0.0030,
		MACDSignal: 0.0022,
		EMAFast:    base + 0.0088,
		EMASlow:    base + 0.0070,
		BBUpper:    base + 0.0095,
		BBLower:    base + 0.0045,
		ATR:        0.0025,
		Volume:     12000,
		Open:       base + 0.0080,
		High:       base + 0.0100,
		Low:        base + 0.0060,
		Close:      base + 0.0090,
		Timestamp:  time.Now().UTC(),
	}
}

// Neutral is a flat market: RSI 51.2, wide bands, no momentum.
func Neutral(pair string) features.FeatureVector {
	base := BasePrice(pair)
	return features.FeatureVector{
		Pair:       strings.ToUpper(pair),
		RSI:        51.2,
		MACD:       0.0001,
		MACDSignal: 0.0001,
		EMAFast:    base + 0.0002,
		EMASlow:    base + 0.0001,
		BBUpper:    base + 0.0080,
		BBLower:    base - 0.0078,
		ATR:        0.0015,
		Volume:     9000,
		Open:       base + 0.0001,
		High:       base + 0.0010,
		Low:        base - 0.0008,
		Close:      base + 0.0002,
		Timestamp:  time.Now().UTC(),
	}
}

// Scenario is a canned input with the signal it should produce.
type Scenario struct {
	Key         string                 `json:"-"`
	Description string                 `json:"scenario"`
	Expected    ml.Label               `json:"expected"`
	Input       features.FeatureVector `json:"input"`
}

// Scenarios returns the BUY, SELL and HOLD checks for pair, in that order.
func Scenarios(pair string) []Scenario {
	return []Scenario{
		{Key: "buy_scenario", Description: "Oversold (RSI: 28.3) → BUY expected", Expected: ml.Buy, Input: Oversold(pair)},
		{Key: "sell_scenario", Description: "Overbought (RSI: 76.5) → SELL expected", Expected: ml.Sell, Input: Overbought(pair)},
		{Key: "hold_scenario", Description: "Neutral (RSI: 51.2) → HOLD expected", Expected: ml.Hold, Input: Neutral(pair)},
	}
}
