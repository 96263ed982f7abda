// Package features defines the indicator snapshot exchanged between the data
// producers and the decision engine, and derives it from raw OHLCV candles.
package features

import (
	"fmt"
	"math"
	"time"
)

// NumFeatures is the number of numeric indicator fields the classifier consumes.
const NumFeatures = 9

// Names lists the classifier features in canonical order.
var Names = [NumFeatures]string{
	"rsi", "macd", "macd_signal", "ema_fast", "ema_slow", "bb_upper", "bb_lower", "atr", "volume",
}

// FeatureVector is a snapshot of technical indicators for one currency pair.
// OHLC fields are context for the rationale text only; the classifier never sees them.
type FeatureVector struct {
	Pair string `json:"pair" validate:"max=16"`

	// Classifier features
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macdSignal"`
	EMAFast    float64 `json:"emaFast"`
	EMASlow    float64 `json:"emaSlow"`
	BBUpper    float64 `json:"bbUpper" validate:"gtefield=BBLower"`
	BBLower    float64 `json:"bbLower"`
	ATR        float64 `json:"atr" validate:"gte=0"`
	Volume     float64 `json:"volume" validate:"gte=0"`

	// Price context
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`

	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Values returns the classifier features in the order given by Names.
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.RSI, f.MACD, f.MACDSignal, f.EMAFast, f.EMASlow, f.BBUpper, f.BBLower, f.ATR, f.Volume,
	}
}

// FromValues builds a vector from classifier features in canonical order.
func FromValues(pair string, v []float64) (FeatureVector, error) {
	if len(v) != NumFeatures {
		return FeatureVector{}, fmt.Errorf("expected %d features, got %d", NumFeatures, len(v))
	}
	return FeatureVector{
		Pair:       pair,
		RSI:        v[0],
		MACD:       v[1],
		MACDSignal: v[2],
		EMAFast:    v[3],
		EMASlow:    v[4],
		BBUpper:    v[5],
		BBLower:    v[6],
		ATR:        v[7],
		Volume:     v[8],
	}, nil
}

// Validate checks the numeric contract. RSI outside 0-100 is accepted as is.
func (f FeatureVector) Validate() error {
	for i, v := range f.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("feature %s is not finite: %v", Names[i], v)
		}
	}
	if f.ATR < 0 {
		return fmt.Errorf("atr must be >= 0, got %v", f.ATR)
	}
	if f.Volume < 0 {
		return fmt.Errorf("volume must be >= 0, got %v", f.Volume)
	}
	if f.BBUpper < f.BBLower {
		return fmt.Errorf("bbUpper %v is below bbLower %v", f.BBUpper, f.BBLower)
	}
	return nil
}
