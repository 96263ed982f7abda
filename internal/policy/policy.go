// Package policy turns a classified feature vector into a risk tier, a
// trade gate and a human-readable rationale. Everything here is a pure
// function; the rationale never feeds back into risk or gating.
package policy

import (
	"encoding/json"
	"fmt"
	"strings"

	"forex-signal-bot/internal/features"
	"forex-signal-bot/internal/ml"
)

// RiskLevel is the risk tier attached to a prediction.
type RiskLevel int

const (
	Low RiskLevel = iota
	Medium
	High
)

func (r RiskLevel) String() string {
	switch r {
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	default:
		return "HIGH"
	}
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RiskLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch strings.ToUpper(s) {
	case "LOW":
		*r = Low
	case "MEDIUM":
		*r = Medium
	case "HIGH":
		*r = High
	default:
		return fmt.Errorf("unknown risk level %q", s)
	}
	return nil
}

// Thresholds parameterise the policy.
type Thresholds struct {
	RSIOversoldExtreme   float64 `yaml:"rsi_oversold_extreme" json:"rsiOversoldExtreme"`
	RSIOverboughtExtreme float64 `yaml:"rsi_overbought_extreme" json:"rsiOverboughtExtreme"`
	HighATR              float64 `yaml:"high_atr" json:"highAtr"`
	MediumATR            float64 `yaml:"medium_atr" json:"mediumAtr"`
	MinConfidence        float64 `yaml:"min_confidence" json:"minConfidence"`
}

// DefaultThresholds returns the production policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSIOversoldExtreme:   20,
		RSIOverboughtExtreme: 80,
		HighATR:              0.0040,
		MediumATR:            0.0025,
		MinConfidence:        65.0,
	}
}

// Validate checks that the thresholds are internally consistent.
func (t Thresholds) Validate() error {
	if t.RSIOversoldExtreme >= t.RSIOverboughtExtreme {
		return fmt.Errorf("rsi extremes inverted: %.1f >= %.1f", t.RSIOversoldExtreme, t.RSIOverboughtExtreme)
	}
	if t.MediumATR < 0 || t.HighATR < t.MediumATR {
		return fmt.Errorf("atr thresholds must satisfy 0 <= medium (%.4f) <= high (%.4f)", t.MediumATR, t.HighATR)
	}
	if t.MinConfidence < 0 || t.MinConfidence > 100 {
		return fmt.Errorf("min confidence %.2f outside [0,100]", t.MinConfidence)
	}
	return nil
}

// ClassifyRisk grades a feature vector. RSI extremes dominate ATR.
func (t Thresholds) ClassifyRisk(fv features.FeatureVector) RiskLevel {
	switch {
	case fv.RSI < t.RSIOversoldExtreme || fv.RSI > t.RSIOverboughtExtreme:
		return High
	case fv.ATR > t.HighATR:
		return High
	case fv.ATR > t.MediumATR:
		return Medium
	default:
		return Low
	}
}

// ShouldTrade requires enough confidence, an actionable signal and non-HIGH risk.
func (t Thresholds) ShouldTrade(signal ml.Label, confidence float64, risk RiskLevel) bool {
	return confidence >= t.MinConfidence && signal != ml.Hold && risk != High
}

// Reason builds the rationale for signal. confidence is in percent.
func Reason(signal ml.Label, fv features.FeatureVector, confidence float64) string {
	var sb strings.Builder

	switch signal {
	case ml.Buy:
		fmt.Fprintf(&sb, "RSI in low zone (%.1f)", fv.RSI)
		if fv.MACD > fv.MACDSignal {
			sb.WriteString(", MACD bullish crossover")
		}
		if fv.Close < fv.BBLower {
			sb.WriteString(", Price below lower BB line")
		}
	case ml.Sell:
		fmt.Fprintf(&sb, "RSI in high zone (%.1f)", fv.RSI)
		if fv.MACD < fv.MACDSignal {
			sb.WriteString(", MACD bearish crossover")
		}
		if fv.Close > fv.BBUpper {
			sb.WriteString(", Price above upper BB line")
		}
	case ml.Hold:
		fmt.Fprintf(&sb, "Neutral zone, no clear signal (RSI: %.1f)", fv.RSI)
	default:
		fmt.Fprintf(&sb, "Unrecognised signal %s (RSI: %.1f)", signal, fv.RSI)
	}

	fmt.Fprintf(&sb, " | Confidence: %.1f%%", confidence)
	return sb.String()
}

// Decision is the policy outcome for one prediction.
type Decision struct {
	Risk        RiskLevel
	ShouldTrade bool
	Reason      string
}

// Decide applies all three rules.
func (t Thresholds) Decide(signal ml.Label, fv features.FeatureVector, confidence float64) Decision {
	risk := t.ClassifyRisk(fv)
	return Decision{
		Risk:        risk,
		ShouldTrade: t.ShouldTrade(signal, confidence, risk),
		Reason:      Reason(signal, fv, confidence),
	}
}
