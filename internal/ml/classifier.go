// Package ml provides the trading-signal classifier and its lifecycle.
// It defines the label space and probability distribution, the Classifier
// contract, a random forest implementation, the fixed training catalogue,
// cross-validated evaluation, and the Manager that keeps exactly one fitted
// model live, loading it from storage or training it on demand.
package ml

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"forex-signal-bot/internal/features"
)

// Label is a trading signal. The numeric order is also the tie-break priority.
type Label int

const (
	Buy Label = iota
	Sell
	Hold
)

// NumLabels is the size of the label space.
const NumLabels = 3

// Labels lists every label in priority order.
var Labels = [NumLabels]Label{Buy, Sell, Hold}

var (
	// ErrNotFitted is returned when a classifier is queried before Fit.
	ErrNotFitted = errors.New("classifier not fitted")
	// ErrTraining marks a failed Fit, whatever the underlying cause.
	ErrTraining = errors.New("training failed")
)

func (l Label) String() string {
	switch l {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case Hold:
		return "HOLD"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Valid reports whether l is one of the three signals.
func (l Label) Valid() bool {
	return l >= Buy && l <= Hold
}

// ParseLabel converts "BUY", "SELL" or "HOLD" (any case) into a Label.
func ParseLabel(s string) (Label, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	case "HOLD":
		return Hold, nil
	}
	return 0, fmt.Errorf("unknown label %q", s)
}

func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid label %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Label) UnmarshalText(b []byte) error {
	parsed, err := ParseLabel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Distribution holds one probability per label, indexed by Label.
type Distribution [NumLabels]float64

// Prob returns the probability mass on l.
func (d Distribution) Prob(l Label) float64 {
	if !l.Valid() {
		return 0
	}
	return d[l]
}

// Argmax returns the most probable label. Ties go to the label that comes
// first in Labels.
func (d Distribution) Argmax() Label {
	best := Buy
	for _, l := range Labels[1:] {
		if d[l] > d[best] {
			best = l
		}
	}
	return best
}

// NewDistribution validates raw class scores and normalises them to sum to 1.
func NewDistribution(raw []float64) (Distribution, error) {
	var d Distribution
	if len(raw) != NumLabels {
		return d, fmt.Errorf("expected %d class scores, got %d", NumLabels, len(raw))
	}

	var sum float64
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return d, fmt.Errorf("invalid score %v for %s", v, Label(i))
		}
		sum += v
	}
	if sum == 0 {
		return d, errors.New("class scores sum to zero")
	}

	for i, v := range raw {
		d[i] = v / sum
	}
	return d, nil
}

// TrainingSample is one labelled feature row.
type TrainingSample struct {
	Features []float64
	Label    Label
}

// Classifier is a trainable multi-class model over the nine indicator features.
type Classifier interface {
	// Fit trains on samples, replacing any previous state.
	Fit(samples []TrainingSample) error

	// PredictDistribution returns the class distribution for one feature row.
	// Any finite input must be accepted, including values outside the training range.
	PredictDistribution(features []float64) (Distribution, error)

	// MarshalBinary and UnmarshalBinary round-trip the fitted state without
	// changing prediction behaviour.
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Classify returns the argmax label together with the distribution it came from.
func Classify(c Classifier, x []float64) (Label, Distribution, error) {
	if c == nil {
		return Hold, Distribution{}, ErrNotFitted
	}
	d, err := c.PredictDistribution(x)
	if err != nil {
		return Hold, Distribution{}, err
	}
	return d.Argmax(), d, nil
}

// validateSamples checks arity and labels and that every class is represented.
func validateSamples(samples []TrainingSample) error {
	if len(samples) == 0 {
		return errors.New("no training samples")
	}

	var seen [NumLabels]int
	for i, s := range samples {
		if len(s.Features) != features.NumFeatures {
			return fmt.Errorf("sample %d: expected %d features, got %d", i, features.NumFeatures, len(s.Features))
		}
		if !s.Label.Valid() {
			return fmt.Errorf("sample %d: invalid label %d", i, int(s.Label))
		}
		for j, v := range s.Features {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("sample %d: feature %s is not finite", i, features.Names[j])
			}
		}
		seen[s.Label]++
	}

	for _, l := range Labels {
		if seen[l] == 0 {
			return fmt.Errorf("no samples for label %s", l)
		}
	}
	return nil
}

func checkArity(x []float64) error {
	if len(x) != features.NumFeatures {
		return fmt.Errorf("expected %d features, got %d", features.NumFeatures, len(x))
	}
	return nil
}
