// Package predict composes the live model and the decision policy into the
// single prediction operation served to callers. Predict never fails: any
// problem while scoring yields the safe default result instead.
package predict

import (
	"fmt"
	"math"
	"time"

	"forex-signal-bot/internal/features"
	"forex-signal-bot/internal/ml"
	"forex-signal-bot/internal/policy"

	"github.com/rs/zerolog/log"
)

// TimestampLayout is the wire format of Result.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// SafeDefaultReason is the rationale attached to every degraded result.
const SafeDefaultReason = "model unavailable — do not trade"

// FailureKind records why a prediction degraded to the safe default.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureModelUnavailable
	FailurePrediction
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureModelUnavailable:
		return "model_unavailable"
	default:
		return "prediction"
	}
}

// Result is the recommendation returned for one feature vector.
// Probabilities and confidence are percentages rounded to two decimals.
type Result struct {
	Signal          ml.Label         `json:"signal"`
	BuyProbability  float64          `json:"buyProbability"`
	SellProbability float64          `json:"sellProbability"`
	HoldProbability float64          `json:"holdProbability"`
	Confidence      float64          `json:"confidence"`
	ShouldTrade     bool             `json:"shouldTrade"`
	RiskLevel       policy.RiskLevel `json:"riskLevel"`
	Reason          string           `json:"reason"`
	Pair            string           `json:"pair"`
	Timestamp       string           `json:"timestamp"`
	ModelVersion    string           `json:"modelVersion,omitempty"`
}

// Outcome is a Result plus the internal failure classification.
type Outcome struct {
	Result  Result
	Failure FailureKind
	Err     error
}

// ModelSource provides the live model, or nil when none is ready.
type ModelSource interface {
	Current() *ml.Model
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	models     ModelSource
	thresholds policy.Thresholds
	metrics    ml.MetricsInterface
	now        func() time.Time
}

// New builds a pipeline. metrics may be nil.
func New(models ModelSource, thresholds policy.Thresholds, metrics ml.MetricsInterface) *Pipeline {
	return &Pipeline{
		models:     models,
		thresholds: thresholds,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Thresholds returns the policy in effect.
func (p *Pipeline) Thresholds() policy.Thresholds {
	return p.thresholds
}

// Predict scores fv and always returns a result.
func (p *Pipeline) Predict(fv features.FeatureVector) Result {
	return p.Evaluate(fv).Result
}

// PredictBatch scores each vector independently; results keep input order.
func (p *Pipeline) PredictBatch(fvs []features.FeatureVector) []Result {
	results := make([]Result, len(fvs))
	for i, fv := range fvs {
		results[i] = p.Predict(fv)
	}
	return results
}

// Evaluate is Predict with the failure classification exposed.
func (p *Pipeline) Evaluate(fv features.FeatureVector) (out Outcome) {
	start := p.now()
	defer func() {
		if r := recover(); r != nil {
			out = p.degrade(fv, FailurePrediction, fmt.Errorf("panic while scoring: %v", r))
		}
		p.record(out, start)
	}()

	model := p.models.Current()
	if model == nil || model.Classifier == nil {
		return p.degrade(fv, FailureModelUnavailable, ml.ErrNotFitted)
	}
	if err := fv.Validate(); err != nil {
		return p.degrade(fv, FailurePrediction, err)
	}

	signal, dist, err := ml.Classify(model.Classifier, fv.Values())
	if err != nil {
		return p.degrade(fv, FailurePrediction, err)
	}

	confidence := percent(dist.Prob(signal))
	decision := p.thresholds.Decide(signal, fv, confidence)

	result := Result{
		Signal:          signal,
		BuyProbability:  percent(dist.Prob(ml.Buy)),
		SellProbability: percent(dist.Prob(ml.Sell)),
		HoldProbability: percent(dist.Prob(ml.Hold)),
		Confidence:      confidence,
		ShouldTrade:     decision.ShouldTrade,
		RiskLevel:       decision.Risk,
		Reason:          decision.Reason,
		Pair:            fv.Pair,
		Timestamp:       p.now().Format(TimestampLayout),
		ModelVersion:    model.Metadata.Version,
	}

	log.Debug().
		Str("pair", fv.Pair).
		Str("signal", signal.String()).
		Float64("confidence", confidence).
		Str("risk", decision.Risk.String()).
		Bool("should_trade", decision.ShouldTrade).
		Msg("Prediction")

	return Outcome{Result: result}
}

// SafeDefault is the degraded result: HOLD, zero confidence, HIGH risk, no trade.
func SafeDefault(pair string, at time.Time) Result {
	return Result{
		Signal:      ml.Hold,
		Confidence:  0,
		ShouldTrade: false,
		RiskLevel:   policy.High,
		Reason:      SafeDefaultReason,
		Pair:        pair,
		Timestamp:   at.Format(TimestampLayout),
	}
}

func (p *Pipeline) degrade(fv features.FeatureVector, kind FailureKind, err error) Outcome {
	log.Warn().Err(err).Str("pair", fv.Pair).Str("failure", kind.String()).Msg("Returning safe default prediction")
	return Outcome{
		Result:  SafeDefault(fv.Pair, p.now()),
		Failure: kind,
		Err:     err,
	}
}

func (p *Pipeline) record(out Outcome, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.MLLatencyObserve(p.now().Sub(start).Seconds())
	p.metrics.MLPredictionsInc(out.Result.Signal.String())

	switch out.Failure {
	case FailureNone:
		p.metrics.MLPredictionScoresObserve(out.Result.Confidence)
	case FailurePrediction:
		p.metrics.MLFailuresInc()
		p.metrics.MLFallbackUseInc()
	default:
		p.metrics.MLFallbackUseInc()
	}
}

// percent converts a probability to a percentage rounded to two decimals.
func percent(p float64) float64 {
	return math.Round(p*10000) / 100
}
