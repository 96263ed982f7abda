package metrics

import (
	"strconv"
	"time"

	"forex-signal-bot/internal/ml"

	"github.com/prometheus/client_golang/prometheus"
)

// Interfaces for metrics to avoid circular imports
type MetricsCounter interface {
	Inc()
}

type MetricsGauge interface {
	Set(float64)
	Add(float64)
}

type MetricsHistogram interface {
	Observe(float64)
}

var _ ml.MetricsInterface = (*MetricsWrapper)(nil)

// MetricsWrapper adapts Metrics to the hooks used by the model lifecycle,
// the prediction pipeline, the API and the scheduler.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLPredictionsInc(signal string) {
	w.m.MLPredictions.WithLabelValues(signal).Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
	w.m.ErrorsTotal.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLModelAgeSet(v float64) {
	w.m.MLModelAge.Set(v)
}

func (w *MetricsWrapper) MLAccuracyObserve(v float64) {
	w.m.MLAccuracy.Observe(v)
}

func (w *MetricsWrapper) MLKappaSet(v float64) {
	w.m.MLKappa.Set(v)
}

func (w *MetricsWrapper) MLPredictionScoresObserve(v float64) {
	w.m.MLPredictionScores.Observe(v)
}

func (w *MetricsWrapper) MLFallbackUseInc() {
	w.m.MLFallbackUse.Inc()
}

func (w *MetricsWrapper) MLTrainingInc(outcome string) {
	w.m.MLTrainings.WithLabelValues(outcome).Inc()
	if outcome != "success" {
		w.m.ErrorsTotal.Inc()
	}
}

func (w *MetricsWrapper) MLTrainingDurationObserve(v float64) {
	w.m.MLTrainingDuration.Observe(v)
}

// HTTPRequest records one served request.
func (w *MetricsWrapper) HTTPRequest(route, method string, status int, took time.Duration) {
	w.m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	w.m.HTTPDuration.WithLabelValues(route).Observe(took.Seconds())
}

func (w *MetricsWrapper) StreamClients() MetricsGauge {
	return &GaugeWrapper{w.m.StreamClients}
}

func (w *MetricsWrapper) StreamMessages() MetricsCounter {
	return &CounterWrapper{w.m.StreamMessages}
}

func (w *MetricsWrapper) ModelAge() MetricsGauge {
	return &GaugeWrapper{w.m.MLModelAge}
}

func (w *MetricsWrapper) ScheduledRetrains() MetricsCounter {
	return &CounterWrapper{w.m.ScheduledRetrains}
}

func (w *MetricsWrapper) FailureRate() float64 {
	return w.m.FailureRate()
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}

type GaugeWrapper struct {
	g prometheus.Gauge
}

func (gw *GaugeWrapper) Set(v float64) {
	gw.g.Set(v)
}

func (gw *GaugeWrapper) Add(v float64) {
	gw.g.Add(v)
}
