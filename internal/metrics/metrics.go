// Package metrics provides Prometheus metrics collection for the forex signal service.
// It defines the prediction, model lifecycle, HTTP and stream metrics that are
// exposed via the Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	MLPredictions      *prometheus.CounterVec // Predictions served, by signal
	MLFailures         prometheus.Counter     // Predictions that hit an error and fell back
	MLFallbackUse      prometheus.Counter     // Safe-default results returned
	MLLatency          prometheus.Histogram   // End-to-end prediction latency
	MLPredictionScores prometheus.Histogram   // Confidence of served predictions (0-100)

	// Model lifecycle metrics
	MLModelAge         prometheus.Gauge       // Age of the live model in seconds
	MLAccuracy         prometheus.Histogram   // Cross-validated accuracy in percent
	MLKappa            prometheus.Gauge       // Cross-validated Cohen's kappa of the live model
	MLTrainings        *prometheus.CounterVec // Training runs, by outcome
	MLTrainingDuration prometheus.Histogram   // Training duration including evaluation
	ScheduledRetrains  prometheus.Counter     // Retrains triggered by the scheduler

	// HTTP and stream metrics
	HTTPRequests   *prometheus.CounterVec   // Requests by route, method and status code
	HTTPDuration   *prometheus.HistogramVec // Request duration by route
	StreamClients  prometheus.Gauge         // Connected WebSocket stream clients
	StreamMessages prometheus.Counter       // Predictions pushed over WebSocket streams

	// System metrics
	ErrorsTotal prometheus.Counter // Total number of errors encountered

	gatherer prometheus.Gatherer
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
// If registerer is also a Gatherer it is used by FailureRate.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	m := &Metrics{
		MLPredictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forex_predictions_total",
			Help: "Total number of predictions served, by signal",
		}, []string{"signal"}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "forex_prediction_failures_total",
			Help: "Total number of predictions that failed while scoring",
		}),
		MLFallbackUse: factory.NewCounter(prometheus.CounterOpts{
			Name: "forex_prediction_fallback_total",
			Help: "Total number of times the safe default result was returned",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "forex_prediction_latency_seconds",
			Help:    "Prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "forex_prediction_confidence",
			Help:    "Distribution of prediction confidence in percent",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forex_model_age_seconds",
			Help: "Age of the live model in seconds",
		}),
		MLAccuracy: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "forex_model_cv_accuracy",
			Help:    "Cross-validated accuracy of trained models in percent",
			Buckets: []float64{50, 60, 70, 75, 80, 85, 90, 95, 100},
		}),
		MLKappa: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forex_model_cv_kappa",
			Help: "Cross-validated Cohen's kappa of the live model",
		}),
		MLTrainings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forex_model_trainings_total",
			Help: "Total number of model training runs, by outcome",
		}, []string{"outcome"}),
		MLTrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "forex_model_training_duration_seconds",
			Help:    "Model training duration in seconds, including cross validation",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ScheduledRetrains: factory.NewCounter(prometheus.CounterOpts{
			Name: "forex_scheduled_retrains_total",
			Help: "Total number of retrains triggered by the scheduler",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forex_http_requests_total",
			Help: "Total number of HTTP requests, by route, method and status code",
		}, []string{"route", "method", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forex_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forex_stream_clients",
			Help: "Number of connected WebSocket stream clients",
		}),
		StreamMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "forex_stream_messages_total",
			Help: "Total number of predictions pushed over WebSocket streams",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "forex_errors_total",
			Help: "Total number of errors encountered",
		}),
	}

	if g, ok := registerer.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// FailureRate returns prediction failures divided by predictions served,
// or 0 if nothing has been served yet.
func (m *Metrics) FailureRate() float64 {
	if m.gatherer == nil {
		return 0
	}
	metricFamilies, err := m.gatherer.Gather()
	if err != nil {
		return 0
	}

	var total, failures float64
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "forex_predictions_total":
			for _, metric := range mf.GetMetric() {
				total += metric.GetCounter().GetValue()
			}
		case "forex_prediction_failures_total":
			for _, metric := range mf.GetMetric() {
				failures += metric.GetCounter().GetValue()
			}
		}
	}

	if total == 0 {
		return 0
	}
	return failures / total
}
