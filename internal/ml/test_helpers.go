package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu               sync.Mutex
	predictions      map[string]int
	failures         int
	latencySum       float64
	accuracy         []float64
	kappa            float64
	fallbackUse      int
	modelAge         float64
	predictionScores []float64
	trainings        map[string]int
	trainingTime     float64
}

func (m *MockMetrics) MLPredictionsInc(signal string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.predictions == nil {
		m.predictions = make(map[string]int)
	}
	m.predictions[signal]++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) MLModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

func (m *MockMetrics) MLAccuracyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accuracy = append(m.accuracy, v)
}

func (m *MockMetrics) MLKappaSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kappa = v
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

func (m *MockMetrics) MLFallbackUseInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackUse++
}

func (m *MockMetrics) MLTrainingInc(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trainings == nil {
		m.trainings = make(map[string]int)
	}
	m.trainings[outcome]++
}

func (m *MockMetrics) MLTrainingDurationObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainingTime += v
}

// Predictions returns the prediction count for signal.
func (m *MockMetrics) Predictions(signal string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions[signal]
}

func (m *MockMetrics) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func (m *MockMetrics) FallbackUse() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fallbackUse
}

func (m *MockMetrics) Trainings(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trainings[outcome]
}

func (m *MockMetrics) Scores() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.predictionScores...)
}

func (m *MockMetrics) AccuracyObservations() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.accuracy...)
}
