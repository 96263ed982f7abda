package ml

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"forex-signal-bot/internal/features"
	"forex-signal-bot/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

// ArtifactFormat tags the persisted envelope so foreign files are rejected.
const ArtifactFormat = "forex-forest/v1"

// Model sources recorded in metadata.
const (
	SourceTrained = "trained"
	SourceLoaded  = "loaded"
)

// MetricsInterface defines the metrics hooks used by the lifecycle and the
// prediction pipeline.
type MetricsInterface interface {
	MLPredictionsInc(signal string)
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLModelAgeSet(float64)
	MLAccuracyObserve(float64)
	MLKappaSet(float64)
	MLPredictionScoresObserve(float64)
	MLFallbackUseInc()
	MLTrainingInc(outcome string)
	MLTrainingDurationObserve(float64)
}

// State of the Manager.
type State int32

const (
	Untrained State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "untrained"
}

// ModelMetadata describes a fitted model.
type ModelMetadata struct {
	Version           string             `json:"version" msgpack:"version"`
	TrainedAt         time.Time          `json:"trainedAt" msgpack:"trained_at"`
	Samples           int                `json:"samples" msgpack:"samples"`
	Trees             int                `json:"trees,omitempty" msgpack:"trees"`
	CVFolds           int                `json:"cvFolds,omitempty" msgpack:"cv_folds"`
	CVAccuracy        float64            `json:"cvAccuracy,omitempty" msgpack:"cv_accuracy"`
	CVKappa           float64            `json:"cvKappa,omitempty" msgpack:"cv_kappa"`
	FeatureImportance map[string]float64 `json:"featureImportance,omitempty" msgpack:"feature_importance"`
	Source            string             `json:"source" msgpack:"-"`
}

// Model is a fitted classifier and its metadata. It is never mutated after
// it becomes live.
type Model struct {
	Classifier Classifier
	Metadata   ModelMetadata
}

type artifact struct {
	Format   string        `msgpack:"format"`
	Metadata ModelMetadata `msgpack:"metadata"`
	Payload  []byte        `msgpack:"payload"`
}

// ManagerConfig wires the Manager's collaborators.
type ManagerConfig struct {
	// Store persists the artifact. A nil store keeps models in memory only.
	Store storage.ModelStore
	// Factory builds a fresh unfitted classifier. Defaults to a 100-tree Forest.
	Factory func() Classifier
	// Samples defaults to Catalogue().
	Samples []TrainingSample
	// CVFolds of 0 means DefaultCVFolds; a negative value disables evaluation.
	CVFolds int
	CVSeed  int64
	Metrics MetricsInterface
}

// Manager owns the live model. Readers call Current without locking; Init
// and Retrain are serialised and publish a new model with one atomic swap.
type Manager struct {
	cfg  ManagerConfig
	mu   sync.Mutex
	live atomic.Pointer[Model]
}

// NewManager creates an Untrained manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Factory == nil {
		cfg.Factory = func() Classifier { return NewForest(DefaultTrees) }
	}
	if cfg.Samples == nil {
		cfg.Samples = Catalogue()
	}
	if cfg.CVFolds == 0 {
		cfg.CVFolds = DefaultCVFolds
	}
	if cfg.CVSeed == 0 {
		cfg.CVSeed = 42
	}
	return &Manager{cfg: cfg}
}

// Current returns the live model, or nil while Untrained.
func (m *Manager) Current() *Model {
	return m.live.Load()
}

func (m *Manager) State() State {
	if m.live.Load() == nil {
		return Untrained
	}
	return Ready
}

// Init makes a model live. A stored artifact is used when it decodes;
// otherwise the catalogue is fitted and the result persisted. A fit failure
// leaves the manager Untrained and is returned.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live.Load() != nil {
		return nil
	}

	if model, err := m.load(); err == nil {
		m.live.Store(model)
		m.observe(model)
		log.Info().
			Str("version", model.Metadata.Version).
			Str("location", m.cfg.Store.Location()).
			Msg("Loaded existing model")
		return nil
	} else if errors.Is(err, storage.ErrNotFound) {
		log.Info().Msg("No stored model found, training a new one")
	} else {
		log.Warn().Err(err).Msg("Stored model unusable, training a new one")
	}

	model, err := m.train()
	if err != nil {
		log.Error().Err(err).Msg("Initial training failed, predictions will use the safe default")
		return err
	}
	m.persist(model)
	m.live.Store(model)
	m.observe(model)
	return nil
}

// Retrain fits a new model from the catalogue, persists it and swaps it in.
// On failure the previous model, if any, stays live.
func (m *Manager) Retrain() (ModelMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	model, err := m.train()
	if err != nil {
		log.Error().Err(err).Msg("Retrain failed, keeping previous model")
		return ModelMetadata{}, err
	}
	m.persist(model)
	m.live.Store(model)
	m.observe(model)

	log.Info().
		Str("version", model.Metadata.Version).
		Float64("cv_accuracy", model.Metadata.CVAccuracy).
		Msg("Model retrained")
	return model.Metadata, nil
}

func (m *Manager) load() (*Model, error) {
	if m.cfg.Store == nil {
		return nil, storage.ErrNotFound
	}
	data, err := m.cfg.Store.Load()
	if err != nil {
		return nil, err
	}
	return DecodeArtifact(data, m.cfg.Factory)
}

func (m *Manager) train() (*Model, error) {
	start := time.Now()
	c := m.cfg.Factory()
	if err := c.Fit(m.cfg.Samples); err != nil {
		m.trainingOutcome("failure", start)
		if !errors.Is(err, ErrTraining) {
			err = fmt.Errorf("%w: %v", ErrTraining, err)
		}
		return nil, err
	}

	meta := ModelMetadata{
		Version:   uuid.NewString(),
		TrainedAt: time.Now().UTC(),
		Samples:   len(m.cfg.Samples),
		Source:    SourceTrained,
	}
	if t, ok := c.(interface{ Trees() int }); ok {
		meta.Trees = t.Trees()
	}
	if fi, ok := c.(interface{ FeatureImportance() []float64 }); ok {
		meta.FeatureImportance = namedImportance(fi.FeatureImportance())
	}

	if m.cfg.CVFolds > 0 {
		eval, err := CrossValidate(m.cfg.Factory, m.cfg.Samples, m.cfg.CVFolds, m.cfg.CVSeed)
		if err != nil {
			log.Warn().Err(err).Msg("Cross validation failed")
		} else {
			meta.CVFolds = eval.Folds
			meta.CVAccuracy = eval.Accuracy
			meta.CVKappa = eval.Kappa
			log.Info().
				Int("folds", eval.Folds).
				Float64("accuracy", eval.Accuracy).
				Float64("kappa", eval.Kappa).
				Float64("fold_stddev", eval.FoldStdDev).
				Msg("Cross validation complete")
		}
	}

	m.trainingOutcome("success", start)
	log.Info().
		Int("samples", meta.Samples).
		Dur("took", time.Since(start)).
		Msg("Model trained")
	return &Model{Classifier: c, Metadata: meta}, nil
}

// persist failures are logged only; the in-memory model stays authoritative.
func (m *Manager) persist(model *Model) {
	if m.cfg.Store == nil {
		return
	}
	data, err := EncodeArtifact(model)
	if err == nil {
		err = m.cfg.Store.Save(data)
	}
	if err != nil {
		log.Warn().Err(err).Str("location", m.cfg.Store.Location()).Msg("Failed to persist model")
		return
	}
	log.Info().Str("location", m.cfg.Store.Location()).Msg("Model saved")
}

func (m *Manager) observe(model *Model) {
	if m.cfg.Metrics == nil {
		return
	}
	if model.Metadata.CVFolds > 0 {
		m.cfg.Metrics.MLAccuracyObserve(model.Metadata.CVAccuracy)
		m.cfg.Metrics.MLKappaSet(model.Metadata.CVKappa)
	}
	m.cfg.Metrics.MLModelAgeSet(time.Since(model.Metadata.TrainedAt).Seconds())
}

func (m *Manager) trainingOutcome(outcome string, start time.Time) {
	if m.cfg.Metrics == nil {
		return
	}
	m.cfg.Metrics.MLTrainingInc(outcome)
	m.cfg.Metrics.MLTrainingDurationObserve(time.Since(start).Seconds())
}

// EncodeArtifact wraps the classifier state and metadata in the persisted envelope.
func EncodeArtifact(model *Model) ([]byte, error) {
	if model == nil || model.Classifier == nil {
		return nil, ErrNotFitted
	}
	payload, err := model.Classifier.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialise classifier: %w", err)
	}
	data, err := msgpack.Marshal(&artifact{
		Format:   ArtifactFormat,
		Metadata: model.Metadata,
		Payload:  payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return data, nil
}

// DecodeArtifact restores a model into a classifier built by factory.
func DecodeArtifact(data []byte, factory func() Classifier) (*Model, error) {
	var a artifact
	if err := msgpack.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Format != ArtifactFormat {
		return nil, fmt.Errorf("unsupported artifact format %q", a.Format)
	}

	c := factory()
	if err := c.UnmarshalBinary(a.Payload); err != nil {
		return nil, err
	}
	a.Metadata.Source = SourceLoaded
	return &Model{Classifier: c, Metadata: a.Metadata}, nil
}

func namedImportance(values []float64) map[string]float64 {
	if len(values) != features.NumFeatures {
		return nil
	}
	out := make(map[string]float64, len(values))
	for i, v := range values {
		out[features.Names[i]] = v
	}
	return out
}
