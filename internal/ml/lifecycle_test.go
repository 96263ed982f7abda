package ml

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"forex-signal-bot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// memStore is an in-memory ModelStore with failure injection.
type memStore struct {
	mu      sync.Mutex
	data    []byte
	saves   int
	loadErr error
	saveErr error
}

func (s *memStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.data == nil {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

func (s *memStore) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Location() string { return "memory" }

func stubFactory() Classifier { return &Stub{} }

func TestManager_InitTrainsAndPersists(t *testing.T) {
	store := &memStore{}
	metrics := &MockMetrics{}
	m := NewManager(ManagerConfig{Store: store, Factory: stubFactory, Metrics: metrics})

	assert.Equal(t, Untrained, m.State())
	assert.Nil(t, m.Current())

	require.NoError(t, m.Init())
	assert.Equal(t, Ready, m.State())
	assert.Equal(t, 1, store.saves)

	model := m.Current()
	require.NotNil(t, model)
	assert.Equal(t, SourceTrained, model.Metadata.Source)
	assert.Equal(t, 24, model.Metadata.Samples)
	assert.NotEmpty(t, model.Metadata.Version)
	assert.Equal(t, DefaultCVFolds, model.Metadata.CVFolds)
	assert.Equal(t, 100.0, model.Metadata.CVAccuracy)

	assert.Equal(t, 1, metrics.Trainings("success"))
	assert.Equal(t, []float64{100.0}, metrics.AccuracyObservations())

	// second Init is a no-op
	require.NoError(t, m.Init())
	assert.Same(t, model, m.Current())
	assert.Equal(t, 1, store.saves)
}

func TestManager_InitLoadsExisting(t *testing.T) {
	store := &memStore{}
	first := NewManager(ManagerConfig{Store: store, Factory: stubFactory, CVFolds: -1})
	require.NoError(t, first.Init())
	version := first.Current().Metadata.Version

	var fits int
	factory := func() Classifier {
		s := &Stub{}
		return &countingClassifier{Classifier: s, fits: &fits}
	}
	second := NewManager(ManagerConfig{Store: store, Factory: factory})
	require.NoError(t, second.Init())

	assert.Equal(t, 0, fits, "stored model must be reused, not refitted")
	assert.Equal(t, SourceLoaded, second.Current().Metadata.Source)
	assert.Equal(t, version, second.Current().Metadata.Version)
	assert.Equal(t, 1, store.saves)
}

func TestManager_InitRetrainsOnCorruptArtifact(t *testing.T) {
	store := &memStore{data: []byte("garbage")}
	m := NewManager(ManagerConfig{Store: store, Factory: stubFactory, CVFolds: -1})

	require.NoError(t, m.Init())
	assert.Equal(t, Ready, m.State())
	assert.Equal(t, SourceTrained, m.Current().Metadata.Source)
	assert.Equal(t, 1, store.saves, "replacement artifact is written")
}

func TestManager_InitRetrainsOnLoadError(t *testing.T) {
	store := &memStore{loadErr: errors.New("disk on fire")}
	m := NewManager(ManagerConfig{Store: store, Factory: stubFactory, CVFolds: -1})

	require.NoError(t, m.Init())
	assert.Equal(t, Ready, m.State())
}

func TestManager_PersistFailureKeepsModel(t *testing.T) {
	store := &memStore{saveErr: errors.New("read-only filesystem")}
	m := NewManager(ManagerConfig{Store: store, Factory: stubFactory, CVFolds: -1})

	require.NoError(t, m.Init())
	assert.Equal(t, Ready, m.State())
	assert.Equal(t, 1, store.saves)
}

func TestManager_FitFailureLeavesUntrained(t *testing.T) {
	metrics := &MockMetrics{}
	m := NewManager(ManagerConfig{
		Store:   &memStore{},
		Factory: func() Classifier { return &Stub{FitErr: errors.New("boom")} },
		Metrics: metrics,
	})

	err := m.Init()
	assert.ErrorIs(t, err, ErrTraining)
	assert.Equal(t, Untrained, m.State())
	assert.Nil(t, m.Current())
	assert.Equal(t, 1, metrics.Trainings("failure"))
}

func TestManager_RetrainFailureKeepsPrevious(t *testing.T) {
	fail := false
	var mu sync.Mutex
	factory := func() Classifier {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return &Stub{FitErr: errors.New("boom")}
		}
		return &Stub{}
	}
	m := NewManager(ManagerConfig{Factory: factory, CVFolds: -1})
	require.NoError(t, m.Init())
	before := m.Current()

	mu.Lock()
	fail = true
	mu.Unlock()

	_, err := m.Retrain()
	assert.ErrorIs(t, err, ErrTraining)
	assert.Same(t, before, m.Current())
	assert.Equal(t, Ready, m.State())
}

func TestManager_RetrainFromUntrained(t *testing.T) {
	m := NewManager(ManagerConfig{Factory: stubFactory, CVFolds: -1})

	meta, err := m.Retrain()
	require.NoError(t, err)
	assert.Equal(t, Ready, m.State())
	assert.Equal(t, meta.Version, m.Current().Metadata.Version)
}

func TestManager_RetrainIdempotent(t *testing.T) {
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "models", "forex_model.model"))
	m := NewManager(ManagerConfig{Store: store, CVFolds: -1})
	require.NoError(t, m.Init())

	scenarios := map[string]struct {
		x    []float64
		want Label
	}{
		"oversold":   {oversoldRow, Buy},
		"overbought": {overboughtRow, Sell},
		"neutral":    {neutralRow, Hold},
	}

	versions := map[string]bool{m.Current().Metadata.Version: true}
	for round := 0; round < 2; round++ {
		meta, err := m.Retrain()
		require.NoError(t, err)
		assert.Equal(t, Ready, m.State())
		versions[meta.Version] = true

		for name, sc := range scenarios {
			label, _, err := Classify(m.Current().Classifier, sc.x)
			require.NoError(t, err)
			assert.Equal(t, sc.want, label, "round %d %s", round, name)
		}
	}
	assert.Len(t, versions, 3)

	// the persisted artifact is the latest model
	reloaded := NewManager(ManagerConfig{Store: store})
	require.NoError(t, reloaded.Init())
	assert.Equal(t, m.Current().Metadata.Version, reloaded.Current().Metadata.Version)
	for name, sc := range scenarios {
		label, _, err := Classify(reloaded.Current().Classifier, sc.x)
		require.NoError(t, err)
		assert.Equal(t, sc.want, label, name)
	}
}

func TestManager_ConcurrentReadersDuringRetrain(t *testing.T) {
	m := NewManager(ManagerConfig{Factory: stubFactory, CVFolds: -1})
	require.NoError(t, m.Init())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				model := m.Current()
				if !assert.NotNil(t, model) {
					return
				}
				label, _, err := Classify(model.Classifier, oversoldRow)
				assert.NoError(t, err)
				assert.Equal(t, Buy, label)
			}
		}()
	}

	for i := 0; i < 5; i++ {
		_, err := m.Retrain()
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestArtifact_RejectsForeignFormat(t *testing.T) {
	stub := &Stub{}
	require.NoError(t, stub.Fit(Catalogue()))
	data, err := EncodeArtifact(&Model{Classifier: stub, Metadata: ModelMetadata{Version: "v"}})
	require.NoError(t, err)

	model, err := DecodeArtifact(data, stubFactory)
	require.NoError(t, err)
	assert.Equal(t, "v", model.Metadata.Version)
	assert.Equal(t, SourceLoaded, model.Metadata.Source)

	_, err = EncodeArtifact(&Model{Classifier: &Stub{}})
	assert.ErrorIs(t, err, ErrNotFitted)

	_, err = DecodeArtifact([]byte{0xc1}, stubFactory)
	assert.Error(t, err)

	foreign, err := msgpack.Marshal(&artifact{Format: "weka/rf", Payload: []byte{1}})
	require.NoError(t, err)
	_, err = DecodeArtifact(foreign, stubFactory)
	assert.ErrorContains(t, err, "unsupported artifact format")
}

type countingClassifier struct {
	Classifier
	fits *int
}

func (c *countingClassifier) Fit(samples []TrainingSample) error {
	*c.fits++
	return c.Classifier.Fit(samples)
}
