package ml

import (
	"fmt"
	"math"

	randomforest "github.com/malaschitz/randomForest"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultTrees matches the ensemble size the service has always trained with.
const DefaultTrees = 100

// Forest is a random-forest Classifier. A fitted Forest is read-only and
// safe for concurrent PredictDistribution calls.
type Forest struct {
	trees  int
	forest *randomforest.Forest
}

type forestState struct {
	Trees  int                  `msgpack:"trees"`
	Forest *randomforest.Forest `msgpack:"forest"`
}

// NewForest creates an unfitted forest with n trees.
func NewForest(n int) *Forest {
	if n <= 0 {
		n = DefaultTrees
	}
	return &Forest{trees: n}
}

// Fit trains a fresh ensemble on samples.
func (rf *Forest) Fit(samples []TrainingSample) (err error) {
	if err := validateSamples(samples); err != nil {
		return fmt.Errorf("%w: %v", ErrTraining, err)
	}

	xData := make([][]float64, len(samples))
	yData := make([]int, len(samples))
	for i, s := range samples {
		row := make([]float64, len(s.Features))
		copy(row, s.Features)
		xData[i] = row
		yData[i] = int(s.Label)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: forest panicked: %v", ErrTraining, r)
		}
	}()

	forest := &randomforest.Forest{}
	forest.Data = randomforest.ForestData{X: xData, Class: yData}
	forest.Train(rf.trees)
	rf.forest = forest

	log.Debug().Int("trees", rf.trees).Int("samples", len(samples)).Msg("random forest trained")
	return nil
}

// PredictDistribution returns the share of tree votes per label.
func (rf *Forest) PredictDistribution(x []float64) (Distribution, error) {
	if rf == nil || rf.forest == nil {
		return Distribution{}, ErrNotFitted
	}
	if err := checkArity(x); err != nil {
		return Distribution{}, err
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Distribution{}, fmt.Errorf("feature %d is not finite", i)
		}
	}

	votes := rf.forest.Vote(x)
	return NewDistribution(votes)
}

// FeatureImportance returns the per-feature importance computed during Fit,
// or nil if the forest is not fitted.
func (rf *Forest) FeatureImportance() []float64 {
	if rf == nil || rf.forest == nil {
		return nil
	}
	out := make([]float64, len(rf.forest.FeatureImportance))
	copy(out, rf.forest.FeatureImportance)
	return out
}

// Trees returns the configured ensemble size.
func (rf *Forest) Trees() int {
	return rf.trees
}

// MarshalBinary encodes the fitted trees. Training rows are not included.
func (rf *Forest) MarshalBinary() ([]byte, error) {
	if rf.forest == nil {
		return nil, ErrNotFitted
	}
	snapshot := *rf.forest
	snapshot.Data = randomforest.ForestData{}

	data, err := msgpack.Marshal(&forestState{Trees: rf.trees, Forest: &snapshot})
	if err != nil {
		return nil, fmt.Errorf("encode forest: %w", err)
	}
	return data, nil
}

// UnmarshalBinary restores a forest produced by MarshalBinary.
func (rf *Forest) UnmarshalBinary(data []byte) error {
	var state forestState
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode forest: %w", err)
	}
	if state.Forest == nil {
		return fmt.Errorf("decode forest: empty payload")
	}
	rf.trees = state.Trees
	rf.forest = state.Forest
	return nil
}
