package ml

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Stub is a deterministic Classifier. With Fixed set it always answers that
// distribution; otherwise it scores RSI mean reversion, leaning BUY below 50
// and SELL above it. Failures can be injected for tests.
type Stub struct {
	Fixed          *Distribution
	FitErr         error
	PredictErr     error
	PanicOnPredict bool

	mu     sync.Mutex
	fitted bool
	fits   int
}

type stubState struct {
	Fixed  *Distribution `msgpack:"fixed"`
	Fitted bool          `msgpack:"fitted"`
}

// NewStub returns a stub that always predicts d.
func NewStub(d Distribution) *Stub {
	return &Stub{Fixed: &d}
}

func (s *Stub) Fit(samples []TrainingSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fits++
	if s.FitErr != nil {
		return s.FitErr
	}
	if err := validateSamples(samples); err != nil {
		return fmt.Errorf("%w: %v", ErrTraining, err)
	}
	s.fitted = true
	return nil
}

// Fits reports how many times Fit was called.
func (s *Stub) Fits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fits
}

func (s *Stub) PredictDistribution(x []float64) (Distribution, error) {
	s.mu.Lock()
	fitted := s.fitted
	s.mu.Unlock()

	if s.PanicOnPredict {
		panic("stub classifier panic")
	}
	if s.PredictErr != nil {
		return Distribution{}, s.PredictErr
	}
	if !fitted {
		return Distribution{}, ErrNotFitted
	}
	if err := checkArity(x); err != nil {
		return Distribution{}, err
	}
	if s.Fixed != nil {
		return *s.Fixed, nil
	}

	score := math.Tanh((50 - x[0]) / 15)
	return NewDistribution([]float64{
		math.Max(score, 0),
		math.Max(-score, 0),
		1 - math.Abs(score),
	})
}

func (s *Stub) MarshalBinary() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fitted {
		return nil, ErrNotFitted
	}
	return msgpack.Marshal(&stubState{Fixed: s.Fixed, Fitted: s.fitted})
}

func (s *Stub) UnmarshalBinary(data []byte) error {
	var st stubState
	if err := msgpack.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode stub: %w", err)
	}
	if !st.Fitted {
		return errors.New("decode stub: not fitted")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fixed = st.Fixed
	s.fitted = true
	return nil
}
