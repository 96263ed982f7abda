package simulate

import (
	"testing"
	"time"

	"forex-signal-bot/internal/features"
	"forex-signal-bot/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasePrice(t *testing.T) {
	tests := map[string]float64{
		"EURUSD": 1.0850,
		"gbpusd": 1.2650,
		"USDJPY": 149.50,
		"USDCHF": 0.8850,
		"AUDUSD": 0.6550,
		"NZDUSD": 1.0,
		"":       1.0,
	}
	for pair, want := range tests {
		assert.Equal(t, want, BasePrice(pair), pair)
	}
}

func TestGenerator_SimulatedRanges(t *testing.T) {
	g := NewGenerator(7)
	for i := 0; i < 500; i++ {
		fv := g.Simulated("eurusd")
		require.NoError(t, fv.Validate())

		assert.Equal(t, "EURUSD", fv.Pair)
		assert.GreaterOrEqual(t, fv.RSI, 25.0)
		assert.LessOrEqual(t, fv.RSI, 75.0)
		assert.GreaterOrEqual(t, fv.ATR, 0.001)
		assert.LessOrEqual(t, fv.ATR, 0.004)
		assert.GreaterOrEqual(t, fv.Volume, 8000.0)
		assert.LessOrEqual(t, fv.Volume, 28000.0)
		assert.InDelta(t, 1.0850, fv.Close, 0.0051)
		assert.GreaterOrEqual(t, fv.High, fv.Close)
		assert.LessOrEqual(t, fv.Low, fv.Close)
		assert.Greater(t, fv.BBUpper, fv.BBLower)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(42)
	b := NewGenerator(42)
	fa, fb := a.Simulated("USDJPY"), b.Simulated("USDJPY")
	assert.Equal(t, fa.Values(), fb.Values())
}

func TestGenerator_Batch(t *testing.T) {
	pairs := []string{"EURUSD", "USDJPY", "AUDUSD"}
	batch := NewGenerator(1).Batch(pairs)
	require.Len(t, batch, 3)
	for i, fv := range batch {
		assert.Equal(t, pairs[i], fv.Pair)
	}
}

func TestScenarios(t *testing.T) {
	scenarios := Scenarios("gbpusd")
	require.Len(t, scenarios, 3)

	assert.Equal(t, []string{"buy_scenario", "sell_scenario", "hold_scenario"},
		[]string{scenarios[0].Key, scenarios[1].Key, scenarios[2].Key})
	assert.Equal(t, []ml.Label{ml.Buy, ml.Sell, ml.Hold},
		[]ml.Label{scenarios[0].Expected, scenarios[1].Expected, scenarios[2].Expected})

	for _, s := range scenarios {
		require.NoError(t, s.Input.Validate(), s.Key)
		assert.Equal(t, "GBPUSD", s.Input.Pair)
	}

	assert.Equal(t, 28.3, scenarios[0].Input.RSI)
	assert.Equal(t, 76.5, scenarios[1].Input.RSI)
	assert.Equal(t, 51.2, scenarios[2].Input.RSI)
}

func TestScenarios_MatchHeuristicClassifier(t *testing.T) {
	stub := &ml.Stub{}
	require.NoError(t, stub.Fit(ml.Catalogue()))

	for _, s := range Scenarios("EURUSD") {
		label, _, err := ml.Classify(stub, s.Input.Values())
		require.NoError(t, err)
		assert.Equal(t, s.Expected, label, s.Key)
	}
}

func TestWalk(t *testing.T) {
	w := NewWalk("USDJPY", time.Minute, 3)
	require.Len(t, w.Candles(), features.MinCandles)

	var last time.Time
	for i := 0; i < walkWindow+10; i++ {
		fv, err := w.Next()
		require.NoError(t, err)
		assert.Equal(t, "USDJPY", fv.Pair)
		assert.True(t, fv.Timestamp.After(last))
		assert.GreaterOrEqual(t, fv.BBUpper, fv.BBLower)
		last = fv.Timestamp
	}
	assert.Len(t, w.Candles(), walkWindow)
}
