package ml

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultCVFolds is the number of folds used when none is configured.
const DefaultCVFolds = 5

// Evaluation summarises a k-fold cross validation run.
type Evaluation struct {
	Folds      int     `json:"folds"`
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Accuracy   float64 `json:"accuracy"` // percent
	Kappa      float64 `json:"kappa"`
	FoldMean   float64 `json:"foldMean"`
	FoldStdDev float64 `json:"foldStdDev"`

	// Confusion is indexed [actual][predicted].
	Confusion *mat.Dense `json:"-"`
}

// ConfusionRows returns the confusion matrix as plain rows.
func (e Evaluation) ConfusionRows() [][]float64 {
	if e.Confusion == nil {
		return nil
	}
	r, c := e.Confusion.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		rows[i] = make([]float64, c)
		mat.Row(rows[i], i, e.Confusion)
	}
	return rows
}

// CrossValidate runs stratified k-fold cross validation. Each fold is fitted
// on a fresh classifier from factory; the shuffle is driven by seed.
func CrossValidate(factory func() Classifier, samples []TrainingSample, folds int, seed int64) (Evaluation, error) {
	if factory == nil {
		return Evaluation{}, errors.New("nil classifier factory")
	}
	if err := validateSamples(samples); err != nil {
		return Evaluation{}, err
	}
	if folds < 2 || folds > len(samples) {
		return Evaluation{}, fmt.Errorf("folds must be between 2 and %d, got %d", len(samples), folds)
	}

	assignment := stratify(samples, folds, seed)
	confusion := mat.NewDense(NumLabels, NumLabels, nil)
	foldAcc := make([]float64, 0, folds)

	for k := 0; k < folds; k++ {
		var train, test []TrainingSample
		for i, s := range samples {
			if assignment[i] == k {
				test = append(test, s)
			} else {
				train = append(train, s)
			}
		}
		if len(test) == 0 {
			continue
		}

		c := factory()
		if err := c.Fit(train); err != nil {
			return Evaluation{}, fmt.Errorf("fold %d: %w", k, err)
		}

		correct := 0
		for _, s := range test {
			predicted, _, err := Classify(c, s.Features)
			if err != nil {
				return Evaluation{}, fmt.Errorf("fold %d: %w", k, err)
			}
			confusion.Set(int(s.Label), int(predicted), confusion.At(int(s.Label), int(predicted))+1)
			if predicted == s.Label {
				correct++
			}
		}
		foldAcc = append(foldAcc, 100*float64(correct)/float64(len(test)))
	}

	eval := Evaluation{Folds: folds, Confusion: confusion}
	eval.Total = len(samples)
	eval.Correct = int(mat.Trace(confusion))
	eval.Accuracy = 100 * float64(eval.Correct) / float64(eval.Total)
	eval.Kappa = cohensKappa(confusion)
	eval.FoldMean, eval.FoldStdDev = stat.MeanStdDev(foldAcc, nil)
	return eval, nil
}

// stratify deals the samples of each label round-robin across folds after a
// seeded shuffle, so every fold sees every label when counts allow.
func stratify(samples []TrainingSample, folds int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	assignment := make([]int, len(samples))

	next := 0
	for _, l := range Labels {
		var idx []int
		for i, s := range samples {
			if s.Label == l {
				idx = append(idx, i)
			}
		}
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		for _, i := range idx {
			assignment[i] = next % folds
			next++
		}
	}
	return assignment
}

// cohensKappa measures agreement beyond chance for a square confusion matrix.
func cohensKappa(confusion *mat.Dense) float64 {
	n := mat.Sum(confusion)
	if n == 0 {
		return 0
	}
	observed := mat.Trace(confusion) / n

	r, _ := confusion.Dims()
	var expected float64
	for i := 0; i < r; i++ {
		rowSum := mat.Sum(confusion.RowView(i))
		colSum := mat.Sum(confusion.ColView(i))
		expected += (rowSum / n) * (colSum / n)
	}
	if expected == 1 {
		return 1
	}
	return (observed - expected) / (1 - expected)
}
