package scheduler

import (
	"errors"
	"time"

	"forex-signal-bot/internal/ml"
)

// Retrainer is the part of the model manager the retrain job needs.
type Retrainer interface {
	Retrain() (ml.ModelMetadata, error)
}

// Counter is incremented once per run.
type Counter interface {
	Inc()
}

// RetrainJob refits the model from the catalogue.
type RetrainJob struct {
	models Retrainer
	runs   Counter
}

// NewRetrainJob creates the job. runs may be nil.
func NewRetrainJob(models Retrainer, runs Counter) *RetrainJob {
	return &RetrainJob{models: models, runs: runs}
}

func (j *RetrainJob) Name() string { return "model_retrain" }

func (j *RetrainJob) Run() error {
	if j.runs != nil {
		j.runs.Inc()
	}
	_, err := j.models.Retrain()
	return err
}

// ModelSource exposes the live model.
type ModelSource interface {
	Current() *ml.Model
}

// Gauge receives the model age in seconds.
type Gauge interface {
	Set(float64)
}

// ModelAgeJob refreshes the model age gauge.
type ModelAgeJob struct {
	models ModelSource
	age    Gauge
	now    func() time.Time
}

func NewModelAgeJob(models ModelSource, age Gauge) *ModelAgeJob {
	return &ModelAgeJob{models: models, age: age, now: time.Now}
}

func (j *ModelAgeJob) Name() string { return "model_age" }

func (j *ModelAgeJob) Run() error {
	model := j.models.Current()
	if model == nil {
		return errors.New("no live model")
	}
	j.age.Set(j.now().Sub(model.Metadata.TrainedAt).Seconds())
	return nil
}
