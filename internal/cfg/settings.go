package cfg

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging configures the global zerolog logger. Unknown levels fall
// back to info; "json" selects structured output, anything else the console writer.
func SetupLogging(level, format string) {
	SetupLoggingTo(os.Stderr, level, format)
}

// SetupLoggingTo is SetupLogging with an explicit destination.
func SetupLoggingTo(w io.Writer, level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if format == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly})
}

// LogSummary writes the effective configuration at info level.
func (s *Settings) LogSummary() {
	log.Info().
		Int("http_port", s.HTTPPort).
		Int("metrics_port", s.MetricsPort).
		Str("store", s.StoreBackend).
		Str("model_path", s.ModelPath).
		Int("trees", s.ForestTrees).
		Int("cv_folds", s.CVFolds).
		Str("retrain_schedule", s.RetrainSchedule).
		Float64("min_confidence", s.MinConfidence).
		Strs("pairs", s.Pairs).
		Dur("stream_interval", s.StreamInterval).
		Msg("Configuration loaded")
}
