package cfg

import (
	"strings"
	"testing"
	"time"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		HTTPPort:       8080,
		MetricsPort:    9090,
		RequestTimeout: 10 * time.Second,
		ModelPath:      "models/forex_model.model",
		DataPath:       "data",
		StoreBackend:   "file",
		ForestTrees:    100,
		CVFolds:        5,
		MinConfidence:  65,
		HighATR:        0.004,
		MediumATR:      0.0025,
		StreamInterval: 5 * time.Second,
		Pairs:          []string{"EURUSD", "GBPUSD"},
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	if err := validateSettings(createValidSettings()); err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"http port too low", func(s *Settings) { s.HTTPPort = 80 }, "HTTP port"},
		{"metrics port too high", func(s *Settings) { s.MetricsPort = 70000 }, "metrics port"},
		{"ports collide", func(s *Settings) { s.MetricsPort = s.HTTPPort }, "must differ"},
		{"timeout too short", func(s *Settings) { s.RequestTimeout = 100 * time.Millisecond }, "request timeout"},
		{"timeout too long", func(s *Settings) { s.RequestTimeout = 2 * time.Minute }, "request timeout"},
		{"empty model path", func(s *Settings) { s.ModelPath = "" }, "model path"},
		{"unknown backend", func(s *Settings) { s.StoreBackend = "redis" }, "store backend"},
		{"bolt without data path", func(s *Settings) { s.StoreBackend = "bolt"; s.DataPath = "" }, "data path"},
		{"zero trees", func(s *Settings) { s.ForestTrees = 0 }, "forest trees"},
		{"too many trees", func(s *Settings) { s.ForestTrees = 1001 }, "forest trees"},
		{"one fold", func(s *Settings) { s.CVFolds = 1 }, "cv folds"},
		{"more folds than samples", func(s *Settings) { s.CVFolds = 25 }, "cv folds"},
		{"bad schedule", func(s *Settings) { s.RetrainSchedule = "* * *" }, "retrain schedule"},
		{"confidence above 100", func(s *Settings) { s.MinConfidence = 120 }, "policy thresholds"},
		{"atr thresholds inverted", func(s *Settings) { s.MediumATR = 0.01 }, "policy thresholds"},
		{"stream too fast", func(s *Settings) { s.StreamInterval = 10 * time.Millisecond }, "stream interval"},
		{"no pairs", func(s *Settings) { s.Pairs = nil }, "currency pair"},
		{"malformed pair", func(s *Settings) { s.Pairs = []string{"EUR/USD"} }, "six letters"},
		{"unknown log format", func(s *Settings) { s.LogFormat = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(settings)

			err := validateSettings(settings)
			if err == nil {
				t.Fatalf("expected error containing %q, got none", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSettings_Accepts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Settings)
	}{
		{"cross validation disabled", func(s *Settings) { s.CVFolds = -1 }},
		{"bolt backend", func(s *Settings) { s.StoreBackend = "bolt" }},
		{"six-field cron", func(s *Settings) { s.RetrainSchedule = "30 0 3 * * *" }},
		{"five-field cron", func(s *Settings) { s.RetrainSchedule = "0 3 * * *" }},
		{"descriptor cron", func(s *Settings) { s.RetrainSchedule = "@every 6h" }},
		{"json logs", func(s *Settings) { s.LogFormat = "json" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(settings)
			if err := validateSettings(settings); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
