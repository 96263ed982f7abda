package cfg

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"forex-signal-bot/internal/common"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// clearTestEnv unsets every variable Load reads, restoring them after the test.
func clearTestEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		common.EnvConfigFile, common.EnvHTTPPort, common.EnvMetricsPort, common.EnvModelPath,
		common.EnvDataPath, common.EnvStoreBackend, common.EnvForestTrees, common.EnvCVFolds,
		common.EnvMinConfidence, common.EnvHighATR, common.EnvMediumATR, common.EnvRetrainSchedule,
		common.EnvStreamInterval, common.EnvPairs, common.EnvLogLevel, common.EnvLogFormat,
		common.EnvRequestTimeout,
	}
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// chdir changes the working directory for the duration of the test,
// restoring the original directory on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	clearTestEnv(t)
	chdir(t, t.TempDir()) // keep a developer's .env out of the test

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.HTTPPort != common.DefaultHTTPPort {
		t.Errorf("expected HTTPPort %d, got %d", common.DefaultHTTPPort, settings.HTTPPort)
	}
	if settings.MetricsPort != common.DefaultMetricsPort {
		t.Errorf("expected MetricsPort %d, got %d", common.DefaultMetricsPort, settings.MetricsPort)
	}
	if settings.ModelPath != common.DefaultModelPath {
		t.Errorf("expected ModelPath %s, got %s", common.DefaultModelPath, settings.ModelPath)
	}
	if settings.StoreBackend != common.StoreBackendFile {
		t.Errorf("expected file backend, got %s", settings.StoreBackend)
	}
	if settings.ForestTrees != common.DefaultForestTrees {
		t.Errorf("expected %d trees, got %d", common.DefaultForestTrees, settings.ForestTrees)
	}
	if settings.CVFolds != common.DefaultCVFolds {
		t.Errorf("expected %d folds, got %d", common.DefaultCVFolds, settings.CVFolds)
	}
	if settings.MinConfidence != common.DefaultMinConfidence {
		t.Errorf("expected MinConfidence %f, got %f", common.DefaultMinConfidence, settings.MinConfidence)
	}
	if settings.HighATR != common.DefaultHighATR || settings.MediumATR != common.DefaultMediumATR {
		t.Errorf("unexpected ATR defaults %f/%f", settings.HighATR, settings.MediumATR)
	}
	if settings.StreamInterval != 5*time.Second {
		t.Errorf("expected StreamInterval 5s, got %v", settings.StreamInterval)
	}
	if strings.Join(settings.Pairs, ",") != strings.Join(common.DefaultBatchPairs, ",") {
		t.Errorf("expected default pairs %v, got %v", common.DefaultBatchPairs, settings.Pairs)
	}
	if settings.RetrainSchedule != "" {
		t.Errorf("expected scheduled retrains disabled by default, got %q", settings.RetrainSchedule)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name: "custom ports and policy",
			envVars: map[string]string{
				common.EnvHTTPPort:      "8181",
				common.EnvMetricsPort:   "9191",
				common.EnvMinConfidence: "70",
				common.EnvHighATR:       "0.005",
				common.EnvPairs:         "eurusd, usdchf ,",
				common.EnvStoreBackend:  "bolt",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.HTTPPort != 8181 || settings.MetricsPort != 9191 {
					t.Errorf("unexpected ports %d/%d", settings.HTTPPort, settings.MetricsPort)
				}
				th := settings.Thresholds()
				if th.MinConfidence != 70 || th.HighATR != 0.005 {
					t.Errorf("thresholds not applied: %+v", th)
				}
				if th.RSIOverboughtExtreme != 80 {
					t.Errorf("expected untouched RSI extreme 80, got %f", th.RSIOverboughtExtreme)
				}
				if strings.Join(settings.Pairs, ",") != "EURUSD,USDCHF" {
					t.Errorf("expected normalised pairs, got %v", settings.Pairs)
				}
				if settings.StoreBackend != common.StoreBackendBolt {
					t.Errorf("expected bolt backend, got %s", settings.StoreBackend)
				}
			},
		},
		{
			name:    "unparseable integer",
			envVars: map[string]string{common.EnvForestTrees: "many"},
			wantErr: true,
		},
		{
			name:    "unparseable duration",
			envVars: map[string]string{common.EnvStreamInterval: "soon"},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			envVars: map[string]string{common.EnvStoreBackend: "s3"},
			wantErr: true,
		},
		{
			name:    "bad cron schedule",
			envVars: map[string]string{common.EnvRetrainSchedule: "every tuesday"},
			wantErr: true,
		},
		{
			name:    "valid cron schedule",
			envVars: map[string]string{common.EnvRetrainSchedule: "0 0 */6 * * *"},
			validate: func(t *testing.T, settings Settings) {
				if settings.RetrainSchedule != "0 0 */6 * * *" {
					t.Errorf("expected schedule to be kept, got %q", settings.RetrainSchedule)
				}
			},
		},
		{
			name:    "same port twice",
			envVars: map[string]string{common.EnvHTTPPort: "9090"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			chdir(t, t.TempDir())
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := Load()
			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoad_YAML(t *testing.T) {
	yamlContent := `
server:
  httpPort: 8088
  metricsPort: 9099
  requestTimeout: "30s"

model:
  path: "/var/lib/forex/model.bin"
  backend: "file"
  trees: 250
  cvFolds: 10
  retrainSchedule: "@daily"

policy:
  minConfidence: 72.5

stream:
  interval: "2s"
  pairs: ["usdjpy"]

log:
  level: "debug"
  format: "json"
`
	clearTestEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(common.EnvConfigFile, path)
	t.Setenv(common.EnvForestTrees, "300") // env wins over file

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.HTTPPort != 8088 || settings.MetricsPort != 9099 {
		t.Errorf("unexpected ports %d/%d", settings.HTTPPort, settings.MetricsPort)
	}
	if settings.RequestTimeout != 30*time.Second {
		t.Errorf("expected RequestTimeout 30s, got %v", settings.RequestTimeout)
	}
	if settings.ModelPath != "/var/lib/forex/model.bin" {
		t.Errorf("unexpected ModelPath %s", settings.ModelPath)
	}
	if settings.ForestTrees != 300 {
		t.Errorf("expected env override 300 trees, got %d", settings.ForestTrees)
	}
	if settings.CVFolds != 10 {
		t.Errorf("expected 10 folds, got %d", settings.CVFolds)
	}
	if settings.MinConfidence != 72.5 {
		t.Errorf("expected MinConfidence 72.5, got %f", settings.MinConfidence)
	}
	if settings.MediumATR != common.DefaultMediumATR {
		t.Errorf("expected default MediumATR, got %f", settings.MediumATR)
	}
	if settings.StreamInterval != 2*time.Second {
		t.Errorf("expected StreamInterval 2s, got %v", settings.StreamInterval)
	}
	if len(settings.Pairs) != 1 || settings.Pairs[0] != "USDJPY" {
		t.Errorf("expected [USDJPY], got %v", settings.Pairs)
	}
	if settings.LogFormat != "json" || settings.LogLevel != "debug" {
		t.Errorf("unexpected log settings %s/%s", settings.LogLevel, settings.LogFormat)
	}
}

func TestLoad_YAMLErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "server: [unclosed"},
		{"bad duration", "stream:\n  interval: \"fast\"\n"},
		{"out of range", "model:\n  trees: 5000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			dir := t.TempDir()
			chdir(t, dir)
			path := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			t.Setenv(common.EnvConfigFile, path)

			if _, err := Load(); err == nil {
				t.Error("expected error but got none")
			}
		})
	}

	clearTestEnv(t)
	t.Setenv(common.EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearTestEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HTTP_PORT=8765\n"), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	// godotenv sets the variable in the process; make sure it is cleaned up
	t.Cleanup(func() { os.Unsetenv(common.EnvHTTPPort) })

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.HTTPPort != 8765 {
		t.Errorf("expected HTTPPort from .env 8765, got %d", settings.HTTPPort)
	}
}

func TestSetupLoggingTo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	original := log.Logger
	defer func() { log.Logger = original }()

	var buf bytes.Buffer
	SetupLoggingTo(&buf, "warn", "json")
	log.Info().Msg("hidden")
	log.Warn().Str("pair", "EURUSD").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, `"pair":"EURUSD"`) {
		t.Errorf("expected structured json output, got %q", out)
	}

	buf.Reset()
	SetupLoggingTo(&buf, "nonsense", "console")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected fallback to info level, got %s", zerolog.GlobalLevel())
	}
}
