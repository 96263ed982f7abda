package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"forex-signal-bot/internal/common"
	"forex-signal-bot/internal/policy"
	"forex-signal-bot/internal/scheduler"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	HTTPPort        int           `default:"8080"`
	MetricsPort     int           `default:"9090"`
	RequestTimeout  time.Duration `default:"10s"`
	ModelPath       string        `default:"models/forex_model.model"`
	DataPath        string        `default:"data"`
	StoreBackend    string        `default:"file"`
	ForestTrees     int           `default:"100"`
	CVFolds         int           `default:"5"`
	RetrainSchedule string        // cron spec, seconds field optional; empty disables scheduled retrains
	MinConfidence   float64       `default:"65"`
	HighATR         float64       `default:"0.004"`
	MediumATR       float64       `default:"0.0025"`
	StreamInterval  time.Duration `default:"5s"`
	Pairs           []string      `default:"[\"EURUSD\",\"GBPUSD\",\"USDJPY\",\"AUDUSD\"]"`
	LogLevel        string        `default:"info"`
	LogFormat       string        `default:"console"`
}

type ConfigFile struct {
	Server struct {
		HTTPPort       int    `yaml:"httpPort"`
		MetricsPort    int    `yaml:"metricsPort"`
		RequestTimeout string `yaml:"requestTimeout"`
	} `yaml:"server"`

	Model struct {
		Path            string `yaml:"path"`
		DataPath        string `yaml:"dataPath"`
		Backend         string `yaml:"backend"`
		Trees           int    `yaml:"trees"`
		CVFolds         int    `yaml:"cvFolds"`
		RetrainSchedule string `yaml:"retrainSchedule"`
	} `yaml:"model"`

	Policy struct {
		MinConfidence float64 `yaml:"minConfidence"`
		HighATR       float64 `yaml:"highAtr"`
		MediumATR     float64 `yaml:"mediumAtr"`
	} `yaml:"policy"`

	Stream struct {
		Interval string   `yaml:"interval"`
		Pairs    []string `yaml:"pairs"`
	} `yaml:"stream"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load builds Settings from struct defaults, then the YAML file named by
// CONFIG_FILE if any, then environment variables. A .env file in the working
// directory is loaded into the environment first when present.
func Load() (Settings, error) {
	_ = godotenv.Load()

	var settings Settings
	if err := defaults.Set(&settings); err != nil {
		return Settings{}, fmt.Errorf("apply defaults: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		if err := applyYAML(&settings, configPath); err != nil {
			return Settings{}, err
		}
	}

	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

// Thresholds returns the decision policy with configured overrides applied.
func (s *Settings) Thresholds() policy.Thresholds {
	th := policy.DefaultThresholds()
	th.MinConfidence = s.MinConfidence
	th.HighATR = s.HighATR
	th.MediumATR = s.MediumATR
	return th
}

func applyYAML(s *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setInt(&s.HTTPPort, config.Server.HTTPPort)
	setInt(&s.MetricsPort, config.Server.MetricsPort)
	setInt(&s.ForestTrees, config.Model.Trees)
	setInt(&s.CVFolds, config.Model.CVFolds)
	setString(&s.ModelPath, config.Model.Path)
	setString(&s.DataPath, config.Model.DataPath)
	setString(&s.StoreBackend, config.Model.Backend)
	setString(&s.RetrainSchedule, config.Model.RetrainSchedule)
	setFloat(&s.MinConfidence, config.Policy.MinConfidence)
	setFloat(&s.HighATR, config.Policy.HighATR)
	setFloat(&s.MediumATR, config.Policy.MediumATR)
	setString(&s.LogLevel, config.Log.Level)
	setString(&s.LogFormat, config.Log.Format)
	if len(config.Stream.Pairs) > 0 {
		s.Pairs = normalisePairs(config.Stream.Pairs)
	}

	if config.Server.RequestTimeout != "" {
		d, err := time.ParseDuration(config.Server.RequestTimeout)
		if err != nil {
			return fmt.Errorf("server.requestTimeout: %w", err)
		}
		s.RequestTimeout = d
	}
	if config.Stream.Interval != "" {
		d, err := time.ParseDuration(config.Stream.Interval)
		if err != nil {
			return fmt.Errorf("stream.interval: %w", err)
		}
		s.StreamInterval = d
	}
	return nil
}

func applyEnv(s *Settings) error {
	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	collect(envInt(common.EnvHTTPPort, &s.HTTPPort))
	collect(envInt(common.EnvMetricsPort, &s.MetricsPort))
	collect(envInt(common.EnvForestTrees, &s.ForestTrees))
	collect(envInt(common.EnvCVFolds, &s.CVFolds))
	collect(envFloat(common.EnvMinConfidence, &s.MinConfidence))
	collect(envFloat(common.EnvHighATR, &s.HighATR))
	collect(envFloat(common.EnvMediumATR, &s.MediumATR))
	collect(envDuration(common.EnvStreamInterval, &s.StreamInterval))
	collect(envDuration(common.EnvRequestTimeout, &s.RequestTimeout))

	s.ModelPath = getEnvOrDefault(common.EnvModelPath, s.ModelPath)
	s.DataPath = getEnvOrDefault(common.EnvDataPath, s.DataPath)
	s.StoreBackend = getEnvOrDefault(common.EnvStoreBackend, s.StoreBackend)
	s.RetrainSchedule = getEnvOrDefault(common.EnvRetrainSchedule, s.RetrainSchedule)
	s.LogLevel = getEnvOrDefault(common.EnvLogLevel, s.LogLevel)
	s.LogFormat = getEnvOrDefault(common.EnvLogFormat, s.LogFormat)
	if v := os.Getenv(common.EnvPairs); v != "" {
		s.Pairs = normalisePairs(strings.Split(v, ","))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, dst *int) error {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = i
	}
	return nil
}

func envFloat(key string, dst *float64) error {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = f
	}
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func normalisePairs(pairs []string) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validateSettings performs range checks on every configured value
func validateSettings(settings *Settings) error {
	if settings.HTTPPort < common.MinPort || settings.HTTPPort > common.MaxPort {
		return fmt.Errorf("HTTP port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.HTTPPort)
	}
	if settings.MetricsPort < common.MinPort || settings.MetricsPort > common.MaxPort {
		return fmt.Errorf("metrics port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.MetricsPort)
	}
	if settings.MetricsPort == settings.HTTPPort {
		return fmt.Errorf("metrics port and HTTP port must differ, both are %d", settings.HTTPPort)
	}
	if settings.RequestTimeout < time.Second || settings.RequestTimeout > time.Minute {
		return fmt.Errorf("request timeout must be between 1s and 1m, got %v", settings.RequestTimeout)
	}

	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	switch settings.StoreBackend {
	case common.StoreBackendFile:
	case common.StoreBackendBolt:
		if settings.DataPath == "" {
			return fmt.Errorf("data path is required for the bolt store backend")
		}
	default:
		return fmt.Errorf("store backend must be %q or %q, got %q", common.StoreBackendFile, common.StoreBackendBolt, settings.StoreBackend)
	}

	if settings.ForestTrees < common.MinForestTrees || settings.ForestTrees > common.MaxForestTrees {
		return fmt.Errorf("forest trees must be between %d and %d, got %d", common.MinForestTrees, common.MaxForestTrees, settings.ForestTrees)
	}
	// 0 is not reachable after defaults; negative disables cross validation
	if settings.CVFolds > 0 && (settings.CVFolds < common.MinCVFolds || settings.CVFolds > common.MaxCVFolds) {
		return fmt.Errorf("cv folds must be between %d and %d, got %d", common.MinCVFolds, common.MaxCVFolds, settings.CVFolds)
	}
	if settings.RetrainSchedule != "" {
		if _, err := scheduler.SpecParser.Parse(settings.RetrainSchedule); err != nil {
			return fmt.Errorf("invalid retrain schedule %q: %w", settings.RetrainSchedule, err)
		}
	}

	if err := settings.Thresholds().Validate(); err != nil {
		return fmt.Errorf("policy thresholds: %w", err)
	}

	if settings.StreamInterval < common.MinStreamSeconds*time.Second {
		return fmt.Errorf("stream interval must be at least %ds, got %v", common.MinStreamSeconds, settings.StreamInterval)
	}
	if len(settings.Pairs) == 0 {
		return fmt.Errorf("at least one currency pair must be specified")
	}
	for _, p := range settings.Pairs {
		if len(p) != 6 {
			return fmt.Errorf("currency pair %q must be six letters", p)
		}
	}

	switch settings.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", settings.LogFormat)
	}
	return nil
}
