package common

// Currency pairs
const (
	EURUSDPair = "EURUSD"
	GBPUSDPair = "GBPUSD"
	USDJPYPair = "USDJPY"
	USDCHFPair = "USDCHF"
	AUDUSDPair = "AUDUSD"
)

// SupportedPairs lists the pairs the service advertises in /api/info.
var SupportedPairs = []string{EURUSDPair, GBPUSDPair, USDJPYPair, AUDUSDPair, USDCHFPair}

// DefaultBatchPairs is the set predicted by the "all pairs" endpoint.
var DefaultBatchPairs = []string{EURUSDPair, GBPUSDPair, USDJPYPair, AUDUSDPair}

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvHTTPPort        = "HTTP_PORT"
	EnvMetricsPort     = "METRICS_PORT"
	EnvModelPath       = "MODEL_PATH"
	EnvDataPath        = "DATA_PATH"
	EnvStoreBackend    = "STORE_BACKEND"
	EnvForestTrees     = "FOREST_TREES"
	EnvCVFolds         = "CV_FOLDS"
	EnvMinConfidence   = "MIN_CONFIDENCE"
	EnvHighATR         = "HIGH_ATR"
	EnvMediumATR       = "MEDIUM_ATR"
	EnvRetrainSchedule = "RETRAIN_SCHEDULE"
	EnvStreamInterval  = "STREAM_INTERVAL"
	EnvPairs           = "PAIRS"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
	EnvRequestTimeout  = "REQUEST_TIMEOUT"
)

// Configuration defaults
const (
	DefaultHTTPPort       = 8080
	DefaultMetricsPort    = 9090
	DefaultModelPath      = "models/forex_model.model"
	DefaultDataPath       = "data"
	DefaultStoreBackend   = StoreBackendFile
	DefaultForestTrees    = 100
	DefaultCVFolds        = 5
	DefaultMinConfidence  = 65.0
	DefaultHighATR        = 0.0040
	DefaultMediumATR      = 0.0025
	DefaultStreamInterval = "5s"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultRequestTimeout = "10s"
)

// Model store backends
const (
	StoreBackendFile = "file"
	StoreBackendBolt = "bolt"
)

// Service identity reported by /health and /api/info
const (
	ServiceName    = "Forex AI Bot"
	ServiceVersion = "1.0.0"
)

// Validation constants
const (
	MinPort          = 1024
	MaxPort          = 65535
	MinForestTrees   = 1
	MaxForestTrees   = 1000
	MinCVFolds       = 2
	MaxCVFolds       = 24
	MinStreamSeconds = 1
)
