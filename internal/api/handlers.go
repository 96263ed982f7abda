package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"forex-signal-bot/internal/common"
	"forex-signal-bot/internal/features"
	"forex-signal-bot/internal/ml"
	"forex-signal-bot/internal/predict"
	"forex-signal-bot/internal/simulate"

	"github.com/shirou/gopsutil/v3/mem"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status       string  `json:"status"`
	Service      string  `json:"service"`
	Version      string  `json:"version"`
	ModelState   string  `json:"modelState"`
	ModelVersion string  `json:"modelVersion,omitempty"`
	FailureRate  float64 `json:"failureRate"`
	Uptime       string  `json:"uptime"`
	Goroutines   int     `json:"goroutines"`
	MemoryUsedMB uint64  `json:"memoryUsedMb,omitempty"`
	MemoryUsed   float64 `json:"memoryUsedPercent,omitempty"`
}

// SimulationResponse pairs a generated input with its prediction.
type SimulationResponse struct {
	Input      features.FeatureVector `json:"input"`
	Prediction predict.Result         `json:"prediction"`
}

// ScenarioResult is one entry of /test/scenarios.
type ScenarioResult struct {
	Scenario string                 `json:"scenario"`
	Expected ml.Label               `json:"expected"`
	Passed   bool                   `json:"passed"`
	Input    features.FeatureVector `json:"input"`
	Result   predict.Result         `json:"result"`
}

// PairSummary is one row of /predict/all.
type PairSummary struct {
	Pair        string `json:"pair"`
	Signal      string `json:"signal"`
	Confidence  string `json:"confidence"`
	ShouldTrade bool   `json:"shouldTrade"`
	RiskLevel   string `json:"riskLevel"`
	Reason      string `json:"reason"`
}

// RetrainResponse is returned by a successful /model/retrain.
type RetrainResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Model     ml.ModelMetadata `json:"model"`
}

// ModelInfoResponse is returned by /model/info.
type ModelInfoResponse struct {
	State    string            `json:"state"`
	Metadata *ml.ModelMetadata `json:"metadata,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     "active",
		Service:    common.ServiceName,
		Version:    common.ServiceVersion,
		ModelState: s.cfg.Models.State().String(),
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}
	if model := s.cfg.Models.Current(); model != nil {
		resp.ModelVersion = model.Metadata.Version
	}
	if s.cfg.Metrics != nil {
		resp.FailureRate = s.cfg.Metrics.FailureRate()
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.MemoryUsedMB = vm.Used / 1024 / 1024
		resp.MemoryUsed = vm.UsedPercent
	} else {
		s.log.Debug().Err(err).Msg("Host memory unavailable")
	}

	status := http.StatusOK
	if s.cfg.Models.State() != ml.Ready {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":            common.ServiceName,
		"version":         common.ServiceVersion,
		"technology":      "Go + random forest",
		"supported_pairs": common.SupportedPairs,
		"endpoints": map[string]string{
			"GET  /api/forex/health":                  "API health",
			"POST /api/forex/predict":                 "Predict with your own data",
			"GET  /api/forex/predict/simulate/{pair}": "Predict with simulation",
			"GET  /api/forex/test/scenarios/{pair}":   "3 scenario test",
			"GET  /api/forex/predict/all":             "Predict for all pairs",
			"POST /api/forex/model/retrain":           "Retrain the model",
			"GET  /api/forex/model/info":              "Live model metadata",
			"GET  /api/forex/stream/{pair}":           "WebSocket stream of simulated predictions",
		},
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var fv features.FeatureVector
	if errs := s.decodeAndValidate(w, r, &fv); errs != nil {
		s.writeValidation(w, errs)
		return
	}

	s.log.Info().Str("pair", fv.Pair).Msg("Prediction request")
	s.writeJSON(w, http.StatusOK, s.cfg.Pipeline.Predict(fv))
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	pair, errs := s.pairParam(r)
	if errs != nil {
		s.writeValidation(w, errs)
		return
	}

	fv := s.cfg.Generator.Simulated(pair)
	s.writeJSON(w, http.StatusOK, SimulationResponse{
		Input:      fv,
		Prediction: s.cfg.Pipeline.Predict(fv),
	})
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	pair, errs := s.pairParam(r)
	if errs != nil {
		s.writeValidation(w, errs)
		return
	}

	resp := make(map[string]ScenarioResult, 3)
	for _, sc := range simulate.Scenarios(pair) {
		result := s.cfg.Pipeline.Predict(sc.Input)
		resp[sc.Key] = ScenarioResult{
			Scenario: sc.Description,
			Expected: sc.Expected,
			Passed:   result.Signal == sc.Expected,
			Input:    sc.Input,
			Result:   result,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredictAll(w http.ResponseWriter, r *http.Request) {
	results := s.cfg.Pipeline.PredictBatch(s.cfg.Generator.Batch(s.cfg.Pairs))

	out := make([]PairSummary, len(results))
	for i, res := range results {
		out[i] = PairSummary{
			Pair:        s.cfg.Pairs[i],
			Signal:      res.Signal.String(),
			Confidence:  strconv.FormatFloat(res.Confidence, 'f', -1, 64) + "%",
			ShouldTrade: res.ShouldTrade,
			RiskLevel:   res.RiskLevel.String(),
			Reason:      res.Reason,
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	s.log.Info().Msg("Retraining model on request")

	meta, err := s.cfg.Models.Retrain()
	if err != nil {
		s.log.Error().Err(err).Msg("Retrain failed, previous model kept")
		s.writeError(w, http.StatusInternalServerError, "retrain failed: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, RetrainResponse{
		Status:    "Model retrained",
		Timestamp: time.Now().Format(predict.TimestampLayout),
		Model:     meta,
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	resp := ModelInfoResponse{State: s.cfg.Models.State().String()}
	model := s.cfg.Models.Current()
	if model == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	meta := model.Metadata
	resp.Metadata = &meta
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) writeValidation(w http.ResponseWriter, errs []ValidationError) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request", Details: errs})
}
