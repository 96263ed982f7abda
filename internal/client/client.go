// Package client talks to a running forexbot over REST and WebSocket.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"forex-signal-bot/internal/api"
	"forex-signal-bot/internal/features"
	"forex-signal-bot/internal/predict"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

const basePath = "/api/forex"

// StatusError is a non-2xx reply from the server.
type StatusError struct {
	Code    int
	Message string
	Details []api.ValidationError
}

func (e *StatusError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("forexbot: %d %s: %s", e.Code, e.Message, e.Details[0].Message)
	}
	return fmt.Sprintf("forexbot: %d %s", e.Code, e.Message)
}

type errorBody struct {
	Error   string                `json:"error"`
	Details []api.ValidationError `json:"details"`
}

type Client struct {
	baseURL    string
	rest       *resty.Client
	dialer     *websocket.Dialer
	minBackoff time.Duration
	maxBackoff time.Duration
}

type Option func(*Client)

// WithBackoff sets the stream reconnect delay bounds.
func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		c.minBackoff = min
		c.maxBackoff = max
	}
}

// New creates a client for baseURL, e.g. http://localhost:8080.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	baseURL = strings.TrimRight(baseURL, "/")
	r.SetBaseURL(baseURL)
	r.SetHeader("Accept", "application/json")

	c := &Client{
		baseURL:    baseURL,
		rest:       r,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health returns the health report. A degraded server answers 503; the
// report is still returned alongside the StatusError.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&out).
		Get(basePath + "/health")
	if err != nil {
		return out, fmt.Errorf("health: %w", err)
	}
	if resp.IsError() {
		return out, &StatusError{Code: resp.StatusCode(), Message: out.Status}
	}
	return out, nil
}

func (c *Client) Info(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	return out, c.do(ctx, http.MethodGet, basePath+"/info", nil, &out)
}

// Predict scores a caller-supplied feature vector.
func (c *Client) Predict(ctx context.Context, fv features.FeatureVector) (predict.Result, error) {
	var out predict.Result
	return out, c.do(ctx, http.MethodPost, basePath+"/predict", fv, &out)
}

// Simulate asks the server to generate and score a snapshot for pair.
func (c *Client) Simulate(ctx context.Context, pair string) (api.SimulationResponse, error) {
	var out api.SimulationResponse
	return out, c.do(ctx, http.MethodGet, basePath+"/predict/simulate/"+pair, nil, &out)
}

func (c *Client) Scenarios(ctx context.Context, pair string) (map[string]api.ScenarioResult, error) {
	var out map[string]api.ScenarioResult
	return out, c.do(ctx, http.MethodGet, basePath+"/test/scenarios/"+pair, nil, &out)
}

func (c *Client) PredictAll(ctx context.Context) ([]api.PairSummary, error) {
	var out []api.PairSummary
	return out, c.do(ctx, http.MethodGet, basePath+"/predict/all", nil, &out)
}

func (c *Client) Retrain(ctx context.Context) (api.RetrainResponse, error) {
	var out api.RetrainResponse
	return out, c.do(ctx, http.MethodPost, basePath+"/model/retrain", nil, &out)
}

func (c *Client) ModelInfo(ctx context.Context) (api.ModelInfoResponse, error) {
	var out api.ModelInfoResponse
	return out, c.do(ctx, http.MethodGet, basePath+"/model/info", nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	apiErr := &errorBody{}
	req := c.rest.R().
		SetContext(ctx).
		SetResult(out).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return &StatusError{Code: resp.StatusCode(), Message: msg, Details: apiErr.Details}
	}
	return nil
}
