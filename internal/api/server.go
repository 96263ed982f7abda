// Package api serves the prediction engine over HTTP and WebSocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"forex-signal-bot/internal/common"
	"forex-signal-bot/internal/metrics"
	"forex-signal-bot/internal/ml"
	"forex-signal-bot/internal/predict"
	"forex-signal-bot/internal/simulate"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Models is the part of the model manager the API drives.
type Models interface {
	Current() *ml.Model
	State() ml.State
	Retrain() (ml.ModelMetadata, error)
}

// Metrics receives request and stream instrumentation.
type Metrics interface {
	HTTPRequest(route, method string, status int, took time.Duration)
	StreamClients() metrics.MetricsGauge
	StreamMessages() metrics.MetricsCounter
	FailureRate() float64
}

// Config holds server dependencies and limits.
type Config struct {
	Port           int
	RequestTimeout time.Duration
	StreamInterval time.Duration
	// Pairs are predicted by /predict/all. Defaults to common.DefaultBatchPairs.
	Pairs     []string
	Models    Models
	Pipeline  *predict.Pipeline
	Generator *simulate.Generator
	Metrics   Metrics
}

// Server is the HTTP front end.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	cfg      Config
	validate *validator.Validate
	upgrader websocket.Upgrader
	started  time.Time
	quit     chan struct{}
	stopOnce sync.Once
}

// New builds the router. Call Start to listen.
func New(cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = 5 * time.Second
	}
	if len(cfg.Pairs) == 0 {
		cfg.Pairs = common.DefaultBatchPairs
	}
	if cfg.Generator == nil {
		cfg.Generator = simulate.NewGenerator(0)
	}

	s := &Server{
		router:   chi.NewRouter(),
		log:      log.With().Str("component", "api").Logger(),
		cfg:      cfg,
		validate: newValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		started: time.Now(),
		quit:    make(chan struct{}),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/api/info", s.handleInfo)

	s.router.Route("/api/forex", func(r chi.Router) {
		// The stream outlives any request timeout.
		r.Get("/stream/{pair}", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))

			r.Get("/health", s.handleHealth)
			r.Get("/info", s.handleInfo)
			r.Post("/predict", s.handlePredict)
			r.Get("/predict/simulate/{pair}", s.handleSimulate)
			r.Get("/predict/all", s.handlePredictAll)
			r.Get("/test/scenarios/{pair}", s.handleScenarios)
			r.Post("/model/retrain", s.handleRetrain)
			r.Get("/model/info", s.handleModelInfo)
		})
	})
}

// Start blocks serving requests until Shutdown.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server. Open streams are sent a close
// frame; http.Server does not track hijacked connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.stopOnce.Do(func() { close(s.quit) })
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		took := time.Since(start)

		if s.cfg.Metrics != nil {
			s.cfg.Metrics.HTTPRequest(route, r.Method, status, took)
		}

		s.log.Info().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", took).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
