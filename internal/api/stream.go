package api

import (
	"context"
	"net/http"
	"time"

	"forex-signal-bot/internal/features"
	"forex-signal-bot/internal/simulate"

	"github.com/gorilla/websocket"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = streamPongWait * 9 / 10
)

// handleStream upgrades to a WebSocket and pushes one SimulationResponse per
// StreamInterval, driven by a random-walk series for the pair. Client
// messages are read and discarded so that close frames and pongs are seen.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	pair, errs := s.pairParam(r)
	if errs != nil {
		s.writeValidation(w, errs)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.log.Warn().Err(err).Str("pair", pair).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if s.cfg.Metrics != nil {
		clients := s.cfg.Metrics.StreamClients()
		clients.Add(1)
		defer clients.Add(-1)
	}

	log := s.log.With().Str("pair", pair).Str("remote", r.RemoteAddr).Logger()
	log.Info().Dur("interval", s.cfg.StreamInterval).Msg("Stream client connected")
	defer log.Info().Msg("Stream client disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(1024)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Msg("Stream read failed")
				}
				return
			}
		}
	}()

	walk := simulate.NewWalk(pair, s.cfg.StreamInterval, 0)
	send := func() error {
		fv, err := walk.Next()
		if err != nil {
			log.Debug().Err(err).Msg("Walk indicators invalid, using simulated snapshot")
			fv = s.cfg.Generator.Simulated(pair)
		}
		return s.pushPrediction(conn, fv)
	}

	if err := send(); err != nil {
		log.Debug().Err(err).Msg("Stream write failed")
		return
	}

	ticker := time.NewTicker(s.cfg.StreamInterval)
	defer ticker.Stop()
	pinger := time.NewTicker(streamPingEvery)
	defer pinger.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			deadline := time.Now().Add(streamWriteWait)
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
			return
		case <-ticker.C:
			if err := send(); err != nil {
				log.Debug().Err(err).Msg("Stream write failed")
				return
			}
		case <-pinger.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) pushPrediction(conn *websocket.Conn, fv features.FeatureVector) error {
	msg := SimulationResponse{Input: fv, Prediction: s.cfg.Pipeline.Predict(fv)}

	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(msg); err != nil {
		return err
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.StreamMessages().Inc()
	}
	return nil
}
