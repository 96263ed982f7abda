package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"forex-signal-bot/internal/api"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const streamReadWait = 90 * time.Second

// Stream subscribes to live predictions for pair and calls handle for each
// one until ctx is done. Dropped connections are retried with exponential
// backoff; the delay resets after a connection delivers a message.
func (c *Client) Stream(ctx context.Context, pair string, handle func(api.SimulationResponse)) error {
	endpoint, err := c.streamURL(pair)
	if err != nil {
		return err
	}

	backoff := c.minBackoff
	for {
		delivered, err := c.streamOnce(ctx, endpoint, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if delivered {
			backoff = c.minBackoff
		}
		log.Warn().Err(err).Dur("backoff", backoff).Str("pair", pair).Msg("Stream dropped, reconnecting")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

func (c *Client) streamOnce(ctx context.Context, endpoint string, handle func(api.SimulationResponse)) (bool, error) {
	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return false, fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	log.Info().Str("url", endpoint).Msg("Stream connected")

	// Unblock ReadJSON when the caller cancels.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			conn.Close()
		case <-stop:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(streamReadWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(streamReadWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	delivered := false
	for {
		var msg api.SimulationResponse
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return delivered, fmt.Errorf("closed by server: %w", err)
			}
			return delivered, fmt.Errorf("read message failed: %w", err)
		}
		delivered = true
		conn.SetReadDeadline(time.Now().Add(streamReadWait))
		handle(msg)
	}
}

func (c *Client) streamURL(pair string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + basePath + "/stream/" + strings.ToUpper(pair)
	return u.String(), nil
}
