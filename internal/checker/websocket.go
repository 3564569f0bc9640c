package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// WebSocketConfig is the opaque monitor config for websocket checks.
type WebSocketConfig struct {
	Name    string            `json:"name,omitempty"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// WebSocketChecker dials a websocket endpoint and performs a ping round trip.
type WebSocketChecker struct{}

func (c *WebSocketChecker) Type() string { return "websocket" }

func (c *WebSocketChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var cfg WebSocketConfig
	if err := json.Unmarshal(monitor.Config, &cfg); err != nil {
		return down(fmt.Sprintf("invalid config: %v", err), 0, nil), nil
	}
	if cfg.URL == "" {
		return down("no url configured", 0, nil), nil
	}

	opts := &websocket.DialOptions{}
	if len(cfg.Headers) > 0 {
		header := http.Header{}
		for k, v := range cfg.Headers {
			header.Set(k, v)
		}
		opts.HTTPHeader = header
	}

	start := time.Now()
	conn, _, err := websocket.Dial(ctx, cfg.URL, opts)
	elapsed := time.Since(start)
	if err != nil {
		return down(fmt.Sprintf("websocket dial failed: %v", err), elapsed,
			map[string]any{"url": cfg.URL}), nil
	}
	defer conn.CloseNow()

	if err := conn.Ping(ctx); err != nil {
		return down(fmt.Sprintf("websocket ping failed: %v", err), time.Since(start),
			map[string]any{"url": cfg.URL}), nil
	}

	conn.Close(websocket.StatusNormalClosure, "check complete")

	elapsed = time.Since(start)
	return &Result{
		Status:         status.Operational,
		ResponseTimeMS: millis(elapsed),
		Message:        "websocket connection successful",
		Metadata: map[string]any{
			"url":              cfg.URL,
			"response_time_ms": elapsed.Milliseconds(),
		},
	}, nil
}
