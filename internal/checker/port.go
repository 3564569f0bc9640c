package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// PortConfig is the opaque monitor config for TCP port checks.
type PortConfig struct {
	Name string `json:"name,omitempty"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

// PortChecker verifies a TCP connection can be established.
type PortChecker struct{}

func (c *PortChecker) Type() string { return "port" }

func (c *PortChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var cfg PortConfig
	if err := json.Unmarshal(monitor.Config, &cfg); err != nil {
		return down(fmt.Sprintf("invalid config: %v", err), 0, nil), nil
	}
	if cfg.Host == "" || cfg.Port <= 0 || cfg.Port > 65535 {
		return down("invalid host or port", 0, nil), nil
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	dialer := net.Dialer{Timeout: timeoutFrom(ctx, 10*time.Second)}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	elapsed := time.Since(start)
	if err != nil {
		return down(fmt.Sprintf("connection failed: %v", err), elapsed, map[string]any{
			"host": cfg.Host,
			"port": cfg.Port,
		}), nil
	}
	conn.Close()

	return &Result{
		Status:         status.Operational,
		ResponseTimeMS: millis(elapsed),
		Message:        fmt.Sprintf("%s reachable", addr),
		Metadata: map[string]any{
			"host":             cfg.Host,
			"port":             cfg.Port,
			"response_time_ms": elapsed.Milliseconds(),
		},
	}, nil
}
