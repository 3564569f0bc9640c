package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// APIConfig is the opaque monitor config for API endpoint checks.
type APIConfig struct {
	Name           string            `json:"name,omitempty"`
	URL            string            `json:"url"`
	Method         string            `json:"method,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           string            `json:"body,omitempty"`
	ExpectedStatus int               `json:"expected_status,omitempty"`
	Assertions     []Assertion       `json:"assertions,omitempty"`
	SkipTLSVerify  bool              `json:"skip_tls_verify,omitempty"`
}

// APIChecker calls an HTTP endpoint with a configurable method and compares
// the response against an expected status code, or against a list of
// declarative assertions when configured.
type APIChecker struct{}

func (c *APIChecker) Type() string { return "api" }

func (c *APIChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var cfg APIConfig
	if err := json.Unmarshal(monitor.Config, &cfg); err != nil {
		return down(fmt.Sprintf("invalid config: %v", err), 0, nil), nil
	}
	if cfg.URL == "" {
		return down("no url configured", 0, nil), nil
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	var body *strings.Reader
	if cfg.Body != "" {
		body = strings.NewReader(cfg.Body)
	} else {
		body = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, body)
	if err != nil {
		return down(fmt.Sprintf("invalid request: %v", err), 0, nil), nil
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	client := httpClient(ctx, cfg.SkipTLSVerify)

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return down(fmt.Sprintf("request failed: %v", err), elapsed, map[string]any{"url": cfg.URL}), nil
	}
	defer resp.Body.Close()

	var respBody string
	if len(cfg.Assertions) > 0 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
		respBody = string(b)
	}

	meta := map[string]any{
		"url":              cfg.URL,
		"status_code":      resp.StatusCode,
		"response_time_ms": elapsed.Milliseconds(),
	}

	// Assertions, when configured, decide the verdict on their own.
	if len(cfg.Assertions) > 0 {
		out := evaluateAssertions(cfg.Assertions, resp.StatusCode, respBody, resp.Header, elapsed)
		if out.pass {
			return &Result{
				Status:         status.Operational,
				ResponseTimeMS: millis(elapsed),
				Message:        fmt.Sprintf("HTTP %d, %d assertions passed", resp.StatusCode, len(cfg.Assertions)),
				Metadata:       meta,
			}, nil
		}
		msg := strings.Join(out.failures, "; ")
		meta["error"] = msg
		st := status.Down
		if out.degraded {
			st = status.Degraded
		}
		return &Result{
			Status:         st,
			ResponseTimeMS: millis(elapsed),
			Message:        msg,
			Metadata:       meta,
		}, nil
	}

	if cfg.ExpectedStatus != 0 {
		if resp.StatusCode != cfg.ExpectedStatus {
			meta["error"] = fmt.Sprintf("expected HTTP %d, got %d", cfg.ExpectedStatus, resp.StatusCode)
			return &Result{
				Status:         status.Down,
				ResponseTimeMS: millis(elapsed),
				Message:        fmt.Sprintf("expected HTTP %d, got %d", cfg.ExpectedStatus, resp.StatusCode),
				Metadata:       meta,
			}, nil
		}
		return &Result{
			Status:         status.Operational,
			ResponseTimeMS: millis(elapsed),
			Message:        fmt.Sprintf("HTTP %d", resp.StatusCode),
			Metadata:       meta,
		}, nil
	}

	result := &Result{
		Status:         StatusFromHTTPCode(resp.StatusCode),
		ResponseTimeMS: millis(elapsed),
		Message:        fmt.Sprintf("HTTP %d", resp.StatusCode),
		Metadata:       meta,
	}
	if result.Status != status.Operational {
		meta["error"] = fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode)
	}
	return result, nil
}
