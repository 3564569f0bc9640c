package checker

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

const maxBodyRead = 1 << 20 // 1MB

// WebsiteConfig is the opaque monitor config for website checks.
type WebsiteConfig struct {
	Name          string `json:"name,omitempty"`
	URL           string `json:"url"`
	Keyword       string `json:"keyword,omitempty"`
	SkipTLSVerify bool   `json:"skip_tls_verify,omitempty"`
}

// WebsiteChecker performs a plain GET and maps the HTTP status code:
// 2xx operational, 3xx degraded, anything else (or a transport error) down.
type WebsiteChecker struct{}

func (c *WebsiteChecker) Type() string { return "website" }

func (c *WebsiteChecker) Check(ctx context.Context, monitor *storage.Monitor) (*Result, error) {
	var cfg WebsiteConfig
	if err := json.Unmarshal(monitor.Config, &cfg); err != nil {
		return down(fmt.Sprintf("invalid config: %v", err), 0, nil), nil
	}
	if cfg.URL == "" {
		return down("no url configured", 0, nil), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return down(fmt.Sprintf("invalid request: %v", err), 0, nil), nil
	}

	client := httpClient(ctx, cfg.SkipTLSVerify)

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return down(fmt.Sprintf("request failed: %v", err), elapsed, map[string]any{"url": cfg.URL}), nil
	}
	defer resp.Body.Close()

	meta := map[string]any{
		"url":              cfg.URL,
		"status_code":      resp.StatusCode,
		"response_time_ms": elapsed.Milliseconds(),
	}

	if cfg.Keyword != "" {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
		if !strings.Contains(string(body), cfg.Keyword) {
			meta["error"] = "keyword not found in response body"
			return &Result{
				Status:         status.Down,
				ResponseTimeMS: millis(elapsed),
				Message:        fmt.Sprintf("keyword %q not found", cfg.Keyword),
				Metadata:       meta,
			}, nil
		}
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

// StatusFromHTTPCode maps an HTTP status code to a monitor status.
func StatusFromHTTPCode(code int) status.Status {
	switch {
	case code >= 200 && code < 300:
		return status.Operational
	case code >= 300 && code < 400:
		return status.Degraded
	default:
		return status.Down
	}
}

func httpClient(ctx context.Context, skipTLSVerify bool) *http.Client {
	timeout := timeoutFrom(ctx, 10*time.Second)
	return &http.Client{
		Transport: &http.Transport{
			DialContext:       (&net.Dialer{Timeout: timeout}).DialContext,
			TLSClientConfig:   &tls.Config{InsecureSkipVerify: skipTLSVerify},
			DisableKeepAlives: true,
		},
		Timeout: timeout,
	}
}
