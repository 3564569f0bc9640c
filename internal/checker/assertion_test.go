package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
)

func TestEvaluateAssertions(t *testing.T) {
	body := `{"status":"ok","data":{"count":42},"items":[{"id":1},{"id":2}]}`
	header := http.Header{"Content-Type": []string{"application/json"}}

	tests := []struct {
		name       string
		assertions []Assertion
		wantPass   bool
	}{
		{
			name:       "status code eq passes",
			assertions: []Assertion{{Type: "status_code", Operator: "eq", Value: "200"}},
			wantPass:   true,
		},
		{
			name:       "status code eq fails",
			assertions: []Assertion{{Type: "status_code", Operator: "eq", Value: "201"}},
			wantPass:   false,
		},
		{
			name:       "status code lt",
			assertions: []Assertion{{Type: "status_code", Operator: "lt", Value: "400"}},
			wantPass:   true,
		},
		{
			name:       "body contains",
			assertions: []Assertion{{Type: "body_contains", Value: `"status":"ok"`}},
			wantPass:   true,
		},
		{
			name:       "body not contains",
			assertions: []Assertion{{Type: "body_contains", Operator: "not_contains", Value: "error"}},
			wantPass:   true,
		},
		{
			name:       "body regex",
			assertions: []Assertion{{Type: "body_regex", Value: `"count":\d+`}},
			wantPass:   true,
		},
		{
			name:       "body regex invalid pattern",
			assertions: []Assertion{{Type: "body_regex", Value: `[`}},
			wantPass:   false,
		},
		{
			name:       "json path nested value",
			assertions: []Assertion{{Type: "json_path", Target: "data.count", Operator: "eq", Value: "42"}},
			wantPass:   true,
		},
		{
			name:       "json path array index",
			assertions: []Assertion{{Type: "json_path", Target: "items[1].id", Operator: "eq", Value: "2"}},
			wantPass:   true,
		},
		{
			name:       "json path numeric comparison",
			assertions: []Assertion{{Type: "json_path", Target: "data.count", Operator: "gt", Value: "40"}},
			wantPass:   true,
		},
		{
			name:       "json path exists",
			assertions: []Assertion{{Type: "json_path", Target: "status", Operator: "exists"}},
			wantPass:   true,
		},
		{
			name:       "json path missing key",
			assertions: []Assertion{{Type: "json_path", Target: "missing", Operator: "exists"}},
			wantPass:   false,
		},
		{
			name:       "header eq",
			assertions: []Assertion{{Type: "header", Target: "Content-Type", Operator: "contains", Value: "json"}},
			wantPass:   true,
		},
		{
			name:       "header missing",
			assertions: []Assertion{{Type: "header", Target: "X-Missing", Operator: "exists"}},
			wantPass:   false,
		},
		{
			name:       "response time lt",
			assertions: []Assertion{{Type: "response_time", Operator: "lt", Value: "5000"}},
			wantPass:   true,
		},
		{
			name:       "response time too slow",
			assertions: []Assertion{{Type: "response_time", Operator: "lt", Value: "10"}},
			wantPass:   false,
		},
		{
			name:       "unknown type fails",
			assertions: []Assertion{{Type: "checksum", Value: "abc"}},
			wantPass:   false,
		},
		{
			name: "all must pass",
			assertions: []Assertion{
				{Type: "status_code", Operator: "eq", Value: "200"},
				{Type: "body_contains", Value: "nope"},
			},
			wantPass: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := evaluateAssertions(tt.assertions, 200, body, header, 100*time.Millisecond)
			if out.pass != tt.wantPass {
				t.Fatalf("pass = %v, want %v (failures: %v)", out.pass, tt.wantPass, out.failures)
			}
			if !out.pass && len(out.failures) == 0 {
				t.Fatal("expected failure messages")
			}
		})
	}
}

func TestEvaluateAssertionsDegraded(t *testing.T) {
	// A failing assertion marked degraded downgrades the verdict; mixing in
	// a hard failure keeps it down.
	soft := []Assertion{{Type: "response_time", Operator: "lt", Value: "10", Degraded: true}}
	out := evaluateAssertions(soft, 200, "", nil, time.Second)
	if out.pass || !out.degraded {
		t.Fatalf("expected degraded failure, got pass=%v degraded=%v", out.pass, out.degraded)
	}

	mixed := append(soft, Assertion{Type: "status_code", Operator: "eq", Value: "201"})
	out = evaluateAssertions(mixed, 200, "", nil, time.Second)
	if out.pass || out.degraded {
		t.Fatalf("expected hard failure, got pass=%v degraded=%v", out.pass, out.degraded)
	}
}

func TestAPICheckerAssertions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"healthy":true,"version":"1.4.2"}`))
	}))
	defer server.Close()

	c := &APIChecker{}

	t.Run("passing assertions", func(t *testing.T) {
		cfg := APIConfig{
			URL: server.URL,
			Assertions: []Assertion{
				{Type: "status_code", Operator: "eq", Value: "200"},
				{Type: "json_path", Target: "healthy", Operator: "eq", Value: "true"},
				{Type: "body_regex", Value: `"version":"\d+\.\d+\.\d+"`},
			},
		}
		result, err := c.Check(context.Background(), monitorWith(t, "api", cfg))
		if err != nil {
			t.Fatal(err)
		}
		if result.Status != status.Operational {
			t.Fatalf("expected operational, got %s (%s)", result.Status, result.Message)
		}
	})

	t.Run("failing assertion is down", func(t *testing.T) {
		cfg := APIConfig{
			URL: server.URL,
			Assertions: []Assertion{
				{Type: "json_path", Target: "healthy", Operator: "eq", Value: "false"},
			},
		}
		result, err := c.Check(context.Background(), monitorWith(t, "api", cfg))
		if err != nil {
			t.Fatal(err)
		}
		if result.Status != status.Down {
			t.Fatalf("expected down, got %s", result.Status)
		}
		if !strings.Contains(result.Message, "json_path") {
			t.Fatalf("expected failure detail in message, got %q", result.Message)
		}
		if result.Metadata["error"] == nil {
			t.Fatal("expected error metadata")
		}
	})

	t.Run("degraded assertion downgrades", func(t *testing.T) {
		cfg := APIConfig{
			URL: server.URL,
			Assertions: []Assertion{
				{Type: "response_time", Operator: "lt", Value: "0", Degraded: true},
			},
		}
		result, err := c.Check(context.Background(), monitorWith(t, "api", cfg))
		if err != nil {
			t.Fatal(err)
		}
		if result.Status != status.Degraded {
			t.Fatalf("expected degraded, got %s", result.Status)
		}
	})
}
