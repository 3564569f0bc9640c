// Package checker defines the Check contract monitor types implement and the
// static registry mapping type identifiers to their implementations.
package checker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// Result holds the outcome of a single check. Implementations map their own
// I/O and parse failures to status down with an explanatory message; they do
// not return transport errors for an unhealthy target.
type Result struct {
	Status         status.Status
	ResponseTimeMS *int64
	Message        string
	Metadata       map[string]any
}

// Checker performs a type-specific health check against one monitor.
type Checker interface {
	// Type returns the monitor type identifier this checker handles.
	Type() string
	// Check performs the health check. The context carries the per-check
	// deadline.
	Check(ctx context.Context, monitor *storage.Monitor) (*Result, error)
}

// MetricDescriptor describes one graphable metric a monitor type produces.
type MetricDescriptor struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Unit  string `json:"unit"`
	// Path locates the value inside StatusUpdate metadata.
	Path string `json:"path"`
}

// TypeInfo carries registration attributes for a monitor type.
type TypeInfo struct {
	// Passive types have no poll semantics; they are evaluated only through
	// the ingestion path and are never dispatched by the poller.
	Passive bool
	// ExternalLiveness marks polled types whose last_check_at is owned by
	// the ingestion path (deadman): the poller must not touch it.
	ExternalLiveness bool
	Metrics          []MetricDescriptor
}

type entry struct {
	checker Checker
	info    TypeInfo
}

// Registry holds all registered monitor types. Types register once at
// process initialization; there is no runtime discovery.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

func (r *Registry) Register(c Checker, info TypeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[c.Type()] = entry{checker: c, info: info}
}

func (r *Registry) Get(typ string) (Checker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[typ]
	if !ok {
		return nil, fmt.Errorf("no checker registered for type: %s", typ)
	}
	return e.checker, nil
}

// IsPassive reports whether the type is excluded from polling.
func (r *Registry) IsPassive(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[typ].info.Passive
}

// ExternalLiveness reports whether the type's last_check_at is owned by the
// ingestion path rather than the poller.
func (r *Registry) ExternalLiveness(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[typ].info.ExternalLiveness
}

// Metrics returns the graphable metric descriptors for a type.
func (r *Registry) Metrics(typ string) []MetricDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[typ].info.Metrics
}

// Types returns all registered type identifiers.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.entries))
	for t := range r.entries {
		types = append(types, t)
	}
	return types
}

// DefaultRegistry creates a registry with all built-in monitor types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&WebsiteChecker{}, TypeInfo{Metrics: []MetricDescriptor{
		{Key: "response_time", Label: "Response Time", Unit: "ms", Path: "response_time_ms"},
	}})
	r.Register(&APIChecker{}, TypeInfo{Metrics: []MetricDescriptor{
		{Key: "response_time", Label: "Response Time", Unit: "ms", Path: "response_time_ms"},
		{Key: "status_code", Label: "Status Code", Unit: "", Path: "status_code"},
	}})
	r.Register(&PortChecker{}, TypeInfo{Metrics: []MetricDescriptor{
		{Key: "response_time", Label: "Connect Time", Unit: "ms", Path: "response_time_ms"},
	}})
	r.Register(&DNSChecker{}, TypeInfo{Metrics: []MetricDescriptor{
		{Key: "response_time", Label: "Lookup Time", Unit: "ms", Path: "response_time_ms"},
	}})
	r.Register(&PingChecker{}, TypeInfo{Metrics: []MetricDescriptor{
		{Key: "response_time", Label: "Round Trip Time", Unit: "ms", Path: "response_time_ms"},
	}})
	r.Register(&SSLCertChecker{}, TypeInfo{Metrics: []MetricDescriptor{
		{Key: "days_until_expiry", Label: "Days Until Expiry", Unit: "days", Path: "days_until_expiry"},
	}})
	r.Register(&WebSocketChecker{}, TypeInfo{Metrics: []MetricDescriptor{
		{Key: "response_time", Label: "Dial Time", Unit: "ms", Path: "response_time_ms"},
	}})
	r.Register(&DeadmanChecker{}, TypeInfo{ExternalLiveness: true})
	r.Register(&MetricChecker{}, TypeInfo{Passive: true, Metrics: []MetricDescriptor{
		{Key: "value", Label: "Reported Value", Unit: "", Path: "value"},
	}})
	return r
}

// timeoutFrom derives a dial timeout from the context deadline, falling back
// when the context carries none.
func timeoutFrom(ctx context.Context, fallback time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			return remaining
		}
	}
	return fallback
}

func millis(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}

func down(msg string, elapsed time.Duration, meta map[string]any) *Result {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["error"] = msg
	return &Result{
		Status:         status.Down,
		ResponseTimeMS: millis(elapsed),
		Message:        msg,
		Metadata:       meta,
	}
}
