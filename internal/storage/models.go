package storage

import (
	"encoding/json"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
)

// Service is a logical grouping of monitors whose statuses roll up into one
// aggregated status.
type Service struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`

	// SLA configuration; both must be set for SLA computation to apply.
	SLATarget        *float64 `json:"sla_target,omitempty"`
	SLATimeframeDays *int     `json:"sla_timeframe_days,omitempty"`

	// Cached derived views, refreshed periodically. Never authoritative.
	CachedUptimePct        *float64   `json:"cached_uptime_pct,omitempty"`
	CachedUptimeLabel      string     `json:"cached_uptime_label,omitempty"`
	CachedSLAPct           *float64   `json:"cached_sla_pct,omitempty"`
	CachedSLAStatus        string     `json:"cached_sla_status,omitempty"`
	CachedSLABudgetSeconds *int64     `json:"cached_sla_budget_seconds,omitempty"`
	CacheUpdatedAt         *time.Time `json:"cache_updated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Monitor is one configured, typed check against one target.
type Monitor struct {
	ID        int64           `json:"id"`
	ServiceID int64           `json:"service_id"`
	Type      string          `json:"type"`
	Config    json.RawMessage `json:"config"`
	Interval  int             `json:"interval"` // minutes between checks
	Active    bool            `json:"active"`

	// LastCheckAt is owned by the poller, except for monitor types whose
	// liveness is signaled externally (deadman); those are owned by the
	// ingestion path. NextCheckAt is nil until the poller initializes it.
	LastCheckAt *time.Time `json:"last_check_at,omitempty"`
	NextCheckAt *time.Time `json:"next_check_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Name extracts the display name from the monitor's opaque config, falling
// back to the monitor type.
func (m *Monitor) Name() string {
	var cfg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(m.Config, &cfg); err == nil && cfg.Name != "" {
		return cfg.Name
	}
	return m.Type
}

// StatusUpdate is one recorded check outcome. Rows are append-only: never
// mutated or deleted except by retention cleanup.
type StatusUpdate struct {
	ID             int64          `json:"id"`
	ServiceID      int64          `json:"service_id"`
	MonitorID      *int64         `json:"monitor_id,omitempty"` // nullable for legacy rows
	Status         status.Status  `json:"status"`
	Timestamp      time.Time      `json:"timestamp"`
	ResponseTimeMS *int64         `json:"response_time_ms,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Incident is a contiguous period during which a service's aggregated status
// was degraded or down. At most one ongoing incident exists per service.
type Incident struct {
	ID        int64      `json:"id"`
	ServiceID int64      `json:"service_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	// DurationSeconds is set exactly once, when the incident closes.
	DurationSeconds    *int64        `json:"duration_seconds,omitempty"`
	Severity           status.Status `json:"severity"` // degraded or down
	Status             string        `json:"status"`   // ongoing or resolved
	AffectedMonitorIDs []int64       `json:"affected_monitor_ids"`
}

// Incident status values.
const (
	IncidentOngoing  = "ongoing"
	IncidentResolved = "resolved"
)

// MaintenanceWindow is a scheduled, possibly recurring, period during which
// a service's abnormal status is expected.
type MaintenanceWindow struct {
	ID               int64             `json:"id"`
	ServiceID        int64             `json:"service_id"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          time.Time         `json:"end_time"`
	RecurrenceType   string            `json:"recurrence_type"`
	RecurrenceConfig *RecurrenceConfig `json:"recurrence_config,omitempty"`
	Reason           string            `json:"reason,omitempty"`
	Status           string            `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Maintenance window recurrence types.
const (
	RecurrenceNone           = "none"
	RecurrenceDaily          = "daily"
	RecurrenceWeekly         = "weekly"
	RecurrenceMonthly        = "monthly"
	RecurrenceMonthlyWeekday = "monthly_weekday"
)

// Maintenance window status values. Completed and cancelled are terminal.
const (
	WindowScheduled = "scheduled"
	WindowActive    = "active"
	WindowCompleted = "completed"
	WindowCancelled = "cancelled"
)

// RecurrenceConfig parameterizes the recurrence type.
type RecurrenceConfig struct {
	// Weekdays lists allowed weekdays for weekly recurrence, 0=Sunday..6=Saturday.
	Weekdays []int `json:"weekdays,omitempty"`
	// Day is the day-of-month for monthly recurrence; -1 means last day.
	Day int `json:"day,omitempty"`
	// Week selects the nth occurrence for monthly_weekday, 1..4 or -1 for last.
	Week int `json:"week,omitempty"`
	// Weekday is the weekday for monthly_weekday, 0=Sunday..6=Saturday.
	Weekday int `json:"weekday,omitempty"`
}

// NotificationSettings controls notification dispatch for one service.
type NotificationSettings struct {
	ServiceID              int64         `json:"service_id"`
	Enabled                bool          `json:"enabled"`
	CooldownMinutes        int           `json:"cooldown_minutes"`
	NotifyOnRecovery       bool          `json:"notify_on_recovery"`
	LastNotifiedStatus     status.Status `json:"last_notified_status"`
	LastNotificationSentAt *time.Time    `json:"last_notification_sent_at,omitempty"`
}

// MonitorLatest pairs a monitor with its most recent recorded status.
// Monitors with no recorded status yet have Status set to unknown.
type MonitorLatest struct {
	Monitor        *Monitor
	Status         status.Status
	Timestamp      *time.Time
	ResponseTimeMS *int64
	Metadata       map[string]any
}
