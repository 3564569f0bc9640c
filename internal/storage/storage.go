package storage

import (
	"context"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
)

// Store defines the complete storage interface.
type Store interface {
	// Services
	CreateService(ctx context.Context, s *Service) error
	GetService(ctx context.Context, id int64) (*Service, error)
	ListServices(ctx context.Context, activeOnly bool) ([]*Service, error)
	UpdateService(ctx context.Context, s *Service) error
	SetServiceActive(ctx context.Context, id int64, active bool) error
	UpdateServiceCache(ctx context.Context, id int64, uptimePct *float64, uptimeLabel string, slaPct *float64, slaStatus string, slaBudgetSeconds *int64, at time.Time) error

	// Monitors
	CreateMonitor(ctx context.Context, m *Monitor) error
	GetMonitor(ctx context.Context, id int64) (*Monitor, error)
	ListMonitors(ctx context.Context, serviceID int64, activeOnly bool) ([]*Monitor, error)
	UpdateMonitor(ctx context.Context, m *Monitor) error
	SetMonitorActive(ctx context.Context, id int64, active bool) error
	ListDueMonitors(ctx context.Context, now time.Time) ([]*Monitor, error)
	InitializeNextChecks(ctx context.Context, at time.Time) (int64, error)
	UpdateMonitorSchedule(ctx context.Context, id int64, lastCheckAt, nextCheckAt *time.Time) error

	// Status updates (append-only)
	InsertStatusUpdate(ctx context.Context, u *StatusUpdate) error
	GetLatestStatus(ctx context.Context, monitorID int64) (*StatusUpdate, error)
	GetLatestStatusBefore(ctx context.Context, monitorID int64, before time.Time) (*StatusUpdate, error)
	ListStatusUpdates(ctx context.Context, serviceID int64, from, to time.Time) ([]*StatusUpdate, error)
	LatestMonitorStatuses(ctx context.Context, serviceID int64) ([]*MonitorLatest, error)
	PurgeStatusUpdates(ctx context.Context, before time.Time) (int64, error)

	// Incidents
	CreateIncident(ctx context.Context, inc *Incident) error
	GetIncident(ctx context.Context, id int64) (*Incident, error)
	GetOngoingIncident(ctx context.Context, serviceID int64) (*Incident, error)
	UpdateIncident(ctx context.Context, inc *Incident) error
	ListIncidents(ctx context.Context, serviceID int64, incidentStatus string, since time.Time) ([]*Incident, error)

	// Maintenance windows
	CreateMaintenanceWindow(ctx context.Context, mw *MaintenanceWindow) error
	GetMaintenanceWindow(ctx context.Context, id int64) (*MaintenanceWindow, error)
	ListMaintenanceWindows(ctx context.Context, serviceID int64, statuses []string) ([]*MaintenanceWindow, error)
	UpdateMaintenanceWindow(ctx context.Context, mw *MaintenanceWindow) error
	HasActiveMaintenance(ctx context.Context, serviceID int64, at time.Time) (bool, error)

	// Notification settings
	GetOrCreateNotificationSettings(ctx context.Context, serviceID int64) (*NotificationSettings, error)
	UpdateNotificationSettings(ctx context.Context, ns *NotificationSettings) error
	RecordNotificationSent(ctx context.Context, serviceID int64, notified status.Status, at time.Time) error

	// Lifecycle
	Close() error
}
