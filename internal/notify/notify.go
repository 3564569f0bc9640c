// Package notify decides whether a service status transition should produce
// a notification and fans delivery out to the configured channels.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// Notifier delivers one assembled notification over a specific channel. The
// engine does not know channel payload shapes; implementations format the
// Context however their channel requires.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n *Context) error
}

// MonitorDetail describes one monitor's current state inside a notification.
type MonitorDetail struct {
	MonitorID      int64         `json:"monitor_id"`
	Name           string        `json:"name"`
	Status         status.Status `json:"status"`
	Error          string        `json:"error,omitempty"`
	ResponseTimeMS *int64        `json:"response_time_ms,omitempty"`
}

// Context is the channel-agnostic notification payload.
type Context struct {
	ServiceID   int64         `json:"service_id"`
	ServiceName string        `json:"service_name"`
	OldStatus   status.Status `json:"old_status"`
	NewStatus   status.Status `json:"new_status"`
	// Affected lists monitors currently not operational, with error detail.
	Affected []MonitorDetail `json:"affected"`
	// Summary lists every active monitor of the service.
	Summary   []MonitorDetail `json:"summary"`
	Timestamp string          `json:"timestamp"` // RFC3339
}

// ShouldNotify applies the dispatch decision for a service status transition.
//
// Recovery to operational bypasses the cooldown when notify_on_recovery is
// set; without the flag it waits out the cooldown like any other transition.
// Repeating the last notified status never notifies.
func ShouldNotify(settings *storage.NotificationSettings, newStatus status.Status, now time.Time) bool {
	if !settings.Enabled {
		return false
	}
	if newStatus == settings.LastNotifiedStatus {
		return false
	}
	if newStatus == status.Operational && settings.NotifyOnRecovery {
		return true
	}
	if settings.LastNotificationSentAt == nil {
		return true
	}
	cooldown := time.Duration(settings.CooldownMinutes) * time.Minute
	return !now.Before(settings.LastNotificationSentAt.Add(cooldown))
}

// Dispatcher fans a notification out to all registered channels and records
// the send on the service's notification settings.
type Dispatcher struct {
	store          storage.Store
	logger         *slog.Logger
	channelTimeout time.Duration

	mu        sync.Mutex
	notifiers []Notifier
}

func NewDispatcher(store storage.Store, logger *slog.Logger, channelTimeout time.Duration) *Dispatcher {
	if channelTimeout <= 0 {
		channelTimeout = 10 * time.Second
	}
	return &Dispatcher{store: store, logger: logger, channelTimeout: channelTimeout}
}

func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers = append(d.notifiers, n)
}

// MarkNotified stamps last_notified_status and last_notification_sent_at
// exactly once per dispatched transition. It is called when the decision is
// made, before delivery, so the cooldown arms immediately and a slow channel
// cannot let a second transition slip through.
func (d *Dispatcher) MarkNotified(ctx context.Context, serviceID int64, newStatus status.Status, now time.Time) error {
	return d.store.RecordNotificationSent(ctx, serviceID, newStatus, now)
}

// Dispatch delivers to every channel independently. A failed channel is
// logged; it neither blocks the other channels nor re-arms the cooldown.
func (d *Dispatcher) Dispatch(ctx context.Context, n *Context) {
	d.mu.Lock()
	notifiers := make([]Notifier, len(d.notifiers))
	copy(notifiers, d.notifiers)
	d.mu.Unlock()

	var wg sync.WaitGroup
	for _, notifier := range notifiers {
		wg.Add(1)
		go func(notifier Notifier) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, d.channelTimeout)
			defer cancel()
			if err := notifier.Notify(sendCtx, n); err != nil {
				d.logger.Error("notification send failed",
					"channel", notifier.Name(),
					"service_id", n.ServiceID,
					"error", err,
				)
			} else {
				d.logger.Info("notification sent",
					"channel", notifier.Name(),
					"service_id", n.ServiceID,
					"status", n.NewStatus,
				)
			}
		}(notifier)
	}
	wg.Wait()
}
