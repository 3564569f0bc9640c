package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
)

// GetOrCreateNotificationSettings returns the settings row for a service,
// lazily inserting defaults when none exists.
func (s *SQLiteStore) GetOrCreateNotificationSettings(ctx context.Context, serviceID int64) (*NotificationSettings, error) {
	ns, err := s.getNotificationSettings(ctx, serviceID)
	if err == nil {
		return ns, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if _, err := s.writeDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO notification_settings (service_id) VALUES (?)`, serviceID); err != nil {
		return nil, err
	}
	return s.getNotificationSettings(ctx, serviceID)
}

func (s *SQLiteStore) getNotificationSettings(ctx context.Context, serviceID int64) (*NotificationSettings, error) {
	var ns NotificationSettings
	var enabled, notifyOnRecovery int
	var lastStatus string
	var lastSentAt sql.NullString
	err := s.readDB.QueryRowContext(ctx,
		`SELECT service_id, enabled, cooldown_minutes, notify_on_recovery, last_notified_status, last_notification_sent_at
		 FROM notification_settings WHERE service_id=?`, serviceID).
		Scan(&ns.ServiceID, &enabled, &ns.CooldownMinutes, &notifyOnRecovery, &lastStatus, &lastSentAt)
	if err != nil {
		return nil, err
	}
	ns.Enabled = enabled != 0
	ns.NotifyOnRecovery = notifyOnRecovery != 0
	ns.LastNotifiedStatus = status.Status(lastStatus)
	ns.LastNotificationSentAt = parseTimePtr(lastSentAt)
	return &ns, nil
}

func (s *SQLiteStore) UpdateNotificationSettings(ctx context.Context, ns *NotificationSettings) error {
	_, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO notification_settings (service_id, enabled, cooldown_minutes, notify_on_recovery, last_notified_status, last_notification_sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(service_id) DO UPDATE SET
		   enabled=excluded.enabled,
		   cooldown_minutes=excluded.cooldown_minutes,
		   notify_on_recovery=excluded.notify_on_recovery,
		   last_notified_status=excluded.last_notified_status,
		   last_notification_sent_at=excluded.last_notification_sent_at`,
		ns.ServiceID, boolToInt(ns.Enabled), ns.CooldownMinutes, boolToInt(ns.NotifyOnRecovery),
		string(ns.LastNotifiedStatus), formatTimePtr(ns.LastNotificationSentAt))
	return err
}

// RecordNotificationSent stamps the cooldown tracking fields. Called once per
// dispatch, regardless of individual channel failures.
func (s *SQLiteStore) RecordNotificationSent(ctx context.Context, serviceID int64, notified status.Status, at time.Time) error {
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE notification_settings SET last_notified_status=?, last_notification_sent_at=? WHERE service_id=?`,
		string(notified), formatTime(at), serviceID)
	return err
}
