package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

const maintenanceColumns = `id, service_id, start_time, end_time, recurrence_type, recurrence_config, reason, status, created_at, updated_at`

func (s *SQLiteStore) CreateMaintenanceWindow(ctx context.Context, mw *MaintenanceWindow) error {
	if mw.RecurrenceType == "" {
		mw.RecurrenceType = RecurrenceNone
	}
	if mw.Status == "" {
		mw.Status = WindowScheduled
	}
	var recurrenceConfig any
	if mw.RecurrenceConfig != nil {
		b, err := json.Marshal(mw.RecurrenceConfig)
		if err != nil {
			return err
		}
		recurrenceConfig = string(b)
	}
	now := formatTime(time.Now())
	res, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO maintenance_windows (service_id, start_time, end_time, recurrence_type, recurrence_config, reason, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mw.ServiceID, formatTime(mw.StartTime), formatTime(mw.EndTime),
		mw.RecurrenceType, recurrenceConfig, mw.Reason, mw.Status, now, now)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	mw.ID = id
	mw.CreatedAt = parseTime(now)
	mw.UpdatedAt = parseTime(now)
	return nil
}

func scanMaintenanceWindow(row interface{ Scan(...any) error }) (*MaintenanceWindow, error) {
	var mw MaintenanceWindow
	var startTime, endTime, createdAt, updatedAt string
	var recurrenceConfig sql.NullString
	err := row.Scan(&mw.ID, &mw.ServiceID, &startTime, &endTime, &mw.RecurrenceType,
		&recurrenceConfig, &mw.Reason, &mw.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	mw.StartTime = parseTime(startTime)
	mw.EndTime = parseTime(endTime)
	mw.CreatedAt = parseTime(createdAt)
	mw.UpdatedAt = parseTime(updatedAt)
	if recurrenceConfig.Valid && recurrenceConfig.String != "" {
		var cfg RecurrenceConfig
		if err := json.Unmarshal([]byte(recurrenceConfig.String), &cfg); err == nil {
			mw.RecurrenceConfig = &cfg
		}
	}
	return &mw, nil
}

func (s *SQLiteStore) GetMaintenanceWindow(ctx context.Context, id int64) (*MaintenanceWindow, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT `+maintenanceColumns+` FROM maintenance_windows WHERE id=?`, id)
	return scanMaintenanceWindow(row)
}

func (s *SQLiteStore) ListMaintenanceWindows(ctx context.Context, serviceID int64, statuses []string) ([]*MaintenanceWindow, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_windows`
	var conds []string
	var args []any
	if serviceID > 0 {
		conds = append(conds, "service_id=?")
		args = append(args, serviceID)
	}
	if len(statuses) > 0 {
		placeholders := strings.Repeat("?,", len(statuses))
		conds = append(conds, "status IN ("+placeholders[:len(placeholders)-1]+")")
		for _, st := range statuses {
			args = append(args, st)
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_time"

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []*MaintenanceWindow
	for rows.Next() {
		mw, err := scanMaintenanceWindow(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, mw)
	}
	return windows, rows.Err()
}

func (s *SQLiteStore) UpdateMaintenanceWindow(ctx context.Context, mw *MaintenanceWindow) error {
	var recurrenceConfig any
	if mw.RecurrenceConfig != nil {
		b, err := json.Marshal(mw.RecurrenceConfig)
		if err != nil {
			return err
		}
		recurrenceConfig = string(b)
	}
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE maintenance_windows SET start_time=?, end_time=?, recurrence_type=?, recurrence_config=?, reason=?, status=?, updated_at=? WHERE id=?`,
		formatTime(mw.StartTime), formatTime(mw.EndTime), mw.RecurrenceType,
		recurrenceConfig, mw.Reason, mw.Status, formatTime(time.Now()), mw.ID)
	return err
}

// HasActiveMaintenance reports whether the service has an active window
// covering the given instant.
func (s *SQLiteStore) HasActiveMaintenance(ctx context.Context, serviceID int64, at time.Time) (bool, error) {
	var count int
	err := s.readDB.QueryRowContext(ctx,
		`SELECT count(*) FROM maintenance_windows
		 WHERE service_id=? AND status=? AND start_time <= ? AND end_time > ?`,
		serviceID, WindowActive, formatTime(at), formatTime(at)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
