package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const monitorColumns = `id, service_id, type, config, interval_mins, active,
	last_check_at, next_check_at, created_at, updated_at`

func (s *SQLiteStore) CreateMonitor(ctx context.Context, m *Monitor) error {
	if len(m.Config) == 0 {
		m.Config = json.RawMessage("{}")
	}
	now := formatTime(time.Now())
	res, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO monitors (service_id, type, config, interval_mins, active, last_check_at, next_check_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ServiceID, m.Type, string(m.Config), m.Interval, boolToInt(m.Active),
		formatTimePtr(m.LastCheckAt), formatTimePtr(m.NextCheckAt), now, now)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	m.ID = id
	m.CreatedAt = parseTime(now)
	m.UpdatedAt = parseTime(now)
	return nil
}

func scanMonitor(row interface{ Scan(...any) error }) (*Monitor, error) {
	var m Monitor
	var config string
	var active int
	var lastCheck, nextCheck sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&m.ID, &m.ServiceID, &m.Type, &config, &m.Interval, &active,
		&lastCheck, &nextCheck, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.Config = json.RawMessage(config)
	m.Active = active != 0
	m.LastCheckAt = parseTimePtr(lastCheck)
	m.NextCheckAt = parseTimePtr(nextCheck)
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

func (s *SQLiteStore) GetMonitor(ctx context.Context, id int64) (*Monitor, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT `+monitorColumns+` FROM monitors WHERE id=?`, id)
	return scanMonitor(row)
}

func (s *SQLiteStore) ListMonitors(ctx context.Context, serviceID int64, activeOnly bool) ([]*Monitor, error) {
	query := `SELECT ` + monitorColumns + ` FROM monitors WHERE service_id=?`
	if activeOnly {
		query += ` AND active=1`
	}
	query += ` ORDER BY id`
	rows, err := s.readDB.QueryContext(ctx, query, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []*Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

func (s *SQLiteStore) UpdateMonitor(ctx context.Context, m *Monitor) error {
	now := formatTime(time.Now())
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE monitors SET type=?, config=?, interval_mins=?, active=?, updated_at=? WHERE id=?`,
		m.Type, string(m.Config), m.Interval, boolToInt(m.Active), now, m.ID)
	return err
}

// SetMonitorActive toggles a monitor and, when deactivating the last active
// monitor of a service, auto-pauses the owning service.
func (s *SQLiteStore) SetMonitorActive(ctx context.Context, id int64, active bool) error {
	now := formatTime(time.Now())
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE monitors SET active=?, updated_at=? WHERE id=?`,
		boolToInt(active), now, id); err != nil {
		return err
	}

	if !active {
		var serviceID int64
		if err := tx.QueryRowContext(ctx,
			`SELECT service_id FROM monitors WHERE id=?`, id).Scan(&serviceID); err != nil {
			return err
		}
		var remaining int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM monitors WHERE service_id=? AND active=1`, serviceID).Scan(&remaining); err != nil {
			return err
		}
		if remaining == 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE services SET active=0, updated_at=? WHERE id=?`, now, serviceID); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// ListDueMonitors returns active monitors whose next check time has passed.
// Passive types are filtered by the caller, which owns the type registry.
func (s *SQLiteStore) ListDueMonitors(ctx context.Context, now time.Time) ([]*Monitor, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT `+monitorColumns+` FROM monitors
		 WHERE active=1 AND next_check_at IS NOT NULL AND next_check_at <= ?
		 ORDER BY next_check_at`,
		formatTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []*Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		monitors = append(monitors, m)
	}
	return monitors, rows.Err()
}

// InitializeNextChecks sets next_check_at for active monitors that have none,
// so newly created monitors converge quickly without a thundering herd.
func (s *SQLiteStore) InitializeNextChecks(ctx context.Context, at time.Time) (int64, error) {
	res, err := s.writeDB.ExecContext(ctx,
		`UPDATE monitors SET next_check_at=? WHERE active=1 AND next_check_at IS NULL`,
		formatTime(at))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateMonitorSchedule updates last_check_at and/or next_check_at; nil
// arguments leave the stored value untouched.
func (s *SQLiteStore) UpdateMonitorSchedule(ctx context.Context, id int64, lastCheckAt, nextCheckAt *time.Time) error {
	if lastCheckAt == nil && nextCheckAt == nil {
		return nil
	}
	if lastCheckAt != nil && nextCheckAt != nil {
		_, err := s.writeDB.ExecContext(ctx,
			`UPDATE monitors SET last_check_at=?, next_check_at=? WHERE id=?`,
			formatTime(*lastCheckAt), formatTime(*nextCheckAt), id)
		return err
	}
	if lastCheckAt != nil {
		_, err := s.writeDB.ExecContext(ctx,
			`UPDATE monitors SET last_check_at=? WHERE id=?`, formatTime(*lastCheckAt), id)
		return err
	}
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE monitors SET next_check_at=? WHERE id=?`, formatTime(*nextCheckAt), id)
	return err
}
