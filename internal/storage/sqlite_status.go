package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
)

func (s *SQLiteStore) InsertStatusUpdate(ctx context.Context, u *StatusUpdate) error {
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now()
	}
	res, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO status_updates (service_id, monitor_id, status, timestamp, response_time_ms, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ServiceID, u.MonitorID, string(u.Status), formatTime(u.Timestamp),
		u.ResponseTimeMS, marshalMetadata(u.Metadata))
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	u.ID = id
	return nil
}

func scanStatusUpdate(row interface{ Scan(...any) error }) (*StatusUpdate, error) {
	var u StatusUpdate
	var st, ts, metadata string
	err := row.Scan(&u.ID, &u.ServiceID, &u.MonitorID, &st, &ts, &u.ResponseTimeMS, &metadata)
	if err != nil {
		return nil, err
	}
	u.Status = status.Status(st)
	u.Timestamp = parseTime(ts)
	u.Metadata = unmarshalMetadata(metadata)
	return &u, nil
}

const statusUpdateColumns = `id, service_id, monitor_id, status, timestamp, response_time_ms, metadata`

func (s *SQLiteStore) GetLatestStatus(ctx context.Context, monitorID int64) (*StatusUpdate, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT `+statusUpdateColumns+` FROM status_updates
		 WHERE monitor_id=? ORDER BY timestamp DESC, id DESC LIMIT 1`, monitorID)
	return scanStatusUpdate(row)
}

func (s *SQLiteStore) GetLatestStatusBefore(ctx context.Context, monitorID int64, before time.Time) (*StatusUpdate, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT `+statusUpdateColumns+` FROM status_updates
		 WHERE monitor_id=? AND timestamp <= ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		monitorID, formatTime(before))
	return scanStatusUpdate(row)
}

// ListStatusUpdates returns updates for a service inside (from, to], ordered
// by timestamp ascending. Used by the uptime timeline replay.
func (s *SQLiteStore) ListStatusUpdates(ctx context.Context, serviceID int64, from, to time.Time) ([]*StatusUpdate, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT `+statusUpdateColumns+` FROM status_updates
		 WHERE service_id=? AND timestamp > ? AND timestamp <= ?
		 ORDER BY timestamp, id`,
		serviceID, formatTime(from), formatTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []*StatusUpdate
	for rows.Next() {
		u, err := scanStatusUpdate(rows)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

// LatestMonitorStatuses returns each active monitor of the service paired
// with its most recent status update. Monitors without any update report
// status unknown.
func (s *SQLiteStore) LatestMonitorStatuses(ctx context.Context, serviceID int64) ([]*MonitorLatest, error) {
	monitors, err := s.ListMonitors(ctx, serviceID, true)
	if err != nil {
		return nil, err
	}

	result := make([]*MonitorLatest, 0, len(monitors))
	for _, m := range monitors {
		ml := &MonitorLatest{Monitor: m, Status: status.Unknown}
		latest, err := s.GetLatestStatus(ctx, m.ID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
		} else {
			ml.Status = latest.Status
			ml.Timestamp = &latest.Timestamp
			ml.ResponseTimeMS = latest.ResponseTimeMS
			ml.Metadata = latest.Metadata
		}
		result = append(result, ml)
	}
	return result, nil
}

// PurgeStatusUpdates deletes rows older than the cutoff. Safe to run
// repeatedly and concurrently with the poller.
func (s *SQLiteStore) PurgeStatusUpdates(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.writeDB.ExecContext(ctx,
		`DELETE FROM status_updates WHERE timestamp < ?`, formatTime(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
