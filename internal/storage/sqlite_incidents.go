package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
)

const incidentColumns = `id, service_id, started_at, ended_at, duration_seconds, severity, status, affected_monitor_ids`

func (s *SQLiteStore) CreateIncident(ctx context.Context, inc *Incident) error {
	if inc.Status == "" {
		inc.Status = IncidentOngoing
	}
	if inc.StartedAt.IsZero() {
		inc.StartedAt = time.Now()
	}
	affected, _ := json.Marshal(inc.AffectedMonitorIDs)
	res, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO incidents (service_id, started_at, ended_at, duration_seconds, severity, status, affected_monitor_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inc.ServiceID, formatTime(inc.StartedAt), formatTimePtr(inc.EndedAt),
		inc.DurationSeconds, string(inc.Severity), inc.Status, string(affected))
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	inc.ID = id
	return nil
}

func scanIncident(row interface{ Scan(...any) error }) (*Incident, error) {
	var inc Incident
	var startedAt, severity, affected string
	var endedAt *string
	err := row.Scan(&inc.ID, &inc.ServiceID, &startedAt, &endedAt,
		&inc.DurationSeconds, &severity, &inc.Status, &affected)
	if err != nil {
		return nil, err
	}
	inc.StartedAt = parseTime(startedAt)
	if endedAt != nil {
		t := parseTime(*endedAt)
		inc.EndedAt = &t
	}
	inc.Severity = status.Status(severity)
	json.Unmarshal([]byte(affected), &inc.AffectedMonitorIDs)
	return &inc, nil
}

func (s *SQLiteStore) GetIncident(ctx context.Context, id int64) (*Incident, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE id=?`, id)
	return scanIncident(row)
}

// GetOngoingIncident returns the single ongoing incident for a service, or
// sql.ErrNoRows. The (service_id, status) index makes this O(1).
func (s *SQLiteStore) GetOngoingIncident(ctx context.Context, serviceID int64) (*Incident, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE service_id=? AND status=? LIMIT 1`,
		serviceID, IncidentOngoing)
	return scanIncident(row)
}

func (s *SQLiteStore) UpdateIncident(ctx context.Context, inc *Incident) error {
	affected, _ := json.Marshal(inc.AffectedMonitorIDs)
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE incidents SET ended_at=?, duration_seconds=?, severity=?, status=?, affected_monitor_ids=? WHERE id=?`,
		formatTimePtr(inc.EndedAt), inc.DurationSeconds, string(inc.Severity), inc.Status, string(affected), inc.ID)
	return err
}

func (s *SQLiteStore) ListIncidents(ctx context.Context, serviceID int64, incidentStatus string, since time.Time) ([]*Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE started_at >= ?`
	args := []any{formatTime(since)}
	if serviceID > 0 {
		query += ` AND service_id=?`
		args = append(args, serviceID)
	}
	if incidentStatus != "" {
		query += ` AND status=?`
		args = append(args, incidentStatus)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []*Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}
