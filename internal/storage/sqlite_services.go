package storage

import (
	"context"
	"database/sql"
	"time"
)

const serviceColumns = `id, name, active, sla_target, sla_timeframe_days,
	cached_uptime_pct, cached_uptime_label, cached_sla_pct, cached_sla_status,
	cached_sla_budget_seconds, cache_updated_at, created_at, updated_at`

func (s *SQLiteStore) CreateService(ctx context.Context, svc *Service) error {
	now := formatTime(time.Now())
	res, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO services (name, active, sla_target, sla_timeframe_days, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		svc.Name, boolToInt(svc.Active), svc.SLATarget, svc.SLATimeframeDays, now, now)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	svc.ID = id
	svc.CreatedAt = parseTime(now)
	svc.UpdatedAt = parseTime(now)
	return nil
}

func scanService(row interface{ Scan(...any) error }) (*Service, error) {
	var svc Service
	var active int
	var uptimeLabel, slaStatus string
	var cacheUpdatedAt sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&svc.ID, &svc.Name, &active, &svc.SLATarget, &svc.SLATimeframeDays,
		&svc.CachedUptimePct, &uptimeLabel, &svc.CachedSLAPct, &slaStatus,
		&svc.CachedSLABudgetSeconds, &cacheUpdatedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	svc.Active = active != 0
	svc.CachedUptimeLabel = uptimeLabel
	svc.CachedSLAStatus = slaStatus
	svc.CacheUpdatedAt = parseTimePtr(cacheUpdatedAt)
	svc.CreatedAt = parseTime(createdAt)
	svc.UpdatedAt = parseTime(updatedAt)
	return &svc, nil
}

func (s *SQLiteStore) GetService(ctx context.Context, id int64) (*Service, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id=?`, id)
	return scanService(row)
}

func (s *SQLiteStore) ListServices(ctx context.Context, activeOnly bool) ([]*Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services`
	if activeOnly {
		query += ` WHERE active=1`
	}
	query += ` ORDER BY name`
	rows, err := s.readDB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []*Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

func (s *SQLiteStore) UpdateService(ctx context.Context, svc *Service) error {
	now := formatTime(time.Now())
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE services SET name=?, active=?, sla_target=?, sla_timeframe_days=?, updated_at=? WHERE id=?`,
		svc.Name, boolToInt(svc.Active), svc.SLATarget, svc.SLATimeframeDays, now, svc.ID)
	return err
}

func (s *SQLiteStore) SetServiceActive(ctx context.Context, id int64, active bool) error {
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE services SET active=?, updated_at=? WHERE id=?`,
		boolToInt(active), formatTime(time.Now()), id)
	return err
}

func (s *SQLiteStore) UpdateServiceCache(ctx context.Context, id int64, uptimePct *float64, uptimeLabel string, slaPct *float64, slaStatus string, slaBudgetSeconds *int64, at time.Time) error {
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE services SET cached_uptime_pct=?, cached_uptime_label=?, cached_sla_pct=?,
		 cached_sla_status=?, cached_sla_budget_seconds=?, cache_updated_at=? WHERE id=?`,
		uptimePct, uptimeLabel, slaPct, slaStatus, slaBudgetSeconds, formatTime(at), id)
	return err
}
