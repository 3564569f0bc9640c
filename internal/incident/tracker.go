// Package incident maintains the per-service incident lifecycle driven by
// aggregated status transitions. A service has at most one ongoing incident.
package incident

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/simplewatch/simplewatch/internal/status"
	"github.com/simplewatch/simplewatch/internal/storage"
)

// Tracker opens, updates, and resolves incidents as a service's aggregated
// status moves between operational and non-operational.
type Tracker struct {
	store  storage.Store
	logger *slog.Logger
}

func NewTracker(store storage.Store, logger *slog.Logger) *Tracker {
	return &Tracker{store: store, logger: logger}
}

// Sync reconciles the service's incident state with its current aggregated
// status. affectedMonitorIDs lists the monitors currently not operational.
// Returns the ongoing or just-resolved incident (nil when none) and whether
// a new incident was opened.
//
// An unknown aggregate is inconclusive and changes nothing.
func (t *Tracker) Sync(ctx context.Context, serviceID int64, aggregated status.Status, affectedMonitorIDs []int64) (*storage.Incident, bool, error) {
	if aggregated == status.Unknown {
		return nil, false, nil
	}

	existing, err := t.store.GetOngoingIncident(ctx, serviceID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	if aggregated == status.Operational {
		if existing == nil {
			return nil, false, nil
		}
		return existing, false, t.resolve(ctx, existing)
	}

	if existing != nil {
		// Severity follows the current aggregate; started_at is never touched.
		changed := existing.Severity != aggregated || !equalIDs(existing.AffectedMonitorIDs, affectedMonitorIDs)
		if !changed {
			return existing, false, nil
		}
		existing.Severity = aggregated
		existing.AffectedMonitorIDs = affectedMonitorIDs
		if err := t.store.UpdateIncident(ctx, existing); err != nil {
			return nil, false, err
		}
		t.logger.Info("incident updated", "incident_id", existing.ID, "service_id", serviceID, "severity", aggregated)
		return existing, false, nil
	}

	inc := &storage.Incident{
		ServiceID:          serviceID,
		StartedAt:          time.Now().UTC(),
		Severity:           aggregated,
		Status:             storage.IncidentOngoing,
		AffectedMonitorIDs: affectedMonitorIDs,
	}
	if err := t.store.CreateIncident(ctx, inc); err != nil {
		return nil, false, err
	}
	t.logger.Info("incident opened", "incident_id", inc.ID, "service_id", serviceID, "severity", aggregated)
	return inc, true, nil
}

func (t *Tracker) resolve(ctx context.Context, inc *storage.Incident) error {
	now := time.Now().UTC()
	inc.Status = storage.IncidentResolved
	inc.EndedAt = &now
	if inc.DurationSeconds == nil {
		d := int64(now.Sub(inc.StartedAt).Seconds())
		inc.DurationSeconds = &d
	}
	if err := t.store.UpdateIncident(ctx, inc); err != nil {
		return err
	}
	t.logger.Info("incident resolved", "incident_id", inc.ID, "service_id", inc.ServiceID, "duration_seconds", *inc.DurationSeconds)
	return nil
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
