package storage

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS services (
	id                        INTEGER PRIMARY KEY AUTOINCREMENT,
	name                      TEXT    NOT NULL UNIQUE,
	active                    INTEGER NOT NULL DEFAULT 1,
	sla_target                REAL,
	sla_timeframe_days        INTEGER,
	cached_uptime_pct         REAL,
	cached_uptime_label       TEXT    NOT NULL DEFAULT '',
	cached_sla_pct            REAL,
	cached_sla_status         TEXT    NOT NULL DEFAULT '',
	cached_sla_budget_seconds INTEGER,
	cache_updated_at          TEXT,
	created_at                TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	updated_at                TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE TABLE IF NOT EXISTS monitors (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	service_id     INTEGER NOT NULL REFERENCES services(id) ON DELETE CASCADE,
	type           TEXT    NOT NULL,
	config         TEXT    NOT NULL DEFAULT '{}',
	interval_mins  INTEGER NOT NULL DEFAULT 5,
	active         INTEGER NOT NULL DEFAULT 1,
	last_check_at  TEXT,
	next_check_at  TEXT,
	created_at     TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	updated_at     TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_monitors_service_id ON monitors(service_id, active);
CREATE INDEX IF NOT EXISTS idx_monitors_due ON monitors(active, next_check_at);

CREATE TABLE IF NOT EXISTS status_updates (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	service_id       INTEGER NOT NULL REFERENCES services(id) ON DELETE CASCADE,
	monitor_id       INTEGER REFERENCES monitors(id) ON DELETE SET NULL,
	status           TEXT    NOT NULL,
	timestamp        TEXT    NOT NULL,
	response_time_ms INTEGER,
	metadata         TEXT    NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_status_updates_monitor ON status_updates(monitor_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_status_updates_service ON status_updates(service_id, timestamp);

CREATE TABLE IF NOT EXISTS incidents (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	service_id           INTEGER NOT NULL REFERENCES services(id) ON DELETE CASCADE,
	started_at           TEXT    NOT NULL,
	ended_at             TEXT,
	duration_seconds     INTEGER,
	severity             TEXT    NOT NULL,
	status               TEXT    NOT NULL DEFAULT 'ongoing',
	affected_monitor_ids TEXT    NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_incidents_service_status ON incidents(service_id, status);

CREATE TABLE IF NOT EXISTS maintenance_windows (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	service_id        INTEGER NOT NULL REFERENCES services(id) ON DELETE CASCADE,
	start_time        TEXT    NOT NULL,
	end_time          TEXT    NOT NULL,
	recurrence_type   TEXT    NOT NULL DEFAULT 'none',
	recurrence_config TEXT,
	reason            TEXT    NOT NULL DEFAULT '',
	status            TEXT    NOT NULL DEFAULT 'scheduled',
	created_at        TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	updated_at        TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_maintenance_service_status ON maintenance_windows(service_id, status);
CREATE INDEX IF NOT EXISTS idx_maintenance_status ON maintenance_windows(status, start_time);

CREATE TABLE IF NOT EXISTS notification_settings (
	service_id                INTEGER PRIMARY KEY REFERENCES services(id) ON DELETE CASCADE,
	enabled                   INTEGER NOT NULL DEFAULT 1,
	cooldown_minutes          INTEGER NOT NULL DEFAULT 15,
	notify_on_recovery        INTEGER NOT NULL DEFAULT 1,
	last_notified_status      TEXT    NOT NULL DEFAULT 'unknown',
	last_notification_sent_at TEXT
);
`

// migrations holds incremental schema changes beyond the base schema.
var migrations = []struct {
	version int
	sql     string
}{}
