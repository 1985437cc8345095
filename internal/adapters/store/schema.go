package store

// schema is portable between SQLite and PostgreSQL. Timestamps are stored
// as fixed-width UTC text so lexical order equals chronological order.
const schema = `
CREATE TABLE IF NOT EXISTS athletes (
	id         TEXT PRIMARY KEY,
	sex        TEXT NOT NULL,
	age        INTEGER NOT NULL,
	bmi        DOUBLE PRECISION NOT NULL,
	rural      BOOLEAN NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS injury_history (
	athlete_id TEXT PRIMARY KEY REFERENCES athletes(id) ON DELETE CASCADE,
	risk       DOUBLE PRECISION NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS training_sessions (
	id                  TEXT PRIMARY KEY,
	athlete_id          TEXT NOT NULL REFERENCES athletes(id) ON DELETE CASCADE,
	session_type        TEXT NOT NULL,
	sport               TEXT NOT NULL,
	duration_minutes    INTEGER NOT NULL,
	started_at          TEXT NOT NULL,
	ended_at            TEXT,
	total_movements     INTEGER NOT NULL DEFAULT 0,
	high_risk_movements INTEGER NOT NULL DEFAULT 0,
	avg_knee_valgus     DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_landing_force   DOUBLE PRECISION NOT NULL DEFAULT 0,
	peak_impact_force   DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sessions_athlete_started ON training_sessions(athlete_id, started_at);

CREATE TABLE IF NOT EXISTS biomechanics_data (
	session_id            TEXT NOT NULL REFERENCES training_sessions(id) ON DELETE CASCADE,
	seq                   INTEGER NOT NULL,
	ts                    TEXT NOT NULL,
	knee_angle            DOUBLE PRECISION NOT NULL,
	hip_angle             DOUBLE PRECISION NOT NULL,
	ankle_angle           DOUBLE PRECISION NOT NULL,
	knee_valgus           DOUBLE PRECISION NOT NULL,
	ground_reaction_force DOUBLE PRECISION NOT NULL,
	movement_type         TEXT NOT NULL,
	risk_score            DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (session_id, seq)
);

CREATE TABLE IF NOT EXISTS risk_assessments (
	athlete_id          TEXT NOT NULL REFERENCES athletes(id) ON DELETE CASCADE,
	assessed_at         TEXT NOT NULL,
	overall_risk        DOUBLE PRECISION NOT NULL,
	movement_risk       DOUBLE PRECISION NOT NULL,
	demographic_risk    DOUBLE PRECISION NOT NULL,
	health_history_risk DOUBLE PRECISION NOT NULL,
	recommendations     TEXT NOT NULL,
	focus_areas         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_athlete ON risk_assessments(athlete_id, assessed_at);
`
