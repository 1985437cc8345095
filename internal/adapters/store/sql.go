package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/aclguard/internal/domain/model"
	"github.com/okian/aclguard/internal/domain/session"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQL is a Store backed by database/sql.
type SQL struct {
	db     *sql.DB
	driver string
}

var _ Store = (*SQL)(nil)

// OpenSQL opens the database, applies pragmas for SQLite and creates the
// schema if missing.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, collaborator("open database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, collaborator("ping database", err)
	}

	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, collaborator("set pragma", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, collaborator("create schema", err)
	}
	return &SQL{db: db, driver: driver}, nil
}

// sqliteDSN adds per-connection pragmas understood by modernc.org/sqlite.
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
}

// Close closes the underlying pool.
func (s *SQL) Close() error { return s.db.Close() }

// querier is satisfied by *sql.DB and *sql.Conn.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQL) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fmtTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

// SaveAthlete upserts the profile by athlete ID.
func (s *SQL) SaveAthlete(ctx context.Context, p model.AthleteProfile) error {
	defer observe("save_athlete", time.Now())
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO athletes (id, sex, age, bmi, rural, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET sex = excluded.sex, age = excluded.age, bmi = excluded.bmi,
			rural = excluded.rural, updated_at = excluded.updated_at`),
		p.AthleteID, string(p.Sex), p.Age, p.BMI, p.Rural, fmtTime(time.Now()))
	if err != nil {
		return collaborator("save athlete", err)
	}
	return nil
}

// LoadAthlete implements Store.LoadAthlete.
func (s *SQL) LoadAthlete(ctx context.Context, athleteID string) (model.AthleteProfile, error) {
	defer observe("load_athlete", time.Now())
	p := model.AthleteProfile{AthleteID: athleteID}
	var sex string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT sex, age, bmi, rural FROM athletes WHERE id = ?`), athleteID).
		Scan(&sex, &p.Age, &p.BMI, &p.Rural)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AthleteProfile{}, notFound("athlete", athleteID)
	}
	if err != nil {
		return model.AthleteProfile{}, collaborator("load athlete", err)
	}
	p.Sex = model.Sex(sex)
	return p, nil
}

func (s *SQL) athleteExists(ctx context.Context, athleteID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM athletes WHERE id = ?`), athleteID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("athlete", athleteID)
	}
	if err != nil {
		return collaborator("load athlete", err)
	}
	return nil
}

// SaveInjuryHistoryRisk implements Store.SaveInjuryHistoryRisk.
func (s *SQL) SaveInjuryHistoryRisk(ctx context.Context, athleteID string, risk float64) error {
	if err := s.athleteExists(ctx, athleteID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO injury_history (athlete_id, risk, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (athlete_id) DO UPDATE SET risk = excluded.risk, updated_at = excluded.updated_at`),
		athleteID, risk, fmtTime(time.Now()))
	if err != nil {
		return collaborator("save injury history", err)
	}
	return nil
}

// LoadInjuryHistoryRisk implements Store.LoadInjuryHistoryRisk.
func (s *SQL) LoadInjuryHistoryRisk(ctx context.Context, athleteID string) (float64, bool, error) {
	defer observe("load_history", time.Now())
	var risk float64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT risk FROM injury_history WHERE athlete_id = ?`), athleteID).Scan(&risk)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, collaborator("load injury history", err)
	}
	return risk, true, nil
}

// CreateSession implements Store.CreateSession.
func (s *SQL) CreateSession(ctx context.Context, info model.SessionInfo) error {
	defer observe("create_session", time.Now())
	if err := s.athleteExists(ctx, info.AthleteID); err != nil {
		return err
	}
	var ended sql.NullString
	if info.EndedAt != nil {
		ended = sql.NullString{String: fmtTime(*info.EndedAt), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO training_sessions (id, athlete_id, session_type, sport, duration_minutes, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		info.ID, info.AthleteID, info.SessionType, info.Sport, info.DurationMinutes, fmtTime(info.StartedAt), ended)
	if err != nil {
		return collaborator("create session", err)
	}
	return nil
}

const sessionColumns = `id, athlete_id, session_type, sport, duration_minutes, started_at, ended_at`

type scanner interface{ Scan(dest ...any) error }

func scanSession(row scanner) (model.SessionInfo, error) {
	var (
		info    model.SessionInfo
		started string
		ended   sql.NullString
	)
	if err := row.Scan(&info.ID, &info.AthleteID, &info.SessionType, &info.Sport, &info.DurationMinutes, &started, &ended); err != nil {
		return model.SessionInfo{}, err
	}
	t, err := parseTime(started)
	if err != nil {
		return model.SessionInfo{}, err
	}
	info.StartedAt = t
	if ended.Valid {
		e, err := parseTime(ended.String)
		if err != nil {
			return model.SessionInfo{}, err
		}
		info.EndedAt = &e
	}
	return info, nil
}

// LoadSession implements Store.LoadSession.
func (s *SQL) LoadSession(ctx context.Context, sessionID string) (model.SessionInfo, error) {
	return s.loadSession(ctx, s.db, sessionID)
}

func (s *SQL) loadSession(ctx context.Context, q querier, sessionID string) (model.SessionInfo, error) {
	info, err := scanSession(q.QueryRowContext(ctx, s.rebind(`SELECT `+sessionColumns+` FROM training_sessions WHERE id = ?`), sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionInfo{}, notFound("session", sessionID)
	}
	if err != nil {
		return model.SessionInfo{}, collaborator("load session", err)
	}
	return info, nil
}

// ListSessions implements Store.ListSessions.
func (s *SQL) ListSessions(ctx context.Context, athleteID string, limit int) ([]model.SessionInfo, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+sessionColumns+` FROM training_sessions
		WHERE athlete_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`), athleteID, limit)
	if err != nil {
		return nil, collaborator("list sessions", err)
	}
	defer rows.Close()

	var out []model.SessionInfo
	for rows.Next() {
		info, err := scanSession(rows)
		if err != nil {
			return nil, collaborator("scan session", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, collaborator("list sessions", err)
	}
	return out, nil
}

// insertSample assigns the next sequence number of the session inside the
// statement, so writers sharing a session never reuse a seq.
const insertSample = `INSERT INTO biomechanics_data (session_id, seq, ts, knee_angle, hip_angle, ankle_angle,
	knee_valgus, ground_reaction_force, movement_type, risk_score)
	SELECT CAST(? AS TEXT), COALESCE(MAX(seq), -1) + 1, CAST(? AS TEXT),
		CAST(? AS DOUBLE PRECISION), CAST(? AS DOUBLE PRECISION), CAST(? AS DOUBLE PRECISION),
		CAST(? AS DOUBLE PRECISION), CAST(? AS DOUBLE PRECISION), CAST(? AS TEXT), CAST(? AS DOUBLE PRECISION)
	FROM biomechanics_data WHERE session_id = ?`

// insertRetries bounds the attempts when a concurrent writer claims the same
// seq first. Only postgres can race here; sqlite serializes writers.
const insertRetries = 3

func (s *SQL) insertSample(ctx context.Context, q querier, sessionID string, sm model.ScoredSample) error {
	_, err := q.ExecContext(ctx, s.rebind(insertSample), sessionID, fmtTime(sm.Timestamp),
		sm.KneeAngle, sm.HipAngle, sm.AnkleAngle, sm.KneeValgus, sm.GroundReactionForce,
		string(sm.Movement), sm.RiskScore, sessionID)
	return err
}

// isSeqConflict reports a primary-key violation on (session_id, seq).
func isSeqConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// SaveSamples implements Store.SaveSamples. The whole batch commits or
// none of it does.
func (s *SQL) SaveSamples(ctx context.Context, sessionID string, samples []model.ScoredSample) error {
	defer observe("save_samples", time.Now())
	if _, err := s.LoadSession(ctx, sessionID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return collaborator("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, sm := range samples {
		if err := s.insertSample(ctx, tx, sessionID, sm); err != nil {
			return collaborator("save sample", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return collaborator("commit samples", err)
	}
	return nil
}

// LoadSessionSamples implements Store.LoadSessionSamples.
func (s *SQL) LoadSessionSamples(ctx context.Context, sessionID string) ([]model.ScoredSample, error) {
	defer observe("load_samples", time.Now())
	if _, err := s.LoadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.loadSamples(ctx, s.db, sessionID)
}

func (s *SQL) loadSamples(ctx context.Context, q querier, sessionID string) ([]model.ScoredSample, error) {
	rows, err := q.QueryContext(ctx, s.rebind(`SELECT ts, knee_angle, hip_angle, ankle_angle, knee_valgus,
		ground_reaction_force, movement_type, risk_score FROM biomechanics_data WHERE session_id = ? ORDER BY seq`), sessionID)
	if err != nil {
		return nil, collaborator("load samples", err)
	}
	defer rows.Close()

	out := []model.ScoredSample{}
	for rows.Next() {
		var (
			ts, mt string
			sc     model.ScoredSample
		)
		if err := rows.Scan(&ts, &sc.KneeAngle, &sc.HipAngle, &sc.AnkleAngle, &sc.KneeValgus,
			&sc.GroundReactionForce, &mt, &sc.RiskScore); err != nil {
			return nil, collaborator("scan sample", err)
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, collaborator("parse sample time", err)
		}
		sc.Timestamp = t
		sc.Movement = model.MovementType(mt)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, collaborator("load samples", err)
	}
	return out, nil
}

const updateSessionStats = `UPDATE training_sessions SET ended_at = ?, total_movements = ?, high_risk_movements = ?,
	avg_knee_valgus = ?, avg_landing_force = ?, peak_impact_force = ? WHERE id = ?`

func (s *SQL) saveSession(ctx context.Context, q querier, stats model.SessionStats) error {
	res, err := q.ExecContext(ctx, s.rebind(updateSessionStats), fmtTime(time.Now()), stats.TotalMovements,
		stats.HighRiskMovements, stats.AvgKneeValgus, stats.AvgGRF, stats.PeakGRF, stats.SessionID)
	if err != nil {
		return collaborator("save session", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("session", stats.SessionID)
	}
	return nil
}

// SaveSession implements Store.SaveSession.
func (s *SQL) SaveSession(ctx context.Context, stats model.SessionStats) error {
	defer observe("save_session", time.Now())
	return s.saveSession(ctx, s.db, stats)
}

// LoadRecentSessions implements Store.LoadRecentSessions.
func (s *SQL) LoadRecentSessions(ctx context.Context, athleteID string, limit int) ([]RecentSession, error) {
	defer observe("load_recent_sessions", time.Now())
	infos, err := s.ListSessions(ctx, athleteID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RecentSession, 0, len(infos))
	for _, info := range infos {
		scored, err := s.loadSamples(ctx, s.db, info.ID)
		if err != nil {
			return nil, err
		}
		samples := make([]model.Sample, len(scored))
		for i, sc := range scored {
			samples[i] = sc.Sample
		}
		out = append(out, RecentSession{Info: info, Summary: session.Summarize(samples)})
	}
	return out, nil
}

// SaveAssessment implements Store.SaveAssessment.
func (s *SQL) SaveAssessment(ctx context.Context, a model.RiskAssessment) error {
	defer observe("save_assessment", time.Now())
	focus, err := json.Marshal(a.FocusAreas)
	if err != nil {
		return collaborator("encode focus areas", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO risk_assessments (athlete_id, assessed_at, overall_risk,
		movement_risk, demographic_risk, health_history_risk, recommendations, focus_areas) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		a.AthleteID, fmtTime(a.AssessedAt), a.Overall, a.Movement, a.Demographic, a.HealthHistory, a.Recommendations, string(focus))
	if err != nil {
		return collaborator("save assessment", err)
	}
	return nil
}

// LoadLatestAssessment implements Store.LoadLatestAssessment.
func (s *SQL) LoadLatestAssessment(ctx context.Context, athleteID string) (model.RiskAssessment, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT athlete_id, assessed_at, overall_risk, movement_risk,
		demographic_risk, health_history_risk, recommendations, focus_areas FROM risk_assessments WHERE athlete_id = ?
		ORDER BY assessed_at DESC LIMIT 1`), athleteID)
	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RiskAssessment{}, notFound("assessment", athleteID)
	}
	return a, err
}

// LoadLatestAssessments implements Store.LoadLatestAssessments.
func (s *SQL) LoadLatestAssessments(ctx context.Context) ([]model.RiskAssessment, error) {
	defer observe("load_assessments", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT r.athlete_id, r.assessed_at, r.overall_risk, r.movement_risk,
		r.demographic_risk, r.health_history_risk, r.recommendations, r.focus_areas FROM risk_assessments r
		WHERE r.assessed_at = (SELECT MAX(assessed_at) FROM risk_assessments WHERE athlete_id = r.athlete_id)
		ORDER BY r.athlete_id`)
	if err != nil {
		return nil, collaborator("load assessments", err)
	}
	defer rows.Close()
	var out []model.RiskAssessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		// two assessments stored within the same instant
		if n := len(out); n > 0 && out[n-1].AthleteID == a.AthleteID {
			continue
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, collaborator("load assessments", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(r rowScanner) (model.RiskAssessment, error) {
	var (
		a               model.RiskAssessment
		assessed, focus string
	)
	err := r.Scan(&a.AthleteID, &assessed, &a.Overall, &a.Movement, &a.Demographic, &a.HealthHistory,
		&a.Recommendations, &focus)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RiskAssessment{}, err
	}
	if err != nil {
		return model.RiskAssessment{}, collaborator("load assessment", err)
	}
	if a.AssessedAt, err = parseTime(assessed); err != nil {
		return model.RiskAssessment{}, collaborator("parse assessment time", err)
	}
	if err := json.Unmarshal([]byte(focus), &a.FocusAreas); err != nil {
		return model.RiskAssessment{}, collaborator("decode focus areas", err)
	}
	return a, nil
}

// OpenSampleWriter pins a dedicated connection for the lane.
func (s *SQL) OpenSampleWriter(ctx context.Context, sessionID string) (SampleWriter, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, collaborator("acquire connection", err)
	}
	if _, err := s.loadSession(ctx, conn, sessionID); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &sqlWriter{s: s, conn: conn, sessionID: sessionID}, nil
}

type sqlWriter struct {
	s         *SQL
	conn      *sql.Conn
	sessionID string
}

func (w *sqlWriter) SaveSample(ctx context.Context, sm model.ScoredSample) error {
	defer observe("save_sample", time.Now())
	if w.conn == nil {
		return ErrWriterClosed
	}
	var err error
	for range insertRetries {
		if err = w.s.insertSample(ctx, w.conn, w.sessionID, sm); !isSeqConflict(err) {
			break
		}
	}
	if err != nil {
		return collaborator("save sample", err)
	}
	return nil
}

func (w *sqlWriter) LoadSamples(ctx context.Context) ([]model.ScoredSample, error) {
	defer observe("load_samples", time.Now())
	if w.conn == nil {
		return nil, ErrWriterClosed
	}
	return w.s.loadSamples(ctx, w.conn, w.sessionID)
}

func (w *sqlWriter) SaveSession(ctx context.Context, stats model.SessionStats) error {
	defer observe("save_session", time.Now())
	if w.conn == nil {
		return ErrWriterClosed
	}
	stats.SessionID = w.sessionID
	return w.s.saveSession(ctx, w.conn, stats)
}

// Close returns the connection to the pool. It is idempotent.
func (w *sqlWriter) Close() error {
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}
