package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/htafolla/StringRay-sub003/pkg/models"
)

// RecordDelegation persists one completed delegation.
func (db *DB) RecordDelegation(rec models.DelegationRecord) error {
	agents, err := json.Marshal(rec.Agents)
	if err != nil {
		return fmt.Errorf("marshal agents: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = db.Exec(`
		INSERT INTO delegations (id, session_id, operation, strategy, complexity_level, complexity_score, agents, success, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.SessionID,
		rec.Operation,
		string(rec.Strategy),
		string(rec.ComplexityLevel),
		rec.ComplexityScore,
		string(agents),
		boolToInt(rec.Success),
		rec.Duration.Milliseconds(),
		formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("insert delegation: %w", err)
	}
	return nil
}

// ListRecent returns the most recent delegations, newest first.
func (db *DB) ListRecent(limit int) ([]models.DelegationRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT id, session_id, operation, strategy, complexity_level, complexity_score, agents, success, duration_ms, created_at
		FROM delegations
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list delegations: %w", err)
	}
	defer rows.Close()

	var recs []models.DelegationRecord
	for rows.Next() {
		rec, err := scanDelegation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ListBySession returns all delegations recorded for a session, oldest first.
func (db *DB) ListBySession(sessionID string) ([]models.DelegationRecord, error) {
	rows, err := db.Query(`
		SELECT id, session_id, operation, strategy, complexity_level, complexity_score, agents, success, duration_ms, created_at
		FROM delegations
		WHERE session_id = ?
		ORDER BY created_at, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session delegations: %w", err)
	}
	defer rows.Close()

	var recs []models.DelegationRecord
	for rows.Next() {
		rec, err := scanDelegation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// MetricsSummary aggregates persisted history into rolling metrics.
func (db *DB) MetricsSummary() (models.DelegationMetrics, error) {
	var m models.DelegationMetrics
	m.StrategyUsage = make(map[models.Strategy]int64)

	row := db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(success), 0),
		       COALESCE(AVG(complexity_score), 0),
		       COALESCE(AVG(duration_ms), 0)
		FROM delegations
	`)
	var avgMs float64
	if err := row.Scan(&m.TotalDelegations, &m.SuccessfulDelegations, &m.AverageComplexity, &avgMs); err != nil {
		return m, fmt.Errorf("aggregate delegations: %w", err)
	}
	m.FailedDelegations = m.TotalDelegations - m.SuccessfulDelegations
	m.AverageDuration = time.Duration(avgMs * float64(time.Millisecond))

	rows, err := db.Query(`SELECT strategy, COUNT(*) FROM delegations GROUP BY strategy`)
	if err != nil {
		return m, fmt.Errorf("aggregate strategies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var strategy string
		var count int64
		if err := rows.Scan(&strategy, &count); err != nil {
			return m, fmt.Errorf("scan strategy count: %w", err)
		}
		m.StrategyUsage[models.Strategy(strategy)] = count
	}
	return m, rows.Err()
}

// scanDelegation reads one delegation row.
func scanDelegation(rows *sql.Rows) (models.DelegationRecord, error) {
	var rec models.DelegationRecord
	var strategy, level, agents, createdAt string
	var success int
	var durationMs int64
	var sessionID sql.NullString

	err := rows.Scan(&rec.ID, &sessionID, &rec.Operation, &strategy, &level, &rec.ComplexityScore, &agents, &success, &durationMs, &createdAt)
	if err != nil {
		return rec, fmt.Errorf("scan delegation: %w", err)
	}

	rec.SessionID = sessionID.String
	rec.Strategy = models.Strategy(strategy)
	rec.ComplexityLevel = models.ComplexityLevel(level)
	rec.Success = success != 0
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	if err := json.Unmarshal([]byte(agents), &rec.Agents); err != nil {
		return rec, fmt.Errorf("unmarshal agents: %w", err)
	}
	if t, err := parseTime(createdAt); err == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
