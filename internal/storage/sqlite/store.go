// Package sqlite provides SQLite-backed persistence for sessions and
// attendance records.
//
// A single database file backs both tables, with a UNIQUE constraint on
// (session_name, participant_id) enforcing one attendance mark per
// participant per session at the storage level.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mzhnv/rollcall-go/internal/core/domain"
	"github.com/mzhnv/rollcall-go/internal/core/service"
	"github.com/mzhnv/rollcall-go/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store implements session and attendance persistence over SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the SQLite store at the provided path and applies bundled
// migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	// modernc ignores the go-sqlite3 style underscore aliases, so every
	// pragma goes through the _pragma form.
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	store := &Store{sqlDB: sqlDB}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func ensureForeignKeysEnabled(db *sql.DB) error {
	var enabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// ==== service.SessionRepository ====

// Upsert stores a session, replacing any existing session with the
// same name.
func (s *Store) Upsert(ctx context.Context, session *domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (name, started_at, ended_at, expires_at, version)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	started_at = excluded.started_at,
	ended_at = excluded.ended_at,
	expires_at = excluded.expires_at,
	version = excluded.version
`,
		session.Name,
		session.StartedAt,
		session.EndedAt,
		session.ExpiresAt,
		session.Version,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Get retrieves a session by name.
func (s *Store) Get(ctx context.Context, name string) (*domain.Session, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT name, started_at, ended_at, expires_at, version
FROM sessions
WHERE name = ?
`, name)

	session, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// Update updates an existing session with optimistic locking.
func (s *Store) Update(ctx context.Context, session *domain.Session, expectedVersion uint64) error {
	if err := session.Validate(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE sessions
SET started_at = ?, ended_at = ?, expires_at = ?, version = ?
WHERE name = ? AND version = ?
`,
		session.StartedAt,
		session.EndedAt,
		session.ExpiresAt,
		session.Version,
		session.Name,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing row from a version mismatch
		var one int
		err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE name = ?`, session.Name).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("update session existence check: %w", err)
		}
		return domain.ErrSessionVersionConflict
	}
	return nil
}

// List retrieves sessions matching the given filter with pagination.
func (s *Store) List(ctx context.Context, filter *service.SessionFilter) ([]*domain.Session, int, error) {
	if filter == nil {
		filter = &service.SessionFilter{}
	}

	var conds []string
	var args []any

	switch filter.Status {
	case service.SessionStatusActive:
		conds = append(conds, "ended_at = 0")
	case service.SessionStatusEnded:
		conds = append(conds, "ended_at <> 0")
	}
	if filter.ExpiresBefore > 0 {
		conds = append(conds, "expires_at <> 0 AND expires_at <= ?")
		args = append(args, filter.ExpiresBefore)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	order := " ORDER BY started_at DESC, name ASC"
	if filter.SortOrder == "asc" {
		order = " ORDER BY started_at ASC, name ASC"
	}

	query := "SELECT name, started_at, ended_at, expires_at, version FROM sessions" + where + order
	queryArgs := args

	// PageSize 0 returns every match
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += " LIMIT ? OFFSET ?"
		queryArgs = append(append([]any{}, args...), filter.PageSize, (page-1)*filter.PageSize)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*domain.Session, 0, filter.PageSize)
	for rows.Next() {
		session, scanErr := scanSession(rows.Scan)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("scan session row: %w", scanErr)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, total, nil
}

// ==== service.AttendanceRepository ====

// Insert stores a new attendance record. The UNIQUE constraint on
// (session_name, participant_id) resolves concurrent submissions for
// the same pair to exactly one stored record.
func (s *Store) Insert(ctx context.Context, record *domain.AttendanceRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO attendance_records (id, session_name, participant_id, token, token_ts, submitted_at)
VALUES (?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.SessionName,
		record.ParticipantID,
		record.Token,
		record.TokenTS,
		record.SubmittedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateAttendance
		}
		if isForeignKeyConstraintError(err) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("insert attendance record: %w", err)
	}
	return nil
}

// GetBySessionParticipant retrieves the record a participant submitted
// for a session. Returns (nil, false, nil) when no record exists.
func (s *Store) GetBySessionParticipant(ctx context.Context, sessionName, participantID string) (*domain.AttendanceRecord, bool, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, session_name, participant_id, token, token_ts, submitted_at
FROM attendance_records
WHERE session_name = ? AND participant_id = ?
`, sessionName, participantID)

	record, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get attendance record: %w", err)
	}
	return record, true, nil
}

// ListBySession returns all records for a session ordered by submission
// time, record ID breaking ties.
func (s *Store) ListBySession(ctx context.Context, sessionName string) ([]*domain.AttendanceRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, session_name, participant_id, token, token_ts, submitted_at
FROM attendance_records
WHERE session_name = ?
ORDER BY submitted_at ASC, id ASC
`, sessionName)
	if err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()

	var records []*domain.AttendanceRecord
	for rows.Next() {
		record, scanErr := scanRecord(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan attendance row: %w", scanErr)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return records, nil
}

// CountBySession returns the number of records for a session.
func (s *Store) CountBySession(ctx context.Context, sessionName string) (int, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*) FROM attendance_records WHERE session_name = ?
`, sessionName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attendance records: %w", err)
	}
	return count, nil
}

// ==== Stats ====

// SessionCount returns the total number of sessions.
func (s *Store) SessionCount(ctx context.Context) (int, error) {
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// RecordCount returns the total number of attendance records.
func (s *Store) RecordCount(ctx context.Context) (int, error) {
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM attendance_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("count attendance records: %w", err)
	}
	return count, nil
}

type scanner func(dest ...any) error

func scanSession(scan scanner) (*domain.Session, error) {
	var session domain.Session
	if err := scan(
		&session.Name,
		&session.StartedAt,
		&session.EndedAt,
		&session.ExpiresAt,
		&session.Version,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

func scanRecord(scan scanner) (*domain.AttendanceRecord, error) {
	var record domain.AttendanceRecord
	if err := scan(
		&record.ID,
		&record.SessionName,
		&record.ParticipantID,
		&record.Token,
		&record.TokenTS,
		&record.SubmittedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "unique constraint failed")
}

func isForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "foreign key constraint failed")
}

var _ service.SessionRepository = (*Store)(nil)
var _ service.AttendanceRepository = (*Store)(nil)
