package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"education-agent/internal/domain"
)

// SQLiteStore implements ProfileStore on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("repository: database path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("repository: create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS intake_profiles (
		session_id TEXT PRIMARY KEY,
		student_name TEXT NOT NULL DEFAULT '',
		student_age INTEGER NOT NULL DEFAULT 0,
		area_of_interest TEXT NOT NULL DEFAULT '',
		student_query TEXT NOT NULL DEFAULT '',
		guidance_type TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		completed_at TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_intake_profiles_guidance ON intake_profiles(guidance_type);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// UpsertProfile merges rec into the stored row. Empty values in rec keep the
// stored value unless rec.Reopen is set, in which case rec replaces the row.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, rec domain.ProfileRecord) error {
	if strings.TrimSpace(rec.SessionID) == "" {
		return errors.New("repository: UpsertProfile: session id is required")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	completedAt := ""
	if rec.GuidanceType != "" {
		completedAt = now
	}

	query := `
	INSERT INTO intake_profiles (
		session_id, student_name, student_age, area_of_interest, student_query,
		guidance_type, created_at, updated_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		student_name = CASE WHEN ? THEN excluded.student_name
			ELSE COALESCE(NULLIF(excluded.student_name, ''), intake_profiles.student_name) END,
		student_age = CASE WHEN ? THEN excluded.student_age
			ELSE COALESCE(NULLIF(excluded.student_age, 0), intake_profiles.student_age) END,
		area_of_interest = CASE WHEN ? THEN excluded.area_of_interest
			ELSE COALESCE(NULLIF(excluded.area_of_interest, ''), intake_profiles.area_of_interest) END,
		student_query = CASE WHEN ? THEN excluded.student_query
			ELSE COALESCE(NULLIF(excluded.student_query, ''), intake_profiles.student_query) END,
		guidance_type = CASE WHEN ? THEN excluded.guidance_type
			ELSE COALESCE(NULLIF(excluded.guidance_type, ''), intake_profiles.guidance_type) END,
		completed_at = CASE WHEN ? THEN excluded.completed_at
			ELSE COALESCE(NULLIF(excluded.completed_at, ''), intake_profiles.completed_at) END,
		updated_at = excluded.updated_at`

	reopen := rec.Reopen
	_, err := s.db.ExecContext(ctx, query,
		rec.SessionID, rec.Name, rec.Age, rec.Interest, rec.Query,
		string(rec.GuidanceType), now, now, completedAt,
		reopen, reopen, reopen, reopen, reopen, reopen,
	)
	if err != nil {
		return fmt.Errorf("repository: UpsertProfile: %w", err)
	}
	return nil
}

// GetProfile reads the stored row for sessionID.
func (s *SQLiteStore) GetProfile(ctx context.Context, sessionID string) (domain.ProfileRecord, bool, error) {
	query := `
		SELECT session_id, student_name, student_age, area_of_interest, student_query,
		       guidance_type, updated_at, completed_at
		FROM intake_profiles WHERE session_id = ?`

	var rec domain.ProfileRecord
	var guidance string
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&rec.SessionID, &rec.Name, &rec.Age, &rec.Interest, &rec.Query,
		&guidance, &rec.UpdatedAt, &rec.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProfileRecord{}, false, nil
	}
	if err != nil {
		return domain.ProfileRecord{}, false, fmt.Errorf("repository: GetProfile: %w", err)
	}
	rec.GuidanceType = domain.Category(guidance)
	return rec, true, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
