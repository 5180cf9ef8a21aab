// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/studyflow/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

var (
	// ErrLogNotFound indicates no log entry matched.
	ErrLogNotFound = errors.New("log entry not found")
	// ErrAmbiguousUID indicates a uid prefix matched more than one entry.
	ErrAmbiguousUID = errors.New("uid prefix matches more than one log entry")
)

// Timestamps are stored in UTC with fixed-width nanoseconds so that string
// order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for the study log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Writes arrive from tea.Cmd goroutines; serialize them.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS study_logs (
			id INTEGER PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			mode TEXT NOT NULL CHECK(mode IN ('manual', 'pomodoro')),
			subject TEXT NOT NULL,
			topic TEXT NOT NULL,
			focus_seconds INTEGER NOT NULL,
			pause_seconds INTEGER NOT NULL,
			pause_count INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_study_logs_ended_at ON study_logs(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_study_logs_subject ON study_logs(subject);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertLog stores a completed session. A uid is assigned when empty.
func (s *Store) InsertLog(ctx context.Context, entry model.LogEntry) (int64, error) {
	if entry.Mode != model.ModeManual && entry.Mode != model.ModePomodoro {
		return 0, fmt.Errorf("invalid mode %q", entry.Mode)
	}
	if entry.FocusSeconds < 0 || entry.PauseSeconds < 0 || entry.PauseCount < 0 {
		return 0, fmt.Errorf("session metrics must be non-negative")
	}
	if entry.UID == "" {
		entry.UID = uuid.NewString()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO study_logs (uid, mode, subject, topic, focus_seconds, pause_seconds, pause_count, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UID,
		string(entry.Mode),
		entry.Subject,
		entry.Topic,
		entry.FocusSeconds,
		entry.PauseSeconds,
		entry.PauseCount,
		entry.StartedAt.UTC().Format(timeLayout),
		entry.EndedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListLogs returns log entries matching the filter, oldest first. When
// filter.Last is set only the most recent Last entries are returned.
func (s *Store) ListLogs(ctx context.Context, filter model.LogFilter) ([]model.LogEntry, error) {
	where, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT id, uid, mode, subject, topic, focus_seconds, pause_seconds, pause_count, started_at, ended_at
		FROM study_logs
		WHERE %s
		ORDER BY ended_at DESC, id DESC`, where)
	if filter.Last > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var logs []model.LogEntry
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// SubjectTotals aggregates focus and pause time per subject, busiest first.
// When filter.Last is set only the most recent Last matching entries count.
func (s *Store) SubjectTotals(ctx context.Context, filter model.LogFilter) ([]model.SubjectAggregate, error) {
	where, args := filterClauses(filter)
	if filter.Last > 0 {
		where = fmt.Sprintf(`id IN (SELECT id FROM study_logs WHERE %s ORDER BY ended_at DESC, id DESC LIMIT ?)`, where)
		args = append(args, filter.Last)
	}
	query := fmt.Sprintf(`SELECT subject, COUNT(*), SUM(focus_seconds), SUM(pause_seconds), SUM(pause_count), MAX(ended_at)
		FROM study_logs
		WHERE %s
		GROUP BY subject
		ORDER BY SUM(focus_seconds) DESC, subject ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.SubjectAggregate
	for rows.Next() {
		var agg model.SubjectAggregate
		var lastEnded string
		if err := rows.Scan(&agg.Subject, &agg.Sessions, &agg.FocusSeconds, &agg.PauseSeconds, &agg.PauseCount, &lastEnded); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, lastEnded)
		if err != nil {
			return nil, err
		}
		agg.LastEndedAt = parsed.Local()
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FocusSince sums focus seconds of sessions that ended at or after since.
func (s *Store) FocusSince(ctx context.Context, since time.Time) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(focus_seconds) FROM study_logs WHERE ended_at >= ?`,
		since.UTC().Format(timeLayout),
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// DeleteLog removes the entry whose uid starts with prefix.
func (s *Store) DeleteLog(ctx context.Context, prefix string) (model.LogEntry, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return model.LogEntry{}, fmt.Errorf("uid must not be empty")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, uid, mode, subject, topic, focus_seconds, pause_seconds, pause_count, started_at, ended_at
		 FROM study_logs WHERE substr(uid, 1, ?) = ? LIMIT 2`,
		len(prefix), prefix)
	if err != nil {
		return model.LogEntry{}, err
	}
	var matches []model.LogEntry
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			_ = rows.Close()
			return model.LogEntry{}, err
		}
		matches = append(matches, entry)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return model.LogEntry{}, err
	}
	if err := rows.Close(); err != nil {
		return model.LogEntry{}, err
	}
	switch len(matches) {
	case 0:
		return model.LogEntry{}, fmt.Errorf("%w: %s", ErrLogNotFound, prefix)
	case 1:
	default:
		return model.LogEntry{}, fmt.Errorf("%w: %s", ErrAmbiguousUID, prefix)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM study_logs WHERE id = ?`, matches[0].ID); err != nil {
		return model.LogEntry{}, err
	}
	return matches[0], nil
}

func filterClauses(filter model.LogFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Subject != "" {
		clauses = append(clauses, "subject = ? COLLATE NOCASE")
		args = append(args, filter.Subject)
	}
	if filter.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, string(filter.Mode))
	}
	if filter.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	return strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (model.LogEntry, error) {
	var entry model.LogEntry
	var mode, startedAt, endedAt string
	if err := row.Scan(&entry.ID, &entry.UID, &mode, &entry.Subject, &entry.Topic,
		&entry.FocusSeconds, &entry.PauseSeconds, &entry.PauseCount, &startedAt, &endedAt); err != nil {
		return model.LogEntry{}, err
	}
	entry.Mode = model.Mode(mode)
	var err error
	if entry.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return model.LogEntry{}, err
	}
	if entry.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
		return model.LogEntry{}, err
	}
	entry.StartedAt = entry.StartedAt.Local()
	entry.EndedAt = entry.EndedAt.Local()
	return entry, nil
}
