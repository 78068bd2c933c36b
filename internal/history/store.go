package history

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
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// RecordRun stores a run with its entries and drops in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id required")
	}
	if run.Status == "" {
		run.Status = StatusSucceeded
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (
            id, feed, status, started_at, finished_at,
            scraped, emitted, dropped, output_path, error_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Feed,
		run.Status,
		run.StartedAt.UTC().Format(timeLayout),
		nullableTime(run.FinishedAt),
		run.Scraped,
		run.Emitted,
		run.Dropped,
		nullableString(run.OutputPath),
		nullableString(run.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, entry := range run.Entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO entries (
                run_id, position, tmdb_id, title, external_id, popularity,
                rating_primary, rating_secondary, score, selected, poster_url
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i+1, entry.TMDBID, entry.Title, nullableString(entry.ExternalID), entry.Popularity,
			entry.RatingPrimary, nullableFloat(entry.RatingSecondary), entry.Score, boolToInt(entry.Selected),
			nullableString(entry.PosterURL),
		)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}
	for i, drop := range run.Drops {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO drops (run_id, position, title, year, reason, tmdb_id, error_message)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i+1, drop.Title, nullableInt(int64(drop.Year)), drop.Reason,
			nullableInt(drop.TMDBID), nullableString(drop.ErrorMessage),
		)
		if err != nil {
			return fmt.Errorf("insert drop: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = "id, feed, status, started_at, finished_at, scraped, emitted, dropped, output_path, error_message"

// ListRuns returns the most recent runs, newest first. An empty feed lists
// every feed; a non-positive limit lists everything.
func (s *Store) ListRuns(ctx context.Context, feed string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if feed = strings.TrimSpace(feed); feed != "" {
		query += ` WHERE feed = ?`
		args = append(args, feed)
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run with its entries and drops. A missing run returns nil.
// A unique id prefix is accepted.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("run id required")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id LIMIT 2`, id, len(id), id)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var run *Run
	for _, match := range matches {
		if match.ID == id {
			run = match
		}
	}
	switch {
	case run != nil:
	case len(matches) == 1:
		run = matches[0]
	case len(matches) > 1:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	default:
		return nil, nil
	}

	if run.Entries, err = s.entries(ctx, run.ID); err != nil {
		return nil, err
	}
	if run.Drops, err = s.drops(ctx, run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

// PruneBefore deletes runs that started before cutoff.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, tmdb_id, title, external_id, popularity, rating_primary, rating_secondary, score, selected, poster_url
         FROM entries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			entry      Entry
			externalID sql.NullString
			secondary  sql.NullFloat64
			selected   int
			posterURL  sql.NullString
		)
		if err := rows.Scan(&entry.Position, &entry.TMDBID, &entry.Title, &externalID, &entry.Popularity,
			&entry.RatingPrimary, &secondary, &entry.Score, &selected, &posterURL); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.ExternalID = externalID.String
		if secondary.Valid {
			value := secondary.Float64
			entry.RatingSecondary = &value
		}
		entry.Selected = selected != 0
		entry.PosterURL = posterURL.String
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Store) drops(ctx context.Context, runID string) ([]Drop, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, title, year, reason, tmdb_id, error_message
         FROM drops WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list drops: %w", err)
	}
	defer rows.Close()
	var out []Drop
	for rows.Next() {
		var (
			drop    Drop
			year    sql.NullInt64
			tmdbID  sql.NullInt64
			message sql.NullString
		)
		if err := rows.Scan(&drop.Position, &drop.Title, &year, &drop.Reason, &tmdbID, &message); err != nil {
			return nil, fmt.Errorf("scan drop: %w", err)
		}
		drop.Year = int(year.Int64)
		drop.TMDBID = tmdbID.Int64
		drop.ErrorMessage = message.String
		out = append(out, drop)
	}
	return out, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		outputPath  sql.NullString
		message     sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Feed, &status, &startedRaw, &finishedRaw,
		&run.Scraped, &run.Emitted, &run.Dropped, &outputPath, &message); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	run.OutputPath = outputPath.String
	run.ErrorMessage = message.String
	return &run, nil
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(timeLayout)
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
