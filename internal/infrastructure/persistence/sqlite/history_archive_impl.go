package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/repository"
)

// HistoryArchiveImpl implements repository.HistoryArchive with SQLite.
// It keeps one row per finalized day, without State's cap.
type HistoryArchiveImpl struct {
	db  *sql.DB
	now func() time.Time
}

// OpenHistoryArchive opens (creating if needed) the archive database at
// path and applies migrations
func OpenHistoryArchive(path string) (*HistoryArchiveImpl, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	archive, err := NewHistoryArchive(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return archive, nil
}

// NewHistoryArchive wraps an open database, applying migrations
func NewHistoryArchive(db *sql.DB) (*HistoryArchiveImpl, error) {
	if err := NewMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &HistoryArchiveImpl{db: db, now: time.Now}, nil
}

// Record upserts the row for entry.Day; the last write for a day wins
func (a *HistoryArchiveImpl) Record(ctx context.Context, entry checkin.HistoryEntry, summary string) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO history_days (day, rating, mode, streak_counted, done_count, total, summary, finalized_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			rating = excluded.rating,
			mode = excluded.mode,
			streak_counted = excluded.streak_counted,
			done_count = excluded.done_count,
			total = excluded.total,
			summary = excluded.summary,
			finalized_at = excluded.finalized_at`,
		entry.Day,
		entry.Rating.String(),
		entry.Mode.String(),
		entry.StreakCounted,
		entry.DoneCount,
		entry.Total,
		summary,
		a.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record history day %s: %w", entry.Day, err)
	}
	return nil
}

// List returns archived days newest first. limit <= 0 returns all.
func (a *HistoryArchiveImpl) List(ctx context.Context, limit int) ([]repository.ArchivedDay, error) {
	query := `SELECT day, rating, mode, streak_counted, done_count, total, summary, finalized_at
		FROM history_days ORDER BY day DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	days := []repository.ArchivedDay{}
	for rows.Next() {
		var (
			d            repository.ArchivedDay
			rating, mode string
		)
		if err := rows.Scan(&d.Day, &rating, &mode, &d.StreakCounted, &d.DoneCount, &d.Total, &d.Summary, &d.FinalizedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if d.Rating, err = checkin.ParseRating(rating); err != nil {
			return nil, fmt.Errorf("history day %s: %w", d.Day, err)
		}
		d.Mode = checkin.ParseMode(mode)
		days = append(days, d)
	}
	return days, rows.Err()
}

// Close closes the database
func (a *HistoryArchiveImpl) Close() error {
	return a.db.Close()
}
