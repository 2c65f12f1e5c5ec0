package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/go-beacon/pkg/core/domain"
	"github.com/wadjakorntonsri/go-beacon/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

// DefaultDSN keeps the report store in memory; the flat log stays the
// only persistent record of visits.
const DefaultDSN = "file:beacon-report?mode=memory&cache=shared"

// IsInMemory reports whether dbURL names a database that vanishes with the
// process.
func IsInMemory(dbURL string) bool {
	if dbURL == "" {
		dbURL = DefaultDSN
	}
	return strings.Contains(dbURL, ":memory:") || strings.Contains(dbURL, "mode=memory")
}

type VisitRepository struct {
	db  *sql.DB
	loc *time.Location
}

var _ ports.VisitRepository = (*VisitRepository)(nil)

func NewVisitRepository(dbURL string) (*VisitRepository, error) {
	if dbURL == "" {
		dbURL = DefaultDSN
	}

	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &VisitRepository{db: db, loc: time.Local}, nil
}

// SetLocation sets the zone stored timestamps are read back in.
func (r *VisitRepository) SetLocation(loc *time.Location) {
	if loc != nil {
		r.loc = loc
	}
}

func (r *VisitRepository) Close() error {
	return r.db.Close()
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		visited_at TEXT NOT NULL,
		anonymized_ip TEXT NOT NULL,
		url TEXT NOT NULL,
		referrer TEXT NOT NULL,
		user_agent TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_visits_visited_at ON visits(visited_at);
	CREATE INDEX IF NOT EXISTS idx_visits_url ON visits(url);
	`
	_, err := db.Exec(query)
	return err
}

func (r *VisitRepository) RecordVisit(ctx context.Context, visit *domain.Visit) error {
	query := `INSERT INTO visits (visited_at, anonymized_ip, url, referrer, user_agent) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		visit.Timestamp.Format(domain.TimeLayout),
		visit.AnonymizedIP,
		visit.URL,
		visit.Referrer,
		visit.UserAgent,
	)
	return err
}

// RecordVisits inserts a batch in one transaction.
func (r *VisitRepository) RecordVisits(ctx context.Context, visits []domain.Visit) error {
	return r.insert(ctx, visits, false)
}

// ReplaceVisits swaps the stored visits for the given batch atomically.
func (r *VisitRepository) ReplaceVisits(ctx context.Context, visits []domain.Visit) error {
	return r.insert(ctx, visits, true)
}

func (r *VisitRepository) insert(ctx context.Context, visits []domain.Visit, replace bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM visits`); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO visits (visited_at, anonymized_ip, url, referrer, user_agent) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range visits {
		if _, err := stmt.ExecContext(ctx, v.Timestamp.Format(domain.TimeLayout), v.AnonymizedIP, v.URL, v.Referrer, v.UserAgent); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *VisitRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visits`).Scan(&count)
	return count, err
}

func (r *VisitRepository) Dump(ctx context.Context) ([]domain.Visit, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT visited_at, anonymized_ip, url, referrer, user_agent FROM visits ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []domain.Visit
	for rows.Next() {
		var v domain.Visit
		var ts string
		if err := rows.Scan(&ts, &v.AnonymizedIP, &v.URL, &v.Referrer, &v.UserAgent); err != nil {
			return nil, err
		}
		v.Timestamp, err = time.ParseInLocation(domain.TimeLayout, ts, r.loc)
		if err != nil {
			return nil, fmt.Errorf("visit timestamp %q: %w", ts, err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func (r *VisitRepository) GetStats(ctx context.Context, limit int) (*domain.VisitStats, error) {
	if limit < 1 {
		limit = 10
	}

	stats := &domain.VisitStats{
		TopURLs:      []domain.CountEntry{},
		TopReferrers: []domain.CountEntry{},
		DailyVisits:  []domain.DailyVisit{},
	}

	total, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalVisits = total

	stats.TopURLs, err = r.topBy(ctx, "url", limit)
	if err != nil {
		return nil, err
	}

	stats.TopReferrers, err = r.topBy(ctx, "referrer", limit)
	if err != nil {
		return nil, err
	}

	// Daily Visits (Last 30 days present in the data)
	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(visited_at, 1, 10) AS date, COUNT(*)
		FROM visits
		GROUP BY date
		ORDER BY date DESC
		LIMIT 30`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var dv domain.DailyVisit
		if err := rows.Scan(&dv.Date, &dv.Count); err != nil {
			return nil, err
		}
		stats.DailyVisits = append(stats.DailyVisits, dv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// topBy groups by a fixed column name; column is never user input.
func (r *VisitRepository) topBy(ctx context.Context, column string, limit int) ([]domain.CountEntry, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) AS c FROM visits GROUP BY %s ORDER BY c DESC, %s ASC LIMIT ?`, column, column, column)
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.CountEntry{}
	for rows.Next() {
		var e domain.CountEntry
		if err := rows.Scan(&e.Key, &e.Count); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
