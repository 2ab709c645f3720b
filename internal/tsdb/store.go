// Package tsdb is a SQLite-backed time series datastore. One database file
// holds any number of series, each keyed by its identifier without origin.
package tsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/specialistvlad/tsflow/internal/timeseries"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no stored series has the requested identifier.
var ErrNotFound = errors.New("time series not found")

const timeLayout = "2006-01-02 15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS series (
	id          INTEGER PRIMARY KEY,
	tsid        TEXT NOT NULL UNIQUE COLLATE NOCASE,
	location    TEXT NOT NULL,
	source      TEXT NOT NULL,
	data_type   TEXT NOT NULL,
	interval    TEXT NOT NULL,
	qualifier   TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	units       TEXT NOT NULL DEFAULT '',
	updated_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS observations (
	series_id INTEGER NOT NULL REFERENCES series(id) ON DELETE CASCADE,
	ts        TEXT NOT NULL,
	value     REAL NOT NULL,
	PRIMARY KEY (series_id, ts)
);
`

// Store is an open datastore. It implements io.Closer so the processor can
// release it at the end of a session.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies the schema. The
// path ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string { return s.path }

func (s *Store) String() string { return "sqlite:" + s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Write stores ts, replacing the stored values inside its period. Values
// outside the period are kept. Missing values are not stored.
func (s *Store) Write(ctx context.Context, ts *timeseries.TimeSeries) error {
	if ts.IsPlaceholder() {
		return fmt.Errorf("cannot write %s: series holds no data", ts.Ident.Key())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := ts.Ident
	var seriesID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO series (tsid, location, source, data_type, interval, qualifier, description, units, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tsid) DO UPDATE SET
			description = excluded.description,
			units = excluded.units,
			updated_at = excluded.updated_at
		RETURNING id`,
		id.Key(), id.Location, id.Source, id.DataType, id.Interval, id.Qualifier,
		ts.Description, ts.Units, time.Now().UTC().Format(time.RFC3339),
	).Scan(&seriesID)
	if err != nil {
		return fmt.Errorf("upserting series %s: %w", id.Key(), err)
	}

	if ts.Len() > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM observations WHERE series_id = ? AND ts >= ? AND ts <= ?`,
			seriesID, ts.Start().Format(timeLayout), ts.End().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("clearing period of %s: %w", id.Key(), err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO observations (series_id, ts, value) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for i := 0; i < ts.Len(); i++ {
			v := ts.ValueAt(i)
			if timeseries.IsMissing(v) {
				continue
			}
			if _, err := stmt.ExecContext(ctx, seriesID, ts.DateAt(i).Format(timeLayout), v); err != nil {
				return fmt.Errorf("inserting value of %s: %w", id.Key(), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", id.Key(), err)
	}
	return nil
}

// Read loads the series with the identifier of id. A zero start or end is
// replaced by the first or last stored date.
func (s *Store) Read(ctx context.Context, id timeseries.Ident, start, end time.Time) (*timeseries.TimeSeries, error) {
	var (
		seriesID           int64
		description, units string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, description, units FROM series WHERE tsid = ?`, id.Key(),
	).Scan(&seriesID, &description, &units)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id.Key(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", id.Key(), err)
	}

	if start.IsZero() || end.IsZero() {
		var first, last sql.NullString
		err := s.db.QueryRowContext(ctx,
			`SELECT MIN(ts), MAX(ts) FROM observations WHERE series_id = ?`, seriesID,
		).Scan(&first, &last)
		if err != nil {
			return nil, fmt.Errorf("reading period of %s: %w", id.Key(), err)
		}
		if !first.Valid {
			return nil, fmt.Errorf("%s has no stored values and no period was given", id.Key())
		}
		if start.IsZero() {
			if start, err = time.Parse(timeLayout, first.String); err != nil {
				return nil, err
			}
		}
		if end.IsZero() {
			if end, err = time.Parse(timeLayout, last.String); err != nil {
				return nil, err
			}
		}
	}

	ts, err := timeseries.New(id, start, end)
	if err != nil {
		return nil, err
	}
	ts.Description, ts.Units = description, units

	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, value FROM observations WHERE series_id = ? AND ts >= ? AND ts <= ? ORDER BY ts`,
		seriesID, ts.Start().Format(timeLayout), ts.End().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("reading values of %s: %w", id.Key(), err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			stamp string
			value float64
		)
		if err := rows.Scan(&stamp, &value); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, stamp)
		if err != nil {
			return nil, fmt.Errorf("bad stored date %q: %w", stamp, err)
		}
		if math.IsNaN(value) {
			continue
		}
		// Dates off the series interval are ignored.
		_ = ts.SetValue(t, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ts, nil
}

// List returns the identifiers of stored series selected by pattern, in
// identifier order. An origin suffix on the pattern ("A.B.*~Hydro") names
// the datastore and is not matched.
func (s *Store) List(ctx context.Context, pattern string) ([]timeseries.Ident, error) {
	if i := strings.Index(pattern, "~"); i >= 0 {
		pattern = pattern[:i]
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT location, source, data_type, interval, qualifier FROM series ORDER BY tsid`)
	if err != nil {
		return nil, fmt.Errorf("listing series: %w", err)
	}
	defer rows.Close()

	var out []timeseries.Ident
	for rows.Next() {
		var id timeseries.Ident
		if err := rows.Scan(&id.Location, &id.Source, &id.DataType, &id.Interval, &id.Qualifier); err != nil {
			return nil, err
		}
		if pattern == "" || timeseries.MatchPattern(pattern, id.Key()) {
			out = append(out, id)
		}
	}
	return out, rows.Err()
}
