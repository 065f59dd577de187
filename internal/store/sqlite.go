// Package store persists the GPR daily series in SQLite so refreshed
// downloads accumulate instead of replacing local history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/seenimoa/gproverlay/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS gpr_daily (
	date        TEXT PRIMARY KEY,
	n10d        REAL,
	gprd        REAL NOT NULL,
	gprd_act    REAL,
	gprd_threat REAL,
	gprd_ma30   REAL,
	gprd_ma7    REAL,
	event       TEXT NOT NULL DEFAULT ''
);
`

// Store wraps the SQLite database holding the GPR series.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// UpsertDailyPoints writes the points in one transaction, replacing rows
// that share a date. Re-running an identical import is a no-op.
func (s *Store) UpsertDailyPoints(ctx context.Context, points []models.DailyPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO gpr_daily (date, n10d, gprd, gprd_act, gprd_threat, gprd_ma30, gprd_ma7, event)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			n10d = excluded.n10d,
			gprd = excluded.gprd,
			gprd_act = excluded.gprd_act,
			gprd_threat = excluded.gprd_threat,
			gprd_ma30 = excluded.gprd_ma30,
			gprd_ma7 = excluded.gprd_ma7,
			event = excluded.event`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		_, err := stmt.ExecContext(ctx,
			p.Date.String(),
			nullable(p.N10D), p.GPRD, nullable(p.GPRDAct), nullable(p.GPRDThreat),
			nullable(p.GPRDMA30), nullable(p.GPRDMA7), p.Event)
		if err != nil {
			return fmt.Errorf("upsert point %s: %w", p.Date, err)
		}
	}
	return tx.Commit()
}

// LoadDailyPoints returns the full stored series in date order.
func (s *Store) LoadDailyPoints(ctx context.Context) ([]models.DailyPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, n10d, gprd, gprd_act, gprd_threat, gprd_ma30, gprd_ma7, event
		FROM gpr_daily ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("query gpr_daily: %w", err)
	}
	defer rows.Close()

	var points []models.DailyPoint
	for rows.Next() {
		var (
			date, event                  string
			n10d, act, threat, ma30, ma7 sql.NullFloat64
			gprd                         float64
		)
		if err := rows.Scan(&date, &n10d, &gprd, &act, &threat, &ma30, &ma7, &event); err != nil {
			return nil, fmt.Errorf("scan gpr_daily row: %w", err)
		}
		day, err := models.ParseDay(date)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", date, err)
		}
		points = append(points, models.DailyPoint{
			Date:       day,
			N10D:       fromNull(n10d),
			GPRD:       gprd,
			GPRDAct:    fromNull(act),
			GPRDThreat: fromNull(threat),
			GPRDMA30:   fromNull(ma30),
			GPRDMA7:    fromNull(ma7),
			Event:      event,
		})
	}
	return points, rows.Err()
}

// LatestDate returns the most recent stored date, or ok=false when the
// table is empty.
func (s *Store) LatestDate(ctx context.Context) (models.Day, bool, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(date) FROM gpr_daily`).Scan(&date)
	if err != nil {
		return models.Day{}, false, fmt.Errorf("query latest date: %w", err)
	}
	if !date.Valid || date.String == "" {
		return models.Day{}, false, nil
	}
	day, err := models.ParseDay(date.String)
	if err != nil {
		return models.Day{}, false, fmt.Errorf("stored date %q: %w", date.String, err)
	}
	return day, true, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float64(v.Float64)
}
