package db

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/banshee-data/bikeshare.report/internal/dataset"
)

// ReplaceDays mirrors the typed columns of t into the days table,
// replacing whatever was there. Cluster ids are cleared.
func (db *DB) ReplaceDays(t *dataset.Table) error {
	records, err := t.Records()
	if err != nil {
		return fmt.Errorf("mirror days: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("mirror days: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM days`); err != nil {
		return fmt.Errorf("mirror days: clear: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO days (
		row_index, mnth, season, weathersit, workingday, temp, hum, windspeed, cnt
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("mirror days: prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		workingDay := 0
		if r.WorkingDay {
			workingDay = 1
		}
		if _, err := stmt.Exec(i, r.Month, r.Season, r.WeatherSituation, workingDay,
			nullable(r.Temperature), nullable(r.Humidity), nullable(r.Windspeed), r.Count); err != nil {
			return fmt.Errorf("mirror days: row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// nullable binds a missing (NaN) feature as NULL.
func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

// SetClusters stores one cluster id per mirrored row, by row position.
func (db *DB) SetClusters(assignment []int) error {
	n, err := db.DayCount()
	if err != nil {
		return err
	}
	if n != len(assignment) {
		return fmt.Errorf("set clusters: %d ids for %d rows", len(assignment), n)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("set clusters: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE days SET cluster = ? WHERE row_index = ?`)
	if err != nil {
		return fmt.Errorf("set clusters: prepare: %w", err)
	}
	defer stmt.Close()

	for i, id := range assignment {
		if _, err := stmt.Exec(id, i); err != nil {
			return fmt.Errorf("set clusters: row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// DayCount returns the number of mirrored rows.
func (db *DB) DayCount() (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM days`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count days: %w", err)
	}
	return n, nil
}

// MonthlyTotals sums cnt per month in SQL. It exists to cross-check the
// in-process aggregation from the debug console and tests.
func (db *DB) MonthlyTotals() (map[int]int64, error) {
	rows, err := db.Query(`SELECT mnth, SUM(cnt) FROM days GROUP BY mnth ORDER BY mnth`)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int64)
	for rows.Next() {
		var month int
		var total int64
		if err := rows.Scan(&month, &total); err != nil {
			return nil, fmt.Errorf("monthly totals: %w", err)
		}
		out[month] = total
	}
	return out, rows.Err()
}

// ClusterSizes counts mirrored rows per cluster id. Rows without an id are
// not counted.
func (db *DB) ClusterSizes() (map[int]int, error) {
	rows, err := db.Query(`SELECT cluster, COUNT(*) FROM days WHERE cluster IS NOT NULL GROUP BY cluster`)
	if err != nil {
		return nil, fmt.Errorf("cluster sizes: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var id, n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("cluster sizes: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}
