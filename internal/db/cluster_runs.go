package db

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClusterRun records one clustering request.
type ClusterRun struct {
	RunID            string   `json:"run_id"`
	K                int      `json:"k"`
	Seed             uint64   `json:"seed"`
	Features         []string `json:"features"`
	Iterations       int      `json:"iterations"`
	Converged        bool     `json:"converged"`
	Inertia          float64  `json:"inertia"`
	Sizes            []int    `json:"sizes"`
	CreatedUnixNanos int64    `json:"created_unix_nanos"`
}

// RecordClusterRun inserts run, assigning RunID and CreatedUnixNanos when
// they are unset, then prunes all but the newest MaxClusterRuns runs.
func (db *DB) RecordClusterRun(run *ClusterRun) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.CreatedUnixNanos == 0 {
		run.CreatedUnixNanos = time.Now().UnixNano()
	}
	sizes, err := json.Marshal(run.Sizes)
	if err != nil {
		return fmt.Errorf("record cluster run: %w", err)
	}
	converged := 0
	if run.Converged {
		converged = 1
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("record cluster run: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO cluster_runs (
		run_id, k, seed, features, iterations, converged, inertia, sizes_json, created_unix_nanos
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.K, int64(run.Seed), strings.Join(run.Features, ","),
		run.Iterations, converged, run.Inertia, string(sizes), run.CreatedUnixNanos,
	)
	if err != nil {
		return fmt.Errorf("record cluster run: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM cluster_runs WHERE rowid NOT IN (
		SELECT rowid FROM cluster_runs ORDER BY created_unix_nanos DESC, rowid DESC LIMIT ?
	)`, db.maxClusterRuns); err != nil {
		return fmt.Errorf("record cluster run: prune: %w", err)
	}
	return tx.Commit()
}

// ClusterRuns returns the most recent runs, newest first.
func (db *DB) ClusterRuns(limit int) ([]ClusterRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(`SELECT run_id, k, seed, features, iterations, converged, inertia, sizes_json, created_unix_nanos
		FROM cluster_runs ORDER BY created_unix_nanos DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list cluster runs: %w", err)
	}
	defer rows.Close()

	var runs []ClusterRun
	for rows.Next() {
		var (
			r         ClusterRun
			seed      int64
			features  string
			converged int
			sizes     string
		)
		if err := rows.Scan(&r.RunID, &r.K, &seed, &features, &r.Iterations, &converged, &r.Inertia, &sizes, &r.CreatedUnixNanos); err != nil {
			return nil, fmt.Errorf("list cluster runs: %w", err)
		}
		r.Seed = uint64(seed)
		if features != "" {
			r.Features = strings.Split(features, ",")
		}
		r.Converged = converged == 1
		if err := json.Unmarshal([]byte(sizes), &r.Sizes); err != nil {
			return nil, fmt.Errorf("list cluster runs: sizes for %s: %w", r.RunID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
