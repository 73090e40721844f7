package storage

import (
	"time"
)

// RunRecord summarizes one applied change event
type RunRecord struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Files      int       `json:"files"`
	Added      int       `json:"added"`
	Removed    int       `json:"removed"`
	Modified   int       `json:"modified"`
	Unchanged  int       `json:"unchanged"`
	Breaking   int       `json:"breaking"`
	DurationMs int64     `json:"durationMs"`
	RecordedAt time.Time `json:"recordedAt"`
}

// RecordRun appends a run record. A zero RecordedAt means now.
func (db *DB) RecordRun(r RunRecord) error {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO runs (
			source, files, added, removed, modified, unchanged, breaking, duration_ms, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Source, r.Files, r.Added, r.Removed, r.Modified, r.Unchanged, r.Breaking, r.DurationMs,
		r.RecordedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// RecentRuns returns the newest runs first
func (db *DB) RecentRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, source, files, added, removed, modified, unchanged, breaking, duration_ms, recorded_at
		FROM runs
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var recordedAt string
		if err := rows.Scan(
			&r.ID, &r.Source, &r.Files, &r.Added, &r.Removed, &r.Modified,
			&r.Unchanged, &r.Breaking, &r.DurationMs, &recordedAt,
		); err != nil {
			return nil, err
		}
		r.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// CleanupOldRuns removes runs older than the retention period
func (db *DB) CleanupOldRuns(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)
	result, err := db.Exec(`DELETE FROM runs WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
