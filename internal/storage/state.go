package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"routewatch/internal/endpoint"
	"routewatch/internal/errors"
	"routewatch/internal/incremental"
)

const metaLastUpdated = "last_updated"

// SaveState replaces the stored state with s in one transaction.
func (db *DB) SaveState(s *incremental.State) error {
	files := make([]string, 0, len(s.Files))
	for f := range s.Files {
		files = append(files, f)
	}
	sort.Strings(files)

	return db.WithTx(func(tx *sql.Tx) error {
		for _, table := range []string{"endpoints", "file_hashes", "meta"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		stmt, err := tx.Prepare(`
			INSERT INTO endpoints (key, file, method, path, handler, line, col, documentation)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare endpoint insert: %w", err)
		}
		defer stmt.Close() //nolint:errcheck // Best effort cleanup

		for _, file := range files {
			for _, key := range s.Files[file] {
				e, ok := s.Endpoints[key]
				if !ok {
					continue
				}
				if _, err := stmt.Exec(key, file, string(e.Method), e.Path, e.Handler, e.Line, e.Column, e.Documentation); err != nil {
					return fmt.Errorf("failed to insert endpoint %s: %w", key, err)
				}
			}
		}

		for path, hash := range s.FileHashes {
			if _, err := tx.Exec(`INSERT INTO file_hashes (path, hash) VALUES (?, ?)`, path, hash); err != nil {
				return fmt.Errorf("failed to insert file hash: %w", err)
			}
		}

		if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)`,
			metaLastUpdated, s.LastUpdated.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to write meta: %w", err)
		}
		return nil
	})
}

// LoadState reads the stored state. It returns nil when nothing has been
// saved yet.
func (db *DB) LoadState() (*incremental.State, error) {
	var stamp string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = ?`, metaLastUpdated).Scan(&stamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read meta: %w", err)
	}

	s := incremental.NewState()
	s.LastUpdated, err = time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, errors.NewRouteError(errors.StateCorrupt, "Stored last_updated is malformed", err)
	}

	rows, err := db.Query(`
		SELECT key, file, method, path, handler, line, col, documentation
		FROM endpoints
		ORDER BY file, line, col, key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query endpoints: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best effort cleanup

	for rows.Next() {
		var key, file, method string
		var doc sql.NullString
		var e endpoint.Endpoint
		if err := rows.Scan(&key, &file, &method, &e.Path, &e.Handler, &e.Line, &e.Column, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint: %w", err)
		}
		m, ok := endpoint.ParseHTTPMethod(method)
		if !ok {
			return nil, errors.NewRouteError(errors.StateCorrupt, "Stored endpoint has unknown method "+method, nil)
		}
		e.Method = m
		e.Documentation = doc.String

		s.Endpoints[key] = e
		s.Files[file] = append(s.Files[file], key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hashRows, err := db.Query(`SELECT path, hash FROM file_hashes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query file hashes: %w", err)
	}
	defer hashRows.Close() //nolint:errcheck // Best effort cleanup

	for hashRows.Next() {
		var path, hash string
		if err := hashRows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan file hash: %w", err)
		}
		s.FileHashes[path] = hash
	}
	return s, hashRows.Err()
}

// EndpointCount returns the number of stored endpoints
func (db *DB) EndpointCount() int {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM endpoints`).Scan(&count); err != nil {
		return 0
	}
	return count
}
