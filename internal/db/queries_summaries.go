package db

import (
	"fmt"
	"strings"
)

// SaveSummary stores a generated summary. digestID may be nil for ad-hoc runs.
func (d *DB) SaveSummary(url, summary string, digestID *int64) (int64, error) {
	res, err := d.conn.Exec(
		"INSERT INTO summaries (url, summary, words, digest_id) VALUES (?, ?, ?, ?)",
		url, summary, len(strings.Fields(summary)), digestID,
	)
	if err != nil {
		return 0, fmt.Errorf("saving summary: %w", err)
	}
	return res.LastInsertId()
}

// ListSummaries returns the newest summaries first, optionally for one URL.
func (d *DB) ListSummaries(url string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 10
	}
	q := "SELECT id, url, summary, words, digest_id, created_at FROM summaries"
	var args []any
	if url != "" {
		q += " WHERE url = ?"
		args = append(args, url)
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing summaries: %w", err)
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.URL, &s.Summary, &s.Words, &s.DigestID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
