package db

import (
	"fmt"
)

// ListDigests returns all digests, optionally only enabled ones.
func (d *DB) ListDigests(enabledOnly bool) ([]Digest, error) {
	q := "SELECT id, name, cron_expr, url, enabled, COALESCE(last_run,''), created_at FROM digests"
	if enabledOnly {
		q += " WHERE enabled = 1"
	}
	q += " ORDER BY created_at ASC, id ASC"
	rows, err := d.conn.Query(q)
	if err != nil {
		return nil, fmt.Errorf("listing digests: %w", err)
	}
	defer rows.Close()
	var out []Digest
	for rows.Next() {
		var g Digest
		var enabled int
		if err := rows.Scan(&g.ID, &g.Name, &g.CronExpr, &g.URL, &enabled, &g.LastRun, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning digest: %w", err)
		}
		g.Enabled = enabled == 1
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetDigest returns a digest by name, or nil if there is none.
func (d *DB) GetDigest(name string) (*Digest, error) {
	digests, err := d.ListDigests(false)
	if err != nil {
		return nil, err
	}
	for _, g := range digests {
		if g.Name == name {
			return &g, nil
		}
	}
	return nil, nil
}

// CreateDigest creates a digest and returns its ID.
func (d *DB) CreateDigest(name, cronExpr, url string) (int64, error) {
	res, err := d.conn.Exec(
		"INSERT INTO digests (name, cron_expr, url) VALUES (?, ?, ?)",
		name, cronExpr, url,
	)
	if err != nil {
		return 0, fmt.Errorf("creating digest: %w", err)
	}
	return res.LastInsertId()
}

func (d *DB) SetDigestEnabled(name string, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	res, err := d.conn.Exec("UPDATE digests SET enabled = ? WHERE name = ?", v, name)
	if err != nil {
		return fmt.Errorf("updating digest %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("digest %q not found", name)
	}
	return nil
}

// DeleteDigest deletes a digest by name.
func (d *DB) DeleteDigest(name string) error {
	res, err := d.conn.Exec("DELETE FROM digests WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting digest: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("digest %q not found", name)
	}
	return nil
}

// RecordDigestRun updates last_run to now.
func (d *DB) RecordDigestRun(id int64) error {
	_, err := d.conn.Exec("UPDATE digests SET last_run = datetime('now') WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("recording digest run: %w", err)
	}
	return nil
}
