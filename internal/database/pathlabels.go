package database

import (
	"context"
	"fmt"
	"sort"
)

// ReplacePathLabels swaps the whole path_label table for counts in a single
// transaction. Readers see either the previous set or the new one.
func (d *Database) ReplacePathLabels(ctx context.Context, counts map[string]int) (err error) {
	done := observeQuery("replace_path_labels")
	defer func() { done(err) }()

	batch, err := d.BeginBatch(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin path label batch: %w", err)
	}

	if _, err = batch.tx.ExecContext(ctx, "DELETE FROM path_label"); err != nil {
		return d.EndBatch(batch, fmt.Errorf("failed to clear path labels: %w", err))
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	stmt, err := batch.tx.PrepareContext(ctx, d.rebind("INSERT INTO path_label (name, item_count) VALUES (?, ?)"))
	if err != nil {
		return d.EndBatch(batch, err)
	}
	defer stmt.Close()

	for _, name := range names {
		if _, err = stmt.ExecContext(ctx, name, counts[name]); err != nil {
			return d.EndBatch(batch, fmt.Errorf("failed to insert path label %q: %w", name, err))
		}
	}

	return d.EndBatch(batch, nil)
}

// ListPathLabels returns all path labels ordered by name.
func (d *Database) ListPathLabels(ctx context.Context) ([]PathLabel, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT name, item_count FROM path_label ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := []PathLabel{}
	for rows.Next() {
		var l PathLabel
		if err := rows.Scan(&l.Name, &l.ItemCount); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}
