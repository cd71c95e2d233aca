package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ImportRecord is one audit entry for a completed CSV import, written by
// the worker from the import-completed queue.
type ImportRecord struct {
	ID           int64
	BudgetID     int64
	Kind         string // budget_lines | transactions
	CreatedCount int
	ErrorCount   int
	CompletedAt  time.Time
}

func (r *Repository) RecordImport(ctx context.Context, rec ImportRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO import_log (budget_id, kind, created_count, error_count, completed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.BudgetID, rec.Kind, rec.CreatedCount, rec.ErrorCount,
		rec.CompletedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert import record: %w", err)
	}

	slog.InfoContext(ctx, "Import recorded",
		"budget_id", rec.BudgetID,
		"kind", rec.Kind,
		"created", rec.CreatedCount,
		"errors", rec.ErrorCount)
	return nil
}

func (r *Repository) ListImports(ctx context.Context, budgetID int64, limit int) ([]ImportRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, budget_id, kind, created_count, error_count, completed_at
		 FROM import_log WHERE budget_id = ?
		 ORDER BY id DESC LIMIT ?`,
		budgetID, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var recs []ImportRecord
	for rows.Next() {
		var rec ImportRecord
		var completed string
		if err := rows.Scan(&rec.ID, &rec.BudgetID, &rec.Kind,
			&rec.CreatedCount, &rec.ErrorCount, &completed); err != nil {
			return nil, fmt.Errorf("scan import record: %w", err)
		}
		rec.CompletedAt = parseDBTime(completed)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
