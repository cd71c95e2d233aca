package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
)

// ymToNull maps the zero month key to NULL so unset months stay NULL in
// the schema.
func ymToNull(ym core.YM) sql.NullInt64 {
	if ym.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(ym), Valid: true}
}

func nullToYM(n sql.NullInt64) core.YM {
	if !n.Valid {
		return 0
	}
	return core.YM(n.Int64)
}

func (r *Repository) CreateBudgetLine(ctx context.Context, line core.BudgetLine) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_lines
		   (budget_id, type, category, subcategory, amount_cents, currency,
		    frequency, start_ym, end_ym, one_time_ym, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		line.BudgetID, string(line.Type), line.Category, line.Subcategory,
		line.Amount.Cents, line.Currency, string(line.Frequency),
		ymToNull(line.StartYM), ymToNull(line.EndYM), ymToNull(line.OneTimeYM),
		boolToInt(line.IsActive))
	if err != nil {
		return 0, fmt.Errorf("insert budget line: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("budget line id: %w", err)
	}

	slog.InfoContext(ctx, "Budget line created",
		"line_id", id,
		"budget_id", line.BudgetID,
		"category", line.Category,
		"frequency", string(line.Frequency))

	return id, nil
}

// GetBudgetLineForUser returns the line only if it belongs to a budget
// owned by the given user.
func (r *Repository) GetBudgetLineForUser(ctx context.Context, userID, lineID int64) (core.BudgetLine, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT l.id, l.budget_id, l.type, l.category, l.subcategory,
		        l.amount_cents, l.currency, l.frequency,
		        l.start_ym, l.end_ym, l.one_time_ym, l.is_active
		 FROM budget_lines l
		 JOIN budgets b ON b.id = l.budget_id
		 WHERE l.id = ? AND b.user_id = ?`,
		lineID, userID)
	line, err := scanBudgetLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetLine{}, ErrNotFound
	}
	if err != nil {
		return core.BudgetLine{}, fmt.Errorf("get budget line: %w", err)
	}
	return line, nil
}

func (r *Repository) ListBudgetLines(ctx context.Context, budgetID int64) ([]core.BudgetLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, budget_id, type, category, subcategory,
		        amount_cents, currency, frequency,
		        start_ym, end_ym, one_time_ym, is_active
		 FROM budget_lines WHERE budget_id = ?
		 ORDER BY type, category, id`,
		budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget lines: %w", err)
	}
	defer rows.Close()

	var lines []core.BudgetLine
	for rows.Next() {
		line, err := scanBudgetLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *Repository) UpdateBudgetLine(ctx context.Context, userID int64, line core.BudgetLine) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budget_lines SET
		   type = ?, category = ?, subcategory = ?, amount_cents = ?,
		   currency = ?, frequency = ?, start_ym = ?, end_ym = ?, one_time_ym = ?,
		   is_active = ?
		 WHERE id = ? AND budget_id IN (SELECT id FROM budgets WHERE user_id = ?)`,
		string(line.Type), line.Category, line.Subcategory, line.Amount.Cents,
		line.Currency, string(line.Frequency),
		ymToNull(line.StartYM), ymToNull(line.EndYM), ymToNull(line.OneTimeYM),
		boolToInt(line.IsActive),
		line.ID, userID)
	if err != nil {
		return fmt.Errorf("update budget line: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update budget line result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteBudgetLine(ctx context.Context, userID, lineID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budget_lines
		 WHERE id = ? AND budget_id IN (SELECT id FROM budgets WHERE user_id = ?)`,
		lineID, userID)
	if err != nil {
		return fmt.Errorf("delete budget line: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete budget line result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Budget line deleted", "line_id", lineID, "user_id", userID)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudgetLine(row rowScanner) (core.BudgetLine, error) {
	var l core.BudgetLine
	var lineType, freq string
	var start, end, oneTime sql.NullInt64
	var active int
	err := row.Scan(&l.ID, &l.BudgetID, &lineType, &l.Category, &l.Subcategory,
		&l.Amount.Cents, &l.Currency, &freq, &start, &end, &oneTime, &active)
	if err != nil {
		return core.BudgetLine{}, err
	}
	l.Type = core.LineType(lineType)
	l.Frequency = core.Frequency(freq)
	l.StartYM = nullToYM(start)
	l.EndYM = nullToYM(end)
	l.OneTimeYM = nullToYM(oneTime)
	l.IsActive = active != 0
	return l, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
