package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
)

// GetOrCreateActiveBudget returns the user's single active budget, creating
// it with defaults on first use. The partial unique index on
// budgets(user_id) WHERE is_active makes this safe under concurrent first
// requests: the losing insert falls back to rereading the winner's row.
func (r *Repository) GetOrCreateActiveBudget(ctx context.Context, userID int64, defaultCurrency string) (core.Budget, error) {
	b, err := r.getActiveBudget(ctx, userID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return core.Budget{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, name, base_currency, is_active) VALUES (?, 'Main', ?, 1)`,
		userID, defaultCurrency)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race; the other request's budget is the one.
			return r.getActiveBudget(ctx, userID)
		}
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget id: %w", err)
	}

	slog.InfoContext(ctx, "Budget created", "budget_id", id, "user_id", userID)

	return core.Budget{
		ID:           id,
		UserID:       userID,
		Name:         "Main",
		BaseCurrency: defaultCurrency,
		IsActive:     true,
	}, nil
}

func (r *Repository) getActiveBudget(ctx context.Context, userID int64) (core.Budget, error) {
	var b core.Budget
	var active int
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, base_currency, is_active
		 FROM budgets WHERE user_id = ? AND is_active = 1`,
		userID).Scan(&b.ID, &b.UserID, &b.Name, &b.BaseCurrency, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get active budget: %w", err)
	}
	b.IsActive = active != 0
	return b, nil
}
