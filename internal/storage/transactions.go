package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
)

const txnDateLayout = "2006-01-02"

// CreateTransaction persists a transaction. The ym column is always derived
// here from TxnDate; whatever the caller put in txn.YM is ignored.
func (r *Repository) CreateTransaction(ctx context.Context, txn core.Transaction) (int64, error) {
	ym := core.YMFromDate(txn.TxnDate)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		   (budget_id, type, category, subcategory, amount_cents, currency,
		    txn_date, ym, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.BudgetID, string(txn.Type), txn.Category, txn.Subcategory,
		txn.Amount.Cents, txn.Currency,
		txn.TxnDate.Format(txnDateLayout), int64(ym), txn.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"txn_id", id,
		"budget_id", txn.BudgetID,
		"category", txn.Category,
		"amount_cents", txn.Amount.Cents,
		"ym", int64(ym))

	return id, nil
}

func (r *Repository) GetTransactionForUser(ctx context.Context, userID, txnID int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT t.id, t.budget_id, t.type, t.category, t.subcategory,
		        t.amount_cents, t.currency, t.txn_date, t.ym, t.notes
		 FROM transactions t
		 JOIN budgets b ON b.id = t.budget_id
		 WHERE t.id = ? AND b.user_id = ?`,
		txnID, userID)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return txn, nil
}

func (r *Repository) ListTransactions(ctx context.Context, budgetID int64) ([]core.Transaction, error) {
	return r.listTransactions(ctx,
		`SELECT id, budget_id, type, category, subcategory,
		        amount_cents, currency, txn_date, ym, notes
		 FROM transactions WHERE budget_id = ?
		 ORDER BY txn_date DESC, id DESC`,
		budgetID)
}

// ListTransactionsByMonth returns the budget's transactions for one month
// key, newest first.
func (r *Repository) ListTransactionsByMonth(ctx context.Context, budgetID int64, ym core.YM) ([]core.Transaction, error) {
	return r.listTransactions(ctx,
		`SELECT id, budget_id, type, category, subcategory,
		        amount_cents, currency, txn_date, ym, notes
		 FROM transactions WHERE budget_id = ? AND ym = ?
		 ORDER BY txn_date DESC, id DESC`,
		budgetID, int64(ym))
}

func (r *Repository) listTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// UpdateTransaction rewrites all mutable fields; ym is re-derived from the
// new date so it can never drift from txn_date.
func (r *Repository) UpdateTransaction(ctx context.Context, userID int64, txn core.Transaction) error {
	ym := core.YMFromDate(txn.TxnDate)
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET
		   type = ?, category = ?, subcategory = ?, amount_cents = ?,
		   currency = ?, txn_date = ?, ym = ?, notes = ?
		 WHERE id = ? AND budget_id IN (SELECT id FROM budgets WHERE user_id = ?)`,
		string(txn.Type), txn.Category, txn.Subcategory, txn.Amount.Cents,
		txn.Currency, txn.TxnDate.Format(txnDateLayout), int64(ym), txn.Notes,
		txn.ID, userID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, txnID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions
		 WHERE id = ? AND budget_id IN (SELECT id FROM budgets WHERE user_id = ?)`,
		txnID, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "txn_id", txnID, "user_id", userID)
	return nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var txnType, txnDate string
	var ym int64
	err := row.Scan(&t.ID, &t.BudgetID, &txnType, &t.Category, &t.Subcategory,
		&t.Amount.Cents, &t.Currency, &txnDate, &ym, &t.Notes)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.LineType(txnType)
	t.YM = core.YM(ym)
	t.TxnDate, err = time.Parse(txnDateLayout, txnDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse txn_date %q: %w", txnDate, err)
	}
	return t, nil
}
