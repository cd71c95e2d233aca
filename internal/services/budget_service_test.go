package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

func newTestService(t *testing.T) (*BudgetService, core.Budget) {
	t.Helper()

	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	u, err := repo.CreateUser(ctx, "t@test.com", "hash")
	require.NoError(t, err)
	budget, err := repo.GetOrCreateActiveBudget(ctx, u.ID, "EUR")
	require.NoError(t, err)

	// nil AMQP client: publishing degrades to a logged skip
	return NewBudgetService(repo, nil), budget
}

func TestCreateBudgetLineValidates(t *testing.T) {
	svc, budget := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateBudgetLine(ctx, core.BudgetLine{
		BudgetID:  budget.ID,
		Type:      core.Expense,
		Category:  "Rent",
		Amount:    core.Money{Cents: 120000},
		Currency:  "EUR",
		Frequency: core.Monthly,
		// missing StartYM
	})
	require.ErrorIs(t, err, core.ErrStartRequired)

	id, err := svc.CreateBudgetLine(ctx, core.BudgetLine{
		BudgetID:  budget.ID,
		Type:      core.Expense,
		Category:  "Rent",
		Amount:    core.Money{Cents: 120000},
		Currency:  "EUR",
		Frequency: core.Monthly,
		StartYM:   202501,
		IsActive:  true,
	})
	require.NoError(t, err)
	require.NotZero(t, id)
}

func TestCreateTransactionValidates(t *testing.T) {
	svc, budget := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTransaction(ctx, core.Transaction{
		BudgetID: budget.ID,
		Type:     core.Expense,
		Category: "Groceries",
		Amount:   core.Money{Cents: 4530},
		Currency: "EUR",
		// missing TxnDate
	})
	require.ErrorIs(t, err, core.ErrZeroDate)

	id, err := svc.CreateTransaction(ctx, core.Transaction{
		BudgetID: budget.ID,
		Type:     core.Expense,
		Category: "Groceries",
		Amount:   core.Money{Cents: 4530},
		Currency: "EUR",
		TxnDate:  time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotZero(t, id)
}

func TestImportBudgetLinesThroughService(t *testing.T) {
	svc, budget := newTestService(t)
	ctx := context.Background()

	csv := strings.Join([]string{
		"type,category,subcategory,amount,currency,frequency,start_mm_yy,end_mm_yy,one_time_mm_yy",
		"income,Salary,,2500.00,EUR,monthly,01/25,,",
		"expense,Rent,,1200.00,,monthly,,,", // missing start month
		"expense,Gift,,150.00,EUR,one_time,,,03/25",
	}, "\n")

	result, err := svc.ImportBudgetLines(ctx, strings.NewReader(csv), budget.ID, "EUR")
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)
	require.Len(t, result.RowErrors, 1)
	require.Contains(t, result.RowErrors[0], "Row 3")

	lines, err := svc.Storage().ListBudgetLines(ctx, budget.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
}

func TestImportTransactionsThroughService(t *testing.T) {
	svc, budget := newTestService(t)
	ctx := context.Background()

	csv := strings.Join([]string{
		"date,type,category,subcategory,amount,currency,notes",
		"2025-01-15,expense,Groceries,,45.30,EUR,weekly shop",
		"2025-02-01,income,Salary,,2500.00,EUR,",
	}, "\n")

	result, err := svc.ImportTransactions(ctx, strings.NewReader(csv), budget.ID, "EUR")
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)
	require.Empty(t, result.RowErrors)

	txns, err := svc.Storage().ListTransactionsByMonth(ctx, budget.ID, 202501)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Equal(t, "weekly shop", txns[0].Notes)
}
