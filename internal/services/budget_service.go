package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"bilancio/internal/core"
	"bilancio/internal/events"
	"bilancio/internal/importer"
	applog "bilancio/internal/log"
	"bilancio/internal/storage"
)

// BudgetService orchestrates budget operations across SQLite and AMQP.
type BudgetService struct {
	storage     *storage.Repository
	eventClient *events.Client
}

func NewBudgetService(storage *storage.Repository, eventClient *events.Client) *BudgetService {
	return &BudgetService{
		storage:     storage,
		eventClient: eventClient,
	}
}

// Storage exposes the underlying repository for read paths that need no
// orchestration.
func (s *BudgetService) Storage() *storage.Repository {
	return s.storage
}

// CreateBudgetLine validates and saves a budget line.
func (s *BudgetService) CreateBudgetLine(ctx context.Context, line core.BudgetLine) (int64, error) {
	if err := line.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.CreateBudgetLine(ctx, line)
	if err != nil {
		return 0, fmt.Errorf("save budget line: %w", err)
	}
	return id, nil
}

// UpdateBudgetLine validates and updates a budget line owned by the user.
func (s *BudgetService) UpdateBudgetLine(ctx context.Context, userID int64, line core.BudgetLine) error {
	if err := line.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdateBudgetLine(ctx, userID, line); err != nil {
		return fmt.Errorf("update budget line: %w", err)
	}
	return nil
}

// CreateTransaction validates and saves a transaction.
func (s *BudgetService) CreateTransaction(ctx context.Context, txn core.Transaction) (int64, error) {
	if err := txn.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.CreateTransaction(ctx, txn)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}
	return id, nil
}

// UpdateTransaction validates and updates a transaction owned by the user.
func (s *BudgetService) UpdateTransaction(ctx context.Context, userID int64, txn core.Transaction) error {
	if err := txn.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdateTransaction(ctx, userID, txn); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

// ImportBudgetLines runs the CSV import and publishes a completion message.
// Rows created before a failing row stay created; the result carries both
// the created count and the per-row errors.
func (s *BudgetService) ImportBudgetLines(ctx context.Context, r io.Reader, budgetID int64, defaultCurrency string) (importer.Result, error) {
	result, err := importer.ImportBudgetLines(ctx, r, budgetID, defaultCurrency, s.storage)
	if err != nil {
		return result, err
	}
	s.publishImportCompleted(ctx, budgetID, "budget_lines", result)
	return result, nil
}

// ImportTransactions runs the CSV import and publishes a completion message.
func (s *BudgetService) ImportTransactions(ctx context.Context, r io.Reader, budgetID int64, defaultCurrency string) (importer.Result, error) {
	result, err := importer.ImportTransactions(ctx, r, budgetID, defaultCurrency, s.storage)
	if err != nil {
		return result, err
	}
	s.publishImportCompleted(ctx, budgetID, "transactions", result)
	return result, nil
}

func (s *BudgetService) publishImportCompleted(ctx context.Context, budgetID int64, kind string, result importer.Result) {
	fields := applog.NewFields().
		WithComponent(applog.ComponentImport).
		WithOperation(applog.OpImport).
		WithBudgetID(budgetID).
		WithImport(kind, result.Created, len(result.RowErrors))

	if s.eventClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping import completed message", fields.ToSlice()...)
		return
	}

	if err := s.eventClient.PublishImportCompleted(ctx, budgetID, kind, result.Created, len(result.RowErrors)); err != nil {
		// Don't fail the request, the rows are already saved locally.
		slog.ErrorContext(ctx, "Failed to publish import completed message", fields.WithError(err).ToSlice()...)
	}
}
