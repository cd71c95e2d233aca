package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/events"
	"bilancio/internal/storage"
)

// ImportRecorder persists one import audit record.
type ImportRecorder interface {
	RecordImport(ctx context.Context, rec storage.ImportRecord) error
}

// AuditWorker consumes import completed messages and writes them to the
// import log so the web process can show import history without holding
// any state of its own.
type AuditWorker struct {
	recorder ImportRecorder
}

func NewAuditWorker(recorder ImportRecorder) *AuditWorker {
	return &AuditWorker{recorder: recorder}
}

// HandleImportCompleted processes a single import completed message.
func (w *AuditWorker) HandleImportCompleted(ctx context.Context, msg *events.ImportCompletedMessage) error {
	slog.InfoContext(ctx, "Processing import completed message",
		"budget_id", msg.BudgetID,
		"kind", msg.Kind,
		"created", msg.Created,
		"errors", msg.Errors)

	rec := storage.ImportRecord{
		BudgetID:     msg.BudgetID,
		Kind:         msg.Kind,
		CreatedCount: msg.Created,
		ErrorCount:   msg.Errors,
		CompletedAt:  msg.CompletedAt,
	}
	if err := w.recorder.RecordImport(ctx, rec); err != nil {
		return fmt.Errorf("record import: %w", err)
	}

	slog.InfoContext(ctx, "Recorded import",
		"budget_id", msg.BudgetID,
		"kind", msg.Kind)
	return nil
}
