package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"bilancio/internal/events"
	"bilancio/internal/storage"
)

type fakeRecorder struct {
	recs []storage.ImportRecord
	err  error
}

func (f *fakeRecorder) RecordImport(_ context.Context, rec storage.ImportRecord) error {
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, rec)
	return nil
}

func TestHandleImportCompleted(t *testing.T) {
	rec := &fakeRecorder{}
	w := NewAuditWorker(rec)

	completed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &events.ImportCompletedMessage{
		BudgetID:    7,
		Kind:        "budget_lines",
		Created:     5,
		Errors:      2,
		CompletedAt: completed,
	}

	if err := w.HandleImportCompleted(context.Background(), msg); err != nil {
		t.Fatalf("HandleImportCompleted() error = %v", err)
	}

	if len(rec.recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(rec.recs))
	}
	got := rec.recs[0]
	if got.BudgetID != 7 || got.Kind != "budget_lines" || got.CreatedCount != 5 || got.ErrorCount != 2 {
		t.Errorf("unexpected record: %+v", got)
	}
	if !got.CompletedAt.Equal(completed) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, completed)
	}
}

func TestHandleImportCompletedRecorderError(t *testing.T) {
	wantErr := errors.New("db locked")
	w := NewAuditWorker(&fakeRecorder{err: wantErr})

	err := w.HandleImportCompleted(context.Background(), &events.ImportCompletedMessage{
		BudgetID: 1,
		Kind:     "transactions",
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped recorder error, got %v", err)
	}
}
