package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"bilancio/internal/importer"
)

type importPageData struct {
	History []importHistoryRow
}

type importHistoryRow struct {
	Kind        string
	Created     int
	Errors      int
	CompletedAt string
}

func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	budget, err := s.activeBudget(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Active budget lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	recs, err := s.repo.ListImports(r.Context(), budget.ID, 20)
	if err != nil {
		slog.ErrorContext(r.Context(), "Import history lookup failed", "error", err, "budget_id", budget.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data := importPageData{}
	for _, rec := range recs {
		data.History = append(data.History, importHistoryRow{
			Kind:        rec.Kind,
			Created:     rec.CreatedCount,
			Errors:      rec.ErrorCount,
			CompletedAt: rec.CompletedAt.Format("2006-01-02 15:04"),
		})
	}
	s.render(w, r, "imports.html", "Import", nil, data)
}

// importFile pulls the uploaded CSV out of the multipart form.
func importFile(r *http.Request) (io.ReadCloser, error) {
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing CSV file upload")
	}
	return file, nil
}

type importRunner func(r *http.Request, file io.Reader, budgetID int64) (importer.Result, error)

// runImport is the shared POST flow for both import kinds. A header
// mismatch renders the import page again with status 400 and nothing
// persisted; row errors render with the created count and the full error
// list, since earlier rows are already committed.
func (s *Server) runImport(w http.ResponseWriter, r *http.Request, kind string, run importRunner) {
	budget, err := s.activeBudget(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Active budget lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	file, err := importFile(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.render(w, r, "imports.html", "Import", []string{err.Error()}, importPageData{})
		return
	}
	defer file.Close()

	result, err := run(r, file, budget.ID)
	if err != nil {
		if errors.Is(err, importer.ErrHeaderMismatch) {
			w.WriteHeader(http.StatusBadRequest)
			s.render(w, r, "imports.html", "Import", []string{err.Error()}, importPageData{})
			return
		}
		slog.ErrorContext(r.Context(), "Import failed", "error", err, "import_kind", kind, "budget_id", budget.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "Import completed",
		"import_kind", kind,
		"budget_id", budget.ID,
		"created", result.Created,
		"errors", len(result.RowErrors))

	if result.Failed() {
		// Partial success: earlier rows are saved, show every row error.
		errs := append([]string{fmt.Sprintf("Imported %d rows, %d rows failed:", result.Created, len(result.RowErrors))}, result.RowErrors...)
		w.WriteHeader(http.StatusBadRequest)
		s.render(w, r, "imports.html", "Import", errs, importPageData{})
		return
	}

	s.flash(r, "success", fmt.Sprintf("Imported %d rows.", result.Created))
	http.Redirect(w, r, "/imports", http.StatusSeeOther)
}

func (s *Server) handleImportLines(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, "budget_lines", func(r *http.Request, file io.Reader, budgetID int64) (importer.Result, error) {
		return s.svc.ImportBudgetLines(r.Context(), file, budgetID, s.baseCurrency)
	})
}

func (s *Server) handleImportTxns(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, "transactions", func(r *http.Request, file io.Reader, budgetID int64) (importer.Result, error) {
		return s.svc.ImportTransactions(r.Context(), file, budgetID, s.baseCurrency)
	})
}

func (s *Server) handleLineTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="budget_lines_template.csv"`)
	if err := importer.WriteBudgetLineTemplate(w); err != nil {
		slog.ErrorContext(r.Context(), "Template download failed", "error", err)
	}
}

func (s *Server) handleTxnTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions_template.csv"`)
	if err := importer.WriteTransactionTemplate(w); err != nil {
		slog.ErrorContext(r.Context(), "Template download failed", "error", err)
	}
}
