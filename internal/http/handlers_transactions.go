package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

type txnForm struct {
	ID       int64
	Date     string
	Type     string
	Category string
	Subcat   string
	Amount   string
	Currency string
	Notes    string
}

type txnView struct {
	ID       int64
	Date     string
	Type     string
	Category string
	Subcat   string
	Amount   string
	Notes    string
}

func txnToView(t core.Transaction) txnView {
	return txnView{
		ID:       t.ID,
		Date:     t.TxnDate.Format("2006-01-02"),
		Type:     string(t.Type),
		Category: t.Category,
		Subcat:   t.Subcategory,
		Amount:   t.Amount.Display(t.Currency),
		Notes:    t.Notes,
	}
}

func txnToForm(t core.Transaction) txnForm {
	return txnForm{
		ID:       t.ID,
		Date:     t.TxnDate.Format("2006-01-02"),
		Type:     string(t.Type),
		Category: t.Category,
		Subcat:   t.Subcategory,
		Amount:   t.Amount.Decimal(),
		Currency: t.Currency,
		Notes:    t.Notes,
	}
}

func (s *Server) handleTxnList(w http.ResponseWriter, r *http.Request) {
	budget, err := s.activeBudget(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Active budget lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	txns, err := s.repo.ListTransactions(r.Context(), budget.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction list failed", "error", err, "budget_id", budget.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	views := make([]txnView, 0, len(txns))
	for _, t := range txns {
		views = append(views, txnToView(t))
	}
	s.render(w, r, "transactions.html", "Transactions", nil, views)
}

func (s *Server) handleTxnNew(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "transaction_form.html", "New transaction", nil, txnForm{
		Date: time.Now().Format("2006-01-02"),
	})
}

func (s *Server) parseTxnForm(r *http.Request, budgetID int64) (core.Transaction, txnForm, []string) {
	form := txnForm{
		Date:     sanitizeInput(r.Form.Get("date")),
		Type:     sanitizeInput(r.Form.Get("type")),
		Category: sanitizeInput(r.Form.Get("category")),
		Subcat:   sanitizeInput(r.Form.Get("subcategory")),
		Amount:   sanitizeInput(r.Form.Get("amount")),
		Currency: strings.ToUpper(sanitizeInput(r.Form.Get("currency"))),
		Notes:    sanitizeInput(r.Form.Get("notes")),
	}

	var errs []string
	txn := core.Transaction{
		BudgetID:    budgetID,
		Type:        core.LineType(form.Type),
		Category:    form.Category,
		Subcategory: form.Subcat,
		Currency:    form.Currency,
		Notes:       form.Notes,
	}
	if form.Currency == "" {
		txn.Currency = s.baseCurrency
	}

	date, err := time.Parse("2006-01-02", form.Date)
	if err != nil {
		errs = append(errs, "date: expected YYYY-MM-DD")
	}
	txn.TxnDate = date

	cents, err := core.ParseDecimalToCents(form.Amount)
	if err != nil {
		errs = append(errs, "amount: "+err.Error())
	}
	txn.Amount = core.Money{Cents: cents}

	if len(errs) == 0 {
		if err := txn.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return txn, form, errs
}

func (s *Server) handleTxnCreate(w http.ResponseWriter, r *http.Request) {
	budget, err := s.activeBudget(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Active budget lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	txn, form, errs := s.parseTxnForm(r, budget.ID)
	if len(errs) > 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.render(w, r, "transaction_form.html", "New transaction", errs, form)
		return
	}

	id, err := s.svc.CreateTransaction(r.Context(), txn)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction creation failed", "error", err, "budget_id", budget.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "Transaction created", "txn_id", id, "budget_id", budget.ID, "category", txn.Category)
	s.flash(r, "success", "Transaction recorded.")
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}

func (s *Server) handleTxnEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	user := userFrom(r.Context())
	txn, err := s.repo.GetTransactionForUser(r.Context(), user.ID, id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction lookup failed", "error", err, "txn_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "transaction_form.html", "Edit transaction", nil, txnToForm(txn))
}

func (s *Server) handleTxnUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	budget, err := s.activeBudget(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Active budget lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	txn, form, errs := s.parseTxnForm(r, budget.ID)
	txn.ID = id
	form.ID = id
	if len(errs) > 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.render(w, r, "transaction_form.html", "Edit transaction", errs, form)
		return
	}

	user := userFrom(r.Context())
	if err := s.svc.UpdateTransaction(r.Context(), user.ID, txn); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Transaction update failed", "error", err, "txn_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.flash(r, "success", "Transaction updated.")
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}

func (s *Server) handleTxnDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	user := userFrom(r.Context())
	if err := s.repo.DeleteTransaction(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Transaction delete failed", "error", err, "txn_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.flash(r, "success", "Transaction deleted.")
	http.Redirect(w, r, "/transactions", http.StatusSeeOther)
}
