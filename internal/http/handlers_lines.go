package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/storage"
)

// lineForm mirrors the raw form fields so invalid input can be re-rendered
// exactly as submitted.
type lineForm struct {
	ID        int64
	Type      string
	Category  string
	Subcat    string
	Amount    string
	Currency  string
	Frequency string
	Start     string
	End       string
	OneTime   string
	IsActive  bool
}

type lineView struct {
	ID       int64
	Type     string
	Category string
	Subcat   string
	Amount   string
	Schedule string
	IsActive bool
}

func lineToView(l core.BudgetLine) lineView {
	v := lineView{
		ID:       l.ID,
		Type:     string(l.Type),
		Category: l.Category,
		Subcat:   l.Subcategory,
		Amount:   l.Amount.Display(l.Currency),
		IsActive: l.IsActive,
	}
	switch l.Frequency {
	case core.Monthly:
		v.Schedule = "monthly from " + l.StartYM.String()
		if !l.EndYM.IsZero() {
			v.Schedule += " to " + l.EndYM.String()
		}
	case core.OneTime:
		v.Schedule = "once in " + l.OneTimeYM.String()
	}
	return v
}

func lineToForm(l core.BudgetLine) lineForm {
	f := lineForm{
		ID:        l.ID,
		Type:      string(l.Type),
		Category:  l.Category,
		Subcat:    l.Subcategory,
		Amount:    l.Amount.Decimal(),
		Currency:  l.Currency,
		Frequency: string(l.Frequency),
		IsActive:  l.IsActive,
	}
	if !l.StartYM.IsZero() {
		f.Start = l.StartYM.String()
	}
	if !l.EndYM.IsZero() {
		f.End = l.EndYM.String()
	}
	if !l.OneTimeYM.IsZero() {
		f.OneTime = l.OneTimeYM.String()
	}
	return f
}

func (s *Server) handleLineList(w http.ResponseWriter, r *http.Request) {
	budget, err := s.activeBudget(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Active budget lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	lines, err := s.repo.ListBudgetLines(r.Context(), budget.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget line list failed", "error", err, "budget_id", budget.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	views := make([]lineView, 0, len(lines))
	for _, l := range lines {
		views = append(views, lineToView(l))
	}
	s.render(w, r, "lines.html", "Budget lines", nil, views)
}

func (s *Server) handleLineNew(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "line_form.html", "New budget line", nil, lineForm{Frequency: "monthly", IsActive: true})
}

// parseLineForm converts posted fields into a budget line. The returned
// form echoes the raw input for re-rendering; errs collects every problem
// found rather than stopping at the first.
func (s *Server) parseLineForm(r *http.Request, budgetID int64) (core.BudgetLine, lineForm, []string) {
	form := lineForm{
		Type:      sanitizeInput(r.Form.Get("type")),
		Category:  sanitizeInput(r.Form.Get("category")),
		Subcat:    sanitizeInput(r.Form.Get("subcategory")),
		Amount:    sanitizeInput(r.Form.Get("amount")),
		Currency:  strings.ToUpper(sanitizeInput(r.Form.Get("currency"))),
		Frequency: sanitizeInput(r.Form.Get("frequency")),
		Start:     sanitizeInput(r.Form.Get("start_mm_yy")),
		End:       sanitizeInput(r.Form.Get("end_mm_yy")),
		OneTime:   sanitizeInput(r.Form.Get("one_time_mm_yy")),
		IsActive:  r.Form.Get("is_active") != "",
	}

	var errs []string
	line := core.BudgetLine{
		BudgetID:    budgetID,
		Type:        core.LineType(form.Type),
		Category:    form.Category,
		Subcategory: form.Subcat,
		Currency:    form.Currency,
		Frequency:   core.Frequency(form.Frequency),
		IsActive:    form.IsActive,
	}
	if form.Currency == "" {
		line.Currency = s.baseCurrency
	}

	cents, err := core.ParseDecimalToCents(form.Amount)
	if err != nil {
		errs = append(errs, "amount: "+err.Error())
	}
	line.Amount = core.Money{Cents: cents}

	if line.StartYM, err = parseOptionalMonth(form.Start); err != nil {
		errs = append(errs, "start month: "+err.Error())
	}
	if line.EndYM, err = parseOptionalMonth(form.End); err != nil {
		errs = append(errs, "end month: "+err.Error())
	}
	if line.OneTimeYM, err = parseOptionalMonth(form.OneTime); err != nil {
		errs = append(errs, "one-time month: "+err.Error())
	}

	if len(errs) == 0 {
		if err := line.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return line, form, errs
}

func (s *Server) handleLineCreate(w http.ResponseWriter, r *http.Request) {
	budget, err := s.activeBudget(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "Active budget lookup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	line, form, errs := s.parseLineForm(r, budget.ID)
	if len(errs) > 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.render(w, r, "line_form.html", "New budget line", errs, form)
		return
	}

	id, err := s.svc.CreateBudgetLine(r.Context(), line)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget line creation failed", "error", err, "budget_id", budget.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "Budget line created", "line_id", id, "budget_id", budget.ID, "category", line.Category)
	s.flash(r, "success", "Budget line created.")
	http.Redirect(w, r, "/lines", http.StatusSeeOther)
}

func (s *Server) handleLineEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	user := userFrom(r.Context())
	line, err := s.repo.GetBudgetLineForUser(r.Context(), user.ID, id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget line lookup failed", "error", err, "line_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "line_form.html", "Edit budget line", nil, lineToForm(line))
}

func (s *Server) handleLineUpdate(w http.ResponseWriter, r *http.Request) {
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

	line, form, errs := s.parseLineForm(r, budget.ID)
	line.ID = id
	form.ID = id
	if len(errs) > 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		s.render(w, r, "line_form.html", "Edit budget line", errs, form)
		return
	}

	user := userFrom(r.Context())
	if err := s.svc.UpdateBudgetLine(r.Context(), user.ID, line); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Budget line update failed", "error", err, "line_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.flash(r, "success", "Budget line updated.")
	http.Redirect(w, r, "/lines", http.StatusSeeOther)
}

func (s *Server) handleLineDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	user := userFrom(r.Context())
	if err := s.repo.DeleteBudgetLine(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Budget line delete failed", "error", err, "line_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.flash(r, "success", "Budget line deleted.")
	http.Redirect(w, r, "/lines", http.StatusSeeOther)
}
