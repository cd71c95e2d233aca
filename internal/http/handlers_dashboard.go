package http

import (
	"log/slog"
	"net/http"
	"sort"

	"bilancio/internal/core"
)

type dashboardRow struct {
	Category string
	Type     string
	Planned  string
	Actual   string
	// Diff is actual minus planned, negative when under plan.
	Diff string
}

type dashboardData struct {
	Month          string
	PrevMonth      string
	NextMonth      string
	PlannedIncome  string
	PlannedExpense string
	ActualIncome   string
	ActualExpense  string
	Rows           []dashboardRow
}

type categoryTotals struct {
	lineType core.LineType
	planned  int64
	actual   int64
}

// handleDashboard renders planned versus actual amounts per category for
// one month. Lines count when their schedule covers the month; actuals
// come from transactions dated inside it.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ym, err := monthParam(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.render(w, r, "dashboard.html", "Dashboard", []string{"month: " + err.Error()}, dashboardData{})
		return
	}

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

	txns, err := s.repo.ListTransactionsByMonth(r.Context(), budget.ID, ym)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction list failed", "error", err, "budget_id", budget.ID, "month", ym.String())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	totals := make(map[string]*categoryTotals)
	get := func(category string, t core.LineType) *categoryTotals {
		key := string(t) + "/" + category
		if ct, ok := totals[key]; ok {
			return ct
		}
		ct := &categoryTotals{lineType: t}
		totals[key] = ct
		return ct
	}

	var plannedIncome, plannedExpense, actualIncome, actualExpense int64
	for _, l := range lines {
		if !l.IsActive || !l.AppliesTo(ym) {
			continue
		}
		get(l.Category, l.Type).planned += l.Amount.Cents
		if l.Type == core.Income {
			plannedIncome += l.Amount.Cents
		} else {
			plannedExpense += l.Amount.Cents
		}
	}
	for _, t := range txns {
		get(t.Category, t.Type).actual += t.Amount.Cents
		if t.Type == core.Income {
			actualIncome += t.Amount.Cents
		} else {
			actualExpense += t.Amount.Cents
		}
	}

	keys := make([]string, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	data := dashboardData{
		Month:          ym.String(),
		PlannedIncome:  core.Money{Cents: plannedIncome}.Display(budget.BaseCurrency),
		PlannedExpense: core.Money{Cents: plannedExpense}.Display(budget.BaseCurrency),
		ActualIncome:   core.Money{Cents: actualIncome}.Display(budget.BaseCurrency),
		ActualExpense:  core.Money{Cents: actualExpense}.Display(budget.BaseCurrency),
	}
	if year, month, err := ym.Split(); err == nil {
		prev, next := adjacentMonths(year, month)
		data.PrevMonth = prev.String()
		data.NextMonth = next.String()
	}

	for _, key := range keys {
		ct := totals[key]
		data.Rows = append(data.Rows, dashboardRow{
			Category: key[len(string(ct.lineType))+1:],
			Type:     string(ct.lineType),
			Planned:  core.Money{Cents: ct.planned}.Display(budget.BaseCurrency),
			Actual:   core.Money{Cents: ct.actual}.Display(budget.BaseCurrency),
			Diff:     core.Money{Cents: ct.actual - ct.planned}.Display(budget.BaseCurrency),
		})
	}

	s.render(w, r, "dashboard.html", "Dashboard", nil, data)
}

func adjacentMonths(year, month int) (prev, next core.YM) {
	py, pm := year, month-1
	if pm == 0 {
		py, pm = year-1, 12
	}
	ny, nm := year, month+1
	if nm == 13 {
		ny, nm = year+1, 1
	}
	prev, _ = core.EncodeYM(py, pm)
	next, _ = core.EncodeYM(ny, nm)
	return prev, next
}
