package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

type fakeStore struct {
	lines   []core.BudgetLine
	txns    []core.Transaction
	failOn  string // category that triggers a storage failure
	nextID  int64
	lastErr error
}

func (f *fakeStore) CreateBudgetLine(_ context.Context, line core.BudgetLine) (int64, error) {
	if f.failOn != "" && line.Category == f.failOn {
		f.lastErr = errors.New("storage unavailable")
		return 0, f.lastErr
	}
	f.nextID++
	f.lines = append(f.lines, line)
	return f.nextID, nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, txn core.Transaction) (int64, error) {
	if f.failOn != "" && txn.Category == f.failOn {
		f.lastErr = errors.New("storage unavailable")
		return 0, f.lastErr
	}
	f.nextID++
	f.txns = append(f.txns, txn)
	return f.nextID, nil
}

func linesCSV(rows ...string) string {
	return strings.Join(append([]string{strings.Join(BudgetLineHeader, ",")}, rows...), "\n")
}

func txnsCSV(rows ...string) string {
	return strings.Join(append([]string{strings.Join(TransactionHeader, ",")}, rows...), "\n")
}

func TestImportBudgetLinesHappyPath(t *testing.T) {
	store := &fakeStore{}
	csv := linesCSV(
		"income,Salary,,1000,EUR,monthly,01/25,12/25,",
		"income,Bonus,,500,EUR,one_time,,,06/25",
	)

	res, err := ImportBudgetLines(context.Background(), strings.NewReader(csv), 7, "EUR", store)
	require.NoError(t, err)
	require.Empty(t, res.RowErrors)
	require.Equal(t, 2, res.Created)
	require.Len(t, store.lines, 2)

	salary := store.lines[0]
	require.Equal(t, int64(7), salary.BudgetID)
	require.Equal(t, core.Income, salary.Type)
	require.Equal(t, core.Monthly, salary.Frequency)
	require.Equal(t, core.YM(202501), salary.StartYM)
	require.Equal(t, core.YM(202512), salary.EndYM)
	require.Equal(t, int64(100000), salary.Amount.Cents)

	bonus := store.lines[1]
	require.Equal(t, core.OneTime, bonus.Frequency)
	require.Equal(t, core.YM(202506), bonus.OneTimeYM)
	require.True(t, bonus.StartYM.IsZero())
}

func TestImportBudgetLinesPartialSuccess(t *testing.T) {
	store := &fakeStore{}
	csv := linesCSV(
		"income,Salary,,1000,EUR,monthly,01/25,12/25,",
		"expense,Internet,,30,EUR,monthly,,,",
	)

	res, err := ImportBudgetLines(context.Background(), strings.NewReader(csv), 1, "EUR", store)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)
	require.Len(t, store.lines, 1)
	require.Equal(t, "Salary", store.lines[0].Category)

	// The invalid row is the second data row: header is row 1.
	require.Len(t, res.RowErrors, 1)
	require.Contains(t, res.RowErrors[0], "Row 3")
	require.Contains(t, res.RowErrors[0], "start")
	require.True(t, res.Failed())
}

func TestImportBudgetLinesHeaderMismatch(t *testing.T) {
	store := &fakeStore{}
	csv := "type,category,amount,frequency\nexpense,Groceries,200,monthly\n"

	_, err := ImportBudgetLines(context.Background(), strings.NewReader(csv), 1, "EUR", store)
	require.ErrorIs(t, err, ErrHeaderMismatch)
	require.Empty(t, store.lines, "nothing may be persisted on header mismatch")
}

func TestImportBudgetLinesHeaderOrderMatters(t *testing.T) {
	store := &fakeStore{}
	csv := "category,type,subcategory,amount,currency,frequency,start_mm_yy,end_mm_yy,one_time_mm_yy\n"

	_, err := ImportBudgetLines(context.Background(), strings.NewReader(csv), 1, "EUR", store)
	require.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestImportBudgetLinesEmptyFile(t *testing.T) {
	_, err := ImportBudgetLines(context.Background(), strings.NewReader(""), 1, "EUR", &fakeStore{})
	require.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestImportBudgetLinesRowRules(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		wantErr string
	}{
		{"bad type", "transfer,Salary,,1000,EUR,monthly,01/25,,", "income or expense"},
		{"missing category", "income,,,1000,EUR,monthly,01/25,,", "category"},
		{"bad amount", "income,Salary,,ten,EUR,monthly,01/25,,", "amount"},
		{"bad frequency", "income,Salary,,1000,EUR,weekly,01/25,,", "frequency"},
		{"bad start month", "income,Salary,,1000,EUR,monthly,1/25,,", "start_mm_yy"},
		{"end before start", "income,Salary,,1000,EUR,monthly,01/25,12/24,", "end month"},
		{"one_time set for monthly", "income,Salary,,1000,EUR,monthly,01/25,,06/25", "one_time"},
		{"range set for one_time", "income,Bonus,,500,EUR,one_time,01/25,,06/25", "start/end"},
		{"one_time missing target", "income,Bonus,,500,EUR,one_time,,,", "one_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			res, err := ImportBudgetLines(context.Background(), strings.NewReader(linesCSV(tt.row)), 1, "EUR", store)
			require.NoError(t, err)
			require.Zero(t, res.Created)
			require.Len(t, res.RowErrors, 1)
			require.Contains(t, res.RowErrors[0], "Row 2")
			require.Contains(t, res.RowErrors[0], tt.wantErr)
		})
	}
}

func TestImportBudgetLinesShortRowPadded(t *testing.T) {
	store := &fakeStore{}
	// Trailing empty month columns omitted entirely.
	csv := linesCSV("income,Bonus,,500,EUR,one_time")

	res, err := ImportBudgetLines(context.Background(), strings.NewReader(csv), 1, "EUR", store)
	require.NoError(t, err)
	require.Zero(t, res.Created)
	require.Len(t, res.RowErrors, 1)
	require.Contains(t, res.RowErrors[0], "one_time")
}

func TestImportBudgetLinesDefaultCurrency(t *testing.T) {
	store := &fakeStore{}
	csv := linesCSV("income,Salary,,1000,,monthly,01/25,,")

	res, err := ImportBudgetLines(context.Background(), strings.NewReader(csv), 1, "CHF", store)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)
	require.Equal(t, "CHF", store.lines[0].Currency)
}

func TestImportBudgetLinesStorageFailureIsRowScoped(t *testing.T) {
	store := &fakeStore{failOn: "Salary"}
	csv := linesCSV(
		"income,Salary,,1000,EUR,monthly,01/25,,",
		"income,Bonus,,500,EUR,one_time,,,06/25",
	)

	res, err := ImportBudgetLines(context.Background(), strings.NewReader(csv), 1, "EUR", store)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)
	require.Len(t, res.RowErrors, 1)
	require.Contains(t, res.RowErrors[0], "Row 2")
}

func TestImportTransactionsHappyPath(t *testing.T) {
	store := &fakeStore{}
	csv := txnsCSV(
		"2025-01-01,income,Salary,,1000,EUR,January salary",
		"2025-01-15,expense,Groceries,Weekly,45.30,EUR,",
	)

	res, err := ImportTransactions(context.Background(), strings.NewReader(csv), 3, "EUR", store)
	require.NoError(t, err)
	require.Empty(t, res.RowErrors)
	require.Equal(t, 2, res.Created)
	require.Len(t, store.txns, 2)

	first := store.txns[0]
	require.Equal(t, int64(3), first.BudgetID)
	require.Equal(t, core.YM(202501), first.YM, "ym must be derived from the date")
	require.Equal(t, "January salary", first.Notes)
	require.Equal(t, int64(100000), first.Amount.Cents)
	require.Equal(t, int64(4530), store.txns[1].Amount.Cents)
}

func TestImportTransactionsRowRules(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		wantErr string
	}{
		{"missing date", ",income,Salary,,1000,EUR,", "date is required"},
		{"bad date", "15/01/2025,income,Salary,,1000,EUR,", "YYYY-MM-DD"},
		{"bad type", "2025-01-01,loan,Salary,,1000,EUR,", "income or expense"},
		{"missing category", "2025-01-01,income,,,1000,EUR,", "category"},
		{"bad amount", "2025-01-01,income,Salary,,x,EUR,", "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			res, err := ImportTransactions(context.Background(), strings.NewReader(txnsCSV(tt.row)), 1, "EUR", store)
			require.NoError(t, err)
			require.Zero(t, res.Created)
			require.Len(t, res.RowErrors, 1)
			require.Contains(t, res.RowErrors[0], "Row 2")
			require.Contains(t, res.RowErrors[0], tt.wantErr)
		})
	}
}

func TestImportTransactionsHeaderMismatch(t *testing.T) {
	csv := "date,type,category,amount,currency,notes\n2025-01-01,income,Salary,1000,EUR,\n"
	_, err := ImportTransactions(context.Background(), strings.NewReader(csv), 1, "EUR", &fakeStore{})
	require.ErrorIs(t, err, ErrHeaderMismatch)
}

func TestTemplatesRoundTrip(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, WriteBudgetLineTemplate(&buf))
	store := &fakeStore{}
	res, err := ImportBudgetLines(context.Background(), strings.NewReader(buf.String()), 1, "EUR", store)
	require.NoError(t, err)
	require.Empty(t, res.RowErrors)
	require.Equal(t, 2, res.Created)

	buf.Reset()
	require.NoError(t, WriteTransactionTemplate(&buf))
	res, err = ImportTransactions(context.Background(), strings.NewReader(buf.String()), 1, "EUR", store)
	require.NoError(t, err)
	require.Empty(t, res.RowErrors)
	require.Equal(t, 2, res.Created)
}
