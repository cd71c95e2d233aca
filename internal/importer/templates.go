package importer

import (
	"encoding/csv"
	"io"
)

// WriteBudgetLineTemplate writes the budget line import header plus example
// rows, one per frequency, for the template download endpoint.
func WriteBudgetLineTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	records := [][]string{
		BudgetLineHeader,
		{"income", "Salary", "", "1000", "EUR", "monthly", "01/25", "12/25", ""},
		{"expense", "Holiday", "Summer", "800", "EUR", "one_time", "", "", "06/25"},
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}

// WriteTransactionTemplate writes the transaction import header plus
// example rows.
func WriteTransactionTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	records := [][]string{
		TransactionHeader,
		{"2025-01-01", "income", "Salary", "", "1000", "EUR", "January salary"},
		{"2025-01-15", "expense", "Groceries", "", "45.30", "EUR", "Weekly shop"},
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}
