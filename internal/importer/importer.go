// Package importer implements the bulk CSV import pipeline for budget
// lines and transactions.
//
// Each import is a single pass over the file: the header must match the
// published template exactly (order included), then every data row is
// parsed and validated independently. A bad row is recorded as a row error
// and never aborts the batch; rows created before a later failure stay
// persisted. Row numbers are 1-based counting the header, so the first
// data row is row 2.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"bilancio/internal/core"
)

// ErrHeaderMismatch aborts the whole import before any row is processed.
var ErrHeaderMismatch = errors.New("header mismatch")

// BudgetLineHeader is the exact ordered column list for budget line imports.
var BudgetLineHeader = []string{
	"type", "category", "subcategory", "amount", "currency",
	"frequency", "start_mm_yy", "end_mm_yy", "one_time_mm_yy",
}

// TransactionHeader is the exact ordered column list for transaction
// imports. The date column is YYYY-MM-DD.
var TransactionHeader = []string{
	"date", "type", "category", "subcategory", "amount", "currency", "notes",
}

// LineCreator persists one budget line. Implementations are expected to
// commit per call so earlier rows survive later failures.
type LineCreator interface {
	CreateBudgetLine(ctx context.Context, line core.BudgetLine) (int64, error)
}

// TransactionCreator persists one transaction.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, txn core.Transaction) (int64, error)
}

// Result is the outcome of one import run: how many rows were persisted and
// the ordered rejection messages for the rows that were not.
type Result struct {
	Created   int
	RowErrors []string
}

// Failed reports whether any row was rejected.
func (r Result) Failed() bool {
	return len(r.RowErrors) > 0
}

// ImportBudgetLines reads CSV budget lines and persists the valid ones
// against the given budget. defaultCurrency fills rows with an empty
// currency column.
func ImportBudgetLines(ctx context.Context, r io.Reader, budgetID int64, defaultCurrency string, creator LineCreator) (Result, error) {
	var res Result

	rows, err := readRows(r, BudgetLineHeader)
	if err != nil {
		return res, err
	}

	rowNum := 1 // header
	for _, row := range rows {
		rowNum++
		line, err := parseLineRow(row, budgetID, defaultCurrency)
		if err != nil {
			res.RowErrors = append(res.RowErrors, rowError(rowNum, err))
			continue
		}
		if _, err := creator.CreateBudgetLine(ctx, line); err != nil {
			res.RowErrors = append(res.RowErrors, rowError(rowNum, err))
			continue
		}
		res.Created++
	}
	return res, nil
}

// ImportTransactions reads CSV transactions and persists the valid ones
// against the given budget.
func ImportTransactions(ctx context.Context, r io.Reader, budgetID int64, defaultCurrency string, creator TransactionCreator) (Result, error) {
	var res Result

	rows, err := readRows(r, TransactionHeader)
	if err != nil {
		return res, err
	}

	rowNum := 1
	for _, row := range rows {
		rowNum++
		txn, err := parseTransactionRow(row, budgetID, defaultCurrency)
		if err != nil {
			res.RowErrors = append(res.RowErrors, rowError(rowNum, err))
			continue
		}
		if _, err := creator.CreateTransaction(ctx, txn); err != nil {
			res.RowErrors = append(res.RowErrors, rowError(rowNum, err))
			continue
		}
		res.Created++
	}
	return res, nil
}

// readRows validates the header and returns all data rows, each trimmed and
// normalized to exactly len(header) fields. Short trailing rows are padded
// with empty strings.
func readRows(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	got, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", ErrHeaderMismatch)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !headerMatches(got, header) {
		return nil, fmt.Errorf("%w: expected columns %s", ErrHeaderMismatch, strings.Join(header, ","))
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		row := make([]string, len(header))
		for i := range row {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func headerMatches(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != want[i] {
			return false
		}
	}
	return true
}

func parseLineRow(row []string, budgetID int64, defaultCurrency string) (core.BudgetLine, error) {
	sType, sCat, sSub := row[0], row[1], row[2]
	sAmount, sCurrency, sFreq := row[3], row[4], row[5]
	sStart, sEnd, sOneTime := row[6], row[7], row[8]

	lineType := core.LineType(strings.ToLower(sType))
	if !lineType.Valid() {
		return core.BudgetLine{}, core.ErrInvalidType
	}
	if sCat == "" {
		return core.BudgetLine{}, core.ErrEmptyCategory
	}
	cents, err := core.ParseDecimalToCents(sAmount)
	if err != nil {
		return core.BudgetLine{}, fmt.Errorf("amount: %w", err)
	}
	freq := core.Frequency(strings.ToLower(sFreq))
	if !freq.Valid() {
		return core.BudgetLine{}, core.ErrInvalidFrequency
	}

	// Month columns are only read for the frequency that uses them; the
	// schedule validator then rejects leftovers in the wrong columns.
	var startYM, endYM, oneTimeYM core.YM
	if freq == core.Monthly {
		if sStart != "" {
			if startYM, err = core.ParseMonthYear(sStart); err != nil {
				return core.BudgetLine{}, fmt.Errorf("start_mm_yy: %w", err)
			}
		}
		if sEnd != "" {
			if endYM, err = core.ParseMonthYear(sEnd); err != nil {
				return core.BudgetLine{}, fmt.Errorf("end_mm_yy: %w", err)
			}
		}
		if sOneTime != "" {
			return core.BudgetLine{}, core.ErrOneTimeForbidden
		}
	} else {
		if sOneTime != "" {
			if oneTimeYM, err = core.ParseMonthYear(sOneTime); err != nil {
				return core.BudgetLine{}, fmt.Errorf("one_time_mm_yy: %w", err)
			}
		}
		if sStart != "" || sEnd != "" {
			return core.BudgetLine{}, core.ErrRangeForbidden
		}
	}
	if err := core.ValidateLineSchedule(freq, startYM, endYM, oneTimeYM); err != nil {
		return core.BudgetLine{}, err
	}

	currency := sCurrency
	if currency == "" {
		currency = defaultCurrency
	}

	line := core.BudgetLine{
		BudgetID:    budgetID,
		Type:        lineType,
		Category:    sCat,
		Subcategory: sSub,
		Amount:      core.Money{Cents: cents},
		Currency:    currency,
		Frequency:   freq,
		StartYM:     startYM,
		EndYM:       endYM,
		OneTimeYM:   oneTimeYM,
		IsActive:    true,
	}
	if err := line.Validate(); err != nil {
		return core.BudgetLine{}, err
	}
	return line, nil
}

func parseTransactionRow(row []string, budgetID int64, defaultCurrency string) (core.Transaction, error) {
	sDate, sType, sCat := row[0], row[1], row[2]
	sSub, sAmount, sCurrency, sNotes := row[3], row[4], row[5], row[6]

	if sDate == "" {
		return core.Transaction{}, errors.New("date is required (YYYY-MM-DD)")
	}
	txnDate, err := time.Parse("2006-01-02", sDate)
	if err != nil {
		return core.Transaction{}, errors.New("date must be in YYYY-MM-DD format")
	}
	txnType := core.LineType(strings.ToLower(sType))
	if !txnType.Valid() {
		return core.Transaction{}, core.ErrInvalidType
	}
	if sCat == "" {
		return core.Transaction{}, core.ErrEmptyCategory
	}
	cents, err := core.ParseDecimalToCents(sAmount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount: %w", err)
	}

	currency := sCurrency
	if currency == "" {
		currency = defaultCurrency
	}

	txn := core.Transaction{
		BudgetID:    budgetID,
		Type:        txnType,
		Category:    sCat,
		Subcategory: sSub,
		Amount:      core.Money{Cents: cents},
		Currency:    currency,
		TxnDate:     txnDate,
		YM:          core.YMFromDate(txnDate),
		Notes:       sNotes,
	}
	if err := txn.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return txn, nil
}

func rowError(rowNum int, err error) string {
	return fmt.Sprintf("Row %d: %v", rowNum, err)
}
