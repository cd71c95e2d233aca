package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  LineType = "income"
	Expense LineType = "expense"

	Monthly Frequency = "monthly"
	OneTime Frequency = "one_time"
)

type (
	// LineType marks an entry as planned/realized income or expense.
	LineType string

	// Frequency says whether a budget line repeats every month inside a
	// start/end window or targets a single month.
	Frequency string

	Money struct {
		Cents int64
	}

	User struct {
		ID             int64
		Email          string
		HashedPassword string
		CreatedAt      time.Time
	}

	// Budget is the container all lines and transactions of a user hang
	// off. Each user has exactly one active budget.
	Budget struct {
		ID           int64
		UserID       int64
		Name         string
		BaseCurrency string
		IsActive     bool
		CreatedAt    time.Time
	}

	// BudgetLine is a planned recurring or one-off entry, not yet realized
	// as an actual transaction. Which of the three month fields may be set
	// depends on Frequency; see ValidateLineSchedule.
	BudgetLine struct {
		ID          int64
		BudgetID    int64
		Type        LineType
		Category    string
		Subcategory string
		Amount      Money
		Currency    string
		Frequency   Frequency
		StartYM     YM
		EndYM       YM
		OneTimeYM   YM
		IsActive    bool
	}

	// Transaction is a realized, dated entry. YM is always derived from
	// TxnDate by the storage layer and never set independently.
	Transaction struct {
		ID          int64
		BudgetID    int64
		Type        LineType
		Category    string
		Subcategory string
		Amount      Money
		Currency    string
		TxnDate     time.Time
		YM          YM
		Notes       string
	}
)

var (
	ErrInvalidType      = errors.New("type must be income or expense")
	ErrInvalidFrequency = errors.New("frequency must be monthly or one_time")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("category is required")
	ErrZeroDate         = errors.New("date is required")

	ErrStartRequired    = errors.New("start month is required for monthly")
	ErrEndBeforeStart   = errors.New("end month must be >= start month")
	ErrOneTimeForbidden = errors.New("one_time month must be empty for monthly")
	ErrOneTimeRequired  = errors.New("one_time month is required for one_time")
	ErrRangeForbidden   = errors.New("start/end months must be empty for one_time")
)

func (t LineType) Valid() bool {
	return t == Income || t == Expense
}

func (f Frequency) Valid() bool {
	return f == Monthly || f == OneTime
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateLineSchedule enforces which combination of the three optional
// month fields is legal for a frequency:
//
//	monthly:  start required, end optional but >= start, one_time forbidden
//	one_time: one_time required, start and end forbidden
//
// Pure check, no side effects; callers surface the error as a row or form
// level validation failure.
func ValidateLineSchedule(freq Frequency, start, end, oneTime YM) error {
	switch freq {
	case Monthly:
		if start.IsZero() {
			return ErrStartRequired
		}
		if !end.IsZero() && end < start {
			return ErrEndBeforeStart
		}
		if !oneTime.IsZero() {
			return ErrOneTimeForbidden
		}
		return nil
	case OneTime:
		if oneTime.IsZero() {
			return ErrOneTimeRequired
		}
		if !start.IsZero() || !end.IsZero() {
			return ErrRangeForbidden
		}
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (l BudgetLine) Validate() error {
	if !l.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(l.Category) == "" {
		return ErrEmptyCategory
	}
	if len(l.Category) > 100 {
		return errors.New("category too long (max 100 characters)")
	}
	if err := l.Amount.Validate(); err != nil {
		return err
	}
	return ValidateLineSchedule(l.Frequency, l.StartYM, l.EndYM, l.OneTimeYM)
}

// AppliesTo reports whether the line counts toward the given month.
func (l BudgetLine) AppliesTo(ym YM) bool {
	switch l.Frequency {
	case Monthly:
		return ym.InRange(l.StartYM, l.EndYM)
	case OneTime:
		return ym == l.OneTimeYM
	}
	return false
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.TxnDate.IsZero() {
		return ErrZeroDate
	}
	return nil
}
