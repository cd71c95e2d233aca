// Package core holds the pure domain model: the YYYYMM period key,
// budget line and transaction types, and their validation rules.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// YM is an integer month key encoded as year*100+month, e.g. 202501 for
// January 2025. The keys order chronologically when compared as integers.
// The zero value means "no month set" on optional fields.
type YM int

var (
	ErrInvalidMonth  = errors.New("month must be between 01 and 12")
	ErrMalformedKey  = errors.New("malformed month key")
	ErrInvalidFormat = errors.New("invalid month format; expected MM/YY")
)

// minYM is a sanity floor: anything below 100001 cannot be a real
// year*100+month key.
const minYM YM = 100001

// EncodeYM builds a month key from a year and a 1-based month.
func EncodeYM(year, month int) (YM, error) {
	if month < 1 || month > 12 {
		return 0, ErrInvalidMonth
	}
	return YM(year*100 + month), nil
}

// YMFromDate derives the month key of the month a date falls in.
func YMFromDate(t time.Time) YM {
	return YM(t.Year()*100 + int(t.Month()))
}

// Split decomposes a month key into year and month.
func (ym YM) Split() (year, month int, err error) {
	if ym < minYM {
		return 0, 0, ErrMalformedKey
	}
	year = int(ym) / 100
	month = int(ym) % 100
	if month < 1 || month > 12 {
		return 0, 0, ErrMalformedKey
	}
	return year, month, nil
}

// Valid reports whether the key decodes cleanly.
func (ym YM) Valid() bool {
	_, _, err := ym.Split()
	return err == nil
}

// IsZero reports whether the key is unset.
func (ym YM) IsZero() bool {
	return ym == 0
}

// ParseMonthYear converts human "MM/YY" input to a month key.
//
// The month part must be exactly two digits; the year part may be two digits
// (mapped 00-99 to 2000-2099) or a full four-digit year. Both forms are
// accepted so pasted spreadsheet data with full years imports cleanly.
func ParseMonthYear(s string) (YM, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidFormat
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0, ErrInvalidFormat
	}
	mm := strings.TrimSpace(parts[0])
	yy := strings.TrimSpace(parts[1])
	if len(mm) != 2 || !allDigits(mm) {
		return 0, ErrInvalidFormat
	}
	if (len(yy) != 2 && len(yy) != 4) || !allDigits(yy) {
		return 0, ErrInvalidFormat
	}
	month := int(mm[0]-'0')*10 + int(mm[1]-'0')
	if month < 1 || month > 12 {
		return 0, ErrInvalidMonth
	}
	year := 0
	for _, r := range yy {
		year = year*10 + int(r-'0')
	}
	if len(yy) == 2 {
		year += 2000
	}
	// Four-digit years below 1000 would produce keys under the sanity floor.
	if year < 1000 {
		return 0, ErrInvalidFormat
	}
	return YM(year*100 + month), nil
}

// FormatMonthYear renders a month key in the canonical two-digit "MM/YY"
// form, the inverse of ParseMonthYear for the 2000-2099 window.
func FormatMonthYear(ym YM) (string, error) {
	year, month, err := ym.Split()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d/%02d", month, year%100), nil
}

// String renders the key as "MM/YY", or "?" when the key is malformed.
// Templates use it for display; code paths that must fail on bad keys use
// FormatMonthYear.
func (ym YM) String() string {
	s, err := FormatMonthYear(ym)
	if err != nil {
		return "?"
	}
	return s
}

// InRange reports whether ym falls inside [start, end]. A zero start means
// unbounded below, a zero end unbounded above.
func (ym YM) InRange(start, end YM) bool {
	if !start.IsZero() && ym < start {
		return false
	}
	if !end.IsZero() && ym > end {
		return false
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
