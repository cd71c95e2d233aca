package core

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeYM(t *testing.T) {
	cases := []struct {
		year, month int
		want        YM
		ok          bool
	}{
		{2025, 1, 202501, true},
		{2030, 12, 203012, true},
		{2025, 0, 0, false},
		{2025, 13, 0, false},
	}
	for i, tc := range cases {
		got, err := EncodeYM(tc.year, tc.month)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("case %d: got (%d, %v), want %d", i, got, err, tc.want)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("case %d: expected ErrInvalidMonth, got %v", i, err)
		}
	}
}

func TestSplitRoundTrip(t *testing.T) {
	for year := 2000; year <= 2099; year += 11 {
		for month := 1; month <= 12; month++ {
			ym, err := EncodeYM(year, month)
			if err != nil {
				t.Fatalf("encode %d-%d: %v", year, month, err)
			}
			y, m, err := ym.Split()
			if err != nil || y != year || m != month {
				t.Fatalf("split %d: got (%d, %d, %v)", ym, y, m, err)
			}
		}
	}
}

func TestSplitMalformed(t *testing.T) {
	for _, ym := range []YM{0, 1, 202500, 202513, 100000, -202501} {
		if _, _, err := ym.Split(); !errors.Is(err, ErrMalformedKey) {
			t.Fatalf("ym %d: expected ErrMalformedKey, got %v", ym, err)
		}
	}
}

func TestYMFromDate(t *testing.T) {
	d := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	if got := YMFromDate(d); got != 202501 {
		t.Fatalf("got %d, want 202501", got)
	}
}

func TestParseMonthYear(t *testing.T) {
	cases := []struct {
		in      string
		want    YM
		wantErr error
	}{
		{"01/25", 202501, nil},
		{"12/30", 203012, nil},
		{" 06/25 ", 202506, nil},
		{"01/2025", 202501, nil}, // four-digit year accepted
		{"13/25", 0, ErrInvalidMonth},
		{"00/25", 0, ErrInvalidMonth},
		{"01/0099", 0, ErrInvalidFormat}, // sub-1000 years have no valid key
		{"01/0999", 0, ErrInvalidFormat},
		{"1/25", 0, ErrInvalidFormat}, // month must be two digits
		{"01/5", 0, ErrInvalidFormat},
		{"01/025", 0, ErrInvalidFormat},
		{"0125", 0, ErrInvalidFormat},
		{"01/25/3", 0, ErrInvalidFormat},
		{"ab/25", 0, ErrInvalidFormat},
		{"01/cd", 0, ErrInvalidFormat},
		{"", 0, ErrInvalidFormat},
		{"  ", 0, ErrInvalidFormat},
	}
	for _, tc := range cases {
		got, err := ParseMonthYear(tc.in)
		if tc.wantErr == nil {
			if err != nil || got != tc.want {
				t.Fatalf("%q: got (%d, %v), want %d", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%q: expected %v, got %v", tc.in, tc.wantErr, err)
		}
	}
}

func TestFormatMonthYear(t *testing.T) {
	s, err := FormatMonthYear(202501)
	if err != nil || s != "01/25" {
		t.Fatalf("got (%q, %v), want 01/25", s, err)
	}
	if _, err := FormatMonthYear(202513); !errors.Is(err, ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
	if got := YM(0).String(); got != "?" {
		t.Fatalf("zero key String: got %q", got)
	}
}

func TestParseFormatStability(t *testing.T) {
	for _, in := range []string{"01/25", "12/99", "06/00", "02/2031"} {
		ym, err := ParseMonthYear(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		s, err := FormatMonthYear(ym)
		if err != nil {
			t.Fatalf("format %d: %v", ym, err)
		}
		again, err := ParseMonthYear(s)
		if err != nil || again != ym {
			t.Fatalf("%q: round trip gave %d, want %d", in, again, ym)
		}
	}
}

func TestInRange(t *testing.T) {
	cases := []struct {
		ym, start, end YM
		want           bool
	}{
		{202503, 202501, 202512, true},
		{202601, 202501, 202512, false},
		{202412, 202501, 202512, false},
		{202503, 0, 0, true},
		{202503, 0, 202502, false},
		{202503, 202504, 0, false},
		{202501, 202501, 202501, true},
	}
	for i, tc := range cases {
		if got := tc.ym.InRange(tc.start, tc.end); got != tc.want {
			t.Fatalf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}
