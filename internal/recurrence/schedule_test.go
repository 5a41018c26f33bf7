package recurrence

import (
	"errors"
	"testing"

	"fintrack/internal/core"
)

func days(dates []core.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

func equalDays(got []core.Date, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].String() != want[i] {
			return false
		}
	}
	return true
}

func TestOccurrencesMonthly(t *testing.T) {
	got, err := Occurrences(core.NewDate(2024, 1, 1), core.Monthly, core.Date{}, core.NewDate(2024, 4, 5))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	want := []string{"2024-01-01", "2024-02-01", "2024-03-01", "2024-04-01"}
	if !equalDays(got, want) {
		t.Errorf("got %v, want %v", days(got), want)
	}
}

func TestOccurrencesMonthlyDayOverflow(t *testing.T) {
	// Anchor on the 31st: short months clamp to their last day, no month is
	// skipped and no month repeats.
	got, err := Occurrences(core.NewDate(2024, 1, 31), core.Monthly, core.Date{}, core.NewDate(2024, 6, 30))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31", "2024-06-30"}
	if !equalDays(got, want) {
		t.Errorf("got %v, want %v", days(got), want)
	}
}

func TestOccurrencesMonthlyDayOverflowNonLeap(t *testing.T) {
	got, err := Occurrences(core.NewDate(2023, 1, 31), core.Monthly, core.Date{}, core.NewDate(2023, 3, 31))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	want := []string{"2023-01-31", "2023-02-28", "2023-03-31"}
	if !equalDays(got, want) {
		t.Errorf("got %v, want %v", days(got), want)
	}
}

func TestOccurrencesWeeklyEndBound(t *testing.T) {
	// End date caps the sequence even with asOf far in the future.
	got, err := Occurrences(core.NewDate(2024, 1, 1), core.Weekly, core.NewDate(2024, 1, 15), core.NewDate(2030, 1, 1))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	want := []string{"2024-01-01", "2024-01-08", "2024-01-15"}
	if !equalDays(got, want) {
		t.Errorf("got %v, want %v", days(got), want)
	}
}

func TestOccurrencesDaily(t *testing.T) {
	got, err := Occurrences(core.NewDate(2024, 2, 27), core.Daily, core.Date{}, core.NewDate(2024, 3, 1))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	want := []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}
	if !equalDays(got, want) {
		t.Errorf("got %v, want %v", days(got), want)
	}
}

func TestOccurrencesYearlyLeapAnchor(t *testing.T) {
	got, err := Occurrences(core.NewDate(2024, 2, 29), core.Yearly, core.Date{}, core.NewDate(2026, 12, 31))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	want := []string{"2024-02-29", "2025-02-28", "2026-02-28"}
	if !equalDays(got, want) {
		t.Errorf("got %v, want %v", days(got), want)
	}
}

func TestOccurrencesAnchorAfterAsOf(t *testing.T) {
	got, err := Occurrences(core.NewDate(2025, 1, 1), core.Monthly, core.Date{}, core.NewDate(2024, 6, 1))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("future anchor should yield nothing, got %v", days(got))
	}
}

func TestOccurrencesAnchorOnAsOf(t *testing.T) {
	got, err := Occurrences(core.NewDate(2024, 6, 1), core.Monthly, core.Date{}, core.NewDate(2024, 6, 1))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	if !equalDays(got, []string{"2024-06-01"}) {
		t.Errorf("anchor on asOf counts as the first occurrence, got %v", days(got))
	}
}

func TestOccurrencesUnknownFrequency(t *testing.T) {
	_, err := Occurrences(core.NewDate(2024, 1, 1), core.Frequency("biweekly"), core.Date{}, core.NewDate(2024, 6, 1))
	if !errors.Is(err, ErrUnknownFrequency) {
		t.Errorf("error = %v, want ErrUnknownFrequency", err)
	}
	_, err = Occurrences(core.NewDate(2024, 1, 1), core.None, core.Date{}, core.NewDate(2024, 6, 1))
	if !errors.Is(err, ErrUnknownFrequency) {
		t.Errorf("frequency none: error = %v, want ErrUnknownFrequency", err)
	}
}

func TestOccurrencesIterationCeiling(t *testing.T) {
	// A daily template with a backlog longer than the ceiling is reported,
	// not enumerated.
	_, err := Occurrences(core.NewDate(2000, 1, 1), core.Daily, core.Date{}, core.NewDate(2024, 1, 1))
	if !errors.Is(err, ErrScheduleTooLong) {
		t.Errorf("error = %v, want ErrScheduleTooLong", err)
	}
}

func TestOccurrencesAscending(t *testing.T) {
	got, err := Occurrences(core.NewDate(2023, 3, 31), core.Monthly, core.Date{}, core.NewDate(2024, 3, 31))
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if !got[i].After(got[i-1].Time) {
			t.Fatalf("sequence not strictly ascending at %d: %v", i, days(got))
		}
	}
	if len(got) != 13 {
		t.Errorf("one year of monthly occurrences inclusive = %d, want 13", len(got))
	}
}
