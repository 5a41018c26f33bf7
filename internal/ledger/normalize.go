package ledger

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// RawTransaction is a stored record before normalization. Date fields are
// loosely typed because records written by older clients carry heterogeneous
// encodings: plain YYYY-MM-DD strings, RFC 3339 timestamps, time.Time values
// from typed columns, or unix seconds.
type RawTransaction struct {
	ID            string
	Description   string
	AmountCents   int64
	Type          string
	Date          any
	Category      string
	UserID        string
	IsRecurring   bool
	Frequency     string
	RecurrenceEnd any
}

// Normalize shapes a raw record into a Transaction. It is total: malformed
// input never fails, it degrades. An unparseable date falls back to today and
// is reported in the returned warnings so the caller can log it; absent
// recurrence fields default to non-recurring. Unknown non-empty frequency
// values pass through unchanged so the materialization engine can report them
// per template instead of them being silently dropped here.
func Normalize(raw RawTransaction, today core.Date) (core.Transaction, []string) {
	var warns []string

	date, ok := parseDay(raw.Date)
	if !ok {
		warns = append(warns, fmt.Sprintf("unparseable date %v, defaulted to %s", raw.Date, today))
		date = today
	}

	freq := core.Frequency(strings.TrimSpace(raw.Frequency))
	if freq == "" {
		freq = core.None
	}

	var end core.Date
	if raw.RecurrenceEnd != nil {
		if d, ok := parseDay(raw.RecurrenceEnd); ok {
			end = d
		} else if s, isStr := raw.RecurrenceEnd.(string); !isStr || strings.TrimSpace(s) != "" {
			warns = append(warns, fmt.Sprintf("unparseable recurrence end date %v, dropped", raw.RecurrenceEnd))
		}
	}

	tx := core.Transaction{
		ID:          raw.ID,
		Description: raw.Description,
		Amount:      core.Money{Cents: raw.AmountCents},
		Type:        core.TransactionType(raw.Type),
		Date:        date,
		Category:    raw.Category,
		UserID:      raw.UserID,
		IsRecurring: raw.IsRecurring,
		Frequency:   freq,
	}
	if !tx.IsRecurring {
		// Backward compatibility: recurrence fields on plain entries are noise.
		tx.Frequency = core.None
		tx.RecurrenceEnd = core.Date{}
	} else {
		tx.RecurrenceEnd = end
	}
	return tx, warns
}

// parseDay accepts the date encodings found in stored records and reduces
// them to a calendar day.
func parseDay(v any) (core.Date, bool) {
	switch d := v.(type) {
	case nil:
		return core.Date{}, false
	case core.Date:
		if d.IsZero() {
			return core.Date{}, false
		}
		return core.DateOf(d.Time), true
	case time.Time:
		if d.IsZero() {
			return core.Date{}, false
		}
		return core.DateOf(d), true
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return core.Date{}, false
		}
		if t, err := time.Parse(core.DayFormat, s); err == nil {
			return core.DateOf(t), true
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return core.DateOf(t), true
		}
		if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
			return core.DateOf(t), true
		}
		return core.Date{}, false
	case int64:
		return core.DateOf(time.Unix(d, 0)), true
	case int:
		return core.DateOf(time.Unix(int64(d), 0)), true
	case float64:
		return core.DateOf(time.Unix(int64(d), 0)), true
	default:
		return core.Date{}, false
	}
}
