// Package recurrence implements the schedule arithmetic for recurring
// transaction templates: enumerating the concrete occurrence dates a template
// owes between its anchor date and a reference day, and deciding whether an
// occurrence already exists in a transaction snapshot.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

var (
	ErrUnknownFrequency = errors.New("unknown recurrence frequency")
	ErrScheduleStalled  = errors.New("schedule did not advance")
	ErrScheduleTooLong  = errors.New("schedule exceeded iteration ceiling")
)

// MaxOccurrences bounds the work a single template can produce. A daily
// template reaching it covers well over a decade of backlog; anything past
// that is treated as malformed rather than enumerated.
const MaxOccurrences = 5000

// Occurrences returns every occurrence date a template owes, in ascending
// order: the anchor itself, then one step of freq at a time, stopping before
// the first date strictly after asOf or strictly after end (when end is set).
//
// The nth occurrence is computed from the anchor, not from the previous
// occurrence, so monthly and yearly schedules keep the anchor's day-of-month:
// an anchor of Jan 31 yields Jan 31, Feb 29 (leap) or Feb 28, Mar 31, and so
// on, clamping to the last valid day of short months without skipping any.
func Occurrences(anchor core.Date, freq core.Frequency, end core.Date, asOf core.Date) ([]core.Date, error) {
	switch freq {
	case core.Daily, core.Weekly, core.Monthly, core.Yearly:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrequency, freq)
	}
	if anchor.IsZero() {
		return nil, errors.New("anchor date is zero")
	}

	bound := asOf
	if !end.IsZero() && end.Before(bound.Time) {
		bound = end
	}

	var out []core.Date
	prev := core.Date{}
	for n := 0; ; n++ {
		if n > MaxOccurrences {
			return nil, fmt.Errorf("%w: %d steps from %s", ErrScheduleTooLong, n, anchor)
		}
		next := nth(anchor, freq, n)
		if next.After(bound.Time) {
			return out, nil
		}
		if !prev.IsZero() && !next.After(prev.Time) {
			return nil, fmt.Errorf("%w: %s after %s", ErrScheduleStalled, next, prev)
		}
		out = append(out, next)
		prev = next
	}
}

// nth returns the anchor advanced by n units of freq.
func nth(anchor core.Date, freq core.Frequency, n int) core.Date {
	switch freq {
	case core.Daily:
		return core.Date{Time: anchor.AddDate(0, 0, n)}
	case core.Weekly:
		return core.Date{Time: anchor.AddDate(0, 0, 7*n)}
	case core.Monthly:
		return addMonthsClamped(anchor, n)
	case core.Yearly:
		return addYearsClamped(anchor, n)
	}
	return core.Date{}
}

// addMonthsClamped advances by whole calendar months keeping the anchor's
// day-of-month, clamped to the target month's last day. time.AddDate is not
// used here: it normalizes Jan 31 + 1 month to Mar 2/3, silently skipping
// February.
func addMonthsClamped(d core.Date, months int) core.Date {
	y, m, day := d.Date()
	total := int(m) - 1 + months
	ty := y + total/12
	tm := time.Month(total%12 + 1)
	if day > daysIn(ty, tm) {
		day = daysIn(ty, tm)
	}
	return core.NewDate(ty, int(tm), day)
}

// addYearsClamped advances by whole years, clamping Feb 29 anchors to Feb 28
// in non-leap years.
func addYearsClamped(d core.Date, years int) core.Date {
	y, m, day := d.Date()
	ty := y + years
	if day > daysIn(ty, m) {
		day = daysIn(ty, m)
	}
	return core.NewDate(ty, int(m), day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
