package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	None    Frequency = "none"
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

type (
	TransactionType string

	Frequency string

	// Date is a calendar day with no time-of-day component. The zero value
	// means "no date" (used for absent recurrence end dates).
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger event. When IsRecurring is true the
	// record is a template: its Date is the anchor (first occurrence) and it
	// is excluded from report sums.
	Transaction struct {
		ID            string
		Description   string
		Amount        Money
		Type          TransactionType
		Date          Date
		Category      string
		UserID        string
		IsRecurring   bool
		Frequency     Frequency
		RecurrenceEnd Date // zero when the schedule has no end
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidFrequency = errors.New("invalid recurrence frequency")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyUserID      = errors.New("empty user id")
)

// DayFormat is the wire encoding for calendar dates.
const DayFormat = "2006-01-02"

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DayFormat, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// DateOf truncates an arbitrary instant to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), int(u.Month()), u.Day())
}

// Today returns the current UTC calendar day.
func Today() Date {
	return DateOf(time.Now())
}

func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// SameDay reports whether two dates fall on the same calendar day,
// ignoring any time-of-day or zone component either may carry.
func (d Date) SameDay(o Date) bool {
	y1, m1, day1 := d.UTC().Date()
	y2, m2, day2 := o.UTC().Date()
	return y1 == y2 && m1 == m2 && day1 == day2
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DayFormat)
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (f Frequency) IsValid() bool {
	switch f {
	case None, Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// IsTemplate reports whether the transaction is a recurring template with a
// processable frequency.
func (t Transaction) IsTemplate() bool {
	return t.IsRecurring && t.Frequency != "" && t.Frequency != None
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUserID
	}

	if !t.IsRecurring {
		// Plain ledger entries carry no recurrence settings.
		if t.Frequency != "" && t.Frequency != None {
			return errors.New("frequency must be none for non-recurring transactions")
		}
		if !t.RecurrenceEnd.IsZero() {
			return errors.New("recurrence end date set on non-recurring transaction")
		}
		return nil
	}

	if !t.Frequency.IsValid() || t.Frequency == None {
		return ErrInvalidFrequency
	}
	if !t.RecurrenceEnd.IsZero() && t.RecurrenceEnd.Before(t.Date.Time) {
		return errors.New("recurrence end date must not be before the anchor date")
	}
	return nil
}
