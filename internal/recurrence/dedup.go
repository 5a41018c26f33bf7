package recurrence

import "fintrack/internal/core"

// occurrenceKey identifies a materialized occurrence by content. No stored
// field links an instance back to its template, so detection is a field match
// on the copied template fields plus the calendar day. Two manual entries
// identical to a template on one of its candidate dates are indistinguishable
// from a materialized occurrence; that tradeoff is accepted.
type occurrenceKey struct {
	description string
	cents       int64
	txType      core.TransactionType
	category    string
	day         string
}

func keyOf(description string, amount core.Money, txType core.TransactionType, category string, day core.Date) occurrenceKey {
	return occurrenceKey{
		description: description,
		cents:       amount.Cents,
		txType:      txType,
		category:    category,
		day:         core.DateOf(day.Time).String(),
	}
}

// Index is a set of occurrence keys built from a transaction snapshot.
// Templates themselves are never indexed; only concrete ledger entries count
// as existing occurrences.
type Index struct {
	keys map[occurrenceKey]struct{}
}

func NewIndex(txs []core.Transaction) *Index {
	idx := &Index{keys: make(map[occurrenceKey]struct{}, len(txs))}
	for _, t := range txs {
		if t.IsRecurring {
			continue
		}
		idx.keys[keyOf(t.Description, t.Amount, t.Type, t.Category, t.Date)] = struct{}{}
	}
	return idx
}

// Has reports whether an occurrence of tpl on day is already present.
func (idx *Index) Has(tpl core.Transaction, day core.Date) bool {
	_, ok := idx.keys[keyOf(tpl.Description, tpl.Amount, tpl.Type, tpl.Category, day)]
	return ok
}

// Add records a not-yet-committed occurrence so later templates in the same
// pass see it.
func (idx *Index) Add(tpl core.Transaction, day core.Date) {
	idx.keys[keyOf(tpl.Description, tpl.Amount, tpl.Type, tpl.Category, day)] = struct{}{}
}

// IsMaterialized reports whether known already contains a concrete occurrence
// of tpl on day: a non-template transaction whose description, amount, type
// and category equal the template's and whose date falls on the same calendar
// day.
func IsMaterialized(tpl core.Transaction, day core.Date, known []core.Transaction) bool {
	for _, t := range known {
		if t.IsRecurring {
			continue
		}
		if t.Description == tpl.Description &&
			t.Amount.Cents == tpl.Amount.Cents &&
			t.Type == tpl.Type &&
			t.Category == tpl.Category &&
			t.Date.SameDay(day) {
			return true
		}
	}
	return false
}
