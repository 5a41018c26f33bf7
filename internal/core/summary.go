package core

// CategoryAmount represents spending aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthSummary is a compact financial summary for a specific year+month.
// Recurring templates are excluded from the sums; only concrete ledger
// entries (including materialized occurrences) count.
type MonthSummary struct {
	Year          int
	Month         int // 1-12
	TotalIncome   Money
	TotalExpenses Money
	NetCents      int64 // income minus expenses, may be negative
	ByCategory    []CategoryAmount
}

// Summarize folds a transaction list into a MonthSummary for the given month.
func Summarize(txs []Transaction, year, month int) MonthSummary {
	s := MonthSummary{Year: year, Month: month}
	byCat := map[string]int64{}
	var order []string

	for _, t := range txs {
		if t.IsRecurring {
			continue
		}
		if t.Date.Year() != year || int(t.Date.Month()) != month {
			continue
		}
		switch t.Type {
		case Income:
			s.TotalIncome.Cents += t.Amount.Cents
		case Expense:
			s.TotalExpenses.Cents += t.Amount.Cents
			if _, ok := byCat[t.Category]; !ok {
				order = append(order, t.Category)
			}
			byCat[t.Category] += t.Amount.Cents
		}
	}

	s.NetCents = s.TotalIncome.Cents - s.TotalExpenses.Cents
	for _, name := range order {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: Money{Cents: byCat[name]}})
	}
	return s
}
