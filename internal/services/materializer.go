// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/recurrence"
)

// Materializer turns recurring templates into the concrete dated transactions
// they owe up to a reference day. It keeps no state between passes: every run
// re-derives the missing occurrences from the snapshot it is handed, and
// duplicate detection against that snapshot is what makes repeated passes
// idempotent.
type Materializer struct {
	store ledger.BatchWriter
}

func NewMaterializer(store ledger.BatchWriter) *Materializer {
	return &Materializer{store: store}
}

// Materialize scans the snapshot for recurring templates, collects every
// occurrence not yet present, and commits the collected set as one atomic
// batch. It returns the number of transactions created; zero means the ledger
// was already up to date.
//
// Per-template problems (unknown frequency, runaway schedules) are logged and
// skipped. Only a batch commit failure is returned, in which case nothing was
// persisted and the next pass retries from a clean snapshot.
func (m *Materializer) Materialize(ctx context.Context, userID string, snapshot []core.Transaction, asOf core.Date) (int, error) {
	if m.store == nil {
		return 0, fmt.Errorf("materializer not properly initialized")
	}

	var templates []core.Transaction
	for _, tx := range snapshot {
		if tx.IsTemplate() {
			templates = append(templates, tx)
		}
	}
	if len(templates) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Materializing recurring templates",
		"user_id", userID,
		"templates", len(templates),
		"as_of", asOf.String())

	// The index covers the whole snapshot and every occurrence collected so
	// far in this pass, so templates that happen to share fields cannot both
	// emit the same document.
	idx := recurrence.NewIndex(snapshot)

	var pending []core.Transaction
	for _, tpl := range templates {
		occs, err := recurrence.Occurrences(tpl.Date, tpl.Frequency, tpl.RecurrenceEnd, asOf)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed recurring template",
				"template_id", tpl.ID,
				"description", tpl.Description,
				"frequency", tpl.Frequency,
				"error", err)
			continue
		}
		for _, day := range occs {
			if idx.Has(tpl, day) {
				continue
			}
			pending = append(pending, instanceOf(tpl, day, userID))
			idx.Add(tpl, day)
		}
	}

	if len(pending) == 0 {
		slog.DebugContext(ctx, "Recurring templates already up to date", "user_id", userID)
		return 0, nil
	}

	if err := m.store.BatchCreate(ctx, pending); err != nil {
		return 0, fmt.Errorf("commit %d materialized transactions: %w", len(pending), err)
	}

	slog.InfoContext(ctx, "Materialized recurring transactions",
		"user_id", userID,
		"created", len(pending),
		"templates", len(templates))
	return len(pending), nil
}

// instanceOf copies the template's fields into a plain ledger entry for one
// occurrence day. Instances never recur further.
func instanceOf(tpl core.Transaction, day core.Date, userID string) core.Transaction {
	return core.Transaction{
		Description: tpl.Description,
		Amount:      tpl.Amount,
		Type:        tpl.Type,
		Date:        day,
		Category:    tpl.Category,
		UserID:      userID,
		IsRecurring: false,
		Frequency:   core.None,
	}
}
