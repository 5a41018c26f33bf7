package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/services"
)

func fixedToday(d core.Date) func() core.Date {
	return func() core.Date { return d }
}

func rentTemplate() core.Transaction {
	return core.Transaction{
		Description: "Rent",
		Amount:      core.Money{Cents: 150000},
		Type:        core.Expense,
		Date:        core.NewDate(2024, 1, 1),
		Category:    "Housing",
		UserID:      "u1",
		IsRecurring: true,
		Frequency:   core.Monthly,
	}
}

func countInstances(t *testing.T, store *memory.Store, userID string) int {
	t.Helper()
	snap, err := store.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	n := 0
	for _, tx := range snap {
		if !tx.IsRecurring {
			n++
		}
	}
	return n
}

func TestRunPassMaterializes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Create(ctx, rentTemplate())

	w := New(store, services.NewMaterializer(store), 5*time.Millisecond).
		WithToday(fixedToday(core.NewDate(2024, 4, 5)))
	defer w.Stop()

	n, err := w.RunPass(ctx, "u1")
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if n != 4 {
		t.Errorf("created = %d, want 4", n)
	}

	// Immediate second pass finds a converged ledger.
	n, err = w.RunPass(ctx, "u1")
	if err != nil {
		t.Fatalf("second RunPass: %v", err)
	}
	if n != 0 {
		t.Errorf("second pass created = %d, want 0", n)
	}
}

func TestWatchUserConverges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := memory.New()

	w := New(store, services.NewMaterializer(store), 5*time.Millisecond).
		WithToday(fixedToday(core.NewDate(2024, 4, 5)))
	defer w.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.WatchUser(ctx, store, "u1")
	}()

	// The template write lands on the live feed; the worker picks it up, and
	// its own batch write triggers the follow-up pass that finds nothing.
	store.Create(ctx, rentTemplate())

	deadline := time.Now().Add(2 * time.Second)
	for countInstances(t, store, "u1") != 4 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := countInstances(t, store, "u1"); got != 4 {
		t.Fatalf("instances = %d, want 4", got)
	}

	// Steady state: more feed ticks must not create more rows.
	time.Sleep(100 * time.Millisecond)
	if got := countInstances(t, store, "u1"); got != 4 {
		t.Errorf("instances after settling = %d, want 4", got)
	}

	cancel()
	wg.Wait()
}

func TestTriggerDebouncesBursts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Create(ctx, rentTemplate())

	w := New(store, services.NewMaterializer(store), 30*time.Millisecond).
		WithToday(fixedToday(core.NewDate(2024, 4, 5)))
	defer w.Stop()

	for i := 0; i < 10; i++ {
		w.Trigger(ctx, "u1")
		time.Sleep(2 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for countInstances(t, store, "u1") != 4 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := countInstances(t, store, "u1"); got != 4 {
		t.Errorf("instances = %d, want 4 after coalesced burst", got)
	}
}

func TestUsersAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Create(ctx, rentTemplate())

	other := rentTemplate()
	other.UserID = "u2"
	other.Frequency = core.Weekly
	other.RecurrenceEnd = core.NewDate(2024, 1, 15)
	store.Create(ctx, other)

	w := New(store, services.NewMaterializer(store), 5*time.Millisecond).
		WithToday(fixedToday(core.NewDate(2024, 4, 5)))
	defer w.Stop()

	if _, err := w.RunPass(ctx, "u1"); err != nil {
		t.Fatalf("RunPass u1: %v", err)
	}
	if _, err := w.RunPass(ctx, "u2"); err != nil {
		t.Fatalf("RunPass u2: %v", err)
	}

	if got := countInstances(t, store, "u1"); got != 4 {
		t.Errorf("u1 instances = %d, want 4", got)
	}
	if got := countInstances(t, store, "u2"); got != 3 {
		t.Errorf("u2 instances = %d, want 3", got)
	}
}
