package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func entry(userID, desc string, d core.Date) core.Transaction {
	return core.Transaction{
		Description: desc,
		Amount:      core.Money{Cents: 1000},
		Type:        core.Expense,
		Date:        d,
		Category:    "Misc",
		UserID:      userID,
	}
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Create(ctx, entry("u1", "Coffee", core.NewDate(2024, 1, 2)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, id)
	if err != nil || got.Description != "Coffee" {
		t.Fatalf("Get = %+v, err %v", got, err)
	}

	upd := got
	upd.Description = "Espresso"
	if err := s.Update(ctx, id, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ = s.Get(ctx, id)
	if got.Description != "Espresso" {
		t.Errorf("after update: %q", got.Description)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestListByUserOrderAndIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	s.Create(ctx, entry("u1", "a", core.NewDate(2024, 1, 1)))
	s.Create(ctx, entry("u1", "b", core.NewDate(2024, 3, 1)))
	s.Create(ctx, entry("u1", "c", core.NewDate(2024, 2, 1)))
	s.Create(ctx, entry("u2", "other", core.NewDate(2024, 6, 1)))

	got, err := s.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []string{"b", "c", "a"} // date descending
	for i, w := range want {
		if got[i].Description != w {
			t.Errorf("pos %d = %q, want %q", i, got[i].Description, w)
		}
	}
}

func TestBatchCreateAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()

	bad := entry("u1", "", core.NewDate(2024, 1, 1)) // invalid: empty description
	err := s.BatchCreate(ctx, []core.Transaction{
		entry("u1", "ok-1", core.NewDate(2024, 1, 1)),
		bad,
		entry("u1", "ok-2", core.NewDate(2024, 1, 2)),
	})
	if err == nil {
		t.Fatal("expected batch error")
	}
	got, _ := s.ListByUser(ctx, "u1")
	if len(got) != 0 {
		t.Errorf("failed batch must commit nothing, found %d rows", len(got))
	}

	if err := s.BatchCreate(ctx, []core.Transaction{
		entry("u1", "ok-1", core.NewDate(2024, 1, 1)),
		entry("u1", "ok-2", core.NewDate(2024, 1, 2)),
	}); err != nil {
		t.Fatalf("BatchCreate: %v", err)
	}
	got, _ = s.ListByUser(ctx, "u1")
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New()

	ch, stop, err := s.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	// Initial snapshot is empty.
	select {
	case snap := <-ch:
		if len(snap) != 0 {
			t.Fatalf("initial snapshot len = %d", len(snap))
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	s.Create(ctx, entry("u1", "Coffee", core.NewDate(2024, 1, 2)))
	select {
	case snap := <-ch:
		if len(snap) != 1 || snap[0].Description != "Coffee" {
			t.Fatalf("snapshot after create = %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after create")
	}

	// Writes for other users do not wake this subscription; the next event
	// must come from u1's write, coalesced to the latest state.
	s.Create(ctx, entry("u2", "other", core.NewDate(2024, 1, 2)))
	s.Create(ctx, entry("u1", "Lunch", core.NewDate(2024, 1, 3)))
	select {
	case snap := <-ch:
		if len(snap) != 2 {
			t.Fatalf("snapshot len = %d, want 2", len(snap))
		}
		for _, tx := range snap {
			if tx.UserID != "u1" {
				t.Errorf("foreign user row in snapshot: %+v", tx)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after second create")
	}

	stop()
	if _, ok := <-ch; ok {
		// A pending coalesced snapshot may still be buffered; the channel
		// must be closed right after.
		if _, ok := <-ch; ok {
			t.Error("channel not closed after cancel")
		}
	}
}

func TestSubscribeCoalesces(t *testing.T) {
	ctx := context.Background()
	s := New()

	ch, stop, _ := s.Subscribe(ctx, "u1")
	defer stop()
	<-ch // initial

	for i := 0; i < 10; i++ {
		s.Create(ctx, entry("u1", "burst", core.NewDate(2024, 1, 1+i)))
	}
	// Only the latest snapshot is pending; it reflects all ten writes.
	snap := <-ch
	if len(snap) != 10 {
		t.Errorf("coalesced snapshot len = %d, want 10", len(snap))
	}
}
