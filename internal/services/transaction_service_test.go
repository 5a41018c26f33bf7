package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ledger/memory"
)

type recordingPublisher struct {
	users []string
	err   error
}

func (p *recordingPublisher) PublishTransactionChanged(_ context.Context, userID string) error {
	p.users = append(p.users, userID)
	return p.err
}

func groceriesFor(userID string) core.Transaction {
	return core.Transaction{
		Description: "Groceries",
		Amount:      core.Money{Cents: 4200},
		Type:        core.Expense,
		Date:        core.NewDate(2024, 3, 10),
		Category:    "Food",
		UserID:      userID,
	}
}

func TestCreatePublishesChange(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewTransactionService(memory.New(), pub)

	id, err := svc.Create(ctx, groceriesFor("u1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned empty id")
	}
	if len(pub.users) != 1 || pub.users[0] != "u1" {
		t.Errorf("published users = %v, want [u1]", pub.users)
	}
}

func TestCreateInvalidDoesNotPublish(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewTransactionService(memory.New(), pub)

	tx := groceriesFor("u1")
	tx.Amount = core.Money{Cents: 0}
	if _, err := svc.Create(ctx, tx); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Create error = %v, want ErrInvalidAmount", err)
	}
	if len(pub.users) != 0 {
		t.Errorf("published users = %v, want none", pub.users)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	store := memory.New()
	svc := NewTransactionService(store, pub)

	id, err := svc.Create(ctx, groceriesFor("u1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Get(ctx, id); err != nil {
		t.Errorf("transaction not persisted: %v", err)
	}
}

func TestUpdateAndDeletePublish(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	store := memory.New()
	svc := NewTransactionService(store, pub)

	id, err := svc.Create(ctx, groceriesFor("u1"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	upd := groceriesFor("u1")
	upd.Description = "Weekly groceries"
	if err := svc.Update(ctx, id, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(pub.users) != 3 {
		t.Errorf("published %d events, want 3", len(pub.users))
	}
}

func TestNilPublisherIsFine(t *testing.T) {
	ctx := context.Background()
	svc := NewTransactionService(memory.New(), nil)
	if _, err := svc.Create(ctx, groceriesFor("u1")); err != nil {
		t.Fatalf("Create with nil publisher: %v", err)
	}
}
