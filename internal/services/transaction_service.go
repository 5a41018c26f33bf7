package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// ChangePublisher announces that a user's transaction set changed, so the
// materialization worker can schedule a pass. Publishing is best-effort: the
// write already succeeded locally.
type ChangePublisher interface {
	PublishTransactionChanged(ctx context.Context, userID string) error
}

// TransactionService orchestrates user-driven transaction mutations across
// the ledger store and the change feed.
type TransactionService struct {
	store     ledger.Store
	publisher ChangePublisher
}

func NewTransactionService(store ledger.Store, publisher ChangePublisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

// Create validates and saves a transaction, then publishes a change event.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	id, err := s.store.Create(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	s.publishChanged(ctx, tx.UserID)
	return id, nil
}

func (s *TransactionService) Update(ctx context.Context, id string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if err := s.store.Update(ctx, id, tx); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	s.publishChanged(ctx, tx.UserID)
	return nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publishChanged(ctx, tx.UserID)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.Get(ctx, id)
}

func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *TransactionService) publishChanged(ctx context.Context, userID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionChanged(ctx, userID); err != nil {
		// The mutation is already durable; the worker's periodic tick will
		// still pick the change up.
		slog.WarnContext(ctx, "Failed to publish transaction change",
			"user_id", userID, "error", err)
	}
}
