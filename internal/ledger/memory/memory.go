// Package memory provides an in-process ledger store with live snapshot
// subscriptions. It backs local development and tests, where a document
// database would be overkill.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type subscriber struct {
	userID string
	ch     chan []core.Transaction
}

type Store struct {
	mu     sync.Mutex
	seq    int64
	items  map[string]core.Transaction
	subs   map[int64]*subscriber
	subSeq int64
}

var (
	_ ledger.Store      = (*Store)(nil)
	_ ledger.Subscriber = (*Store)(nil)
)

func New() *Store {
	return &Store{
		items: make(map[string]core.Transaction),
		subs:  make(map[int64]*subscriber),
	}
}

func (s *Store) Create(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.seq++
	tx.ID = fmt.Sprintf("mem:%d", s.seq)
	s.items[tx.ID] = tx
	s.notifyLocked(tx.UserID)
	s.mu.Unlock()
	return tx.ID, nil
}

// BatchCreate inserts every transaction or none: all documents are validated
// before the first one is stored.
func (s *Store) BatchCreate(_ context.Context, txs []core.Transaction) error {
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("batch document %d: %w", i, err)
		}
	}
	if len(txs) == 0 {
		return nil
	}
	s.mu.Lock()
	users := map[string]struct{}{}
	for _, tx := range txs {
		s.seq++
		tx.ID = fmt.Sprintf("mem:%d", s.seq)
		s.items[tx.ID] = tx
		users[tx.UserID] = struct{}{}
	}
	for u := range users {
		s.notifyLocked(u)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return tx, nil
}

func (s *Store) Update(_ context.Context, id string, tx core.Transaction) error {
	tx.ID = id
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ledger.ErrNotFound
	}
	s.items[id] = tx
	s.notifyLocked(tx.UserID)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok {
		return ledger.ErrNotFound
	}
	delete(s.items, id)
	s.notifyLocked(tx.UserID)
	return nil
}

func (s *Store) ListByUser(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(userID), nil
}

// Subscribe registers a live snapshot feed for one user. The current snapshot
// is delivered immediately; later snapshots coalesce, latest wins, so a slow
// consumer never blocks writers.
func (s *Store) Subscribe(ctx context.Context, userID string) (<-chan []core.Transaction, func(), error) {
	s.mu.Lock()
	s.subSeq++
	id := s.subSeq
	sub := &subscriber{userID: userID, ch: make(chan []core.Transaction, 1)}
	s.subs[id] = sub
	sub.ch <- s.snapshotLocked(userID)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(sub.ch)
			s.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return sub.ch, cancel, nil
}

func (s *Store) snapshotLocked(userID string) []core.Transaction {
	var out []core.Transaction
	for _, tx := range s.items {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.SameDay(out[j].Date) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) notifyLocked(userID string) {
	for _, sub := range s.subs {
		if sub.userID != userID {
			continue
		}
		snap := s.snapshotLocked(userID)
		select {
		case sub.ch <- snap:
		default:
			// Replace the stale pending snapshot with the fresh one.
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- snap
		}
	}
}
