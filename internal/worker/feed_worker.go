// Package worker runs materialization passes off the transaction change feed.
//
// The loop is: a change event arrives (live snapshot subscription in-process,
// or an AMQP message from the API server) -> the user's debouncer absorbs the
// burst -> one guarded pass loads a fresh snapshot and materializes missing
// occurrences. A pass that writes rows causes one more event; the follow-up
// pass finds nothing to do and the feed goes quiet. That convergence, not any
// carried state, is what keeps the worker correct across restarts.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
)

type userState struct {
	guard    services.PassGuard
	debounce *services.Debouncer
}

type FeedWorker struct {
	store        ledger.Reader
	materializer *services.Materializer
	delay        time.Duration
	today        func() core.Date

	mu    sync.Mutex
	users map[string]*userState
}

func New(store ledger.Reader, materializer *services.Materializer, debounce time.Duration) *FeedWorker {
	return &FeedWorker{
		store:        store,
		materializer: materializer,
		delay:        debounce,
		today:        core.Today,
		users:        make(map[string]*userState),
	}
}

// WithToday overrides the reference-day source. Tests use it to pin "today".
func (w *FeedWorker) WithToday(today func() core.Date) *FeedWorker {
	w.today = today
	return w
}

// Trigger schedules a pass for the user after the debounce delay. Bursts of
// triggers collapse into one pass.
func (w *FeedWorker) Trigger(ctx context.Context, userID string) {
	w.state(ctx, userID).debounce.Trigger()
}

// RunPass executes one guarded materialization pass immediately. A request
// while another pass for the same user is running is dropped: the running
// pass operates on a snapshot that the next feed event will refresh anyway.
func (w *FeedWorker) RunPass(ctx context.Context, userID string) (int, error) {
	st := w.state(ctx, userID)
	if !st.guard.TryStart() {
		slog.DebugContext(ctx, "Materialization pass already running, request dropped",
			"user_id", userID)
		return 0, nil
	}
	defer st.guard.Done()

	snapshot, err := w.store.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return w.materializer.Materialize(ctx, userID, snapshot, w.today())
}

// WatchUser consumes a live snapshot subscription and feeds it into the
// debounced pass schedule. It blocks until ctx ends or the feed closes.
func (w *FeedWorker) WatchUser(ctx context.Context, sub ledger.Subscriber, userID string) error {
	ch, cancel, err := sub.Subscribe(ctx, userID)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			w.Trigger(ctx, userID)
		}
	}
}

// Stop cancels all pending debounced passes.
func (w *FeedWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, st := range w.users {
		st.debounce.Stop()
	}
}

func (w *FeedWorker) state(ctx context.Context, userID string) *userState {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.users[userID]
	if !ok {
		st = &userState{}
		st.debounce = services.NewDebouncer(w.delay, func() {
			if _, err := w.RunPass(ctx, userID); err != nil {
				slog.ErrorContext(ctx, "Materialization pass failed",
					"user_id", userID, "error", err)
			}
		})
		w.users[userID] = st
	}
	return st
}
