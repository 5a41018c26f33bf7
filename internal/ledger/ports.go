// Package ledger defines the ports for transaction storage adapters and the
// normalizer that shapes raw stored records into domain transactions.
package ledger

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

// ErrNotFound is returned by Get, Update and Delete for unknown ids.
var ErrNotFound = errors.New("transaction not found")

type (
	// Reader provides point reads and per-user snapshots.
	Reader interface {
		Get(ctx context.Context, id string) (core.Transaction, error)
		// ListByUser returns the user's full transaction snapshot ordered by
		// date descending, templates included.
		ListByUser(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	// Writer covers single-document mutations driven by user actions.
	Writer interface {
		Create(ctx context.Context, tx core.Transaction) (string, error)
		Update(ctx context.Context, id string, tx core.Transaction) error
		Delete(ctx context.Context, id string) error
	}

	// BatchWriter persists a set of new transactions atomically: either every
	// document is committed or none is. The materialization engine commits
	// each pass through this port.
	BatchWriter interface {
		BatchCreate(ctx context.Context, txs []core.Transaction) error
	}

	// Subscriber delivers a fresh, complete snapshot of a user's transactions
	// on every change, the adapter's own writes included. Snapshots carry no
	// delta or ordering guarantee beyond date-descending within each one.
	Subscriber interface {
		// Subscribe returns a channel of snapshots and a cancel function.
		// The channel is closed after cancel or when ctx ends.
		Subscribe(ctx context.Context, userID string) (<-chan []core.Transaction, func(), error)
	}

	// Store is the full adapter surface used by the server and worker.
	Store interface {
		Reader
		Writer
		BatchWriter
	}
)
