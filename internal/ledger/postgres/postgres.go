// Package postgres implements the transaction store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			description TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
			date DATE NOT NULL,
			category TEXT NOT NULL,
			user_id TEXT NOT NULL,
			is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
			recurrence_frequency TEXT NOT NULL DEFAULT 'none',
			recurrence_end DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_date
			ON transactions (user_id, date DESC)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertSQL = `
	INSERT INTO transactions (description, amount_cents, type, date, category, user_id, is_recurring, recurrence_frequency, recurrence_end)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id`

const selectSQL = `
	SELECT id, description, amount_cents, type, date, category, user_id, is_recurring, recurrence_frequency, recurrence_end
	FROM transactions`

// Create implements ledger.Writer
func (s *Store) Create(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validate transaction: %w", err)
	}

	var id int64
	err := s.pool.QueryRow(ctx, insertSQL,
		tx.Description, tx.Amount.Cents, string(tx.Type), tx.Date.Time,
		tx.Category, tx.UserID, tx.IsRecurring,
		string(tx.Frequency), endValue(tx.RecurrenceEnd)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to Postgres",
		"id", id,
		"description", tx.Description,
		"amount_cents", tx.Amount.Cents,
		"user_id", tx.UserID)

	return strconv.FormatInt(id, 10), nil
}

// Update implements ledger.Writer
func (s *Store) Update(ctx context.Context, id string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	res, err := s.pool.Exec(ctx, `
		UPDATE transactions
		SET description = $1, amount_cents = $2, type = $3, date = $4, category = $5, user_id = $6, is_recurring = $7, recurrence_frequency = $8, recurrence_end = $9
		WHERE id = $10`,
		tx.Description, tx.Amount.Cents, string(tx.Type), tx.Date.Time,
		tx.Category, tx.UserID, tx.IsRecurring,
		string(tx.Frequency), endValue(tx.RecurrenceEnd), id)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Delete implements ledger.Writer
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Get implements ledger.Reader
func (s *Store) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := s.pool.QueryRow(ctx, selectSQL+` WHERE id = $1`, id)

	tx, err := scanTransaction(ctx, row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListByUser implements ledger.Reader
func (s *Store) ListByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := s.pool.Query(ctx, selectSQL+` WHERE user_id = $1 ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// BatchCreate implements ledger.BatchWriter. All rows commit in one database
// transaction.
func (s *Store) BatchCreate(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("validate transaction %q: %w", tx.Description, err)
		}
	}

	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer dbTx.Rollback(ctx)

	for _, tx := range txs {
		var id int64
		err := dbTx.QueryRow(ctx, insertSQL,
			tx.Description, tx.Amount.Cents, string(tx.Type), tx.Date.Time,
			tx.Category, tx.UserID, tx.IsRecurring,
			string(tx.Frequency), endValue(tx.RecurrenceEnd)).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert transaction %q: %w", tx.Description, err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	slog.InfoContext(ctx, "Transaction batch committed to Postgres", "count", len(txs))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(ctx context.Context, row rowScanner) (core.Transaction, error) {
	var (
		id   int64
		raw  ledger.RawTransaction
		date time.Time
		end  *time.Time
	)
	err := row.Scan(&id, &raw.Description, &raw.AmountCents, &raw.Type, &date,
		&raw.Category, &raw.UserID, &raw.IsRecurring, &raw.Frequency, &end)
	if err != nil {
		return core.Transaction{}, err
	}

	raw.ID = strconv.FormatInt(id, 10)
	raw.Date = date
	if end != nil {
		raw.RecurrenceEnd = *end
	}

	tx, warns := ledger.Normalize(raw, core.Today())
	for _, w := range warns {
		slog.WarnContext(ctx, "Normalized stored transaction", "id", raw.ID, "warning", w)
	}
	return tx, nil
}

func endValue(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time
}
