// Package storage provides the SQLite-backed transaction store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const insertTransactionSQL = `
INSERT INTO transactions (description, amount_cents, type, date, category, user_id, is_recurring, recurrence_frequency, recurrence_end)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectTransactionSQL = `
SELECT id, description, amount_cents, type, date, category, user_id, is_recurring, recurrence_frequency, recurrence_end
FROM transactions`

// Create implements ledger.Writer
func (r *SQLiteRepository) Create(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validate transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx, insertTransactionSQL,
		tx.Description, tx.Amount.Cents, string(tx.Type), tx.Date.String(),
		tx.Category, tx.UserID, boolToInt(tx.IsRecurring),
		string(tx.Frequency), endString(tx.RecurrenceEnd))
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"description", tx.Description,
		"amount_cents", tx.Amount.Cents,
		"user_id", tx.UserID,
		"is_recurring", tx.IsRecurring)

	return strconv.FormatInt(id, 10), nil
}

// Update implements ledger.Writer
func (r *SQLiteRepository) Update(ctx context.Context, id string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE transactions
SET description = ?, amount_cents = ?, type = ?, date = ?, category = ?, user_id = ?, is_recurring = ?, recurrence_frequency = ?, recurrence_end = ?
WHERE id = ?`,
		tx.Description, tx.Amount.Cents, string(tx.Type), tx.Date.String(),
		tx.Category, tx.UserID, boolToInt(tx.IsRecurring),
		string(tx.Frequency), endString(tx.RecurrenceEnd), id)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Delete implements ledger.Writer
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// Get implements ledger.Reader
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransactionSQL+` WHERE id = ?`, id)

	tx, err := scanTransaction(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListByUser implements ledger.Reader
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransactionSQL+` WHERE user_id = ? ORDER BY date DESC, id DESC`, userID)
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

// BatchCreate implements ledger.BatchWriter. All inserts run inside a single
// database transaction so a failed pass leaves no partial rows behind.
func (r *SQLiteRepository) BatchCreate(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("validate transaction %q: %w", tx.Description, err)
		}
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, insertTransactionSQL)
	if err != nil {
		return fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		_, err := stmt.ExecContext(ctx,
			tx.Description, tx.Amount.Cents, string(tx.Type), tx.Date.String(),
			tx.Category, tx.UserID, boolToInt(tx.IsRecurring),
			string(tx.Frequency), endString(tx.RecurrenceEnd))
		if err != nil {
			return fmt.Errorf("insert transaction %q: %w", tx.Description, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	slog.InfoContext(ctx, "Transaction batch committed to SQLite", "count", len(txs))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(ctx context.Context, row rowScanner) (core.Transaction, error) {
	var (
		id          int64
		raw         ledger.RawTransaction
		date        string
		isRecurring int64
		end         string
	)
	err := row.Scan(&id, &raw.Description, &raw.AmountCents, &raw.Type, &date,
		&raw.Category, &raw.UserID, &isRecurring, &raw.Frequency, &end)
	if err != nil {
		return core.Transaction{}, err
	}

	raw.ID = strconv.FormatInt(id, 10)
	raw.Date = date
	raw.IsRecurring = isRecurring != 0
	raw.RecurrenceEnd = end

	tx, warns := ledger.Normalize(raw, core.Today())
	for _, w := range warns {
		slog.WarnContext(ctx, "Normalized stored transaction", "id", raw.ID, "warning", w)
	}
	return tx, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func endString(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
