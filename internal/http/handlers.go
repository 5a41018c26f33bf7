package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// transactionRequest is the JSON shape accepted on create and update. Amount
// is a decimal string ("12.50") so clients never deal in float cents.
type transactionRequest struct {
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Type          string `json:"type"`
	Date          string `json:"date"`
	Category      string `json:"category"`
	UserID        string `json:"user_id"`
	IsRecurring   bool   `json:"is_recurring"`
	Frequency     string `json:"frequency,omitempty"`
	RecurrenceEnd string `json:"recurrence_end,omitempty"`
}

type transactionResponse struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	AmountCents   int64  `json:"amount_cents"`
	Type          string `json:"type"`
	Date          string `json:"date"`
	Category      string `json:"category"`
	UserID        string `json:"user_id"`
	IsRecurring   bool   `json:"is_recurring"`
	Frequency     string `json:"frequency,omitempty"`
	RecurrenceEnd string `json:"recurrence_end,omitempty"`
}

func toResponse(tx core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          tx.ID,
		Description: tx.Description,
		AmountCents: tx.Amount.Cents,
		Type:        string(tx.Type),
		Date:        tx.Date.String(),
		Category:    tx.Category,
		UserID:      tx.UserID,
		IsRecurring: tx.IsRecurring,
	}
	if tx.IsRecurring {
		resp.Frequency = string(tx.Frequency)
		resp.RecurrenceEnd = tx.RecurrenceEnd.String()
	}
	return resp
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, errors.New("invalid amount")
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, errors.New("invalid date, expected YYYY-MM-DD")
	}

	tx := core.Transaction{
		Description: strings.TrimSpace(req.Description),
		Amount:      core.Money{Cents: cents},
		Type:        core.TransactionType(req.Type),
		Date:        date,
		Category:    strings.TrimSpace(req.Category),
		UserID:      strings.TrimSpace(req.UserID),
		IsRecurring: req.IsRecurring,
	}

	if req.IsRecurring {
		tx.Frequency = core.Frequency(req.Frequency)
		if strings.TrimSpace(req.RecurrenceEnd) != "" {
			end, err := core.ParseDate(req.RecurrenceEnd)
			if err != nil {
				return core.Transaction{}, errors.New("invalid recurrence_end, expected YYYY-MM-DD")
			}
			tx.RecurrenceEnd = end
		}
	}

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.service.Create(r.Context(), tx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction create failed",
			"error", err, "user_id", tx.UserID, "description", tx.Description)
		writeError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}
	tx.ID = id

	s.invalidateSummaries(tx.UserID)
	writeJSON(w, http.StatusCreated, toResponse(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	txs, err := s.service.List(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction list failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	tx, err := s.service.Get(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction get failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to load transaction")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	tx.ID = id

	err = s.service.Update(r.Context(), id, tx)
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction update failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to update transaction")
		return
	}

	s.invalidateSummaries(tx.UserID)
	writeJSON(w, http.StatusOK, toResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	tx, err := s.service.Get(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction load failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	if err := s.service.Delete(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Transaction delete failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	s.invalidateSummaries(tx.UserID)
	w.WriteHeader(http.StatusNoContent)
}

type summaryResponse struct {
	Year          int              `json:"year"`
	Month         int              `json:"month"`
	TotalIncome   int64            `json:"total_income_cents"`
	TotalExpenses int64            `json:"total_expenses_cents"`
	Net           int64            `json:"net_cents"`
	ByCategory    []categoryAmount `json:"by_category"`
}

type categoryAmount struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = m
	}

	key := s.summaryKey(userID, year, month)
	summary, ok := s.summaryCache.Get(key)
	if !ok {
		txs, err := s.service.List(r.Context(), userID)
		if err != nil {
			slog.ErrorContext(r.Context(), "Summary load failed", "error", err, "user_id", userID)
			writeError(w, http.StatusInternalServerError, "failed to compute summary")
			return
		}
		summary = core.Summarize(txs, year, month)
		s.summaryCache.Set(key, summary)
	}

	resp := summaryResponse{
		Year:          summary.Year,
		Month:         summary.Month,
		TotalIncome:   summary.TotalIncome.Cents,
		TotalExpenses: summary.TotalExpenses.Cents,
		Net:           summary.NetCents,
	}
	for _, c := range summary.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmount{Name: c.Name, AmountCents: c.Amount.Cents})
	}
	writeJSON(w, http.StatusOK, resp)
}
