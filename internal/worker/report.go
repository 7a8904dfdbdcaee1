package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"tally/internal/core"
)

// ArchiveReader is the replica's query surface served by the report API.
type ArchiveReader interface {
	ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
	ListIncomes(ctx context.Context, userID string) ([]core.Income, error)
}

type archivedExpense struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
}

type archivedIncome struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

// NewReportHandler serves per-user listings straight from the SQLite
// replica, so reporting reads work without the primary store. Record
// shapes match the main API's listing payloads.
func NewReportHandler(reader ArchiveReader) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/archive/expenses", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := reportUserID(w, r)
		if !ok {
			return
		}
		expenses, err := reader.ListExpenses(r.Context(), userID)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list archived expenses",
				"error", err,
				"user_id", userID)
			writeReportError(w, http.StatusInternalServerError, "archive read failed")
			return
		}
		out := make([]archivedExpense, len(expenses))
		for i, e := range expenses {
			out[i] = archivedExpense{
				ID:       e.ID,
				Name:     e.Name,
				Category: e.Category,
				Amount:   e.Amount.String(),
				Date:     e.Date.Format(time.RFC3339),
			}
		}
		writeReportJSON(w, map[string]any{"expenses": out})
	})

	mux.HandleFunc("/archive/incomes", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := reportUserID(w, r)
		if !ok {
			return
		}
		incomes, err := reader.ListIncomes(r.Context(), userID)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list archived incomes",
				"error", err,
				"user_id", userID)
			writeReportError(w, http.StatusInternalServerError, "archive read failed")
			return
		}
		out := make([]archivedIncome, len(incomes))
		for i, in := range incomes {
			out[i] = archivedIncome{
				ID:     in.ID,
				Amount: in.Amount.String(),
				Date:   in.Date.Format(time.RFC3339),
			}
		}
		writeReportJSON(w, map[string]any{"incomes": out})
	})

	return mux
}

// reportUserID enforces GET and the user_id query parameter.
func reportUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeReportError(w, http.StatusMethodNotAllowed, "method not allowed")
		return "", false
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeReportError(w, http.StatusBadRequest, "user_id is required")
		return "", false
	}
	return userID, true
}

func writeReportJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

func writeReportError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
