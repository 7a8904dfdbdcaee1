package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tally/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseDate accepts YYYY-MM-DD or RFC 3339 timestamps.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// expenseDTO is the wire form of a spending record.
type expenseDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
}

// incomeDTO is the wire form of an earning record.
type incomeDTO struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

func toExpenseDTO(e core.Expense) expenseDTO {
	return expenseDTO{
		ID:       e.ID,
		Name:     e.Name,
		Category: e.Category,
		Amount:   e.Amount.String(),
		Date:     e.Date.Format(time.RFC3339),
	}
}

func toIncomeDTO(in core.Income) incomeDTO {
	return incomeDTO{
		ID:     in.ID,
		Amount: in.Amount.String(),
		Date:   in.Date.Format(time.RFC3339),
	}
}
