package http

import (
	"net/http"

	"tally/internal/core"
	"tally/internal/log"
)

type createExpenseRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListExpenses(w, r)
	case http.MethodPost:
		s.handleCreateExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	data, err := s.userData(r.Context(), userID(r))
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	dtos := make([]expenseDTO, len(data.expenses))
	for i, e := range data.expenses {
		dtos[i] = toExpenseDTO(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": dtos})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}

	expense := core.Expense{
		Name:     sanitizeInput(req.Name),
		Category: sanitizeInput(req.Category),
		Amount:   core.Money{Cents: cents},
		Date:     date,
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	uid := userID(r)
	id, err := s.gateway.AddExpense(r.Context(), uid, expense)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Expense create failed",
			log.FieldUserID, uid,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not save expense")
		return
	}

	s.invalidateUser(uid)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
