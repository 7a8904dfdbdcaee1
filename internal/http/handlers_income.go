package http

import (
	"net/http"

	"tally/internal/core"
	"tally/internal/log"
)

type createIncomeRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

func (s *Server) handleIncomes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListIncomes(w, r)
	case http.MethodPost:
		s.handleCreateIncome(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	data, err := s.userData(r.Context(), userID(r))
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	dtos := make([]incomeDTO, len(data.incomes))
	for i, in := range data.incomes {
		dtos[i] = toIncomeDTO(in)
	}
	writeJSON(w, http.StatusOK, map[string]any{"incomes": dtos})
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req createIncomeRequest
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

	income := core.Income{
		Amount: core.Money{Cents: cents},
		Date:   date,
	}
	if err := income.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	uid := userID(r)
	id, err := s.gateway.AddIncome(r.Context(), uid, income)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Income create failed",
			log.FieldUserID, uid,
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not save income")
		return
	}

	s.invalidateUser(uid)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
