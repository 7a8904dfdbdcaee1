package http

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/rates"
)

type categoryTotalDTO struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type dashboardResponse struct {
	Period         core.Period        `json:"period"`
	CategoryTotals []categoryTotalDTO `json:"category_totals"`
	TotalExpenses  string             `json:"total_expenses"`
	TotalIncomes   string             `json:"total_incomes"`
}

// handleDashboard aggregates the user's records for the requested calendar
// period: per-category expense totals plus period sums.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	period := core.PeriodMonth
	if v := r.URL.Query().Get("period"); v != "" {
		p, err := core.ParsePeriod(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		period = p
	}

	data, err := s.userData(r.Context(), userID(r))
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	now := time.Now()
	filtered := core.FilterExpenses(data.expenses, period, now)

	resp := dashboardResponse{
		Period:        period,
		TotalExpenses: core.SumExpenses(data.expenses, period, now).String(),
		TotalIncomes:  core.SumIncomes(data.incomes, period, now).String(),
	}
	for _, ct := range core.CategoryTotals(filtered) {
		resp.CategoryTotals = append(resp.CategoryTotals, categoryTotalDTO{
			Name:   ct.Name,
			Amount: ct.Amount.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type savingsRow struct {
	Period string `json:"period"`
	Amount string `json:"amount"`
}

type savingsResponse struct {
	Currency     string       `json:"currency"`
	CurrencyName string       `json:"currency_name"`
	Rows         []savingsRow `json:"rows"`
}

// handleSavings computes the four savings rows, converted into the
// requested currency. Amounts are tracked in the configured base currency;
// a stale rates snapshot is refreshed lazily before converting.
func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	currency := s.baseCurrency
	if v := r.URL.Query().Get("currency"); v != "" {
		if !slices.Contains(rates.SupportedCurrencies, v) {
			writeError(w, http.StatusBadRequest, "unsupported currency")
			return
		}
		currency = v
	}

	uid := userID(r)
	cacheKey := uid + ":" + currency
	if rows, found := s.savingsCache.Get(cacheKey); found {
		writeJSON(w, http.StatusOK, savingsResponse{
			Currency:     currency,
			CurrencyName: rates.DisplayName(currency),
			Rows:         rows,
		})
		return
	}

	data, err := s.userData(r.Context(), uid)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	savings := core.CalculateSavings(data.expenses, data.incomes, time.Now())

	rows := make([]savingsRow, len(savings))
	for i, row := range savings {
		amount := row.Amount
		if currency != s.baseCurrency {
			amount, err = s.convert(r, row.Amount, currency)
			if err != nil {
				writeError(w, http.StatusBadGateway, "exchange rate unavailable")
				return
			}
		}
		rows[i] = savingsRow{
			Period: row.Period.Format("2006-01-02"),
			Amount: amount.String(),
		}
	}

	s.savingsCache.Set(cacheKey, rows)
	writeJSON(w, http.StatusOK, savingsResponse{
		Currency:     currency,
		CurrencyName: rates.DisplayName(currency),
		Rows:         rows,
	})
}

// convert changes m from the base currency into target, fetching a fresh
// snapshot first when the held one has expired.
func (s *Server) convert(r *http.Request, m core.Money, target string) (core.Money, error) {
	if s.rates.Stale(time.Now()) {
		if err := s.rates.Fetch(r.Context(), s.baseCurrency); err != nil {
			s.logger.WarnContext(r.Context(), "Rates refresh failed",
				log.FieldOperation, log.OpConvert,
				log.FieldBaseCode, s.baseCurrency,
				log.FieldError, err)
			// A stale snapshot still converts; only a missing one fails.
		}
	}
	converted, err := s.rates.Convert(m, s.baseCurrency, target)
	if err != nil {
		if !errors.Is(err, rates.ErrUnavailable) {
			s.logger.ErrorContext(r.Context(), "Conversion failed",
				log.FieldOperation, log.OpConvert,
				log.FieldCurrency, target,
				log.FieldError, err)
		}
		return core.Money{}, err
	}
	return converted, nil
}

// handleCategories serves the expense category picker list.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": core.ExpenseCategories})
}

type currencyDTO struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// handleCurrencies serves the supported currency codes with display names.
func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	currencies := make([]currencyDTO, len(rates.SupportedCurrencies))
	for i, code := range rates.SupportedCurrencies {
		currencies[i] = currencyDTO{Code: code, Name: rates.DisplayName(code)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"currencies": currencies})
}
