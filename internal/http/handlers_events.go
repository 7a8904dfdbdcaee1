package http

import (
	"encoding/json"
	"net/http"
	"time"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/registry"
)

type changeEvent struct {
	Change   registry.Change `json:"change"`
	Expenses []expenseDTO    `json:"expenses"`
	Incomes  []incomeDTO     `json:"incomes"`
}

// handleEvents streams data-change notifications for the authenticated
// user over SSE. Each event carries the full resolved record set. Slow
// consumers lose intermediate events, never the stream.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	uid := userID(r)
	events := make(chan changeEvent, 16)

	sub := s.gateway.Subscribe(uid, registry.ScopeUsers, func(change registry.Change, expenses []core.Expense, incomes []core.Income) {
		// A change notification means cached views are out of date, even
		// when the write came from another instance.
		s.invalidateUser(uid)
		ev := changeEvent{
			Change:   change,
			Expenses: make([]expenseDTO, len(expenses)),
			Incomes:  make([]incomeDTO, len(incomes)),
		}
		for i, e := range expenses {
			ev.Expenses[i] = toExpenseDTO(e)
		}
		for i, in := range incomes {
			ev.Incomes[i] = toIncomeDTO(in)
		}
		select {
		case events <- ev:
		default:
			// Consumer is behind; it gets the next full snapshot instead.
		}
	})
	defer s.gateway.Unsubscribe(uid, sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.logger.InfoContext(r.Context(), "Event stream opened",
		log.FieldUserID, uid,
		"subscription_id", sub.ID())

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.InfoContext(r.Context(), "Event stream closed",
				log.FieldUserID, uid,
				"subscription_id", sub.ID())
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-events:
			body, err := json.Marshal(ev)
			if err != nil {
				s.logger.ErrorContext(r.Context(), "Event marshal failed",
					log.FieldUserID, uid,
					log.FieldError, err)
				continue
			}
			if _, err := w.Write([]byte("data: " + string(body) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
