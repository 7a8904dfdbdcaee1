// Package http exposes the JSON API: account endpoints, record writes,
// aggregated dashboard reads, currency-converted savings, and an SSE feed
// of data-change notifications.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tally/internal/auth"
	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/gateway"
	"tally/internal/log"
	"tally/internal/rates"
)

// userData is a resolved record set held in the response cache.
type userData struct {
	expenses []core.Expense
	incomes  []core.Income
}

type Server struct {
	http.Server

	gateway      *gateway.Gateway
	rates        *rates.Client
	tokens       *auth.Tokens
	baseCurrency string
	logger       *log.Logger

	rateLimiter *rateLimiter

	// dataCache holds resolved record sets keyed by user ID, so burst
	// reads (dashboard + savings + listing) hit the store once.
	dataCache *cache.LRUCache[userData]

	// savingsCache holds converted savings rows keyed by user ID and
	// currency; one write invalidates every currency view for the user.
	savingsCache *cache.LRUCache[[]savingsRow]

	stopJanitor  chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, gw *gateway.Gateway, rc *rates.Client, tokens *auth.Tokens, baseCurrency string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		gateway:      gw,
		rates:        rc,
		tokens:       tokens,
		baseCurrency: baseCurrency,
		logger:       logger.WithComponent(log.ComponentHTTP),
		rateLimiter:  newRateLimiter(),
		dataCache:    cache.NewLRUCache[userData](500, 30*time.Second),
		savingsCache: cache.NewLRUCache[[]savingsRow](500, 30*time.Second),
		stopJanitor:  make(chan struct{}),
	}

	go s.runCacheJanitor()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/signup", s.withMiddleware(s.handleSignUp))
	mux.HandleFunc("/signin", s.withMiddleware(s.handleSignIn))

	mux.HandleFunc("/expenses", s.withMiddleware(s.requireAuth(s.handleExpenses)))
	mux.HandleFunc("/incomes", s.withMiddleware(s.requireAuth(s.handleIncomes)))
	mux.HandleFunc("/dashboard", s.withMiddleware(s.requireAuth(s.handleDashboard)))
	mux.HandleFunc("/savings", s.withMiddleware(s.requireAuth(s.handleSavings)))
	mux.HandleFunc("/events", s.withMiddleware(s.requireAuth(s.handleEvents)))
	mux.HandleFunc("/account", s.withMiddleware(s.requireAuth(s.handleAccount)))

	mux.HandleFunc("/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("/currencies", s.withMiddleware(s.handleCurrencies))

	return s
}

// Shutdown stops the cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		close(s.stopJanitor)
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// runCacheJanitor sweeps expired response-cache entries. Get already skips
// expired entries; the sweep reclaims the memory behind keys nobody asks
// for again.
func (s *Server) runCacheJanitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanCaches()
		case <-s.stopJanitor:
			return
		}
	}
}

func (s *Server) cleanCaches() int {
	removed := s.dataCache.CleanExpired() + s.savingsCache.CleanExpired()
	if removed > 0 {
		s.logger.Debug("Removed expired cache entries",
			"removed", removed,
			"data_entries", s.dataCache.Size(),
			"savings_entries", s.savingsCache.Size())
	}
	return removed
}

// userData returns the user's resolved records, from cache when fresh.
func (s *Server) userData(ctx context.Context, userID string) (userData, error) {
	if data, found := s.dataCache.Get(userID); found {
		return data, nil
	}
	expenses, incomes, err := s.gateway.FetchUserData(ctx, userID)
	if err != nil {
		return userData{}, err
	}
	data := userData{expenses: expenses, incomes: incomes}
	s.dataCache.Set(userID, data)
	return data, nil
}

// invalidateUser drops every cached view for the user after a write.
func (s *Server) invalidateUser(userID string) {
	s.dataCache.Delete(userID)
	s.savingsCache.DeletePrefix(userID + ":")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// The rates snapshot is optional for readiness: record endpoints work
	// without it.
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
