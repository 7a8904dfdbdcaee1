// Package gateway is the single chokepoint between callers and the document
// store. It owns account provisioning, record writes with pre-allocated
// identifiers, the resolve-references fetch, and per-user change fan-out.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/registry"
	"tally/internal/store"
)

// fetchConcurrency bounds parallel per-record reads during a resolve.
const fetchConcurrency = 8

// EventPublisher receives a message for every durably written record.
// A nil publisher disables publishing.
type EventPublisher interface {
	PublishRecordWritten(ctx context.Context, kind, recordID, userID string) error
}

// Gateway mediates every store access and keeps one session per active
// user: a notification registry, a single-flight fetch lock, and an
// optional change-stream watch.
type Gateway struct {
	store     store.Store
	publisher EventPublisher
	logger    *log.Logger

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

type session struct {
	registry *registry.Registry

	// fetchMu serializes resolves for the user so concurrent triggers
	// collapse into sequential full fetches.
	fetchMu sync.Mutex

	watchCancel context.CancelFunc
}

func New(st store.Store, publisher EventPublisher, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Gateway{
		store:     st,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentGateway),
		sessions:  make(map[string]*session),
	}
}

// CreateAccount registers the account, provisions an empty user document
// and returns the signed-in user. The credential check after provisioning
// is skipped: a user we just wrote is signed in by construction.
func (g *Gateway) CreateAccount(ctx context.Context, email, password string) (core.User, error) {
	if err := auth.ValidateEmail(email); err != nil {
		return core.User{}, err
	}
	if len(password) == 0 {
		return core.User{}, auth.ErrWeakPassword
	}
	if _, _, err := g.store.FindUserByEmail(ctx, email); err == nil {
		return core.User{}, auth.ErrEmailInUse
	} else if !errors.Is(err, store.ErrNotFound) {
		return core.User{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	u := core.User{
		ID:         g.store.NewID(),
		Email:      email,
		ExpenseIDs: []string{},
		IncomeIDs:  []string{},
	}
	if err := g.store.InsertUser(ctx, u, hash); err != nil {
		return core.User{}, fmt.Errorf("provision user: %w", err)
	}

	g.logger.InfoContext(ctx, "account created",
		log.FieldOperation, log.OpSignUp,
		log.FieldUserID, u.ID)
	return u, nil
}

// SignIn verifies credentials and returns the stored user.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (core.User, error) {
	u, hash, err := g.store.FindUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return core.User{}, auth.ErrWrongCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("find user: %w", err)
	}
	if err := auth.CheckPassword(hash, password); err != nil {
		return core.User{}, auth.ErrWrongCredentials
	}
	g.logger.InfoContext(ctx, "signed in",
		log.FieldOperation, log.OpSignIn,
		log.FieldUserID, u.ID)
	return u, nil
}

// AddExpense validates and persists the record under a pre-allocated
// identifier, links it to the user and returns the identifier. The link
// write is acknowledged before the call returns.
func (g *Gateway) AddExpense(ctx context.Context, userID string, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	e.ID = g.store.NewID()
	if err := g.store.InsertExpense(ctx, e); err != nil {
		return "", fmt.Errorf("insert expense: %w", err)
	}
	if err := g.AddExpenseToUser(ctx, userID, e.ID); err != nil {
		return "", err
	}
	g.publish(ctx, amqp.KindExpense, e.ID, userID)
	return e.ID, nil
}

// AddIncome is the income counterpart of AddExpense.
func (g *Gateway) AddIncome(ctx context.Context, userID string, in core.Income) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	in.ID = g.store.NewID()
	if err := g.store.InsertIncome(ctx, in); err != nil {
		return "", fmt.Errorf("insert income: %w", err)
	}
	if err := g.AddIncomeToUser(ctx, userID, in.ID); err != nil {
		return "", err
	}
	g.publish(ctx, amqp.KindIncome, in.ID, userID)
	return in.ID, nil
}

// AddExpenseToUser appends the expense reference to the user document and
// reports the actual write acknowledgment.
func (g *Gateway) AddExpenseToUser(ctx context.Context, userID, expenseID string) error {
	if err := g.store.AppendExpenseRef(ctx, userID, expenseID); err != nil {
		return fmt.Errorf("link expense %s to user: %w", expenseID, err)
	}
	return nil
}

// AddIncomeToUser appends the income reference to the user document and
// reports the actual write acknowledgment.
func (g *Gateway) AddIncomeToUser(ctx context.Context, userID, incomeID string) error {
	if err := g.store.AppendIncomeRef(ctx, userID, incomeID); err != nil {
		return fmt.Errorf("link income %s to user: %w", incomeID, err)
	}
	return nil
}

// FetchUserData resolves the user's reference arrays into full records and
// notifies the user's subscribers exactly once with the resolved set.
// References whose documents cannot be read are omitted from the result;
// reference order is preserved for the rest.
func (g *Gateway) FetchUserData(ctx context.Context, userID string) ([]core.Expense, []core.Income, error) {
	sess := g.session(userID)
	sess.fetchMu.Lock()
	defer sess.fetchMu.Unlock()

	u, err := g.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, auth.ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}

	expenseSlots := make([]*core.Expense, len(u.ExpenseIDs))
	incomeSlots := make([]*core.Income, len(u.IncomeIDs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(fetchConcurrency)
	for i, id := range u.ExpenseIDs {
		i, id := i, id
		eg.Go(func() error {
			e, err := g.store.GetExpense(egCtx, id)
			if err != nil {
				g.logger.WarnContext(egCtx, "expense reference unresolved",
					log.FieldUserID, userID,
					log.FieldRecordID, id,
					log.FieldError, err)
				return nil
			}
			expenseSlots[i] = &e
			return nil
		})
	}
	for i, id := range u.IncomeIDs {
		i, id := i, id
		eg.Go(func() error {
			in, err := g.store.GetIncome(egCtx, id)
			if err != nil {
				g.logger.WarnContext(egCtx, "income reference unresolved",
					log.FieldUserID, userID,
					log.FieldRecordID, id,
					log.FieldError, err)
				return nil
			}
			incomeSlots[i] = &in
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	expenses := make([]core.Expense, 0, len(expenseSlots))
	for _, e := range expenseSlots {
		if e != nil {
			expenses = append(expenses, *e)
		}
	}
	incomes := make([]core.Income, 0, len(incomeSlots))
	for _, in := range incomeSlots {
		if in != nil {
			incomes = append(incomes, *in)
		}
	}

	sess.registry.Notify(registry.ChangeUpdate, expenses, incomes)
	return expenses, incomes, nil
}

// Subscribe attaches fn to the user's change registry and makes sure the
// user's store watch is running. The caller must Unsubscribe the returned
// handle. A resolve is kicked off in the background so the subscriber
// moves from the cached snapshot to fresh data without waiting.
func (g *Gateway) Subscribe(userID string, scope registry.Scope, fn registry.Listener) *registry.Subscription {
	sess := g.session(userID)
	sub := sess.registry.Subscribe(scope, fn)
	g.ensureWatch(userID, sess)

	go func() {
		if _, _, err := g.FetchUserData(context.Background(), userID); err != nil {
			g.logger.Warn("initial resolve after subscribe failed",
				log.FieldUserID, userID,
				log.FieldError, err)
		}
	}()
	return sub
}

// Unsubscribe detaches the handle. When the last subscriber for the user
// leaves, the store watch is stopped.
func (g *Gateway) Unsubscribe(userID string, sub *registry.Subscription) {
	g.mu.Lock()
	sess, ok := g.sessions[userID]
	g.mu.Unlock()
	if !ok {
		return
	}
	sess.registry.Unsubscribe(sub)
	if sess.registry.Len() == 0 {
		g.stopWatch(sess)
	}
}

// RemoveUser deletes the user document, notifies remaining subscribers
// with an empty set and tears the session down. Referenced expense and
// income documents are left in place.
func (g *Gateway) RemoveUser(ctx context.Context, userID string) error {
	if err := g.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return auth.ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	g.mu.Lock()
	sess, ok := g.sessions[userID]
	delete(g.sessions, userID)
	g.mu.Unlock()
	if ok {
		sess.registry.Notify(registry.ChangeRemove, nil, nil)
		g.stopWatch(sess)
	}

	g.logger.InfoContext(ctx, "user removed",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, userID)
	return nil
}

// Close stops every running watch. Subscriptions stay registered but no
// further notifications arrive.
func (g *Gateway) Close() {
	g.mu.Lock()
	sessions := make([]*session, 0, len(g.sessions))
	for _, sess := range g.sessions {
		sessions = append(sessions, sess)
	}
	g.closed = true
	g.mu.Unlock()
	for _, sess := range sessions {
		g.stopWatch(sess)
	}
}

func (g *Gateway) session(userID string) *session {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[userID]
	if !ok {
		sess = &session{registry: registry.New()}
		g.sessions[userID] = sess
	}
	return sess
}

// ensureWatch starts the per-user change-stream watch if it is not already
// running. Each store change triggers a full resolve, which in turn
// notifies the session's registry.
func (g *Gateway) ensureWatch(userID string, sess *session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || sess.watchCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	sess.watchCancel = cancel

	go func() {
		err := g.store.WatchUser(ctx, userID, func() {
			if _, _, err := g.FetchUserData(ctx, userID); err != nil {
				g.logger.Warn("resolve after change failed",
					log.FieldOperation, log.OpWatch,
					log.FieldUserID, userID,
					log.FieldError, err)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			g.logger.Error("user watch terminated",
				log.FieldOperation, log.OpWatch,
				log.FieldUserID, userID,
				log.FieldError, err)
		}
	}()
}

func (g *Gateway) stopWatch(sess *session) {
	g.mu.Lock()
	cancel := sess.watchCancel
	sess.watchCancel = nil
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (g *Gateway) publish(ctx context.Context, kind, recordID, userID string) {
	if g.publisher == nil {
		return
	}
	if err := g.publisher.PublishRecordWritten(ctx, kind, recordID, userID); err != nil {
		// The record is already durable; a lost event only delays the
		// archive replica.
		g.logger.WarnContext(ctx, "record event not published",
			log.FieldRecordKind, kind,
			log.FieldRecordID, recordID,
			log.FieldError, err)
	}
}
