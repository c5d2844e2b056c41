package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/store"
)

// EventPublisher delivers domain events to asynchronous consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.Event) error
}

// LedgerService orchestrates user, account, transaction and budget operations
// over a store and publishes the resulting events.
type LedgerService struct {
	store     store.Store
	publisher EventPublisher
	accounts  *keyedMutex
}

// NewLedgerService wires the service. publisher may be nil, in which case
// events are skipped.
func NewLedgerService(s store.Store, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:     s,
		publisher: publisher,
		accounts:  newKeyedMutex(),
	}
}

// AccountFilter narrows ListAccounts. Zero values mean no filtering.
type AccountFilter struct {
	Type       core.AccountType
	MinBalance *core.Money
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Users

// RegisterUser validates u, normalizes its email and stores it. A duplicate
// email is reported as core.ErrConflict.
func (s *LedgerService) RegisterUser(ctx context.Context, u core.User) (core.User, error) {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Email = normalizeEmail(u.Email)
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}

	exists, err := s.store.EmailExists(ctx, u.Email)
	if err != nil {
		return core.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return core.User{}, fmt.Errorf("email %s already registered: %w", u.Email, core.ErrConflict)
	}

	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *LedgerService) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *LedgerService) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	return s.store.FindUserByEmail(ctx, normalizeEmail(email))
}

func (s *LedgerService) FindUserByName(ctx context.Context, firstName, lastName string) (core.User, error) {
	return s.store.FindUserByName(ctx, strings.TrimSpace(firstName), strings.TrimSpace(lastName))
}

// DeleteUser removes the user with every account, transaction and budget it owns.
func (s *LedgerService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Accounts

// OpenAccount creates an account whose current balance starts at initial.
func (s *LedgerService) OpenAccount(ctx context.Context, userID int64, name string, t core.AccountType, initial core.Money) (core.Account, error) {
	a := core.NewAccount(userID, strings.TrimSpace(name), t, initial)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// ListAccounts returns the user's accounts. With a type filter they are
// ordered by name; with a minimum balance they are ordered by balance
// descending. Both filters together keep the balance ordering.
func (s *LedgerService) ListAccounts(ctx context.Context, userID int64, f AccountFilter) ([]core.Account, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if f.Type != "" && !f.Type.IsValid() {
		return nil, core.ErrInvalidAccountType
	}

	var (
		out []core.Account
		err error
	)
	switch {
	case f.MinBalance != nil:
		out, err = s.store.ListAccountsAbove(ctx, userID, *f.MinBalance)
		if err == nil && f.Type != "" {
			out = filterAccounts(out, f.Type)
		}
	case f.Type != "":
		out, err = s.store.ListAccountsByType(ctx, userID, f.Type)
	default:
		out, err = s.store.ListAccounts(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func filterAccounts(in []core.Account, t core.AccountType) []core.Account {
	out := in[:0]
	for _, a := range in {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func (s *LedgerService) TotalBalance(ctx context.Context, userID int64) (core.Money, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return core.Money{}, err
	}
	return s.store.TotalBalance(ctx, userID)
}

// DeleteAccount removes the account and its transactions.
func (s *LedgerService) DeleteAccount(ctx context.Context, id int64) error {
	unlock := s.accounts.Lock(id)
	defer unlock()
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// Transactions

// RecordTransaction validates t and applies it to the account. Recordings on
// the same account are serialized; the store appends the transaction and
// writes the new balance atomically.
func (s *LedgerService) RecordTransaction(ctx context.Context, accountID int64, t core.Transaction) (core.Transaction, core.Account, error) {
	t.Description = strings.TrimSpace(t.Description)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, core.Account{}, err
	}

	unlock := s.accounts.Lock(accountID)
	recorded, acct, err := s.store.RecordTransaction(ctx, accountID, t)
	unlock()
	if err != nil {
		return core.Transaction{}, core.Account{}, fmt.Errorf("record transaction: %w", err)
	}

	// Publish async event (non-blocking for the caller; the ledger is already consistent)
	s.publish(ctx, amqp.NewTransactionRecorded(acct.UserID, recorded))

	return recorded, acct, nil
}

func (s *LedgerService) ListAccountTransactions(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	return s.store.ListAccountTransactions(ctx, accountID)
}

// TransactionsByCategory lists transactions of category c dated within [from, to].
func (s *LedgerService) TransactionsByCategory(ctx context.Context, c core.Category, from, to core.Date) ([]core.Transaction, error) {
	if !c.IsValid() {
		return nil, core.ErrInvalidCategory
	}
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	return s.store.ListTransactionsByCategory(ctx, c, from, to)
}

// RecentTransactions returns the user's newest transactions across accounts.
// limit <= 0 returns all of them.
func (s *LedgerService) RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.RecentTransactions(ctx, userID, limit)
}

func validateRange(from, to core.Date) error {
	if err := from.Validate(); err != nil {
		return err
	}
	if err := to.Validate(); err != nil {
		return err
	}
	if from.After(to.Time) {
		return core.ErrInvalidDateRange
	}
	return nil
}

// Budgets

// CreateBudget stores a monthly budget. A second budget for the same user,
// category and month is rejected with core.ErrConflict.
func (s *LedgerService) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if _, err := s.store.GetUser(ctx, b.UserID); err != nil {
		return core.Budget{}, err
	}

	exists, err := s.store.BudgetExists(ctx, b.UserID, b.Category, b.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("check budget: %w", err)
	}
	if exists {
		return core.Budget{}, fmt.Errorf("budget for %s in %s: %w", b.Category, b.Month, core.ErrConflict)
	}

	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	s.publish(ctx, amqp.NewBudgetCreated(created))

	return created, nil
}

// ListBudgets returns the user's budgets for ym ordered by category.
func (s *LedgerService) ListBudgets(ctx context.Context, userID int64, ym core.YearMonth) ([]core.Budget, error) {
	if err := ym.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListBudgets(ctx, userID, ym)
}

// ListAllBudgets returns every budget of the user, newest month first.
func (s *LedgerService) ListAllBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListAllBudgets(ctx, userID)
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.Event) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping event", applog.FieldEventType, ev.Type)
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldEventType, ev.Type,
			applog.FieldEventID, ev.ID,
			applog.FieldError, err)
		// Don't fail the request - the change is already stored
	}
}

// Ready reports whether the underlying store is reachable.
func (s *LedgerService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}
