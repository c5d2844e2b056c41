// Package store declares the persistence and aggregation ports the ledger
// depends on. Absent entities are reported as core.ErrNotFound and uniqueness
// violations as core.ErrConflict. Aggregate sums are zero, never absent, when
// nothing matches.
package store

import (
	"context"

	"ledger/internal/core"
)

type (
	// UserStore compares emails case-insensitively and ignores surrounding
	// whitespace; callers need not normalize them.
	UserStore interface {
		// CreateUser persists u and returns it with its generated ID.
		// A duplicate email yields core.ErrConflict.
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		FindUserByEmail(ctx context.Context, email string) (core.User, error)
		EmailExists(ctx context.Context, email string) (bool, error)
		// FindUserByName matches first and last name case-insensitively.
		FindUserByName(ctx context.Context, firstName, lastName string) (core.User, error)
		// DeleteUser removes the user with its accounts, their transactions and its budgets.
		DeleteUser(ctx context.Context, id int64) error
	}

	AccountStore interface {
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		GetAccount(ctx context.Context, id int64) (core.Account, error)
		// ListAccounts returns the user's accounts ordered by name ascending.
		ListAccounts(ctx context.Context, userID int64) ([]core.Account, error)
		ListAccountsByType(ctx context.Context, userID int64, t core.AccountType) ([]core.Account, error)
		// ListAccountsAbove returns accounts whose current balance is strictly
		// greater than threshold, ordered by balance descending.
		ListAccountsAbove(ctx context.Context, userID int64, threshold core.Money) ([]core.Account, error)
		TotalBalance(ctx context.Context, userID int64) (core.Money, error)
		// DeleteAccount removes the account and its transactions.
		DeleteAccount(ctx context.Context, id int64) error
	}

	TransactionStore interface {
		// RecordTransaction appends t to the account and applies it to the
		// balance atomically. It returns the stored transaction and the
		// account as it is after the update.
		RecordTransaction(ctx context.Context, accountID int64, t core.Transaction) (core.Transaction, core.Account, error)
		// ListAccountTransactions orders by date desc, then creation time desc.
		ListAccountTransactions(ctx context.Context, accountID int64) ([]core.Transaction, error)
		// ListTransactionsByCategory returns transactions dated within [from, to], date desc.
		ListTransactionsByCategory(ctx context.Context, c core.Category, from, to core.Date) ([]core.Transaction, error)
		// RecentTransactions spans all of the user's accounts, date desc then
		// creation time desc. limit <= 0 returns everything.
		RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
	}

	// Aggregator is the read side the ledger and reports are computed from.
	Aggregator interface {
		// SpendByCategory sums expense transactions of the user in one category and month.
		SpendByCategory(ctx context.Context, userID int64, c core.Category, ym core.YearMonth) (core.Money, error)
		TotalIncome(ctx context.Context, userID int64, from, to core.Date) (core.Money, error)
		TotalExpense(ctx context.Context, userID int64, from, to core.Date) (core.Money, error)
	}

	BudgetStore interface {
		// CreateBudget rejects a second budget for the same (user, category, month)
		// with core.ErrConflict.
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		GetBudget(ctx context.Context, id int64) (core.Budget, error)
		// ListBudgets returns one month's budgets ordered by category ascending.
		ListBudgets(ctx context.Context, userID int64, ym core.YearMonth) ([]core.Budget, error)
		// ListAllBudgets orders by month descending, then category ascending.
		ListAllBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
		FindBudget(ctx context.Context, userID int64, c core.Category, ym core.YearMonth) (core.Budget, error)
		BudgetExists(ctx context.Context, userID int64, c core.Category, ym core.YearMonth) (bool, error)
	}

	// ExportStore remembers which transactions reached the spreadsheet, so an
	// export is written at most once and missed ones can be swept up later.
	ExportStore interface {
		// MarkTransactionExported records ref for the transaction. Marking an
		// already exported transaction keeps the first ref. A missing
		// transaction yields core.ErrNotFound.
		MarkTransactionExported(ctx context.Context, id int64, ref string) error
		IsTransactionExported(ctx context.Context, id int64) (bool, error)
		// PendingExports returns transactions never marked, lowest ID first.
		// limit <= 0 returns all of them.
		PendingExports(ctx context.Context, limit int) ([]core.Transaction, error)
	}

	// Store is the full persistence collaborator.
	Store interface {
		UserStore
		AccountStore
		TransactionStore
		Aggregator
		BudgetStore
		ExportStore
		Ping(ctx context.Context) error
		Close() error
	}
)
