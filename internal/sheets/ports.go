package sheets

import (
	"context"

	"ledger/internal/core"
)

// TransactionRow is one recorded transaction with the account and owner it
// belongs to, as exported to a spreadsheet.
type TransactionRow struct {
	User        core.User
	Account     core.Account
	Transaction core.Transaction
}

// Ports for outbound adapters.
type (
	TransactionExporter interface {
		AppendTransaction(ctx context.Context, row TransactionRow) (rowRef string, err error)
	}

	// BudgetReportWriter records a month's budget statuses for one user.
	BudgetReportWriter interface {
		WriteBudgetReport(ctx context.Context, u core.User, ym core.YearMonth, statuses []core.BudgetStatus) (rowRef string, err error)
	}
)
