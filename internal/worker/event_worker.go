package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/sheets"
	"ledger/internal/store"
)

// EventWorker reacts to ledger events: it exports recorded transactions to a
// spreadsheet and reports budgets that a new expense pushed over their limit.
// Exports are tracked in the store, so a redelivered event or a sweep never
// appends the same transaction twice.
type EventWorker struct {
	store    store.Store
	reports  *services.ReportService
	exporter sheets.TransactionExporter
	budgets  sheets.BudgetReportWriter

	// exportMu serializes check, append and mark between the consumer and
	// the pending-export sweep.
	exportMu sync.Mutex
}

// NewEventWorker wires the worker. exporter and budgets may be nil, in which
// case that part of the work is skipped.
func NewEventWorker(s store.Store, exporter sheets.TransactionExporter, budgets sheets.BudgetReportWriter) *EventWorker {
	return &EventWorker{
		store:    s,
		reports:  services.NewReportService(s),
		exporter: exporter,
		budgets:  budgets,
	}
}

// HandleEvent dispatches one event. Events referring to entities that no
// longer exist are acknowledged without work.
func (w *EventWorker) HandleEvent(ctx context.Context, ev *amqp.Event) error {
	var err error
	switch ev.Type {
	case amqp.EventTransactionRecorded:
		err = w.handleTransactionRecorded(ctx, ev)
	case amqp.EventBudgetCreated:
		err = w.handleBudgetCreated(ctx, ev)
	default:
		return fmt.Errorf("unsupported event type %q", ev.Type)
	}
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Event refers to a deleted entity, skipping",
			applog.FieldEventType, ev.Type,
			applog.FieldEventID, ev.ID,
			applog.FieldError, err)
		return nil
	}
	return err
}

// handleTransactionRecorded exports the transaction unless it already was,
// then checks its budget. A failed budget report is returned for redelivery;
// the export it follows is not repeated.
func (w *EventWorker) handleTransactionRecorded(ctx context.Context, ev *amqp.Event) error {
	slog.InfoContext(ctx, "Processing transaction event",
		applog.FieldEventID, ev.ID,
		applog.FieldTxID, ev.TransactionID,
		applog.FieldAccountID, ev.AccountID)

	acct, err := w.store.GetAccount(ctx, ev.AccountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	user, err := w.store.GetUser(ctx, acct.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	tx, err := w.findTransaction(ctx, ev.AccountID, ev.TransactionID)
	if err != nil {
		return err
	}

	if err := w.exportTransaction(ctx, user, acct, tx); err != nil {
		return err
	}

	if tx.Type != core.Expense {
		return nil
	}
	return w.checkBudget(ctx, user, tx.Category, tx.Date.YearMonth())
}

func (w *EventWorker) handleBudgetCreated(ctx context.Context, ev *amqp.Event) error {
	ym, err := ev.YearMonth()
	if err != nil {
		return fmt.Errorf("parse event month: %w", err)
	}
	user, err := w.store.GetUser(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	return w.checkBudget(ctx, user, ev.Category, ym)
}

// ProcessPendingExports exports up to batchSize transactions that never
// reached the spreadsheet, for instance because their event was not
// published. Failures are logged and left for the next sweep. It returns the
// number of rows written.
func (w *EventWorker) ProcessPendingExports(ctx context.Context, batchSize int) (int, error) {
	if w.exporter == nil {
		return 0, nil
	}
	pending, err := w.store.PendingExports(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	exported := 0
	for _, tx := range pending {
		if ctx.Err() != nil {
			return exported, ctx.Err()
		}
		acct, err := w.store.GetAccount(ctx, tx.AccountID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get account for pending export",
				applog.FieldTxID, tx.ID, applog.FieldError, err)
			continue
		}
		user, err := w.store.GetUser(ctx, acct.UserID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get user for pending export",
				applog.FieldTxID, tx.ID, applog.FieldError, err)
			continue
		}
		if err := w.exportTransaction(ctx, user, acct, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction",
				applog.FieldTxID, tx.ID, applog.FieldError, err)
			continue
		}
		exported++
	}
	return exported, nil
}

// RunExportSweep exports pending transactions once, then again on every
// tick of interval until ctx is done.
func (w *EventWorker) RunExportSweep(ctx context.Context, batchSize int, interval time.Duration) {
	sweep := func() {
		if _, err := w.ProcessPendingExports(ctx, batchSize); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Pending export sweep failed", applog.FieldError, err)
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

func (w *EventWorker) findTransaction(ctx context.Context, accountID, id int64) (core.Transaction, error) {
	txs, err := w.store.ListAccountTransactions(ctx, accountID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("list account transactions: %w", err)
	}
	for _, t := range txs {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
}

// exportTransaction appends t once. Without an exporter nothing is written
// or marked, so a later run with one configured still picks t up.
func (w *EventWorker) exportTransaction(ctx context.Context, u core.User, a core.Account, t core.Transaction) error {
	if w.exporter == nil {
		return nil
	}

	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	done, err := w.store.IsTransactionExported(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("check export state: %w", err)
	}
	if done {
		slog.DebugContext(ctx, "Transaction already exported, skipping", applog.FieldTxID, t.ID)
		return nil
	}

	ref, err := w.exporter.AppendTransaction(ctx, sheets.TransactionRow{User: u, Account: a, Transaction: t})
	if err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}
	if err := w.store.MarkTransactionExported(ctx, t.ID, ref); err != nil {
		// The row is in the sheet but still pending, so a retry appends it again.
		return fmt.Errorf("mark transaction exported: %w", err)
	}

	slog.InfoContext(ctx, "Successfully exported transaction",
		applog.FieldOperation, applog.OpExport,
		applog.FieldTxID, t.ID,
		applog.FieldSheetsRef, ref,
		applog.FieldAmount, t.Amount.String())
	return nil
}

// checkBudget looks up the budget for (u, c, ym). When it is exceeded the
// month's full budget report is written.
func (w *EventWorker) checkBudget(ctx context.Context, u core.User, c core.Category, ym core.YearMonth) error {
	st, err := w.reports.BudgetStatus(ctx, u.ID, c, ym)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("budget status: %w", err)
	}
	if !st.Exceeded {
		return nil
	}

	slog.WarnContext(ctx, "Budget exceeded",
		applog.FieldUserID, u.ID,
		applog.FieldCategory, c,
		applog.FieldMonth, ym.String(),
		"budget", st.Budget.Amount.String(),
		"spent", st.Spent.String(),
		"usage_percentage", st.UsagePercentage.StringFixed(2))

	if w.budgets == nil {
		return nil
	}
	statuses, err := w.reports.BudgetStatuses(ctx, u.ID, ym)
	if err != nil {
		return fmt.Errorf("budget statuses: %w", err)
	}
	ref, err := w.budgets.WriteBudgetReport(ctx, u, ym, statuses)
	if err != nil {
		return fmt.Errorf("write budget report: %w", err)
	}
	slog.InfoContext(ctx, "Budget report written",
		applog.FieldOperation, applog.OpReport,
		applog.FieldUserID, u.ID,
		applog.FieldMonth, ym.String(),
		applog.FieldSheetsRef, ref)
	return nil
}
