// Package memory is an in-process spreadsheet fake that records appended rows
// and budget reports so tests can inspect them.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

var (
	_ ports.TransactionExporter = (*Sheet)(nil)
	_ ports.BudgetReportWriter  = (*Sheet)(nil)
)

// BudgetReport is one written budget report.
type BudgetReport struct {
	User     core.User
	Month    core.YearMonth
	Statuses []core.BudgetStatus
}

type Sheet struct {
	mu      sync.Mutex
	rows    []ports.TransactionRow
	reports []BudgetReport
}

func New() *Sheet {
	return &Sheet{}
}

// AppendTransaction stores the row and returns a synthetic row reference.
func (s *Sheet) AppendTransaction(_ context.Context, row ports.TransactionRow) (string, error) {
	if err := row.Transaction.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Sheet) WriteBudgetReport(_ context.Context, u core.User, ym core.YearMonth, statuses []core.BudgetStatus) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, BudgetReport{
		User:     u,
		Month:    ym,
		Statuses: append([]core.BudgetStatus(nil), statuses...),
	})
	return fmt.Sprintf("mem:budgets:%d", len(s.reports)), nil
}

// Rows returns a copy of the appended transaction rows.
func (s *Sheet) Rows() []ports.TransactionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.TransactionRow(nil), s.rows...)
}

// Reports returns a copy of the written budget reports.
func (s *Sheet) Reports() []BudgetReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BudgetReport(nil), s.reports...)
}
