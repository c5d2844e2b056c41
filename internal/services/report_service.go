package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	"ledger/internal/store"
)

// maxConcurrentAggregates bounds the spend queries issued for one report.
const maxConcurrentAggregates = 4

// ReportService derives budget metrics and period totals from the store's
// aggregates. Nothing it computes is persisted.
type ReportService struct {
	store store.Store
}

func NewReportService(s store.Store) *ReportService {
	return &ReportService{store: s}
}

// BudgetStatus computes the metrics of the user's budget for c in ym.
func (r *ReportService) BudgetStatus(ctx context.Context, userID int64, c core.Category, ym core.YearMonth) (core.BudgetStatus, error) {
	b, err := r.store.FindBudget(ctx, userID, c, ym)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	spent, err := r.store.SpendByCategory(ctx, userID, c, ym)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("spend by category: %w", err)
	}
	return b.Status(spent), nil
}

// BudgetStatuses computes the metrics of every budget the user has for ym,
// ordered by category.
func (r *ReportService) BudgetStatuses(ctx context.Context, userID int64, ym core.YearMonth) ([]core.BudgetStatus, error) {
	if err := ym.Validate(); err != nil {
		return nil, err
	}
	if _, err := r.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	budgets, err := r.store.ListBudgets(ctx, userID, ym)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	out := make([]core.BudgetStatus, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAggregates)
	for i, b := range budgets {
		g.Go(func() error {
			spent, err := r.store.SpendByCategory(gctx, userID, b.Category, ym)
			if err != nil {
				return fmt.Errorf("spend for %s: %w", b.Category, err)
			}
			out[i] = b.Status(spent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	exceeded := 0
	for _, st := range out {
		if st.Exceeded {
			exceeded++
		}
	}
	slog.DebugContext(ctx, "Budget statuses computed",
		"user_id", userID,
		"month", ym.String(),
		"budgets", len(out),
		"exceeded", exceeded)

	return out, nil
}

// PeriodSummary returns income and expense totals for [from, to].
func (r *ReportService) PeriodSummary(ctx context.Context, userID int64, from, to core.Date) (core.PeriodSummary, error) {
	if err := validateRange(from, to); err != nil {
		return core.PeriodSummary{}, err
	}
	if _, err := r.store.GetUser(ctx, userID); err != nil {
		return core.PeriodSummary{}, err
	}

	sum := core.PeriodSummary{UserID: userID, From: from, To: to}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		income, err := r.store.TotalIncome(gctx, userID, from, to)
		if err != nil {
			return fmt.Errorf("total income: %w", err)
		}
		sum.Income = income
		return nil
	})
	g.Go(func() error {
		expense, err := r.store.TotalExpense(gctx, userID, from, to)
		if err != nil {
			return fmt.Errorf("total expense: %w", err)
		}
		sum.Expense = expense
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.PeriodSummary{}, err
	}
	return sum, nil
}

// Overview returns the user with its accounts and their total balance.
func (r *ReportService) Overview(ctx context.Context, userID int64) (core.UserOverview, error) {
	u, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return core.UserOverview{}, err
	}

	ov := core.UserOverview{User: u}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := r.store.ListAccounts(gctx, userID)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		ov.Accounts = accounts
		return nil
	})
	g.Go(func() error {
		total, err := r.store.TotalBalance(gctx, userID)
		if err != nil {
			return fmt.Errorf("total balance: %w", err)
		}
		ov.TotalBalance = total
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.UserOverview{}, err
	}
	return ov, nil
}
