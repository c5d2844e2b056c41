package http

import (
	"net/http"

	"ledger/internal/core"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var req createBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	b, err := s.ledger.CreateBudget(r.Context(), core.Budget{
		UserID:   userID,
		Category: req.Category,
		Amount:   req.Amount,
		Month:    req.Month,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, newBudgetResponse(b))
}

// handleListBudgets lists the budgets of ?month=YYYY-MM, or every budget of
// the user (newest month first) when month is absent.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	ym, ok, err := queryYearMonth(r.URL.Query(), "month")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	var budgets []core.Budget
	if ok {
		budgets, err = s.ledger.ListBudgets(r.Context(), userID, ym)
	} else {
		budgets, err = s.ledger.ListAllBudgets(r.Context(), userID)
	}
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newList(newBudgetResponses(budgets)))
}

// handleBudgetStatus reports spent, remaining and usage for the month's
// budgets. ?category= narrows it to one budget.
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	q := r.URL.Query()
	ym, ok, err := queryYearMonth(q, "month")
	if err == nil && !ok {
		err = badRequest("month", "missing month parameter")
	}
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	var statuses []core.BudgetStatus
	if q.Get("category") != "" {
		c, cerr := queryCategory(q)
		if cerr != nil {
			writeError(r.Context(), w, cerr)
			return
		}
		var st core.BudgetStatus
		if st, err = s.reports.BudgetStatus(r.Context(), userID, c, ym); err == nil {
			statuses = []core.BudgetStatus{st}
		}
	} else {
		statuses, err = s.reports.BudgetStatuses(r.Context(), userID, ym)
	}
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newList(newBudgetStatusResponses(statuses)))
}
