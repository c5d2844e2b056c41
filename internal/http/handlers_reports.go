package http

import (
	"net/http"

	"ledger/internal/core"
)

func (s *Server) handlePeriodSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	from, to, err := queryDateRange(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	sum, err := s.reports.PeriodSummary(r.Context(), userID, from, to)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newSummaryResponse(sum))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	ov, err := s.reports.Overview(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, overviewResponse{
		User:         newUserResponse(ov.User),
		Accounts:     newAccountResponses(ov.Accounts),
		TotalBalance: ov.TotalBalance,
	})
}

func handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, categoriesResponse{
		Income:  newCategoryResponses(core.IncomeCategories()),
		Expense: newCategoryResponses(core.ExpenseCategories()),
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Ready(r.Context()); err != nil {
		writeJSON(r.Context(), w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ready"})
}
