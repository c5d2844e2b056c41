package http

import (
	"net/http"

	"ledger/internal/core"
)

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var req recordTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	date := s.today()
	if req.Date != nil {
		date = *req.Date
	}

	t, acct, err := s.ledger.RecordTransaction(r.Context(), accountID, core.Transaction{
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Date:        date,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, recordTransactionResponse{
		Transaction: newTransactionResponse(t),
		Account:     newAccountResponse(acct),
	})
}

func (s *Server) handleListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	txs, err := s.ledger.ListAccountTransactions(r.Context(), accountID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newList(newTransactionResponses(txs)))
}

// handleRecentTransactions returns a user's newest transactions; ?limit=0
// returns all of them.
func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	limit, err := queryLimit(r.URL.Query(), s.recentLimit)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	txs, err := s.ledger.RecentTransactions(r.Context(), userID, limit)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newList(newTransactionResponses(txs)))
}

func (s *Server) handleTransactionsByCategory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := queryCategory(q)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	from, to, err := queryDateRange(q)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	txs, err := s.ledger.TransactionsByCategory(r.Context(), c, from, to)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newList(newTransactionResponses(txs)))
}

func (s *Server) today() core.Date {
	now := s.now().UTC()
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}
