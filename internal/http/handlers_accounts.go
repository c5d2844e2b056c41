package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/services"
)

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var req openAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	acct, err := s.ledger.OpenAccount(r.Context(), userID, req.Name, req.Type, req.InitialBalance)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, newAccountResponse(acct))
}

// handleListAccounts lists a user's accounts, optionally filtered by ?type=
// and ?min_balance= (strictly greater than).
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	q := r.URL.Query()
	var f services.AccountFilter
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		f.Type = core.AccountType(strings.ToUpper(v))
	}
	if v := strings.TrimSpace(q.Get("min_balance")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeError(r.Context(), w, badRequest("min_balance", "invalid min_balance %q", v))
			return
		}
		m, err := core.MoneyFromDecimal(d)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		f.MinBalance = &m
	}

	accounts, err := s.ledger.ListAccounts(r.Context(), userID, f)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newList(newAccountResponses(accounts)))
}

func (s *Server) handleTotalBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	total, err := s.ledger.TotalBalance(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, balanceResponse{
		UserID:       userID,
		TotalBalance: total,
		Display:      total.Format(),
	})
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	acct, err := s.ledger.GetAccount(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newAccountResponse(acct))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := s.ledger.DeleteAccount(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
