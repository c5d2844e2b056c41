package http

import (
	"net/http"
	"strings"

	"ledger/internal/core"
)

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	u, err := s.ledger.RegisterUser(r.Context(), core.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, newUserResponse(u))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	u, err := s.ledger.GetUser(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newUserResponse(u))
}

// handleFindUser looks a user up by ?email= or by ?first=&last=.
func (s *Server) handleFindUser(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email := strings.TrimSpace(q.Get("email"))
	first := strings.TrimSpace(q.Get("first"))
	last := strings.TrimSpace(q.Get("last"))

	var (
		u   core.User
		err error
	)
	switch {
	case email != "":
		u, err = s.ledger.FindUserByEmail(r.Context(), email)
	case first != "" && last != "":
		u, err = s.ledger.FindUserByName(r.Context(), first, last)
	default:
		err = badRequest("query", "provide either email or both first and last")
	}
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, newUserResponse(u))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := s.ledger.DeleteUser(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
