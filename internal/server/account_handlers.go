package server

import (
	"net/http"
	"strings"
)

type createAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// handleCreateAccount handles POST /api/accounts
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		s.writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	acct, err := s.accountRepo.Create(req.Username, req.Email)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, acct)
}

// handleGetAccount handles GET /api/accounts/me
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.accountRepo.GetByID(actorID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, acct)
}
