// Package server provides the HTTP server and routing for Folio.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/folio/internal/domain"
)

type contextKey string

const accountIDKey contextKey = "account_id"

// requireAccount resolves the acting account from the X-Account-ID
// header and stores it in the request context.
func (s *Server) requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-Account-ID")
		if raw == "" {
			s.writeError(w, http.StatusUnauthorized, "missing X-Account-ID header")
			return
		}

		accountID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid X-Account-ID header")
			return
		}

		if _, err := s.accountRepo.GetByID(accountID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.writeError(w, http.StatusUnauthorized, "unknown account")
				return
			}
			s.writeDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorID(r *http.Request) int64 {
	id, _ := r.Context().Value(accountIDKey).(int64)
	return id
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "folio",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps service errors onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		s.writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrConflict):
		s.writeError(w, http.StatusConflict, "conflict")
	case errors.Is(err, domain.ErrRateUnavailable):
		s.writeError(w, http.StatusUnprocessableEntity, "no rate available")
	case errors.Is(err, domain.ErrInsufficientBalance):
		s.writeError(w, http.StatusUnprocessableEntity, "insufficient balance")
	case errors.Is(err, domain.ErrInsufficientHoldings):
		s.writeError(w, http.StatusUnprocessableEntity, "insufficient holdings")
	default:
		s.log.Error().Err(err).Msg("Unhandled error in HTTP handler")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a request body, rejecting unknown fields.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
