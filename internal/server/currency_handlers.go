package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type createCurrencyRequest struct {
	Name        string `json:"name"`
	ShortName   string `json:"short_name"`
	Description string `json:"description"`
}

// handleCreateCurrency handles POST /api/currencies
func (s *Server) handleCreateCurrency(w http.ResponseWriter, r *http.Request) {
	var req createCurrencyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.ShortName = strings.TrimSpace(req.ShortName)
	if req.Name == "" || req.ShortName == "" {
		s.writeError(w, http.StatusBadRequest, "name and short_name are required")
		return
	}

	cur, err := s.currencyRepo.Create(req.Name, req.ShortName, req.Description)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, cur)
}

// handleListCurrencies handles GET /api/currencies
func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := s.currencyRepo.List()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, currencies)
}

type pushRateRequest struct {
	Cost      string `json:"cost"`
	Timestamp *int64 `json:"timestamp,omitempty"`
}

// handlePushRate handles POST /api/currencies/{shortName}/rates.
// Rate feeders push quotes here; a missing timestamp means "now".
func (s *Server) handlePushRate(w http.ResponseWriter, r *http.Request) {
	cur, err := s.currencyRepo.GetByShortName(chi.URLParam(r, "shortName"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	var req pushRateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cost, err := decimal.NewFromString(req.Cost)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid cost")
		return
	}

	timestamp := time.Now()
	if req.Timestamp != nil {
		timestamp = time.Unix(*req.Timestamp, 0)
	}

	rate, err := s.currencyRepo.InsertRate(cur.ID, cost, timestamp)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, rate)
}

// handleRateHistory handles GET /api/currencies/{shortName}/rates
func (s *Server) handleRateHistory(w http.ResponseWriter, r *http.Request) {
	cur, err := s.currencyRepo.GetByShortName(chi.URLParam(r, "shortName"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	rates, err := s.currencyRepo.History(cur.ID, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, rates)
}
