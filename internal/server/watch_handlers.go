package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createWatchRequest struct {
	CurrencyID int64  `json:"currency_id"`
	NotifyTime string `json:"notify_time"`
}

// handleCreateWatch handles POST /api/portfolios/{portfolioID}/watches
func (s *Server) handleCreateWatch(w http.ResponseWriter, r *http.Request) {
	var req createWatchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	watch, err := s.watchService.Create(actorID(r), chi.URLParam(r, "portfolioID"), req.CurrencyID, req.NotifyTime)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, watch)
}

// handleListWatches handles GET /api/portfolios/{portfolioID}/watches
func (s *Server) handleListWatches(w http.ResponseWriter, r *http.Request) {
	watches, err := s.watchService.ListByPortfolio(actorID(r), chi.URLParam(r, "portfolioID"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, watches)
}

// handleDeleteWatch handles DELETE /api/watches/{watchID}
func (s *Server) handleDeleteWatch(w http.ResponseWriter, r *http.Request) {
	if err := s.watchService.Delete(actorID(r), chi.URLParam(r, "watchID")); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
