package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/portfolio"
)

// getOwnedPortfolio resolves the portfolio in the URL and enforces that
// the acting account owns it. A portfolio owned by someone else reads
// as forbidden without confirming its existence.
func (s *Server) getOwnedPortfolio(w http.ResponseWriter, r *http.Request) *portfolio.Portfolio {
	p, err := s.portfolioRepo.GetByID(chi.URLParam(r, "portfolioID"))
	if err != nil {
		s.writeDomainError(w, err)
		return nil
	}
	if p.AccountID != actorID(r) {
		s.writeDomainError(w, domain.ErrForbidden)
		return nil
	}
	return p
}

type createPortfolioRequest struct {
	Balance string `json:"balance"`
}

// handleCreatePortfolio handles POST /api/portfolios
func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	balance := decimal.Zero
	if req.Balance != "" {
		var err error
		balance, err = decimal.NewFromString(req.Balance)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid balance")
			return
		}
	}

	p, err := s.portfolioRepo.Create(actorID(r), balance)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, p)
}

// handleListPortfolios handles GET /api/portfolios
func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := s.portfolioRepo.ListByAccount(actorID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, portfolios)
}

// handleGetPortfolio handles GET /api/portfolios/{portfolioID}
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p := s.getOwnedPortfolio(w, r)
	if p == nil {
		return
	}

	s.writeJSON(w, http.StatusOK, p)
}

// handleDeletePortfolio handles DELETE /api/portfolios/{portfolioID}
func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	p := s.getOwnedPortfolio(w, r)
	if p == nil {
		return
	}

	if err := s.portfolioRepo.Delete(p.ID); err != nil {
		// The row vanishing between the ownership check and the delete
		// still counts as deleted.
		if !errors.Is(err, domain.ErrNotFound) {
			s.writeDomainError(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

type updateThresholdRequest struct {
	NotifyThreshold *float64 `json:"notify_threshold"`
}

// handleUpdateThreshold handles PUT /api/portfolios/{portfolioID}/threshold
func (s *Server) handleUpdateThreshold(w http.ResponseWriter, r *http.Request) {
	p := s.getOwnedPortfolio(w, r)
	if p == nil {
		return
	}

	var req updateThresholdRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if err := s.portfolioRepo.UpdateThreshold(p.ID, req.NotifyThreshold); err != nil {
		s.writeDomainError(w, err)
		return
	}

	p.NotifyThreshold = req.NotifyThreshold
	s.writeJSON(w, http.StatusOK, p)
}

// handlePortfolioValue handles GET /api/portfolios/{portfolioID}/value
func (s *Server) handlePortfolioValue(w http.ResponseWriter, r *http.Request) {
	p := s.getOwnedPortfolio(w, r)
	if p == nil {
		return
	}

	value, err := s.valuator.ValueOf(p.ID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio_id": p.ID,
		"value":        value,
	})
}

// handleListHoldings handles GET /api/portfolios/{portfolioID}/holdings
func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request) {
	p := s.getOwnedPortfolio(w, r)
	if p == nil {
		return
	}

	holdings, err := s.portfolioRepo.Holdings(p.ID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, holdings)
}
