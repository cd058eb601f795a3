package server

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type tradeRequest struct {
	CurrencyID int64  `json:"currency_id"`
	Amount     string `json:"amount"`
}

func (s *Server) parseTradeRequest(w http.ResponseWriter, r *http.Request) (int64, decimal.Decimal, bool) {
	var req tradeRequest
	if !s.decodeJSON(w, r, &req) {
		return 0, decimal.Zero, false
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid amount")
		return 0, decimal.Zero, false
	}

	return req.CurrencyID, amount, true
}

// handleBuy handles POST /api/portfolios/{portfolioID}/buy
func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	p := s.getOwnedPortfolio(w, r)
	if p == nil {
		return
	}

	currencyID, amount, ok := s.parseTradeRequest(w, r)
	if !ok {
		return
	}

	op, err := s.ledgerService.Buy(p.ID, currencyID, amount)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, op)
}

// handleSell handles POST /api/portfolios/{portfolioID}/sell
func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	p := s.getOwnedPortfolio(w, r)
	if p == nil {
		return
	}

	currencyID, amount, ok := s.parseTradeRequest(w, r)
	if !ok {
		return
	}

	op, err := s.ledgerService.Sell(p.ID, currencyID, amount)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, op)
}

// handleListOperations handles GET /api/portfolios/{portfolioID}/operations
func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	p := s.getOwnedPortfolio(w, r)
	if p == nil {
		return
	}

	ops, err := s.ledgerService.Operations(p.ID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ops)
}
