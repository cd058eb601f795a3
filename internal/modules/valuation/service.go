// Package valuation computes portfolio values and detects significant moves.
package valuation

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/currency"
	"github.com/aristath/folio/internal/modules/portfolio"
)

// Service computes the current total value of a portfolio: cash balance plus
// each holding priced at its latest rate. Pure read, safe to call
// concurrently.
type Service struct {
	portfolioRepo *portfolio.Repository
	currencyRepo  *currency.Repository
	log           zerolog.Logger
}

// NewService creates a new valuation service
func NewService(portfolioRepo *portfolio.Repository, currencyRepo *currency.Repository, log zerolog.Logger) *Service {
	return &Service{
		portfolioRepo: portfolioRepo,
		currencyRepo:  currencyRepo,
		log:           log.With().Str("service", "valuation").Logger(),
	}
}

// ValueOf returns balance + Σ holding.amount × latest rate cost. A holding
// whose currency has no rate yet contributes zero rather than failing the
// whole computation.
func (s *Service) ValueOf(portfolioID string) (decimal.Decimal, error) {
	p, err := s.portfolioRepo.GetByID(portfolioID)
	if err != nil {
		return decimal.Zero, err
	}

	holdings, err := s.portfolioRepo.Holdings(portfolioID)
	if err != nil {
		return decimal.Zero, err
	}

	total := p.Balance
	for _, h := range holdings {
		rate, err := s.currencyRepo.LatestRate(h.CurrencyID)
		if errors.Is(err, domain.ErrRateUnavailable) {
			s.log.Debug().
				Str("portfolio_id", portfolioID).
				Int64("currency_id", h.CurrencyID).
				Msg("No rate for held currency, contributes zero")
			continue
		}
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to price holding: %w", err)
		}
		total = total.Add(h.Amount.Mul(rate.Cost))
	}

	return total, nil
}
