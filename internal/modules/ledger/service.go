// Package ledger executes buy and sell operations against a portfolio's
// cash balance and holdings. Every operation is a single SQLite transaction:
// balance movement, holding upsert/delete and the appended operation row
// commit together or not at all.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/currency"
	"github.com/aristath/folio/internal/modules/portfolio"
)

// Service executes buy/sell operations. Calls against the same portfolio
// serialize on a per-portfolio mutex; different portfolios never block each
// other.
type Service struct {
	db            *sql.DB
	portfolioRepo *portfolio.Repository
	currencyRepo  *currency.Repository
	operationRepo *OperationRepository
	eventManager  *events.Manager
	clock         domain.Clock

	locks sync.Map // portfolio id -> *sync.Mutex
	log   zerolog.Logger
}

// NewService creates a new ledger service
func NewService(
	db *sql.DB,
	portfolioRepo *portfolio.Repository,
	currencyRepo *currency.Repository,
	operationRepo *OperationRepository,
	eventManager *events.Manager,
	clock domain.Clock,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:            db,
		portfolioRepo: portfolioRepo,
		currencyRepo:  currencyRepo,
		operationRepo: operationRepo,
		eventManager:  eventManager,
		clock:         clock,
		log:           log.With().Str("service", "ledger").Logger(),
	}
}

// Buy purchases amount units of a currency at the latest available rate.
// Fails with domain.ErrValidation, domain.ErrRateUnavailable or
// domain.ErrInsufficientBalance; on any failure nothing is persisted.
func (s *Service) Buy(portfolioID string, currencyID int64, amount decimal.Decimal) (*Operation, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}

	rate, err := s.currencyRepo.LatestRate(currencyID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockPortfolio(portfolioID)
	defer unlock()

	op := Operation{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		CurrencyID:  currencyID,
		Type:        OperationBuy,
		Amount:      amount,
		Price:       rate.Cost,
		Total:       amount.Mul(rate.Cost),
		CreatedAt:   s.clock.Now(),
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		p, err := s.portfolioRepo.GetByIDTx(tx, portfolioID)
		if err != nil {
			return err
		}

		if p.Balance.LessThan(op.Total) {
			return domain.ErrInsufficientBalance
		}

		if err := s.portfolioRepo.SetBalanceTx(tx, portfolioID, p.Balance.Sub(op.Total)); err != nil {
			return err
		}

		holding, err := s.portfolioRepo.GetHoldingTx(tx, portfolioID, currencyID)
		newAmount := amount
		switch {
		case err == nil:
			newAmount = holding.Amount.Add(amount)
		case !isNotFound(err):
			return err
		}

		if err := s.portfolioRepo.UpsertHoldingTx(tx, portfolioID, currencyID, newAmount); err != nil {
			return err
		}

		return s.operationRepo.AppendTx(tx, op)
	})
	if err != nil {
		return nil, unwrapDomain(err)
	}

	s.log.Info().
		Str("portfolio_id", portfolioID).
		Int64("currency_id", currencyID).
		Str("amount", amount.String()).
		Str("price", op.Price.String()).
		Msg("Buy executed")

	s.emitTrade(op)

	return &op, nil
}

// Sell disposes amount units of a held currency at the latest available
// rate. Fails with domain.ErrValidation, domain.ErrRateUnavailable or
// domain.ErrInsufficientHoldings; on any failure nothing is persisted.
// A sell that empties the holding deletes its row.
func (s *Service) Sell(portfolioID string, currencyID int64, amount decimal.Decimal) (*Operation, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}

	rate, err := s.currencyRepo.LatestRate(currencyID)
	if err != nil {
		return nil, err
	}

	unlock := s.lockPortfolio(portfolioID)
	defer unlock()

	op := Operation{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		CurrencyID:  currencyID,
		Type:        OperationSell,
		Amount:      amount,
		Price:       rate.Cost,
		Total:       amount.Mul(rate.Cost),
		CreatedAt:   s.clock.Now(),
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		p, err := s.portfolioRepo.GetByIDTx(tx, portfolioID)
		if err != nil {
			return err
		}

		holding, err := s.portfolioRepo.GetHoldingTx(tx, portfolioID, currencyID)
		if isNotFound(err) {
			return domain.ErrInsufficientHoldings
		}
		if err != nil {
			return err
		}

		if holding.Amount.LessThan(amount) {
			return domain.ErrInsufficientHoldings
		}

		if err := s.portfolioRepo.SetBalanceTx(tx, portfolioID, p.Balance.Add(op.Total)); err != nil {
			return err
		}

		remaining := holding.Amount.Sub(amount)
		if remaining.IsZero() {
			if err := s.portfolioRepo.DeleteHoldingTx(tx, portfolioID, currencyID); err != nil {
				return err
			}
		} else {
			if err := s.portfolioRepo.UpsertHoldingTx(tx, portfolioID, currencyID, remaining); err != nil {
				return err
			}
		}

		return s.operationRepo.AppendTx(tx, op)
	})
	if err != nil {
		return nil, unwrapDomain(err)
	}

	s.log.Info().
		Str("portfolio_id", portfolioID).
		Int64("currency_id", currencyID).
		Str("amount", amount.String()).
		Str("price", op.Price.String()).
		Msg("Sell executed")

	s.emitTrade(op)

	return &op, nil
}

// Operations returns a portfolio's audit trail in append order.
func (s *Service) Operations(portfolioID string) ([]Operation, error) {
	return s.operationRepo.ListByPortfolio(portfolioID)
}

// lockPortfolio acquires the mutex serializing operations on one portfolio
// and returns the unlock function.
func (s *Service) lockPortfolio(portfolioID string) func() {
	muAny, _ := s.locks.LoadOrStore(portfolioID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) emitTrade(op Operation) {
	if s.eventManager == nil {
		return
	}
	s.eventManager.Emit(events.TradeExecuted, "ledger", map[string]interface{}{
		"operation_id": op.ID,
		"portfolio_id": op.PortfolioID,
		"currency_id":  op.CurrencyID,
		"type":         string(op.Type),
		"amount":       op.Amount.String(),
		"price":        op.Price.String(),
		"total":        op.Total.String(),
	})
}

func isNotFound(err error) bool {
	return err != nil && errors.Is(err, domain.ErrNotFound)
}

// unwrapDomain strips the database.WithTransaction wrapping from domain
// errors. The message produced by the failing step survives, so callers
// still see which lookup failed while errors.Is keeps matching.
func unwrapDomain(err error) error {
	for _, kind := range []error{
		domain.ErrValidation,
		domain.ErrRateUnavailable,
		domain.ErrInsufficientBalance,
		domain.ErrInsufficientHoldings,
		domain.ErrNotFound,
	} {
		if !errors.Is(err, kind) {
			continue
		}
		if inner := errors.Unwrap(err); inner != nil && errors.Is(inner, kind) {
			return inner
		}
		return err
	}
	return err
}
