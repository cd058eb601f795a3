package valuation

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/portfolio"
)

// Decision is the outcome of a change-detection check.
type Decision struct {
	PortfolioID string
	Current     decimal.Decimal
	ChangePct   float64
	Notify      bool
}

// Detector compares a freshly computed valuation against the cached prior
// one and decides whether the move crosses the portfolio's notify threshold.
type Detector struct {
	valuator      *Service
	portfolioRepo *portfolio.Repository
	cache         Cache
	eventManager  *events.Manager
	log           zerolog.Logger
}

// NewDetector creates a new change detector
func NewDetector(
	valuator *Service,
	portfolioRepo *portfolio.Repository,
	cache Cache,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Detector {
	return &Detector{
		valuator:      valuator,
		portfolioRepo: portfolioRepo,
		cache:         cache,
		eventManager:  eventManager,
		log:           log.With().Str("service", "change_detector").Logger(),
	}
}

// Check computes the portfolio's current value, compares it with the cached
// baseline and refreshes the baseline regardless of the outcome. The first
// check for a portfolio only establishes the baseline; a zero baseline is
// treated as no-signal rather than a divide-by-zero fault.
func (d *Detector) Check(portfolioID string) (Decision, error) {
	current, err := d.valuator.ValueOf(portfolioID)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{PortfolioID: portfolioID, Current: current}

	previous, ok := d.cache.Get(portfolioID)
	// Always refresh the baseline so repeated small moves cannot accumulate
	// against a stale comparison.
	d.cache.Set(portfolioID, current)

	if !ok || previous.IsZero() {
		return decision, nil
	}

	deltaPct, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Float64()
	decision.ChangePct = deltaPct

	p, err := d.portfolioRepo.GetByID(portfolioID)
	if err != nil {
		return Decision{}, err
	}

	if p.NotifyThreshold == nil {
		return decision, nil
	}

	if abs(deltaPct) >= *p.NotifyThreshold {
		decision.Notify = true

		d.log.Info().
			Str("portfolio_id", portfolioID).
			Float64("change_pct", deltaPct).
			Float64("threshold", *p.NotifyThreshold).
			Msg("Portfolio value moved beyond threshold")

		if d.eventManager != nil {
			d.eventManager.Emit(events.PortfolioValueAlert, "valuation", map[string]interface{}{
				"portfolio_id": portfolioID,
				"account_id":   p.AccountID,
				"value":        current.String(),
				"change_pct":   deltaPct,
			})
		}
	}

	return decision, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
