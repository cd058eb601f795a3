package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/modules/account"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/aristath/folio/internal/notify"
)

// ValuationSweepJob re-values every portfolio that has a notify
// threshold and sends an alert when the value moved past it.
type ValuationSweepJob struct {
	detector      *valuation.Detector
	portfolioRepo *portfolio.Repository
	accountRepo   *account.Repository
	transport     notify.Transport
	log           zerolog.Logger
}

// NewValuationSweepJob creates a new ValuationSweepJob
func NewValuationSweepJob(
	detector *valuation.Detector,
	portfolioRepo *portfolio.Repository,
	accountRepo *account.Repository,
	transport notify.Transport,
	log zerolog.Logger,
) *ValuationSweepJob {
	return &ValuationSweepJob{
		detector:      detector,
		portfolioRepo: portfolioRepo,
		accountRepo:   accountRepo,
		transport:     transport,
		log:           log.With().Str("job", "valuation_sweep").Logger(),
	}
}

// Name returns the job name
func (j *ValuationSweepJob) Name() string {
	return "valuation_sweep"
}

// Run executes the valuation sweep. A failure on one portfolio does
// not stop the sweep for the others.
func (j *ValuationSweepJob) Run() error {
	portfolios, err := j.portfolioRepo.ListWithThreshold()
	if err != nil {
		return err
	}

	checked := 0
	notified := 0
	for _, p := range portfolios {
		decision, err := j.detector.Check(p.ID)
		if err != nil {
			j.log.Warn().Err(err).Str("portfolio_id", p.ID).Msg("Failed to check portfolio value")
			continue
		}
		checked++

		if !decision.Notify {
			continue
		}
		notified++

		acct, err := j.accountRepo.GetByID(p.AccountID)
		if err != nil {
			j.log.Warn().Err(err).Str("portfolio_id", p.ID).Msg("Failed to resolve account for alert")
			continue
		}
		if acct.TelegramChatID == nil {
			continue
		}

		text := fmt.Sprintf("Portfolio value changed by %+.2f%%: now %s", decision.ChangePct, decision.Current.String())
		if err := j.transport.Send(*acct.TelegramChatID, text); err != nil {
			j.log.Error().Err(err).Str("portfolio_id", p.ID).Msg("Failed to deliver value alert")
		}
	}

	j.log.Info().
		Int("checked", checked).
		Int("notified", notified).
		Msg("Valuation sweep completed")

	return nil
}
