package watch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/account"
	"github.com/aristath/folio/internal/modules/currency"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/notify"
	"github.com/aristath/folio/internal/scheduler"
)

// Service owns the watch lifecycle: persisted rows and their cron
// triggers stay in lockstep. Creating a watch registers exactly one
// daily trigger; deleting it removes both.
type Service struct {
	repo          *Repository
	portfolioRepo *portfolio.Repository
	currencyRepo  *currency.Repository
	accountRepo   *account.Repository
	sched         *scheduler.Scheduler
	transport     notify.Transport
	eventManager  *events.Manager
	log           zerolog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewService creates a new watch service
func NewService(
	repo *Repository,
	portfolioRepo *portfolio.Repository,
	currencyRepo *currency.Repository,
	accountRepo *account.Repository,
	sched *scheduler.Scheduler,
	transport notify.Transport,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:          repo,
		portfolioRepo: portfolioRepo,
		currencyRepo:  currencyRepo,
		accountRepo:   accountRepo,
		sched:         sched,
		transport:     transport,
		eventManager:  eventManager,
		log:           log.With().Str("service", "watch").Logger(),
		entries:       make(map[string]cron.EntryID),
	}
}

// fireJob adapts a single watch firing to the scheduler's Job interface.
type fireJob struct {
	svc     *Service
	watchID string
}

func (j *fireJob) Run() error { return j.svc.fire(j.watchID) }
func (j *fireJob) Name() string {
	return "watch-notify-" + j.watchID
}

// Create registers a daily watch on a currency for the given portfolio.
// The caller's account must own the portfolio. If the cron trigger
// cannot be registered the row is rolled back so no orphan remains.
func (s *Service) Create(accountID int64, portfolioID string, currencyID int64, notifyTime string) (*Watch, error) {
	spec, err := cronSpec(notifyTime)
	if err != nil {
		return nil, err
	}

	p, err := s.portfolioRepo.GetByID(portfolioID)
	if err != nil {
		return nil, err
	}
	if p.AccountID != accountID {
		return nil, domain.ErrForbidden
	}

	if _, err := s.currencyRepo.GetByID(currencyID); err != nil {
		return nil, err
	}

	w := &Watch{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		CurrencyID:  currencyID,
		NotifyTime:  notifyTime,
	}

	if err := s.repo.Insert(w); err != nil {
		return nil, err
	}

	entryID, err := s.sched.AddJob(spec, &fireJob{svc: s, watchID: w.ID})
	if err != nil {
		// Roll back the row so the watch does not exist half-registered.
		if delErr := s.repo.Delete(w.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("watch_id", w.ID).Msg("Failed to roll back watch row")
		}
		return nil, fmt.Errorf("failed to register watch trigger: %w", err)
	}

	s.mu.Lock()
	s.entries[w.ID] = entryID
	s.mu.Unlock()

	s.log.Info().
		Str("watch_id", w.ID).
		Str("portfolio_id", portfolioID).
		Int64("currency_id", currencyID).
		Str("notify_time", notifyTime).
		Msg("Watch created")

	return w, nil
}

// Delete removes a watch and its cron trigger. The caller's account
// must own the watched portfolio.
func (s *Service) Delete(accountID int64, watchID string) error {
	w, err := s.repo.GetByID(watchID)
	if err != nil {
		return err
	}

	p, err := s.portfolioRepo.GetByID(w.PortfolioID)
	if err != nil {
		return err
	}
	if p.AccountID != accountID {
		return domain.ErrForbidden
	}

	if err := s.repo.Delete(watchID); err != nil {
		return err
	}

	s.mu.Lock()
	if entryID, ok := s.entries[watchID]; ok {
		s.sched.Remove(entryID)
		delete(s.entries, watchID)
	}
	s.mu.Unlock()

	s.log.Info().Str("watch_id", watchID).Msg("Watch deleted")

	return nil
}

// ListByPortfolio returns the watches on a portfolio owned by the
// caller's account.
func (s *Service) ListByPortfolio(accountID int64, portfolioID string) ([]Watch, error) {
	p, err := s.portfolioRepo.GetByID(portfolioID)
	if err != nil {
		return nil, err
	}
	if p.AccountID != accountID {
		return nil, domain.ErrForbidden
	}

	return s.repo.ListByPortfolio(portfolioID)
}

// RegisterAll re-registers cron triggers for every persisted watch.
// Called once on startup; cron entries do not survive restarts.
func (s *Service) RegisterAll() error {
	watches, err := s.repo.ListAll()
	if err != nil {
		return err
	}

	for _, w := range watches {
		spec, err := cronSpec(w.NotifyTime)
		if err != nil {
			s.log.Error().Err(err).Str("watch_id", w.ID).Msg("Skipping watch with invalid notify time")
			continue
		}

		entryID, err := s.sched.AddJob(spec, &fireJob{svc: s, watchID: w.ID})
		if err != nil {
			return fmt.Errorf("failed to register watch trigger: %w", err)
		}

		s.mu.Lock()
		s.entries[w.ID] = entryID
		s.mu.Unlock()
	}

	s.log.Info().Int("count", len(watches)).Msg("Watch triggers registered")

	return nil
}

// fire runs one scheduled notification. The watch is re-resolved at
// fire time: a watch or rate that disappeared since scheduling makes
// the firing a silent no-op, never an error.
func (s *Service) fire(watchID string) error {
	w, err := s.repo.GetByID(watchID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Debug().Str("watch_id", watchID).Msg("Watch gone, skipping notification")
			return nil
		}
		return err
	}

	rate, err := s.currencyRepo.LatestRate(w.CurrencyID)
	if err != nil {
		if errors.Is(err, domain.ErrRateUnavailable) {
			s.log.Debug().
				Str("watch_id", watchID).
				Int64("currency_id", w.CurrencyID).
				Msg("No rate yet, skipping notification")
			return nil
		}
		return err
	}

	cur, err := s.currencyRepo.GetByID(w.CurrencyID)
	if err != nil {
		return err
	}

	p, err := s.portfolioRepo.GetByID(w.PortfolioID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	acct, err := s.accountRepo.GetByID(p.AccountID)
	if err != nil {
		return err
	}
	if acct.TelegramChatID == nil {
		s.log.Debug().Int64("account_id", acct.ID).Msg("Account has no linked chat, skipping notification")
		return nil
	}

	text := fmt.Sprintf("%s (%s): %s", cur.Name, cur.ShortName, rate.Cost.String())
	if err := s.transport.Send(*acct.TelegramChatID, text); err != nil {
		s.log.Error().Err(err).Str("watch_id", watchID).Msg("Failed to deliver watch notification")
	}

	if s.eventManager != nil {
		s.eventManager.Emit(events.RateWatchFired, "watch", map[string]interface{}{
			"watch_id":    w.ID,
			"currency_id": w.CurrencyID,
			"rate":        rate.Cost.String(),
		})
	}

	return nil
}

// cronSpec converts "HH:MM" into a seconds-precision daily cron spec.
func cronSpec(notifyTime string) (string, error) {
	parts := strings.Split(notifyTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: notify time must be HH:MM", domain.ErrValidation)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("%w: hour must be 00-23", domain.ErrValidation)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("%w: minute must be 00-59", domain.ErrValidation)
	}

	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
