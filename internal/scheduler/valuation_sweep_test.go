package scheduler

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/account"
	"github.com/aristath/folio/internal/modules/currency"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/modules/valuation"
)

type recordingTransport struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingTransport) Send(chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, text)
	return nil
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type sweepFixture struct {
	job          *ValuationSweepJob
	currencyRepo *currency.Repository
	transport    *recordingTransport
	currencyID   int64
	rateSeq      time.Time
}

func setupSweep(t *testing.T) *sweepFixture {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	accountRepo := account.NewRepository(db.Conn(), log)
	currencyRepo := currency.NewRepository(db.Conn(), log)
	portfolioRepo := portfolio.NewRepository(db.Conn(), log)

	acct, err := accountRepo.Create("frank", "frank@example.com")
	require.NoError(t, err)
	_, err = db.Conn().Exec("UPDATE accounts SET telegram_chat_id = 2002 WHERE id = ?", acct.ID)
	require.NoError(t, err)

	cur, err := currencyRepo.Create("Gold", "XAU", "")
	require.NoError(t, err)

	p, err := portfolioRepo.Create(acct.ID, decimal.Zero)
	require.NoError(t, err)
	threshold := 5.0
	require.NoError(t, portfolioRepo.UpdateThreshold(p.ID, &threshold))

	_, err = db.Conn().Exec(
		"INSERT INTO holdings (portfolio_id, currency_id, amount) VALUES (?, ?, ?)",
		p.ID, cur.ID, "1",
	)
	require.NoError(t, err)

	valuator := valuation.NewService(portfolioRepo, currencyRepo, log)
	cache := valuation.NewMemoryCache(time.Hour, domain.SystemClock{})
	detector := valuation.NewDetector(valuator, portfolioRepo, cache, nil, log)

	transport := &recordingTransport{}
	job := NewValuationSweepJob(detector, portfolioRepo, accountRepo, transport, log)

	return &sweepFixture{
		job:          job,
		currencyRepo: currencyRepo,
		transport:    transport,
		currencyID:   cur.ID,
		rateSeq:      time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (f *sweepFixture) setRate(t *testing.T, value int64) {
	t.Helper()
	f.rateSeq = f.rateSeq.Add(time.Minute)
	_, err := f.currencyRepo.InsertRate(f.currencyID, decimal.NewFromInt(value), f.rateSeq)
	require.NoError(t, err)
}

func TestValuationSweep_NotifiesOnThresholdMove(t *testing.T) {
	f := setupSweep(t)

	// First sweep establishes the baseline.
	f.setRate(t, 1000)
	require.NoError(t, f.job.Run())
	assert.Equal(t, 0, f.transport.count())

	// +6% against the baseline crosses the 5% threshold.
	f.setRate(t, 1060)
	require.NoError(t, f.job.Run())
	require.Equal(t, 1, f.transport.count())
	assert.Contains(t, f.transport.messages[0], "6.00%")

	// +1.9% against the refreshed baseline stays quiet.
	f.setRate(t, 1080)
	require.NoError(t, f.job.Run())
	assert.Equal(t, 1, f.transport.count())
}

func TestValuationSweep_EmptyDatabase(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	accountRepo := account.NewRepository(db.Conn(), log)
	currencyRepo := currency.NewRepository(db.Conn(), log)
	portfolioRepo := portfolio.NewRepository(db.Conn(), log)

	valuator := valuation.NewService(portfolioRepo, currencyRepo, log)
	cache := valuation.NewMemoryCache(time.Hour, domain.SystemClock{})
	detector := valuation.NewDetector(valuator, portfolioRepo, cache, nil, log)

	job := NewValuationSweepJob(detector, portfolioRepo, accountRepo, &recordingTransport{}, log)
	assert.NoError(t, job.Run())
}
