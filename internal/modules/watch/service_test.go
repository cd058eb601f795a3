package watch

import (
	"database/sql"
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
	"github.com/aristath/folio/internal/scheduler"
)

type captureTransport struct {
	mu       sync.Mutex
	messages []string
	chatIDs  []int64
}

func (c *captureTransport) Send(chatID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatIDs = append(c.chatIDs, chatID)
	c.messages = append(c.messages, text)
	return nil
}

func (c *captureTransport) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

type watchFixture struct {
	db           *sql.DB
	service      *Service
	currencyRepo *currency.Repository
	transport    *captureTransport
	ownerID      int64
	strangerID   int64
	portfolioID  string
	currencyID   int64
}

func setupWatch(t *testing.T) *watchFixture {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	accountRepo := account.NewRepository(db.Conn(), log)
	currencyRepo := currency.NewRepository(db.Conn(), log)
	portfolioRepo := portfolio.NewRepository(db.Conn(), log)
	watchRepo := NewRepository(db.Conn(), log)

	owner, err := accountRepo.Create("owner", "owner@example.com")
	require.NoError(t, err)
	stranger, err := accountRepo.Create("stranger", "stranger@example.com")
	require.NoError(t, err)

	// The owner has a linked chat so fired watches have a destination.
	_, err = db.Conn().Exec("UPDATE accounts SET telegram_chat_id = 1001 WHERE id = ?", owner.ID)
	require.NoError(t, err)

	cur, err := currencyRepo.Create("Dollar", "USD", "")
	require.NoError(t, err)

	p, err := portfolioRepo.Create(owner.ID, decimal.NewFromInt(100))
	require.NoError(t, err)

	transport := &captureTransport{}
	sched := scheduler.New(log)
	service := NewService(watchRepo, portfolioRepo, currencyRepo, accountRepo, sched, transport, nil, log)

	return &watchFixture{
		db:           db.Conn(),
		service:      service,
		currencyRepo: currencyRepo,
		transport:    transport,
		ownerID:      owner.ID,
		strangerID:   stranger.ID,
		portfolioID:  p.ID,
		currencyID:   cur.ID,
	}
}

func (f *watchFixture) triggerCount() int {
	f.service.mu.Lock()
	defer f.service.mu.Unlock()
	return len(f.service.entries)
}

func TestCreate_PersistsWatchAndTrigger(t *testing.T) {
	f := setupWatch(t)

	w, err := f.service.Create(f.ownerID, f.portfolioID, f.currencyID, "09:30")
	require.NoError(t, err)

	assert.Equal(t, "09:30", w.NotifyTime)
	assert.Equal(t, 1, f.triggerCount())

	watches, err := f.service.ListByPortfolio(f.ownerID, f.portfolioID)
	require.NoError(t, err)
	require.Len(t, watches, 1)
	assert.Equal(t, w.ID, watches[0].ID)
}

func TestCreate_Forbidden(t *testing.T) {
	f := setupWatch(t)

	_, err := f.service.Create(f.strangerID, f.portfolioID, f.currencyID, "09:30")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 0, f.triggerCount())
}

func TestCreate_UnknownCurrency(t *testing.T) {
	f := setupWatch(t)

	_, err := f.service.Create(f.ownerID, f.portfolioID, 9999, "09:30")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreate_InvalidNotifyTime(t *testing.T) {
	f := setupWatch(t)

	for _, bad := range []string{"", "9:3:0", "25:00", "12:61", "ab:cd"} {
		_, err := f.service.Create(f.ownerID, f.portfolioID, f.currencyID, bad)
		assert.ErrorIs(t, err, domain.ErrValidation, "notify time %q", bad)
	}
}

func TestDelete_RemovesWatchAndTrigger(t *testing.T) {
	f := setupWatch(t)

	w, err := f.service.Create(f.ownerID, f.portfolioID, f.currencyID, "09:30")
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(f.ownerID, w.ID))

	assert.Equal(t, 0, f.triggerCount())
	watches, err := f.service.ListByPortfolio(f.ownerID, f.portfolioID)
	require.NoError(t, err)
	assert.Empty(t, watches)
}

func TestDelete_Forbidden(t *testing.T) {
	f := setupWatch(t)

	w, err := f.service.Create(f.ownerID, f.portfolioID, f.currencyID, "09:30")
	require.NoError(t, err)

	err = f.service.Delete(f.strangerID, w.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 1, f.triggerCount())
}

func TestDelete_UnknownWatch(t *testing.T) {
	f := setupWatch(t)

	err := f.service.Delete(f.ownerID, "no-such-watch")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFire_SendsNotification(t *testing.T) {
	f := setupWatch(t)

	_, err := f.currencyRepo.InsertRate(f.currencyID, decimal.NewFromFloat(72.5), time.Now())
	require.NoError(t, err)

	w, err := f.service.Create(f.ownerID, f.portfolioID, f.currencyID, "09:30")
	require.NoError(t, err)

	require.NoError(t, f.service.fire(w.ID))

	require.Equal(t, 1, f.transport.count())
	assert.Equal(t, int64(1001), f.transport.chatIDs[0])
	assert.Contains(t, f.transport.messages[0], "USD")
	assert.Contains(t, f.transport.messages[0], "72.5")
}

func TestFire_DeletedWatchIsNoOp(t *testing.T) {
	f := setupWatch(t)

	_, err := f.currencyRepo.InsertRate(f.currencyID, decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)

	w, err := f.service.Create(f.ownerID, f.portfolioID, f.currencyID, "09:30")
	require.NoError(t, err)
	require.NoError(t, f.service.Delete(f.ownerID, w.ID))

	// A trigger already in flight when the watch was deleted.
	require.NoError(t, f.service.fire(w.ID))
	assert.Equal(t, 0, f.transport.count())
}

func TestFire_NoRateIsNoOp(t *testing.T) {
	f := setupWatch(t)

	w, err := f.service.Create(f.ownerID, f.portfolioID, f.currencyID, "09:30")
	require.NoError(t, err)

	require.NoError(t, f.service.fire(w.ID))
	assert.Equal(t, 0, f.transport.count())
}

func TestFire_UnlinkedAccountIsNoOp(t *testing.T) {
	f := setupWatch(t)

	_, err := f.db.Exec("UPDATE accounts SET telegram_chat_id = NULL WHERE id = ?", f.ownerID)
	require.NoError(t, err)

	_, err = f.currencyRepo.InsertRate(f.currencyID, decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)

	w, err := f.service.Create(f.ownerID, f.portfolioID, f.currencyID, "09:30")
	require.NoError(t, err)

	require.NoError(t, f.service.fire(w.ID))
	assert.Equal(t, 0, f.transport.count())
}

func TestRegisterAll_RestoresTriggers(t *testing.T) {
	f := setupWatch(t)

	_, err := f.service.Create(f.ownerID, f.portfolioID, f.currencyID, "09:30")
	require.NoError(t, err)
	_, err = f.service.Create(f.ownerID, f.portfolioID, f.currencyID, "18:00")
	require.NoError(t, err)

	// Simulate a restart: a fresh service over the same rows.
	log := zerolog.Nop()
	restarted := NewService(
		f.service.repo,
		f.service.portfolioRepo,
		f.service.currencyRepo,
		f.service.accountRepo,
		scheduler.New(log),
		f.transport,
		nil,
		log,
	)

	require.NoError(t, restarted.RegisterAll())

	restarted.mu.Lock()
	defer restarted.mu.Unlock()
	assert.Len(t, restarted.entries, 2)
}

func TestCronSpec(t *testing.T) {
	spec, err := cronSpec("09:30")
	require.NoError(t, err)
	assert.Equal(t, "0 30 9 * * *", spec)

	spec, err = cronSpec("00:00")
	require.NoError(t, err)
	assert.Equal(t, "0 0 0 * * *", spec)

	spec, err = cronSpec("23:59")
	require.NoError(t, err)
	assert.Equal(t, "0 59 23 * * *", spec)
}
