package linking

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/account"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type linkFixture struct {
	service     *Service
	accountRepo *account.Repository
	clock       *fakeClock
	accountID   int64
	otherID     int64
}

func setupLinking(t *testing.T) *linkFixture {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	accountRepo := account.NewRepository(db.Conn(), log)
	repo := NewRepository(db.Conn(), log)

	clock := newFakeClock()
	service := NewService(db.Conn(), repo, accountRepo, nil, clock, 5*time.Minute, log)

	acct, err := accountRepo.Create("dave", "dave@example.com")
	require.NoError(t, err)
	other, err := accountRepo.Create("erin", "erin@example.com")
	require.NoError(t, err)

	return &linkFixture{
		service:     service,
		accountRepo: accountRepo,
		clock:       clock,
		accountID:   acct.ID,
		otherID:     other.ID,
	}
}

func TestRequestLink_IssuesURLSafeCode(t *testing.T) {
	f := setupLinking(t)

	code, _, err := f.service.RequestLink(f.accountID)
	require.NoError(t, err)

	// 24 bytes of entropy base64url-encoded without padding.
	assert.Len(t, code, 32)
	assert.NotContains(t, code, "+")
	assert.NotContains(t, code, "/")
	assert.NotContains(t, code, "=")
}

func TestRequestLink_UnknownAccount(t *testing.T) {
	f := setupLinking(t)

	_, _, err := f.service.RequestLink(9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequestLink_ReportsExpiry(t *testing.T) {
	f := setupLinking(t)

	_, expiresAt, err := f.service.RequestLink(f.accountID)
	require.NoError(t, err)

	assert.Equal(t, f.clock.Now().Add(5*time.Minute), expiresAt)
}

func TestRequestLink_CodesAreUnique(t *testing.T) {
	f := setupLinking(t)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		code, _, err := f.service.RequestLink(f.accountID)
		require.NoError(t, err)
		assert.False(t, seen[code])
		seen[code] = true
	}
}

func TestVerify_BindsChat(t *testing.T) {
	f := setupLinking(t)

	code, _, err := f.service.RequestLink(f.accountID)
	require.NoError(t, err)

	acct, err := f.service.Verify(code, 555)
	require.NoError(t, err)
	assert.Equal(t, f.accountID, acct.ID)

	stored, err := f.accountRepo.GetByID(f.accountID)
	require.NoError(t, err)
	require.NotNil(t, stored.TelegramChatID)
	assert.Equal(t, int64(555), *stored.TelegramChatID)
}

func TestVerify_CodeIsSingleUse(t *testing.T) {
	f := setupLinking(t)

	code, _, err := f.service.RequestLink(f.accountID)
	require.NoError(t, err)

	_, err = f.service.Verify(code, 555)
	require.NoError(t, err)

	_, err = f.service.Verify(code, 555)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerify_ExpiredCode(t *testing.T) {
	f := setupLinking(t)

	code, _, err := f.service.RequestLink(f.accountID)
	require.NoError(t, err)

	f.clock.Advance(5*time.Minute + time.Second)

	_, err = f.service.Verify(code, 555)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stored, err := f.accountRepo.GetByID(f.accountID)
	require.NoError(t, err)
	assert.Nil(t, stored.TelegramChatID)
}

func TestVerify_UnknownCode(t *testing.T) {
	f := setupLinking(t)

	_, err := f.service.Verify("nope", 555)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerify_ChatBoundElsewhereConflicts(t *testing.T) {
	f := setupLinking(t)

	code, _, err := f.service.RequestLink(f.accountID)
	require.NoError(t, err)
	_, err = f.service.Verify(code, 555)
	require.NoError(t, err)

	otherCode, _, err := f.service.RequestLink(f.otherID)
	require.NoError(t, err)

	_, err = f.service.Verify(otherCode, 555)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Neither account changed: the chat stays with the first account and
	// the second stays unlinked.
	first, err := f.accountRepo.GetByID(f.accountID)
	require.NoError(t, err)
	require.NotNil(t, first.TelegramChatID)
	assert.Equal(t, int64(555), *first.TelegramChatID)

	second, err := f.accountRepo.GetByID(f.otherID)
	require.NoError(t, err)
	assert.Nil(t, second.TelegramChatID)
}

func TestVerify_RelinkSameAccountIsIdempotent(t *testing.T) {
	f := setupLinking(t)

	code, _, err := f.service.RequestLink(f.accountID)
	require.NoError(t, err)
	_, err = f.service.Verify(code, 555)
	require.NoError(t, err)

	again, _, err := f.service.RequestLink(f.accountID)
	require.NoError(t, err)

	acct, err := f.service.Verify(again, 555)
	require.NoError(t, err)
	assert.Equal(t, f.accountID, acct.ID)
}

func TestPruneExpired(t *testing.T) {
	f := setupLinking(t)

	_, _, err := f.service.RequestLink(f.accountID)
	require.NoError(t, err)
	_, _, err = f.service.RequestLink(f.accountID)
	require.NoError(t, err)

	removed, err := f.service.PruneExpired()
	require.NoError(t, err)
	assert.EqualValues(t, 0, removed)

	f.clock.Advance(6 * time.Minute)

	removed, err = f.service.PruneExpired()
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
}
