package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapikart/shopify-mpwa/internal/models"
)

func newSession(phone, hash string, ttl time.Duration) *models.OtpSession {
	now := time.Now()
	return &models.OtpSession{
		Phone:     phone,
		OTPHash:   hash,
		Draft:     models.CheckoutDraft{Phone: phone, VariantID: "123", Quantity: "2"},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// contract runs the same checks against every backend.
func contract(t *testing.T, repo OtpSessionRepository) {
	ctx := context.Background()

	_, err := repo.Get(ctx, "9876543210")
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, repo.Put(ctx, newSession("9876543210", "first", time.Minute)))
	require.NoError(t, repo.Put(ctx, newSession("9876543210", "second", time.Minute)))

	got, err := repo.Get(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "second", got.OTPHash)
	assert.Equal(t, models.FlexString("123"), got.Draft.VariantID)

	require.NoError(t, repo.Remove(ctx, "9876543210"))
	_, err = repo.Get(ctx, "9876543210")
	require.ErrorIs(t, err, ErrSessionNotFound)

	// removing a missing session is fine
	require.NoError(t, repo.Remove(ctx, "9876543210"))
}

// lockContract checks that Lock excludes a second holder until released.
func lockContract(t *testing.T, first, second OtpSessionRepository) {
	ctx := context.Background()

	unlock, err := first.Lock(ctx, "9876543210")
	require.NoError(t, err)

	acquired := make(chan func(), 1)
	go func() {
		u, err := second.Lock(ctx, "9876543210")
		assert.NoError(t, err)
		acquired <- u
	}()

	select {
	case <-acquired:
		t.Fatal("second holder got the lock while the first still held it")
	case <-time.After(100 * time.Millisecond):
	}

	// other phones are independent
	other, err := second.Lock(ctx, "1111111111")
	require.NoError(t, err)
	other()

	unlock()
	select {
	case u := <-acquired:
		require.NotNil(t, u)
		u()
	case <-time.After(2 * time.Second):
		t.Fatal("lock was not handed over after release")
	}
}

func TestMemoryOtpSessionRepository(t *testing.T) {
	contract(t, NewMemoryOtpSessionRepository())
}

func TestMemoryOtpSessionRepository_Lock(t *testing.T) {
	repo := NewMemoryOtpSessionRepository()
	lockContract(t, repo, repo)
	assert.Equal(t, 0, repo.locks.size())
}

func TestMemoryOtpSessionRepository_Expiry(t *testing.T) {
	repo := NewMemoryOtpSessionRepository()
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, newSession("1", "h", time.Minute)))
	require.NoError(t, repo.Put(ctx, newSession("2", "h", time.Hour)))

	repo.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err := repo.Get(ctx, "1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = repo.Get(ctx, "2")
	assert.NoError(t, err)
}

func TestMemoryOtpSessionRepository_Sweep(t *testing.T) {
	repo := NewMemoryOtpSessionRepository()
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, newSession("1", "h", time.Minute)))
	require.NoError(t, repo.Put(ctx, newSession("2", "h", time.Hour)))

	removed := repo.Sweep(time.Now().Add(10 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryOtpSessionRepository_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryOtpSessionRepository()
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, newSession("1", "h", time.Minute)))

	s, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	s.Attempts = 42

	again, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Attempts)
}

func newMiniRedisRepo(t *testing.T) (*RedisOtpSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisOtpSessionRepositoryWithClient(client), mr
}

func TestRedisOtpSessionRepository(t *testing.T) {
	repo, _ := newMiniRedisRepo(t)
	contract(t, repo)
}

func TestRedisOtpSessionRepository_LockAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newInstance := func() *RedisOtpSessionRepository {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisOtpSessionRepositoryWithClient(client)
	}
	lockContract(t, newInstance(), newInstance())
	assert.False(t, mr.Exists(redisLockPrefix+"9876543210"), "claim deleted on release")
}

func TestRedisOtpSessionRepository_LockClaim(t *testing.T) {
	repo, mr := newMiniRedisRepo(t)
	repo.SetLockTTL(10 * time.Second)

	unlock, err := repo.Lock(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.True(t, mr.Exists("cod:otp:lock:9876543210"))
	assert.Equal(t, 10*time.Second, mr.TTL("cod:otp:lock:9876543210"))
	unlock()
	assert.False(t, mr.Exists("cod:otp:lock:9876543210"))
}

func TestRedisOtpSessionRepository_LockBusy(t *testing.T) {
	repo, _ := newMiniRedisRepo(t)
	repo.SetLockTTL(100 * time.Millisecond)

	unlock, err := repo.Lock(context.Background(), "9876543210")
	require.NoError(t, err)
	defer unlock()

	// miniredis only expires keys on FastForward, so the claim stays taken
	_, err = repo.Lock(context.Background(), "9876543210")
	assert.ErrorIs(t, err, ErrSessionLocked)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.Lock(ctx, "9876543210")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisOtpSessionRepository_StaleUnlockKeepsNewClaim(t *testing.T) {
	repo, mr := newMiniRedisRepo(t)
	repo.SetLockTTL(time.Second)

	stale, err := repo.Lock(context.Background(), "9876543210")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := repo.Lock(context.Background(), "9876543210")
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists(redisLockPrefix+"9876543210"), "expired holder must not release a newer claim")
	fresh()
	assert.False(t, mr.Exists(redisLockPrefix+"9876543210"))
}

func TestRedisOtpSessionRepository_TTL(t *testing.T) {
	repo, mr := newMiniRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, newSession("9876543210", "h", 10*time.Minute)))
	assert.True(t, mr.Exists(sessionKey("9876543210")))

	ttl := mr.TTL(sessionKey("9876543210"))
	assert.Greater(t, ttl, 9*time.Minute)

	mr.FastForward(11 * time.Minute)
	_, err := repo.Get(ctx, "9876543210")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisOtpSessionRepository_Unavailable(t *testing.T) {
	repo, mr := newMiniRedisRepo(t)
	mr.Close()

	_, err := repo.Get(context.Background(), "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}
