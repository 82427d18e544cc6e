package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zapikart/shopify-mpwa/internal/models"
	"github.com/zapikart/shopify-mpwa/internal/repositories"
)

func newRedisStore(t *testing.T) (*repositories.RedisOtpSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return repositories.NewRedisOtpSessionRepositoryWithClient(client), mr
}

func TestCheckout_ClientGoneDuringOrderStillConsumesSession(t *testing.T) {
	store, mr := newRedisStore(t)
	f := newCheckoutFixture(t)
	f.svc.sessions = store

	require.NoError(t, f.svc.Start(context.Background(), validDraft()))
	otp := f.sender.lastOTP(t)

	// the storefront disconnects while the order is being created
	ctx, cancel := context.WithCancel(context.Background())
	f.commerce.onCreate = cancel
	_, err := f.svc.Verify(ctx, "9876543210", otp)
	require.NoError(t, err)
	f.commerce.onCreate = nil
	f.settle()

	assert.False(t, mr.Exists("cod:otp:9876543210"), "session removed despite cancelled request")
	assert.False(t, mr.Exists("cod:otp:lock:9876543210"), "claim released")

	_, err = f.svc.Verify(context.Background(), "9876543210", otp)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 1, f.commerce.callCount())
}

// cancelAfterGet simulates the caller disconnecting right after the session is read.
type cancelAfterGet struct {
	repositories.OtpSessionRepository
	cancel context.CancelFunc
}

func (c cancelAfterGet) Get(ctx context.Context, phone string) (*models.OtpSession, error) {
	sess, err := c.OtpSessionRepository.Get(ctx, phone)
	c.cancel()
	return sess, err
}

func TestCheckout_ClientGoneDuringWrongOTPStillCountsAttempt(t *testing.T) {
	store, _ := newRedisStore(t)
	f := newCheckoutFixture(t)
	f.svc.sessions = store
	require.NoError(t, f.svc.Start(context.Background(), validDraft()))

	ctx, cancel := context.WithCancel(context.Background())
	f.svc.sessions = cancelAfterGet{OtpSessionRepository: store, cancel: cancel}
	_, err := f.svc.Verify(ctx, "9876543210", "bad")
	require.ErrorIs(t, err, ErrInvalidOTP)

	sess, err := store.Get(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Attempts)
}

// Two service instances behind a load balancer share one Redis store.
func TestCheckout_ConcurrentVerifyAcrossInstancesCreatesOneOrder(t *testing.T) {
	store, _ := newRedisStore(t)
	f := newCheckoutFixture(t)
	f.svc.sessions = store

	other := NewCheckoutService(
		store,
		NewOrderBuilder(""),
		f.commerce,
		f.notifier,
		nil,
		nil,
		CheckoutOptions{BcryptCost: bcrypt.MinCost},
	)

	require.NoError(t, f.svc.Start(context.Background(), validDraft()))
	otp := f.sender.lastOTP(t)

	const n = 6
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		okCnt  int
		expCnt int
	)
	for i := 0; i < n; i++ {
		svc := f.svc
		if i%2 == 1 {
			svc = other
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Verify(context.Background(), "9876543210", otp)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okCnt++
			case errors.Is(err, ErrSessionExpired):
				expCnt++
			}
		}()
	}
	wg.Wait()
	f.settle()
	other.Wait()

	assert.Equal(t, 1, okCnt)
	assert.Equal(t, n-1, expCnt)
	assert.Equal(t, 1, f.commerce.callCount())
}

func TestCheckout_AttemptsAcrossInstancesAreNotLost(t *testing.T) {
	store, _ := newRedisStore(t)
	f := newCheckoutFixture(t)
	newInstance := func() *CheckoutService {
		return NewCheckoutService(store, NewOrderBuilder(""), f.commerce, f.notifier, nil, nil,
			CheckoutOptions{BcryptCost: bcrypt.MinCost, MaxAttempts: 100})
	}
	a, b := newInstance(), newInstance()

	require.NoError(t, a.Start(context.Background(), validDraft()))

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		svc := a
		if i%2 == 1 {
			svc = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Verify(context.Background(), "9876543210", "bad")
			assert.ErrorIs(t, err, ErrInvalidOTP)
		}()
	}
	wg.Wait()

	sess, err := store.Get(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, n, sess.Attempts)
	assert.Zero(t, f.commerce.callCount())
}
