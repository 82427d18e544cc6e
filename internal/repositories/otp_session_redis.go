package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zapikart/shopify-mpwa/internal/models"
)

const (
	redisSessionPrefix = "cod:otp:"
	redisLockPrefix    = "cod:otp:lock:"

	defaultLockTTL   = 30 * time.Second
	lockPollInterval = 25 * time.Millisecond
)

// ErrSessionLocked means another holder kept the phone's claim past the wait budget.
var ErrSessionLocked = errors.New("otp session is locked")

// redisUnlockScript deletes the claim only if it still carries our token,
// so an expired claim re-taken by another instance is never released by us.
var redisUnlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOtpSessionRepository shares sessions between instances; expiry is the key TTL.
type RedisOtpSessionRepository struct {
	client  redis.UniversalClient
	now     func() time.Time
	lockTTL time.Duration
}

func NewRedisOtpSessionRepository(addr, password string, db int) *RedisOtpSessionRepository {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisOtpSessionRepositoryWithClient(rdb)
}

func NewRedisOtpSessionRepositoryWithClient(client redis.UniversalClient) *RedisOtpSessionRepository {
	return &RedisOtpSessionRepository{client: client, now: time.Now, lockTTL: defaultLockTTL}
}

// SetLockTTL bounds how long a claim outlives a crashed holder. It must
// exceed the slowest commerce call made while the claim is held.
func (r *RedisOtpSessionRepository) SetLockTTL(ttl time.Duration) {
	if ttl > 0 {
		r.lockTTL = ttl
	}
}

func sessionKey(phone string) string {
	return redisSessionPrefix + phone
}

func (r *RedisOtpSessionRepository) Put(ctx context.Context, s *models.OtpSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode otp session: %w", err)
	}
	ttl := s.TTL(r.now())
	if !s.ExpiresAt.IsZero() && ttl <= 0 {
		// already expired: nothing to keep
		return r.Remove(ctx, s.Phone)
	}
	if err := r.client.Set(ctx, sessionKey(s.Phone), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set otp session: %w", err)
	}
	return nil
}

func (r *RedisOtpSessionRepository) Get(ctx context.Context, phone string) (*models.OtpSession, error) {
	data, err := r.client.Get(ctx, sessionKey(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get otp session: %w", err)
	}
	var s models.OtpSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode otp session: %w", err)
	}
	if s.Expired(r.now()) {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *RedisOtpSessionRepository) Remove(ctx context.Context, phone string) error {
	if err := r.client.Del(ctx, sessionKey(phone)).Err(); err != nil {
		return fmt.Errorf("redis del otp session: %w", err)
	}
	return nil
}

// Lock takes the claim cod:otp:lock:<phone> with SET NX PX, polling until it is
// free, ctx ends, or one lock TTL has passed.
func (r *RedisOtpSessionRepository) Lock(ctx context.Context, phone string) (func(), error) {
	key := redisLockPrefix + phone
	token := uuid.NewString()
	deadline := time.Now().Add(r.lockTTL)

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock otp session: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrSessionLocked
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("redis lock otp session: %w", ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}

	return func() {
		// release even if the request that took the claim is gone
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := redisUnlockScript.Run(relCtx, r.client, []string{key}, token).Err(); err != nil {
			slog.Warn("[redis][lock] release failed", "phone", phone, "error", err)
		}
	}, nil
}

func (r *RedisOtpSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisOtpSessionRepository) Close() error {
	return r.client.Close()
}
