package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/brightclass/brightclass-backend/internal/pkg/logger"
	"github.com/brightclass/brightclass-backend/internal/platform/apierr"
)

const (
	lockKeyPrefix  = "genlock:"
	quotaKeyPrefix = "genquota:"

	// Old day buckets are garbage-collected by TTL; 48h comfortably covers
	// the day rollover in every timezone the portal serves.
	quotaBucketTTL = 48 * time.Hour
)

// QuotaSnapshot is the per-caller usage view returned with every generation
// response and with quota-exceeded failures.
type QuotaSnapshot struct {
	Used       int64  `json:"used"`
	Remaining  int64  `json:"remaining"`
	DailyLimit int64  `json:"daily_limit"`
	Day        string `json:"day"`
}

// QuotaStore is the external atomic counter/lock store. The orchestrator
// never read-then-writes against it; every mutation is a single atomic call.
type QuotaStore interface {
	TryAcquireLock(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, holder string) error
	GetCount(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Decrement(ctx context.Context, key string) error
}

// ---------- redis-backed store ----------

type redisQuotaStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisQuotaStore(log *logger.Logger) (QuotaStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisQuotaStore{log: log.With("service", "RedisQuotaStore"), rdb: rdb}, nil
}

func (s *redisQuotaStore) TryAcquireLock(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, holder, ttl).Result()
}

// Compare-and-del so a crashed holder's expired lock is never released out
// from under the next holder.
var releaseLockScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (s *redisQuotaStore) ReleaseLock(ctx context.Context, key, holder string) error {
	return releaseLockScript.Run(ctx, s.rdb, []string{key}, holder).Err()
}

func (s *redisQuotaStore) GetCount(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.Get(ctx, key).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *redisQuotaStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 && ttl > 0 {
		if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			s.log.Warn("Failed to set quota bucket TTL", "key", key, "error", err)
		}
	}
	return n, nil
}

func (s *redisQuotaStore) Decrement(ctx context.Context, key string) error {
	return s.rdb.Decr(ctx, key).Err()
}

// ---------- controller ----------

// QuotaService enforces the per-caller daily allowance and the single-flight
// generation lock.
type QuotaService interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (QuotaSnapshot, error)
	// WithQuotaAndLock runs fn under the caller's generation lock. Quota is
	// consumed only when fn succeeds; the lock is released on every path.
	// The returned snapshot is valid for quota-exceeded failures too.
	WithQuotaAndLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) (QuotaSnapshot, error)
}

type quotaService struct {
	log        *logger.Logger
	store      QuotaStore
	dailyLimit int64
	lockTTL    time.Duration
	now        func() time.Time
}

func NewQuotaService(log *logger.Logger, store QuotaStore, dailyLimit int, lockTTL time.Duration) QuotaService {
	if dailyLimit <= 0 {
		dailyLimit = 10
	}
	if lockTTL <= 0 {
		lockTTL = 60 * time.Second
	}
	return &quotaService{
		log:        log.With("service", "QuotaService"),
		store:      store,
		dailyLimit: int64(dailyLimit),
		lockTTL:    lockTTL,
		now:        time.Now,
	}
}

func dayBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (s *quotaService) quotaKey(userID uuid.UUID, day string) string {
	return quotaKeyPrefix + userID.String() + ":" + day
}

func (s *quotaService) lockKey(userID uuid.UUID) string {
	return lockKeyPrefix + userID.String()
}

func (s *quotaService) snapshot(used int64, day string) QuotaSnapshot {
	remaining := s.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return QuotaSnapshot{Used: used, Remaining: remaining, DailyLimit: s.dailyLimit, Day: day}
}

func (s *quotaService) Snapshot(ctx context.Context, userID uuid.UUID) (QuotaSnapshot, error) {
	day := dayBucket(s.now())
	used, err := s.store.GetCount(ctx, s.quotaKey(userID, day))
	if err != nil {
		return QuotaSnapshot{}, apierr.Upstream(fmt.Errorf("quota lookup: %w", err))
	}
	return s.snapshot(used, day), nil
}

func (s *quotaService) WithQuotaAndLock(ctx context.Context, userID uuid.UUID, fn func(ctx context.Context) error) (QuotaSnapshot, error) {
	day := dayBucket(s.now())
	lockKey := s.lockKey(userID)
	holder := uuid.NewString()

	acquired, err := s.store.TryAcquireLock(ctx, lockKey, holder, s.lockTTL)
	if err != nil {
		return QuotaSnapshot{}, apierr.Upstream(fmt.Errorf("acquire generation lock: %w", err))
	}
	if !acquired {
		return QuotaSnapshot{}, apierr.LockHeld(fmt.Errorf("a generation for this user is already in progress"))
	}
	defer func() {
		// Release on every exit path; the TTL covers a crashed process.
		if relErr := s.store.ReleaseLock(context.WithoutCancel(ctx), lockKey, holder); relErr != nil {
			s.log.Warn("Failed to release generation lock", "key", lockKey, "error", relErr)
		}
	}()

	quotaKey := s.quotaKey(userID, day)
	used, err := s.store.GetCount(ctx, quotaKey)
	if err != nil {
		return QuotaSnapshot{}, apierr.Upstream(fmt.Errorf("quota lookup: %w", err))
	}
	if used >= s.dailyLimit {
		// Rejected before any upstream call is made.
		return s.snapshot(used, day), apierr.QuotaExceeded(fmt.Errorf("daily generation limit of %d reached", s.dailyLimit))
	}

	if err := fn(ctx); err != nil {
		// A failed generation must not consume the caller's allowance.
		return s.snapshot(used, day), err
	}

	newCount, err := s.store.Increment(ctx, quotaKey, quotaBucketTTL)
	if err != nil {
		return s.snapshot(used, day), apierr.Upstream(fmt.Errorf("consume quota: %w", err))
	}
	if newCount > s.dailyLimit {
		// Raced by a concurrent consumer on a different lock key; undo.
		if decErr := s.store.Decrement(ctx, quotaKey); decErr != nil {
			s.log.Warn("Failed to roll back over-limit quota increment", "key", quotaKey, "error", decErr)
		}
		return s.snapshot(s.dailyLimit, day), apierr.QuotaExceeded(fmt.Errorf("daily generation limit of %d reached", s.dailyLimit))
	}

	return s.snapshot(newCount, day), nil
}
