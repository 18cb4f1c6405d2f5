package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// unlockScript удаляет ключ, только если значение совпадает с токеном владельца
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Config параметры блокировки
type Config struct {
	TTL           time.Duration
	WaitTimeout   time.Duration
	RetryInterval time.Duration
}

// RedisLocker распределённая блокировка на SET NX с уникальным токеном владельца
type RedisLocker struct {
	client RedisClient
	cfg    Config
	logger Logger
}

// NewRedisLocker создает локер поверх Redis
func NewRedisLocker(client RedisClient, cfg Config, logger Logger) *RedisLocker {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 50 * time.Millisecond
	}
	return &RedisLocker{client: client, cfg: cfg, logger: logger}
}

// Lock пытается взять блокировку key, повторяя попытки до WaitTimeout.
// Возвращает токен, который нужно передать в Unlock.
func (l *RedisLocker) Lock(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.WaitTimeout)

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			l.logger.Error("Lock: SETNX failed for key=%s: %v", key, err)
			return "", fmt.Errorf("%w: Lock - setnx: %v", ErrRedis, err)
		}
		if acquired {
			return token, nil
		}

		if !time.Now().Add(l.cfg.RetryInterval).Before(deadline) {
			l.logger.Warn("Lock: key=%s is busy, gave up after %s", key, l.cfg.WaitTimeout)
			return "", fmt.Errorf("%w: %s", ErrLockNotAcquired, key)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %s: %v", ErrLockNotAcquired, key, ctx.Err())
		case <-time.After(l.cfg.RetryInterval):
		}
	}
}

// Unlock снимает блокировку, если она всё ещё принадлежит token
func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	deleted, err := l.client.Eval(ctx, unlockScript, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("%w: Unlock - eval: %v", ErrRedis, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrNotOwner, key)
	}
	return nil
}

// NoopLocker используется, когда блокировка отключена в конфигурации
type NoopLocker struct{}

// Lock всегда успешен
func (NoopLocker) Lock(context.Context, string) (string, error) { return "", nil }

// Unlock ничего не делает
func (NoopLocker) Unlock(context.Context, string, string) error { return nil }

// BookingKey ключ блокировки расписания врача на дату
func BookingKey(providerID int64, date time.Time) string {
	return fmt.Sprintf("booking:%d:%s", providerID, date.Format("2006-01-02"))
}
