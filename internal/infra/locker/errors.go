package locker

import "errors"

var (
	// ErrLockNotAcquired возвращается, когда блокировку не удалось взять за время ожидания
	ErrLockNotAcquired = errors.New("locker: lock not acquired")

	// ErrRedis возвращается при ошибке обращения к Redis
	ErrRedis = errors.New("locker: redis error")

	// ErrNotOwner возвращается при попытке снять чужую или истёкшую блокировку
	ErrNotOwner = errors.New("locker: lock not owned by this client")
)
