package repository

import (
	"context"
	"sync"
	"time"

	"SafeRoute-App/internal/domain/repository"
)

// MemoryCooldownRepository 単一プロセス用。期限切れのエントリはAcquire時に上書きする
type MemoryCooldownRepository struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryCooldownRepository() *MemoryCooldownRepository {
	return &MemoryCooldownRepository{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

var _ repository.CooldownRepository = (*MemoryCooldownRepository)(nil)

func (r *MemoryCooldownRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, errInvalidCooldownTTL
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if expiresAt, ok := r.entries[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	r.entries[key] = now.Add(ttl)

	for k, expiresAt := range r.entries {
		if !now.Before(expiresAt) {
			delete(r.entries, k)
		}
	}
	return true, nil
}
