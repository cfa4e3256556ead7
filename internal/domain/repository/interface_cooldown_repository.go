package repository

import (
	"context"
	"time"
)

// CooldownRepository TTL付きのキーで連続実行を抑止する
type CooldownRepository interface {
	// Acquire 有効なエントリがなければttl付きで登録してtrueを返す
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
