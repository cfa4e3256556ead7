package repository

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"SafeRoute-App/internal/domain/repository"
)

const cooldownKeyPrefix = "saferoute:cooldown:"

// RedisCooldownRepository SET NX + TTL で複数インスタンス間のクールダウンを共有する
type RedisCooldownRepository struct {
	rdb *goredis.Client
}

func NewRedisCooldownRepository(rdb *goredis.Client) repository.CooldownRepository {
	return &RedisCooldownRepository{rdb: rdb}
}

func (r *RedisCooldownRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// TTL 0 のSETNXは期限なしのキーになるため受け付けない
	if ttl <= 0 {
		return false, errInvalidCooldownTTL
	}
	ok, err := r.rdb.SetNX(ctx, cooldownKeyPrefix+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("クールダウンの登録に失敗: %w", err)
	}
	return ok, nil
}
