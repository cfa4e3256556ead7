package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient go-redisクライアントのラッパー
type RedisClient struct {
	rdb *goredis.Client
}

// NewRedisClient 接続してPINGが通ることを確認する
func NewRedisClient(ctx context.Context, addr, password string, db int) (*RedisClient, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis.addrが設定されていません")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("Redisへの接続に失敗: %w", err)
	}
	zap.L().Info("✅ Redisクライアント初期化完了", zap.String("addr", addr), zap.Int("db", db))
	return &RedisClient{rdb: rdb}, nil
}

func (c *RedisClient) GetClient() *goredis.Client {
	return c.rdb
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
