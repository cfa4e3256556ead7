package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"SafeRoute-App/internal/domain/repository"
)

const requestIDHeader = "X-Request-ID"

// RequestID リクエストごとにidを振る（クライアント指定があればそれを使う）
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// ZapLogger アクセスログをzapで出力する
func ZapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

// Cooldown クライアントIPごとにttlの間は同じエンドポイントを再実行させない
func Cooldown(repo repository.CooldownRepository, scope string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := repo.Acquire(c.Request.Context(), scope+":"+c.ClientIP(), ttl)
		if err != nil {
			// クールダウンストアの障害では処理を止めない
			zap.L().Warn("⚠️ クールダウンの確認に失敗", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			c.Header("Retry-After", retryAfterSeconds(ttl))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "リクエストが多すぎます",
				"details": "しばらく時間をおいてから再実行してください",
			})
			return
		}
		c.Next()
	}
}

func retryAfterSeconds(ttl time.Duration) string {
	secs := int(ttl.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
