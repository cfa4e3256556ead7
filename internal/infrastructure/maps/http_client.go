package maps

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultQPS     = 10
)

// rateLimitedClient プロバイダ共通のHTTPクライアント。QPSを超える呼び出しは待たされる
type rateLimitedClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newRateLimitedClient(timeout time.Duration, qps float64) *rateLimitedClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if qps <= 0 {
		qps = DefaultQPS
	}
	return &rateLimitedClient{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(qps), max(1, int(math.Ceil(qps)))),
	}
}

func (c *rateLimitedClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("レート制限の待機に失敗: %w", err)
	}
	return c.httpClient.Do(req)
}

// parseLatLng "lat,lng" 形式なら座標として解釈する。住所文字列ならfalse
func parseLatLng(s string) (lat, lng float64, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

