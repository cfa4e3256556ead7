package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
)

const directionsBaseURL = "https://maps.googleapis.com/maps/api/directions/json"

// GoogleDirectionsProvider はGoogle Maps Directions APIを使用した経路検索の実装
type GoogleDirectionsProvider struct {
	apiKey  string
	baseURL string
	client  *rateLimitedClient
}

// NewGoogleDirectionsProvider は新しいプロバイダを生成する
func NewGoogleDirectionsProvider(apiKey string, timeout time.Duration, qps float64) *GoogleDirectionsProvider {
	return &GoogleDirectionsProvider{
		apiKey:  apiKey,
		baseURL: directionsBaseURL,
		client:  newRateLimitedClient(timeout, qps),
	}
}

var _ repository.RouteProvider = (*GoogleDirectionsProvider)(nil)

func (g *GoogleDirectionsProvider) Name() string {
	return "google_directions"
}

// FetchRoutes 代替ルートを含むルート候補を加工せずに返す。ZERO_RESULTSは0件として扱う
func (g *GoogleDirectionsProvider) FetchRoutes(ctx context.Context, origin, destination, travelMode string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.buildURL(origin, destination, travelMode), nil)
	if err != nil {
		return nil, g.wrap(fmt.Errorf("リクエストの作成に失敗: %w", err))
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, g.wrap(fmt.Errorf("APIリクエストに失敗: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, g.wrap(fmt.Errorf("APIからエラーステータスが返されました: %s", resp.Status))
	}

	var apiResp googleRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, g.wrap(fmt.Errorf("JSONのパースに失敗: %w", err))
	}

	switch apiResp.Status {
	case "OK":
		return apiResp.Routes, nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return []json.RawMessage{}, nil
	default:
		return nil, g.wrap(fmt.Errorf("APIがエラーを返しました: %s %s", apiResp.Status, apiResp.ErrorMessage))
	}
}

func (g *GoogleDirectionsProvider) buildURL(origin, destination, travelMode string) string {
	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	params.Set("mode", directionsMode(travelMode))
	params.Set("alternatives", "true")
	params.Set("language", "ja")
	params.Set("key", g.apiKey)

	return fmt.Sprintf("%s?%s", g.baseURL, params.Encode())
}

func (g *GoogleDirectionsProvider) wrap(err error) error {
	return &model.ProviderError{Provider: g.Name(), Err: err}
}

func directionsMode(travelMode string) string {
	switch travelMode {
	case "driving", "bicycling", "transit":
		return travelMode
	default:
		return "walking"
	}
}

// --- Google Maps APIのレスポンスをパースするための構造体 ---

type googleRouteResponse struct {
	Routes       []json.RawMessage `json:"routes"`
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
}
