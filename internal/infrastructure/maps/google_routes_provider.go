package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
)

const (
	routesBaseURL   = "https://routes.googleapis.com/directions/v2:computeRoutes"
	routesFieldMask = "routes.polyline.encodedPolyline,routes.distanceMeters,routes.duration,routes.localizedValues"
)

// GoogleRoutesProvider はGoogle Routes API (v2) の computeRoutes を使用した経路検索の実装
type GoogleRoutesProvider struct {
	apiKey  string
	baseURL string
	client  *rateLimitedClient
}

func NewGoogleRoutesProvider(apiKey string, timeout time.Duration, qps float64) *GoogleRoutesProvider {
	return &GoogleRoutesProvider{
		apiKey:  apiKey,
		baseURL: routesBaseURL,
		client:  newRateLimitedClient(timeout, qps),
	}
}

var _ repository.RouteProvider = (*GoogleRoutesProvider)(nil)

func (g *GoogleRoutesProvider) Name() string {
	return "google_routes"
}

type routesLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type routesWaypoint struct {
	Address  string `json:"address,omitempty"`
	Location *struct {
		LatLng routesLatLng `json:"latLng"`
	} `json:"location,omitempty"`
}

type computeRoutesRequest struct {
	Origin                   routesWaypoint `json:"origin"`
	Destination              routesWaypoint `json:"destination"`
	TravelMode               string         `json:"travelMode"`
	ComputeAlternativeRoutes bool           `json:"computeAlternativeRoutes"`
	LanguageCode             string         `json:"languageCode"`
}

type computeRoutesResponse struct {
	Routes []json.RawMessage `json:"routes"`
}

func (g *GoogleRoutesProvider) FetchRoutes(ctx context.Context, origin, destination, travelMode string) ([]json.RawMessage, error) {
	body, err := json.Marshal(computeRoutesRequest{
		Origin:                   toWaypoint(origin),
		Destination:              toWaypoint(destination),
		TravelMode:               routesTravelMode(travelMode),
		ComputeAlternativeRoutes: true,
		LanguageCode:             "ja",
	})
	if err != nil {
		return nil, g.wrap(fmt.Errorf("リクエストの作成に失敗: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, g.wrap(fmt.Errorf("リクエストの作成に失敗: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)
	req.Header.Set("X-Goog-FieldMask", routesFieldMask)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, g.wrap(fmt.Errorf("APIリクエストに失敗: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, g.wrap(fmt.Errorf("APIからエラーステータスが返されました: %s %s", resp.Status, bytes.TrimSpace(msg)))
	}

	var apiResp computeRoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, g.wrap(fmt.Errorf("JSONのパースに失敗: %w", err))
	}
	if apiResp.Routes == nil {
		return []json.RawMessage{}, nil
	}
	return apiResp.Routes, nil
}

func (g *GoogleRoutesProvider) wrap(err error) error {
	return &model.ProviderError{Provider: g.Name(), Err: err}
}

func toWaypoint(s string) routesWaypoint {
	lat, lng, ok := parseLatLng(s)
	if !ok {
		return routesWaypoint{Address: s}
	}
	wp := routesWaypoint{Location: &struct {
		LatLng routesLatLng `json:"latLng"`
	}{}}
	wp.Location.LatLng = routesLatLng{Latitude: lat, Longitude: lng}
	return wp
}

func routesTravelMode(travelMode string) string {
	switch travelMode {
	case "driving":
		return "DRIVE"
	case "bicycling":
		return "BICYCLE"
	case "transit":
		return "TRANSIT"
	default:
		return "WALK"
	}
}
