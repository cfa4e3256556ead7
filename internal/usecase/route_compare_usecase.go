package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
	"SafeRoute-App/internal/domain/service"
	"SafeRoute-App/internal/infrastructure/metrics"
)

type RouteCompareUseCase interface {
	// CompareRoutes はルート候補を取得し、安全スコアで順位付けとタグ付けを行う
	CompareRoutes(ctx context.Context, req *model.CompareRoutesRequest) (*model.CompareRoutesResponse, error)
}

// routeCompareUseCaseImpl はRouteCompareUseCaseの実装
type routeCompareUseCaseImpl struct {
	provider   repository.RouteProvider
	normalizer service.RouteNormalizer
	scorer     service.RouteScorer
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewRouteCompareUseCase(
	provider repository.RouteProvider,
	normalizer service.RouteNormalizer,
	scorer service.RouteScorer,
	m *metrics.Metrics,
	logger *zap.Logger,
) RouteCompareUseCase {
	return &routeCompareUseCaseImpl{
		provider:   provider,
		normalizer: normalizer,
		scorer:     scorer,
		metrics:    m,
		logger:     logger,
	}
}

func (u *routeCompareUseCaseImpl) CompareRoutes(ctx context.Context, req *model.CompareRoutesRequest) (*model.CompareRoutesResponse, error) {
	start := time.Now()
	defer func() { u.metrics.ObserveCompare(time.Since(start)) }()

	if err := validateCompareRequest(req); err != nil {
		return nil, err
	}

	u.logger.Info("🚀 ルート比較開始",
		zap.String("origin", req.Origin), zap.String("destination", req.Destination), zap.String("provider", u.provider.Name()))

	// Step 1: ルート候補を取得
	raws, err := u.provider.FetchRoutes(ctx, req.Origin, req.Destination, req.TravelMode)
	if err != nil {
		var providerErr *model.ProviderError
		if !errors.As(err, &providerErr) {
			err = &model.ProviderError{Provider: u.provider.Name(), Err: err}
		}
		return nil, err
	}

	routes := u.normalizer.Normalize(raws)
	if len(routes) == 0 {
		return nil, &model.NotFoundError{Resource: "routes", Message: "指定された出発地・目的地のルートが見つかりません"}
	}

	// Step 2: 通過セルを求めてスコアリング
	u.scorer.AssignCells(routes)
	summary, err := u.scorer.ScoreRoutes(ctx, routes)
	if err != nil {
		return nil, fmt.Errorf("ルートのスコア計算に失敗: %w", err)
	}
	u.metrics.AddRoutesScored(len(routes))
	u.metrics.AddCellsCreated(summary.CellsCreated)

	// Step 3: 入力順でタグ付けしてから順位付け
	service.TagRoutes(routes)
	ranked := service.RankRoutes(routes)

	u.logger.Info("✅ ルート比較完了",
		zap.Int("routes", len(ranked)), zap.Int("cells_total", summary.CellsTotal), zap.Int("cells_created", summary.CellsCreated))

	if req.Single {
		return &model.CompareRoutesResponse{Route: service.SelectRoute(ranked, req.Prefer), Summary: summary}, nil
	}
	return &model.CompareRoutesResponse{Routes: ranked, Summary: summary}, nil
}

// validateCompareRequest 外部に問い合わせる前の入力チェック
func validateCompareRequest(req *model.CompareRoutesRequest) error {
	req.Origin = strings.TrimSpace(req.Origin)
	req.Destination = strings.TrimSpace(req.Destination)

	if req.Origin == "" {
		return &model.InputError{Field: "origin", Message: "出発地は必須です"}
	}
	if req.Destination == "" {
		return &model.InputError{Field: "destination", Message: "目的地は必須です"}
	}
	if req.Prefer != "" && !model.IsValidPreference(req.Prefer) {
		return &model.InputError{Field: "prefer", Message: "preferは'safest'、'fastest'、'shortest'のいずれかを指定してください"}
	}
	for _, s := range []string{req.Origin, req.Destination} {
		if ll, ok := parseCoordinate(s); ok && !ll.IsValid() {
			return &model.RangeError{Lat: ll.Lat, Lng: ll.Lng}
		}
	}
	return nil
}

// parseCoordinate "lat,lng" 形式なら座標として解釈する
func parseCoordinate(s string) (model.LatLng, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.LatLng{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.LatLng{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.LatLng{}, false
	}
	return model.LatLng{Lat: lat, Lng: lng}, true
}
