package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"SafeRoute-App/internal/domain/helper"
	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
)

// 色区分のしきい値
const (
	GreenThreshold  = 7.5
	YellowThreshold = 5.0
)

// RouteScorer はルートが通過するセルの安全スコアからルートのスコアを求める
type RouteScorer interface {
	// AssignCells ポリラインをデコードして通過セルを割り当てる。デコードできないルートはセル0件のまま
	AssignCells(routes []*model.CandidateRoute)
	// ScoreRoutes 未作成のセルを作成し、各ルートにスコアと色を設定する
	ScoreRoutes(ctx context.Context, routes []*model.CandidateRoute) (model.ScoreSummary, error)
}

type routeScorer struct {
	cellsRepo  repository.CellsRepository
	maxSamples int
	logger     *zap.Logger
}

func NewRouteScorer(cellsRepo repository.CellsRepository, maxSamples int, logger *zap.Logger) RouteScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &routeScorer{
		cellsRepo:  cellsRepo,
		maxSamples: maxSamples,
		logger:     logger,
	}
}

func (s *routeScorer) AssignCells(routes []*model.CandidateRoute) {
	for _, route := range routes {
		points, err := helper.DecodePolyline(route.Polyline)
		if err != nil {
			s.logger.Warn("⚠️  ポリラインをデコードできないためスコアなしで扱います",
				zap.String("route_id", route.ID), zap.Error(err))
		}
		route.Points = points
		route.CellIDs = helper.CellsForPoints(helper.SamplePoints(points, s.maxSamples))
		route.CellsCount = len(route.CellIDs)
	}
}

func (s *routeScorer) ScoreRoutes(ctx context.Context, routes []*model.CandidateRoute) (model.ScoreSummary, error) {
	union := unionCellIDs(routes)
	summary := model.ScoreSummary{CellsTotal: len(union)}

	if len(union) > 0 {
		existing, err := s.cellsRepo.BatchGet(ctx, union)
		if err != nil {
			return summary, fmt.Errorf("セルの取得に失敗: %w", err)
		}

		var missing []string
		for _, id := range union {
			if _, ok := existing[id]; !ok {
				missing = append(missing, id)
			}
		}

		cells := existing
		if len(missing) > 0 {
			created, err := s.cellsRepo.InsertIfAbsent(ctx, missing, helper.DefaultFactors())
			if err != nil {
				return summary, fmt.Errorf("セルの作成に失敗: %w", err)
			}
			summary.CellsCreated = created
			s.logger.Info("🆕 未作成セルを作成", zap.Int("missing", len(missing)), zap.Int("created", created))

			// 並行リクエストが先に作成した値も拾うため読み直す
			cells, err = s.cellsRepo.BatchGet(ctx, union)
			if err != nil {
				return summary, fmt.Errorf("セルの再取得に失敗: %w", err)
			}
		}

		for _, route := range routes {
			route.SafetyScore = routeScore(route.CellIDs, cells)
		}
	} else {
		for _, route := range routes {
			route.SafetyScore = model.NoData()
		}
	}

	for _, route := range routes {
		route.Color = ColorForScore(route.SafetyScore)
	}
	return summary, nil
}

// unionCellIDs 全ルートのセルidを初出順に重複なく並べる
func unionCellIDs(routes []*model.CandidateRoute) []string {
	seen := make(map[string]struct{})
	var union []string
	for _, route := range routes {
		for _, id := range route.CellIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			union = append(union, id)
		}
	}
	return union
}

// routeScore セルスコアの単純平均。取得できなかったセルは中立値として数える
func routeScore(cellIDs []string, cells map[string]*model.Cell) model.SafetyScore {
	if len(cellIDs) == 0 {
		return model.NoData()
	}
	sum := 0.0
	for _, id := range cellIDs {
		if cell, ok := cells[id]; ok && cell != nil {
			sum += cell.Score
		} else {
			sum += model.NeutralFactorValue
		}
	}
	return model.ScoreOf(helper.Round2(sum / float64(len(cellIDs))))
}

// ColorForScore 7.5以上は緑、5以上は黄、それ未満は赤。スコアなしはグレー
func ColorForScore(score model.SafetyScore) string {
	switch {
	case !score.HasData:
		return model.ColorNeutral
	case score.Value >= GreenThreshold:
		return model.ColorGreen
	case score.Value >= YellowThreshold:
		return model.ColorYellow
	default:
		return model.ColorRed
	}
}

// TagRoutes safest / fastest / shortest を付与する。同値の場合は入力順で先のルート
func TagRoutes(routes []*model.CandidateRoute) {
	var safest, fastest, shortest *model.CandidateRoute
	for _, route := range routes {
		if route.SafetyScore.HasData && (safest == nil || route.SafetyScore.Value > safest.SafetyScore.Value) {
			safest = route
		}
		if route.Duration.Known && (fastest == nil || route.Duration.Seconds < fastest.Duration.Seconds) {
			fastest = route
		}
		if route.Distance.Known && (shortest == nil || route.Distance.Meters < shortest.Distance.Meters) {
			shortest = route
		}
	}
	if safest != nil {
		safest.AddTag(model.TagSafest)
	}
	if fastest != nil {
		fastest.AddTag(model.TagFastest)
	}
	if shortest != nil {
		shortest.AddTag(model.TagShortest)
	}
}

// RankRoutes スコアの高い順に並べる（安定ソート）。スコアなしは常に末尾
func RankRoutes(routes []*model.CandidateRoute) []*model.CandidateRoute {
	ranked := make([]*model.CandidateRoute, len(routes))
	copy(ranked, routes)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].SafetyScore, ranked[j].SafetyScore
		if a.HasData != b.HasData {
			return a.HasData
		}
		return a.Value > b.Value
	})
	return ranked
}

// SelectRoute preferのタグを持つルート、なければsafest、それもなければ先頭
func SelectRoute(routes []*model.CandidateRoute, prefer string) *model.CandidateRoute {
	if len(routes) == 0 {
		return nil
	}
	if prefer != "" {
		for _, route := range routes {
			if route.HasTag(prefer) {
				return route
			}
		}
	}
	for _, route := range routes {
		if route.HasTag(model.TagSafest) {
			return route
		}
	}
	return routes[0]
}
