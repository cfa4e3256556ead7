package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"SafeRoute-App/internal/domain/helper"
	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
)

const (
	DefaultPoliceScanLimit   = 500
	MaxPoliceScanLimit       = 5000
	DefaultPoliceConcurrency = 8
)

// policeScoreSteps 最寄り警察までの距離(m)の上限と、そのときのpolice因子
var policeScoreSteps = []struct {
	maxMeters float64
	score     float64
}{
	{250, 10},
	{500, 8},
	{1000, 6},
	{2000, 4},
	{4000, 2},
}

// PoliceFactorForDistance 距離からpolice因子を求める階段関数。4000m超は0
func PoliceFactorForDistance(meters float64) float64 {
	for _, step := range policeScoreSteps {
		if meters <= step.maxMeters {
			return step.score
		}
	}
	return 0
}

// PoliceProximityMapper はセルの中心から最寄りの警察施設を探し、police因子とスコアを更新する。
//
// 更新は読み取り→計算→部分更新の順で、同じセルへの同時実行は後勝ちになる。
// 厳密な整合性が必要になった場合はセル単位のCASか単一ライターが必要。
type PoliceProximityMapper interface {
	MapPolice(ctx context.Context, req model.MapPoliceRequest) (*model.MapPoliceResponse, error)
}

type PoliceMapperOptions struct {
	DefaultLimit int
	Concurrency  int
	BatchSize    int
}

type policeProximityMapper struct {
	cellsRepo repository.CellsRepository
	poisRepo  repository.POIsRepository
	opts      PoliceMapperOptions
	logger    *zap.Logger
	now       func() time.Time
}

func NewPoliceProximityMapper(cellsRepo repository.CellsRepository, poisRepo repository.POIsRepository, opts PoliceMapperOptions, logger *zap.Logger) PoliceProximityMapper {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultPoliceScanLimit
	}
	if opts.DefaultLimit > MaxPoliceScanLimit {
		opts.DefaultLimit = MaxPoliceScanLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultPoliceConcurrency
	}
	if opts.BatchSize <= 0 || opts.BatchSize > repository.BulkBatchSize {
		opts.BatchSize = repository.BulkBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &policeProximityMapper{
		cellsRepo: cellsRepo,
		poisRepo:  poisRepo,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *policeProximityMapper) MapPolice(ctx context.Context, req model.MapPoliceRequest) (*model.MapPoliceResponse, error) {
	cells, err := m.resolveTargets(ctx, req)
	if err != nil {
		return nil, err
	}
	m.logger.Info("🚓 最寄り警察マッピング開始", zap.Int("cells", len(cells)), zap.Bool("dry_run", req.DryRun))

	results := make([]model.MapPoliceResult, len(cells))
	patches := make([]*model.CellPatch, len(cells))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Concurrency)
	for i, cell := range cells {
		g.Go(func() error {
			results[i], patches[i] = m.mapCell(gctx, cell)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("最寄り警察の検索が中断されました: %w", err)
	}

	resp := &model.MapPoliceResponse{
		Processed: len(cells),
		DryRun:    req.DryRun,
		Results:   results,
	}

	var updates []model.CellPatch
	for _, p := range patches {
		if p != nil {
			updates = append(updates, *p)
		}
	}
	if req.DryRun || len(updates) == 0 {
		m.logger.Info("✅ 最寄り警察マッピング完了（書き込みなし）", zap.Int("processed", resp.Processed), zap.Int("candidates", len(updates)))
		return resp, nil
	}

	var total model.BulkResult
	for start := 0; start < len(updates); start += m.opts.BatchSize {
		end := min(start+m.opts.BatchSize, len(updates))
		res, err := m.cellsRepo.BulkPartialUpdate(ctx, updates[start:end])
		if err != nil {
			return nil, fmt.Errorf("セルの一括更新に失敗: %w", err)
		}
		total.Add(res)
	}

	failed := make(map[string]string, len(total.Errors))
	for _, storeErr := range total.Errors {
		m.logger.Warn("⚠️  セルの更新に失敗", zap.String("cell_id", storeErr.CellID), zap.Error(storeErr.Err))
		failed[storeErr.CellID] = storeErr.Error()
	}
	for i := range resp.Results {
		if msg, ok := failed[resp.Results[i].CellID]; ok {
			resp.Results[i].Error = msg
		}
	}
	resp.Updated = total.Updated

	m.logger.Info("✅ 最寄り警察マッピング完了",
		zap.Int("processed", resp.Processed), zap.Int("updated", total.Updated), zap.Int("failed", total.Failed))
	return resp, nil
}

// resolveTargets 明示されたセル、なければストアを走査して対象セルを決める
func (m *policeProximityMapper) resolveTargets(ctx context.Context, req model.MapPoliceRequest) ([]*model.Cell, error) {
	if len(req.CellIDs) == 0 {
		limit := req.Limit
		if limit <= 0 {
			limit = m.opts.DefaultLimit
		}
		if limit > MaxPoliceScanLimit {
			limit = MaxPoliceScanLimit
		}
		cells, err := m.cellsRepo.Scan(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("セルの走査に失敗: %w", err)
		}
		return cells, nil
	}

	ids := make([]string, 0, len(req.CellIDs))
	seen := make(map[string]struct{}, len(req.CellIDs))
	for _, id := range req.CellIDs {
		if err := helper.ValidateCellID(id); err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	existing, err := m.cellsRepo.BatchGet(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("セルの取得に失敗: %w", err)
	}

	var missing []string
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 && !req.DryRun {
		if _, err := m.cellsRepo.InsertIfAbsent(ctx, missing, helper.DefaultFactors()); err != nil {
			return nil, fmt.Errorf("セルの作成に失敗: %w", err)
		}
		if existing, err = m.cellsRepo.BatchGet(ctx, ids); err != nil {
			return nil, fmt.Errorf("セルの再取得に失敗: %w", err)
		}
	}

	cells := make([]*model.Cell, 0, len(ids))
	for _, id := range ids {
		if cell, ok := existing[id]; ok && cell != nil {
			cells = append(cells, cell)
			continue
		}
		// ドライランでは作成せず、中立値のセルとして計算する
		defaults := helper.DefaultFactors()
		cells = append(cells, &model.Cell{ID: id, Factors: defaults, Score: helper.ComputeCellScore(defaults)})
	}
	return cells, nil
}

// mapCell セル1つ分の計算。POIストアのエラーはこのセルの結果だけに閉じる
func (m *policeProximityMapper) mapCell(ctx context.Context, cell *model.Cell) (model.MapPoliceResult, *model.CellPatch) {
	result := model.MapPoliceResult{
		CellID:      cell.ID,
		PoliceScore: cell.Factors.Police,
		Score:       cell.Score,
	}

	lat, lng, err := helper.DecodeCell(cell.ID)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	center := model.LatLng{Lat: lat, Lng: lng}

	nearest, err := m.poisRepo.NearestPolice(ctx, center)
	if err != nil {
		m.logger.Warn("⚠️  最寄り警察の検索に失敗", zap.String("cell_id", cell.ID), zap.Error(err))
		result.Error = err.Error()
		return result, nil
	}
	// 警察施設が1件もないストアでは因子を変えない
	if nearest == nil {
		return result, nil
	}

	// 探索半径より遠い場合は施設を特定せずに因子だけ0にする
	police := 0.0
	if !nearest.BeyondRadius {
		distance := helper.HaversineMeters(center, nearest.POI.ToLatLng())
		police = PoliceFactorForDistance(distance)
		result.Nearest = &model.NearestPolice{PlaceID: nearest.POI.PlaceID, DistanceMeters: helper.Round2(distance)}
	}
	partial := model.PartialFactors{Police: model.Float64(police)}
	score := helper.ComputeCellScore(cell.Factors.Merge(partial))

	result.PoliceScore = police
	result.Score = score

	return result, &model.CellPatch{
		ID:            cell.ID,
		Factors:       partial,
		Score:         score,
		NearestPolice: result.Nearest,
		LastUpdated:   m.now(),
	}
}
