package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"SafeRoute-App/internal/domain/helper"
	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
	"SafeRoute-App/internal/domain/service"
	"SafeRoute-App/internal/infrastructure/metrics"
)

// maxGeoJSONCells GeoJSONで一度に返すセル数の上限
const maxGeoJSONCells = 500

type CellsUseCase interface {
	// GetCell はセルを取得する。存在しなければ中立値で作成する
	GetCell(ctx context.Context, id string) (*model.Cell, error)
	// UpdateFactors は指定された因子だけを更新してスコアを再計算する。存在しなければ作成する
	UpdateFactors(ctx context.Context, id string, factors model.PartialFactors) (*model.Cell, error)
	// CellsGeoJSON はセルを矩形ポリゴンのGeoJSONとして返す（作成は行わない）
	CellsGeoJSON(ctx context.Context, ids []string) (*geojson.FeatureCollection, error)
}

type cellsUseCaseImpl struct {
	cellsRepo repository.CellsRepository
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewCellsUseCase(cellsRepo repository.CellsRepository, m *metrics.Metrics, logger *zap.Logger) CellsUseCase {
	return &cellsUseCaseImpl{
		cellsRepo: cellsRepo,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

func (u *cellsUseCaseImpl) GetCell(ctx context.Context, id string) (*model.Cell, error) {
	if err := helper.ValidateCellID(id); err != nil {
		return nil, err
	}
	return u.ensureCell(ctx, id)
}

func (u *cellsUseCaseImpl) UpdateFactors(ctx context.Context, id string, factors model.PartialFactors) (*model.Cell, error) {
	if err := helper.ValidateCellID(id); err != nil {
		return nil, err
	}
	if factors.IsEmpty() {
		return nil, &model.InputError{Field: "factors", Message: "更新する因子を1つ以上指定してください"}
	}
	for name, v := range factors.Values() {
		if math.IsNaN(v) || v < model.MinFactorValue || v > model.MaxFactorValue {
			return nil, &model.InputError{Field: "factors." + name, Message: "因子は0から10の範囲で指定してください"}
		}
	}

	cell, err := u.ensureCell(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := cell.Factors.Merge(factors)
	patch := model.CellPatch{
		ID:          id,
		Factors:     factors,
		Score:       helper.ComputeCellScore(merged),
		LastUpdated: u.now(),
	}
	res, err := u.cellsRepo.BulkPartialUpdate(ctx, []model.CellPatch{patch})
	if err != nil {
		return nil, fmt.Errorf("セルの更新に失敗: %w", err)
	}
	if len(res.Errors) > 0 {
		return nil, res.Errors[0]
	}

	u.logger.Info("✏️ セルの因子を更新", zap.String("cell_id", id), zap.Float64("score", patch.Score))
	cell.Factors = merged
	cell.Score = patch.Score
	cell.LastUpdated = patch.LastUpdated
	return cell, nil
}

func (u *cellsUseCaseImpl) CellsGeoJSON(ctx context.Context, ids []string) (*geojson.FeatureCollection, error) {
	if len(ids) == 0 {
		return nil, &model.InputError{Field: "ids", Message: "セルidを1つ以上指定してください"}
	}
	if len(ids) > maxGeoJSONCells {
		return nil, &model.InputError{Field: "ids", Message: fmt.Sprintf("セルidは%d件以下で指定してください", maxGeoJSONCells)}
	}
	for _, id := range ids {
		if err := helper.ValidateCellID(id); err != nil {
			return nil, err
		}
	}

	cells, err := u.cellsRepo.BatchGet(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("セルの取得に失敗: %w", err)
	}

	fc := geojson.NewFeatureCollection()
	for _, id := range ids {
		polygon, err := helper.CellPolygon(id)
		if err != nil {
			return nil, err
		}
		f := geojson.NewFeature(polygon)
		f.Properties["id"] = id

		score := model.NoData()
		if cell, ok := cells[id]; ok {
			score = model.ScoreOf(cell.Score)
			f.Properties["factors"] = cell.Factors
		}
		f.Properties["score"] = score
		f.Properties["color"] = service.ColorForScore(score)
		fc.Append(f)
	}
	return fc, nil
}

// ensureCell 取得し、なければ作成してから読み直す
func (u *cellsUseCaseImpl) ensureCell(ctx context.Context, id string) (*model.Cell, error) {
	cells, err := u.cellsRepo.BatchGet(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("セルの取得に失敗: %w", err)
	}
	if cell, ok := cells[id]; ok {
		return cell, nil
	}

	created, err := u.cellsRepo.InsertIfAbsent(ctx, []string{id}, helper.DefaultFactors())
	if err != nil {
		return nil, fmt.Errorf("セルの作成に失敗: %w", err)
	}
	u.metrics.AddCellsCreated(created)

	cells, err = u.cellsRepo.BatchGet(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("セルの再取得に失敗: %w", err)
	}
	cell, ok := cells[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "cell", Message: "セル " + id + " を作成できませんでした"}
	}
	return cell, nil
}
