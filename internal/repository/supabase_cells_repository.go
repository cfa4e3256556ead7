package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/supabase-community/postgrest-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"SafeRoute-App/internal/domain/helper"
	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
	"SafeRoute-App/internal/infrastructure/database"
)

// SafetyCellsTable PostgresCellsRepositoryと共通のテーブル
const SafetyCellsTable = "safety_cells"

const supabaseCellColumns = "id,score,factors,nearest_police,last_updated"

// SupabaseCellsRepository PostgREST経由でsafety_cellsを読み書きするセルストア。
// jsonbのマージができないため部分更新は取得してからGo側でマージする
type SupabaseCellsRepository struct {
	client *database.SupabaseClient
	now    func() time.Time
}

func NewSupabaseCellsRepository(client *database.SupabaseClient) repository.CellsRepository {
	return &SupabaseCellsRepository{
		client: client,
		now:    time.Now,
	}
}

func (r *SupabaseCellsRepository) BatchGet(ctx context.Context, ids []string) (map[string]*model.Cell, error) {
	found := make(map[string]*model.Cell, len(ids))
	for _, chunk := range chunkStrings(ids, repository.BulkBatchSize) {
		data, _, err := r.client.GetClient().From(SafetyCellsTable).
			Select(supabaseCellColumns, "", false).
			In("id", chunk).
			Execute()
		if err != nil {
			return nil, fmt.Errorf("セルデータの取得失敗: %w", err)
		}
		cells, err := unmarshalCells(data)
		if err != nil {
			return nil, err
		}
		for i := range cells {
			found[cells[i].ID] = &cells[i]
		}
	}
	return found, nil
}

// InsertIfAbsent 既存を除いてまとめて挿入する。並行して作られた場合は1件ずつ入れ直し、重複は無視する
func (r *SupabaseCellsRepository) InsertIfAbsent(ctx context.Context, ids []string, defaults model.Factors) (int, error) {
	existing, err := r.BatchGet(ctx, ids)
	if err != nil {
		return 0, err
	}

	score := helper.ComputeCellScore(defaults)
	now := r.now()
	var rows []model.Cell
	for _, id := range ids {
		if _, ok := existing[id]; ok {
			continue
		}
		rows = append(rows, model.Cell{ID: id, Score: score, Factors: defaults, LastUpdated: now})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	created := 0
	for _, chunk := range chunkCells(rows, repository.BulkBatchSize) {
		_, _, err := r.client.GetClient().From(SafetyCellsTable).Insert(chunk, false, "", "minimal", "").Execute()
		if err == nil {
			created += len(chunk)
			continue
		}
		if !isDuplicateKey(err) {
			return created, fmt.Errorf("セルデータの挿入失敗: %w", err)
		}

		for _, row := range chunk {
			_, _, err := r.client.GetClient().From(SafetyCellsTable).Insert(row, false, "", "minimal", "").Execute()
			switch {
			case err == nil:
				created++
			case isDuplicateKey(err):
			default:
				zap.L().Warn("⚠️ セルの挿入に失敗", zap.String("cell_id", row.ID), zap.Error(err))
			}
		}
	}
	return created, nil
}

// BulkPartialUpdate 現在値を取得できない場合のみエラーを返す
func (r *SupabaseCellsRepository) BulkPartialUpdate(ctx context.Context, updates []model.CellPatch) (model.BulkResult, error) {
	var result model.BulkResult
	if len(updates) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.ID)
	}
	current, err := r.BatchGet(ctx, ids)
	if err != nil {
		return result, err
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(postgresUpdateConcurrency)
	for _, u := range updates {
		g.Go(func() error {
			err := r.updateOne(current[u.ID], u)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, &model.StoreError{CellID: u.ID, Err: err})
				return nil
			}
			result.Updated++
			return nil
		})
	}
	_ = g.Wait()
	return result, nil
}

func (r *SupabaseCellsRepository) updateOne(cell *model.Cell, u model.CellPatch) error {
	if cell == nil {
		return errCellNotFound
	}
	body := map[string]any{
		"factors":      cell.Factors.Merge(u.Factors),
		"score":        u.Score,
		"last_updated": u.LastUpdated,
	}
	if u.NearestPolice != nil {
		body["nearest_police"] = u.NearestPolice
	}
	_, _, err := r.client.GetClient().From(SafetyCellsTable).Update(body, "minimal", "").Eq("id", u.ID).Execute()
	return err
}

// Scan id順に最大limit件
func (r *SupabaseCellsRepository) Scan(ctx context.Context, limit int) ([]*model.Cell, error) {
	data, _, err := r.client.GetClient().From(SafetyCellsTable).
		Select(supabaseCellColumns, "", false).
		Order("id", &postgrest.OrderOpts{Ascending: true}).
		Limit(limit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("セルデータの走査失敗: %w", err)
	}
	cells, err := unmarshalCells(data)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Cell, 0, len(cells))
	for i := range cells {
		out = append(out, &cells[i])
	}
	return out, nil
}

func unmarshalCells(data []byte) ([]model.Cell, error) {
	var cells []model.Cell
	if err := json.Unmarshal(data, &cells); err != nil {
		return nil, fmt.Errorf("セルデータのJSONアンマーシャル失敗: %w", err)
	}
	return cells, nil
}

func chunkCells(cells []model.Cell, size int) [][]model.Cell {
	var chunks [][]model.Cell
	for start := 0; start < len(cells); start += size {
		chunks = append(chunks, cells[start:min(start+size, len(cells))])
	}
	return chunks
}

// isDuplicateKey 一意制約違反（SQLSTATE 23505）
func isDuplicateKey(err error) bool {
	return strings.Contains(err.Error(), "23505")
}
