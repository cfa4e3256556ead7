package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"SafeRoute-App/internal/domain/helper"
	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
	"SafeRoute-App/internal/infrastructure/database"
)

// postgresUpdateConcurrency 部分更新を同時に流す最大数
const postgresUpdateConcurrency = 8

// PostgresCellsRepository safety_cellsテーブルを使用したセルストア
//
//	CREATE TABLE safety_cells (
//	    id             TEXT PRIMARY KEY,
//	    score          DOUBLE PRECISION NOT NULL,
//	    factors        JSONB NOT NULL,
//	    nearest_police JSONB,
//	    last_updated   TIMESTAMPTZ NOT NULL
//	);
type PostgresCellsRepository struct {
	client *database.PostgreSQLClient
	now    func() time.Time
}

func NewPostgresCellsRepository(client *database.PostgreSQLClient) repository.CellsRepository {
	return &PostgresCellsRepository{
		client: client,
		now:    time.Now,
	}
}

const selectCellColumns = `SELECT id, score, factors, nearest_police, last_updated FROM safety_cells`

func (r *PostgresCellsRepository) BatchGet(ctx context.Context, ids []string) (map[string]*model.Cell, error) {
	found := make(map[string]*model.Cell, len(ids))
	for _, chunk := range chunkStrings(ids, repository.BulkBatchSize) {
		rows, err := r.client.DB.QueryContext(ctx, selectCellColumns+` WHERE id = ANY($1)`, pq.Array(chunk))
		if err != nil {
			return nil, fmt.Errorf("セルの一括取得に失敗: %w", err)
		}
		cells, err := scanCells(rows)
		if err != nil {
			return nil, err
		}
		for _, cell := range cells {
			found[cell.ID] = cell
		}
	}
	return found, nil
}

// InsertIfAbsent ON CONFLICT DO NOTHING で既存行には触れない。作成件数は RowsAffected
func (r *PostgresCellsRepository) InsertIfAbsent(ctx context.Context, ids []string, defaults model.Factors) (int, error) {
	factors, err := json.Marshal(defaults)
	if err != nil {
		return 0, fmt.Errorf("因子のJSON変換に失敗: %w", err)
	}
	score := helper.ComputeCellScore(defaults)
	now := r.now()

	created := 0
	for _, chunk := range chunkStrings(ids, repository.BulkBatchSize) {
		res, err := r.client.DB.ExecContext(ctx, `
			INSERT INTO safety_cells (id, score, factors, last_updated)
			SELECT unnest($1::text[]), $2, $3::jsonb, $4
			ON CONFLICT (id) DO NOTHING`,
			pq.Array(chunk), score, string(factors), now,
		)
		if err != nil {
			return created, fmt.Errorf("セルの作成に失敗: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return created, fmt.Errorf("作成件数の取得に失敗: %w", err)
		}
		created += int(n)
	}
	return created, nil
}

const updateCellQuery = `
	UPDATE safety_cells
	SET factors = factors || $2::jsonb,
	    score = $3,
	    nearest_police = COALESCE($4::jsonb, nearest_police),
	    last_updated = $5
	WHERE id = $1`

// BulkPartialUpdate 1件ずつのUPDATEを並行に流す。接続できない場合のみエラーを返す
func (r *PostgresCellsRepository) BulkPartialUpdate(ctx context.Context, updates []model.CellPatch) (model.BulkResult, error) {
	var result model.BulkResult
	if len(updates) == 0 {
		return result, nil
	}
	if err := r.client.DB.PingContext(ctx); err != nil {
		return result, fmt.Errorf("PostgreSQLに接続できません: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(postgresUpdateConcurrency)
	for _, u := range updates {
		g.Go(func() error {
			err := r.updateOne(gctx, u)

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

	zap.L().Debug("セルの一括更新", zap.Int("updated", result.Updated), zap.Int("failed", result.Failed))
	return result, nil
}

func (r *PostgresCellsRepository) updateOne(ctx context.Context, u model.CellPatch) error {
	factors, err := json.Marshal(u.Factors.Values())
	if err != nil {
		return fmt.Errorf("因子のJSON変換に失敗: %w", err)
	}
	var nearest sql.NullString
	if u.NearestPolice != nil {
		b, err := json.Marshal(u.NearestPolice)
		if err != nil {
			return fmt.Errorf("最寄り警察のJSON変換に失敗: %w", err)
		}
		nearest = sql.NullString{String: string(b), Valid: true}
	}

	res, err := r.client.DB.ExecContext(ctx, updateCellQuery, u.ID, string(factors), u.Score, nearest, u.LastUpdated)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errCellNotFound
	}
	return nil
}

// Scan id順に最大limit件
func (r *PostgresCellsRepository) Scan(ctx context.Context, limit int) ([]*model.Cell, error) {
	rows, err := r.client.DB.QueryContext(ctx, selectCellColumns+` ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("セルの走査に失敗: %w", err)
	}
	return scanCells(rows)
}

func scanCells(rows *sql.Rows) ([]*model.Cell, error) {
	defer rows.Close()

	var cells []*model.Cell
	for rows.Next() {
		var (
			cell    model.Cell
			factors []byte
			nearest []byte
		)
		if err := rows.Scan(&cell.ID, &cell.Score, &factors, &nearest, &cell.LastUpdated); err != nil {
			return nil, fmt.Errorf("セルデータスキャンエラー: %w", err)
		}
		if err := json.Unmarshal(factors, &cell.Factors); err != nil {
			return nil, fmt.Errorf("factors JSONBパースエラー: %w", err)
		}
		if len(nearest) > 0 {
			var np model.NearestPolice
			if err := json.Unmarshal(nearest, &np); err != nil {
				return nil, fmt.Errorf("nearest_police JSONBパースエラー: %w", err)
			}
			cell.NearestPolice = &np
		}
		cells = append(cells, &cell)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("セルデータ読み込みエラー: %w", err)
	}
	return cells, nil
}
