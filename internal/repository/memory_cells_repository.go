package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"SafeRoute-App/internal/domain/helper"
	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
)

// MemoryCellsRepository ローカル開発・テスト用のインメモリ実装
type MemoryCellsRepository struct {
	mu    sync.Mutex
	cells map[string]model.Cell
	now   func() time.Time
}

func NewMemoryCellsRepository() *MemoryCellsRepository {
	return &MemoryCellsRepository{
		cells: make(map[string]model.Cell),
		now:   time.Now,
	}
}

var _ repository.CellsRepository = (*MemoryCellsRepository)(nil)

func (r *MemoryCellsRepository) BatchGet(ctx context.Context, ids []string) (map[string]*model.Cell, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := make(map[string]*model.Cell, len(ids))
	for _, id := range ids {
		if cell, ok := r.cells[id]; ok {
			c := cell
			found[id] = &c
		}
	}
	return found, nil
}

func (r *MemoryCellsRepository) InsertIfAbsent(ctx context.Context, ids []string, defaults model.Factors) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := 0
	for _, id := range ids {
		if _, ok := r.cells[id]; ok {
			continue
		}
		r.cells[id] = model.Cell{
			ID:          id,
			Score:       helper.ComputeCellScore(defaults),
			Factors:     defaults,
			LastUpdated: r.now(),
		}
		created++
	}
	return created, nil
}

func (r *MemoryCellsRepository) BulkPartialUpdate(ctx context.Context, updates []model.CellPatch) (model.BulkResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result model.BulkResult
	for _, u := range updates {
		cell, ok := r.cells[u.ID]
		if !ok {
			result.Failed++
			result.Errors = append(result.Errors, &model.StoreError{CellID: u.ID, Err: errCellNotFound})
			continue
		}
		cell.Factors = cell.Factors.Merge(u.Factors)
		cell.Score = u.Score
		if u.NearestPolice != nil {
			np := *u.NearestPolice
			cell.NearestPolice = &np
		}
		cell.LastUpdated = u.LastUpdated
		r.cells[u.ID] = cell
		result.Updated++
	}
	return result, nil
}

// Scan id順に最大limit件
func (r *MemoryCellsRepository) Scan(ctx context.Context, limit int) ([]*model.Cell, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.cells))
	for id := range r.cells {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	cells := make([]*model.Cell, 0, len(ids))
	for _, id := range ids {
		c := r.cells[id]
		cells = append(cells, &c)
	}
	return cells, nil
}

// Len 保持しているセル数
func (r *MemoryCellsRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cells)
}
