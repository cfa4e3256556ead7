package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"SafeRoute-App/internal/domain/helper"
	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
)

// DefaultCellsCollection セルを保存するFirestoreコレクション
const DefaultCellsCollection = "safetyCells"

// FirestoreCellsRepository Firestoreを使用したセルストア。ドキュメントidがセルid
type FirestoreCellsRepository struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

func NewFirestoreCellsRepository(client *firestore.Client, collection string) repository.CellsRepository {
	if collection == "" {
		collection = DefaultCellsCollection
	}
	return &FirestoreCellsRepository{
		client:     client,
		collection: collection,
		now:        time.Now,
	}
}

func (r *FirestoreCellsRepository) BatchGet(ctx context.Context, ids []string) (map[string]*model.Cell, error) {
	found := make(map[string]*model.Cell, len(ids))
	for _, chunk := range chunkStrings(ids, repository.BulkBatchSize) {
		refs := make([]*firestore.DocumentRef, 0, len(chunk))
		for _, id := range chunk {
			refs = append(refs, r.client.Collection(r.collection).Doc(id))
		}

		snaps, err := r.client.GetAll(ctx, refs)
		if err != nil {
			return nil, fmt.Errorf("セルの一括取得に失敗しました: %w", err)
		}
		for _, snap := range snaps {
			if !snap.Exists() {
				continue
			}
			var cell model.Cell
			if err := snap.DataTo(&cell); err != nil {
				return nil, fmt.Errorf("セル %s のデータ変換に失敗しました: %w", snap.Ref.ID, err)
			}
			cell.ID = snap.Ref.ID
			found[cell.ID] = &cell
		}
	}
	return found, nil
}

// InsertIfAbsent BulkWriter.Createは既存ドキュメントに対してAlreadyExistsで失敗するため、id単位でアトミックになる
func (r *FirestoreCellsRepository) InsertIfAbsent(ctx context.Context, ids []string, defaults model.Factors) (int, error) {
	created, failed := 0, 0
	var lastErr error
	now := r.now()
	score := helper.ComputeCellScore(defaults)

	for _, chunk := range chunkStrings(ids, repository.BulkBatchSize) {
		bw := r.client.BulkWriter(ctx)
		jobs := make([]*firestore.BulkWriterJob, 0, len(chunk))
		for _, id := range chunk {
			job, err := bw.Create(r.client.Collection(r.collection).Doc(id), model.Cell{
				Score:       score,
				Factors:     defaults,
				LastUpdated: now,
			})
			if err != nil {
				bw.End()
				return created, fmt.Errorf("セル作成のキュー登録に失敗しました: %w", err)
			}
			jobs = append(jobs, job)
		}
		bw.End()

		for i, job := range jobs {
			if _, err := job.Results(); err != nil {
				if status.Code(err) == codes.AlreadyExists {
					continue
				}
				failed++
				lastErr = err
				zap.L().Warn("⚠️ セルの作成に失敗", zap.String("cell_id", chunk[i]), zap.Error(err))
				continue
			}
			created++
		}
	}

	if failed > 0 && created == 0 && failed == len(ids) {
		return 0, fmt.Errorf("セルの作成がすべて失敗しました: %w", lastErr)
	}
	return created, nil
}

func (r *FirestoreCellsRepository) BulkPartialUpdate(ctx context.Context, updates []model.CellPatch) (model.BulkResult, error) {
	var total model.BulkResult

	for start := 0; start < len(updates); start += repository.BulkBatchSize {
		chunk := updates[start:min(start+repository.BulkBatchSize, len(updates))]

		bw := r.client.BulkWriter(ctx)
		jobs := make([]*firestore.BulkWriterJob, 0, len(chunk))
		for _, u := range chunk {
			job, err := bw.Update(r.client.Collection(r.collection).Doc(u.ID), patchToUpdates(u))
			if err != nil {
				bw.End()
				return total, fmt.Errorf("セル更新のキュー登録に失敗しました: %w", err)
			}
			jobs = append(jobs, job)
		}
		bw.End()

		var result model.BulkResult
		for i, job := range jobs {
			if _, err := job.Results(); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, &model.StoreError{CellID: chunk[i].ID, Err: err})
				continue
			}
			result.Updated++
		}
		total.Add(result)
	}

	if len(updates) > 0 && total.Updated == 0 && isUnavailable(total.Errors) {
		return total, fmt.Errorf("Firestoreに接続できません: %w", total.Errors[0])
	}
	return total, nil
}

// Scan ドキュメントid順に最大limit件
func (r *FirestoreCellsRepository) Scan(ctx context.Context, limit int) ([]*model.Cell, error) {
	snaps, err := r.client.Collection(r.collection).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("セルの走査に失敗しました: %w", err)
	}

	cells := make([]*model.Cell, 0, len(snaps))
	for _, snap := range snaps {
		var cell model.Cell
		if err := snap.DataTo(&cell); err != nil {
			zap.L().Warn("⚠️ セルのデータ変換に失敗したためスキップ", zap.String("cell_id", snap.Ref.ID), zap.Error(err))
			continue
		}
		cell.ID = snap.Ref.ID
		cells = append(cells, &cell)
	}
	return cells, nil
}

// patchToUpdates 指定された因子だけを "factors.<name>" のパスで更新する
func patchToUpdates(u model.CellPatch) []firestore.Update {
	updates := []firestore.Update{
		{Path: "score", Value: u.Score},
		{Path: "lastUpdated", Value: u.LastUpdated},
	}
	for name, v := range u.Factors.Values() {
		updates = append(updates, firestore.Update{Path: "factors." + name, Value: v})
	}
	if u.NearestPolice != nil {
		updates = append(updates, firestore.Update{Path: "nearestPolice", Value: u.NearestPolice})
	}
	return updates
}

func isUnavailable(errs []*model.StoreError) bool {
	for _, e := range errs {
		if code := status.Code(e.Err); code != codes.Unavailable && code != codes.DeadlineExceeded {
			return false
		}
	}
	return len(errs) > 0
}
