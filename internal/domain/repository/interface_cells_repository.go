package repository

import (
	"context"

	"SafeRoute-App/internal/domain/model"
)

// BulkBatchSize 一括読み書き1回あたりの最大件数
const BulkBatchSize = 200

// CellsRepository セル単位の安全スコアを保持するストア
type CellsRepository interface {
	// BatchGet 存在するセルだけをidをキーにして返す
	BatchGet(ctx context.Context, ids []string) (map[string]*model.Cell, error)
	// InsertIfAbsent 存在しないidだけをdefaultsで作成し、実際に作成した件数を返す。
	// id単位でアトミック（読んでから書く、上書きするは不可）
	InsertIfAbsent(ctx context.Context, ids []string, defaults model.Factors) (int, error)
	// BulkPartialUpdate 順不同の部分更新。個別の失敗はBulkResultに入り、ストアに到達できない場合のみエラー
	BulkPartialUpdate(ctx context.Context, updates []model.CellPatch) (model.BulkResult, error)
	// Scan 対象セルを最大limit件返す
	Scan(ctx context.Context, limit int) ([]*model.Cell, error)
}
