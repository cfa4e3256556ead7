package repository

import (
	"context"
	"encoding/json"
)

// RouteProvider 外部のルート検索サービス。ルート候補を加工せずにそのまま返す
type RouteProvider interface {
	Name() string
	FetchRoutes(ctx context.Context, origin, destination, travelMode string) ([]json.RawMessage, error)
}
