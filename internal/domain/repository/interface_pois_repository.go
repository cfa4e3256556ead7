package repository

import (
	"context"

	"SafeRoute-App/internal/domain/model"
)

type POIsRepository interface {
	// NearestPolice 指定地点から最も近い警察施設。見つからない場合は nil, nil
	NearestPolice(ctx context.Context, point model.LatLng) (*model.NearestPOI, error)
}
