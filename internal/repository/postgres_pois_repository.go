package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
	"SafeRoute-App/internal/infrastructure/database"
)

// PoliceCategory pois.categories に入る警察施設のカテゴリ
const PoliceCategory = "police"

type PostgresPOIsRepository struct {
	client *database.PostgreSQLClient
}

func NewPostgresPOIsRepository(client *database.PostgreSQLClient) repository.POIsRepository {
	return &PostgresPOIsRepository{
		client: client,
	}
}

// POIResult PostGIS関数の結果を受け取るための構造体
type POIResult struct {
	ID             string
	Location       string
	DistanceMeters float64
}

// ToPOI POIResultをmodel.POIに変換
func (pr *POIResult) ToPOI() (*model.POI, error) {
	var location model.Geometry
	if err := json.Unmarshal([]byte(pr.Location), &location); err != nil {
		return nil, fmt.Errorf("location JSONBパースエラー: %w", err)
	}
	return &model.POI{
		PlaceID:  pr.ID,
		Location: &location,
	}, nil
}

// nearestPoliceQuery KNN演算子 <-> で並べて先頭1件。距離は球面のST_Distance
const nearestPoliceQuery = `
	SELECT
		p.id,
		ST_AsGeoJSON(p.location)::jsonb AS location,
		ST_Distance(
			p.location::geography,
			ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography
		) AS distance_meters
	FROM pois p
	WHERE p.categories @> $3::jsonb
	ORDER BY p.location::geography <-> ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography
	LIMIT 1
`

func (r *PostgresPOIsRepository) NearestPolice(ctx context.Context, point model.LatLng) (*model.NearestPOI, error) {
	category, _ := json.Marshal([]string{PoliceCategory})

	row := r.client.DB.QueryRowContext(ctx, nearestPoliceQuery, point.Lat, point.Lng, string(category))

	var result POIResult
	if err := row.Scan(&result.ID, &result.Location, &result.DistanceMeters); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("最寄り警察施設の検索失敗: %w", err)
	}

	poi, err := result.ToPOI()
	if err != nil {
		return nil, err
	}
	return &model.NearestPOI{POI: *poi, DistanceMeters: result.DistanceMeters}, nil
}
