package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/domain/repository"
	"SafeRoute-App/internal/infrastructure/database"
)

// PoliceStationsView 警察施設だけを place_id, lat, lng で公開するビュー
const PoliceStationsView = "police_stations"

// windowCandidateLimit 1回の窓検索で取得する最大件数
const windowCandidateLimit = 1000

type SupabasePOIsRepository struct {
	client *database.SupabaseClient
}

func NewSupabasePOIsRepository(client *database.SupabaseClient) repository.POIsRepository {
	return &SupabasePOIsRepository{
		client: client,
	}
}

// policeStationRow ビューの1行
type policeStationRow struct {
	PlaceID string  `json:"place_id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// NearestPolice 探索窓を広げながら候補を取り、大圏距離の最小を選ぶ。
// 窓に内接する円の内側で見つかった場合のみ確定し、最後の窓では見つかった最小を返す。
// どの窓にもない場合、警察施設が1件でもあれば BeyondRadius を返し、1件もなければ nil を返す。
func (r *SupabasePOIsRepository) NearestPolice(ctx context.Context, point model.LatLng) (*model.NearestPOI, error) {
	for i, delta := range policeSearchWindows {
		candidates, err := r.fetchWindow(point, delta)
		if err != nil {
			return nil, err
		}

		best := nearestInWindow(point, candidates)
		if best == nil {
			continue
		}
		if best.DistanceMeters <= inscribedRadiusMeters(point, delta) || i == len(policeSearchWindows)-1 {
			return best, nil
		}
	}

	exists, err := r.anyPoliceStation()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	last := policeSearchWindows[len(policeSearchWindows)-1]
	return &model.NearestPOI{DistanceMeters: inscribedRadiusMeters(point, last), BeyondRadius: true}, nil
}

// anyPoliceStation ビューに警察施設が1件でもあるか
func (r *SupabasePOIsRepository) anyPoliceStation() (bool, error) {
	data, _, err := r.client.GetClient().From(PoliceStationsView).
		Select("place_id", "", false).
		Limit(1, "").
		Execute()
	if err != nil {
		return false, fmt.Errorf("警察施設データの取得失敗: %w", err)
	}
	var rows []policeStationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return false, fmt.Errorf("警察施設データのJSONアンマーシャル失敗: %w", err)
	}
	return len(rows) > 0, nil
}

func (r *SupabasePOIsRepository) fetchWindow(point model.LatLng, delta float64) ([]model.POI, error) {
	bound := searchWindow(point, delta)

	data, _, err := r.client.GetClient().From(PoliceStationsView).
		Select("place_id,lat,lng", "", false).
		Gte("lat", formatCoord(bound.Min.Lat())).
		Lte("lat", formatCoord(bound.Max.Lat())).
		Gte("lng", formatCoord(bound.Min.Lon())).
		Lte("lng", formatCoord(bound.Max.Lon())).
		Limit(windowCandidateLimit, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("警察施設データの取得失敗: %w", err)
	}

	var rows []policeStationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("警察施設データのJSONアンマーシャル失敗: %w", err)
	}

	pois := make([]model.POI, 0, len(rows))
	for _, row := range rows {
		pois = append(pois, model.POI{
			PlaceID:  row.PlaceID,
			Location: model.NewPointGeometry(row.Lat, row.Lng),
		})
	}
	return pois, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 7, 64)
}
