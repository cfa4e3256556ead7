package repository

import (
	"math"

	"github.com/paulmach/orb"

	"SafeRoute-App/internal/domain/helper"
	"SafeRoute-App/internal/domain/model"
)

// policeSearchWindows 近傍検索で順に広げる探索窓（中心からの緯度経度差, 度）
var policeSearchWindows = []float64{0.02, 0.1, 0.5}

// searchWindow 中心から緯度経度それぞれdeltaDeg度の矩形
func searchWindow(center model.LatLng, deltaDeg float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Max(center.Lng-deltaDeg, -180), math.Max(center.Lat-deltaDeg, -90)},
		Max: orb.Point{math.Min(center.Lng+deltaDeg, 180), math.Min(center.Lat+deltaDeg, 90)},
	}
}

// inscribedRadiusMeters 探索窓に内接する円の半径。これより近い候補は窓の外の点より必ず近い
func inscribedRadiusMeters(center model.LatLng, deltaDeg float64) float64 {
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	return deltaDeg * helper.MetersPerDegreeLat * math.Min(1, cosLat)
}

// nearestInWindow 候補の中から大圏距離が最小のもの
func nearestInWindow(center model.LatLng, candidates []model.POI) *model.NearestPOI {
	var best *model.NearestPOI
	for _, poi := range candidates {
		d := helper.HaversineMeters(center, poi.ToLatLng())
		if best == nil || d < best.DistanceMeters {
			best = &model.NearestPOI{POI: poi, DistanceMeters: d}
		}
	}
	return best
}
