package helper

import (
	"math"

	"SafeRoute-App/internal/domain/model"
)

// EarthRadiusMeters 大円距離の計算に使う地球半径
const EarthRadiusMeters = 6371000.0

// HaversineMeters は2地点間の大円距離を計算する (m)
func HaversineMeters(p1, p2 model.LatLng) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lng1 := p1.Lng * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	lng2 := p2.Lng * math.Pi / 180
	dLat := lat2 - lat1
	dLng := lng2 - lng1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// MetersPerDegreeLat 緯度1度あたりのおおよその距離
const MetersPerDegreeLat = EarthRadiusMeters * math.Pi / 180

// OffsetLatLng 基準点から北へnorthMeters、東へeastMeters移動した点（近距離用の近似）
func OffsetLatLng(origin model.LatLng, northMeters, eastMeters float64) model.LatLng {
	dLat := northMeters / MetersPerDegreeLat
	dLng := eastMeters / (MetersPerDegreeLat * math.Cos(origin.Lat*math.Pi/180))
	return model.LatLng{Lat: origin.Lat + dLat, Lng: origin.Lng + dLng}
}
