package model

import "github.com/paulmach/orb"

// LatLng 緯度経度を表す基本的な型（経路検索や近傍検索で使用）
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ToPoint orb.Point（[lng, lat]順）に変換
func (l LatLng) ToPoint() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// LatLngFromPoint orb.Point から LatLng に変換
func LatLngFromPoint(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lng: p.Lon()}
}

// IsValid 緯度経度が有効範囲内かチェック
func (l LatLng) IsValid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// POI 外部の取り込み処理が管理するスポット。ここでは近傍検索で読むだけ
type POI struct {
	PlaceID  string    `json:"place_id" db:"id"`
	Location *Geometry `json:"location" db:"location"` // PostGIS GEOMETRY型
}

// ToLatLng POIの位置情報をLatLng型に変換
func (p *POI) ToLatLng() LatLng {
	if p.Location != nil && len(p.Location.Coordinates) >= 2 {
		return LatLng{
			Lat: p.Location.Coordinates[1], // latitude
			Lng: p.Location.Coordinates[0], // longitude
		}
	}
	return LatLng{}
}

// NearestPOI 近傍検索の結果。距離はストア側の計算値（参考値）。
// BeyondRadius は探索半径内に施設がないことを表し、その場合POIは空でDistanceMetersは探索半径
type NearestPOI struct {
	POI            POI     `json:"poi"`
	DistanceMeters float64 `json:"distance_meters"`
	BeyondRadius   bool    `json:"beyond_radius,omitempty"`
}

// Geometry PostGIS GEOMETRY型に対応する構造体
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [longitude, latitude]
}

// NewPointGeometry 緯度経度からPoint型のGeometryを作成
func NewPointGeometry(lat, lng float64) *Geometry {
	return &Geometry{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
	}
}
