package helper

import (
	"fmt"
	"math"
	"strings"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/paulmach/orb"

	"SafeRoute-App/internal/domain/model"
)

// CellPrecision セルIDのgeohash桁数（7桁 ≒ 150m四方）。
// グリッド生成側と保存済みセルで必ず同じ値を使うこと。食い違ってもエラーにはならず、検索が黙って外れる。
const CellPrecision = 7

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// EncodeCell 緯度経度をセルIDに変換する
func EncodeCell(lat, lng float64) (string, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return "", &model.RangeError{Lat: lat, Lng: lng}
	}
	return geohash.EncodeWithPrecision(lat, lng, CellPrecision), nil
}

// DecodeCell セルIDの中心座標を返す
func DecodeCell(id string) (lat, lng float64, err error) {
	bound, err := DecodeCellBounds(id)
	if err != nil {
		return 0, 0, err
	}
	center := bound.Center()
	return center.Lat(), center.Lon(), nil
}

// DecodeCellBounds セルIDの境界ボックスを返す（Min=南西, Max=北東）
func DecodeCellBounds(id string) (orb.Bound, error) {
	if err := ValidateCellID(id); err != nil {
		return orb.Bound{}, err
	}
	box := geohash.Decode(id)
	sw, ne := box.SouthWest(), box.NorthEast()
	return orb.Bound{
		Min: orb.Point{sw.Lng(), sw.Lat()},
		Max: orb.Point{ne.Lng(), ne.Lat()},
	}, nil
}

// CellPolygon 表示用にセルをポリゴン化する
func CellPolygon(id string) (orb.Polygon, error) {
	bound, err := DecodeCellBounds(id)
	if err != nil {
		return nil, err
	}
	return bound.ToPolygon(), nil
}

// ValidateCellID セルIDの形式チェック（桁数と文字種）
func ValidateCellID(id string) error {
	if len(id) != CellPrecision {
		return &model.InputError{Field: "cell_id", Message: fmt.Sprintf("セルID %q は%d桁のgeohashである必要があります", id, CellPrecision)}
	}
	for _, c := range id {
		if !strings.ContainsRune(geohashAlphabet, c) {
			return &model.InputError{Field: "cell_id", Message: fmt.Sprintf("セルID %q に使用できない文字 %q が含まれています", id, c)}
		}
	}
	return nil
}

// CellsForPoints 点列が通過するセルIDを出現順・重複なしで返す。範囲外の点は無視する
func CellsForPoints(points []orb.Point) []string {
	seen := make(map[string]struct{}, len(points))
	ids := make([]string, 0, len(points))
	for _, p := range points {
		id, err := EncodeCell(p.Lat(), p.Lon())
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
