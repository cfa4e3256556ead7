package helper

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	polyline "github.com/twpayne/go-polyline"

	"SafeRoute-App/internal/domain/model"
)

var errNoPoints = errors.New("有効な座標が得られませんでした")

// DecodePolyline エンコード済みポリライン（精度1e-5）を点列に変換する。
// そのままデコードできない場合は次の順に復旧を試みる:
//  1. 前後の { } を除去
//  2. 二重のバックスラッシュを戻す
//  3. 一般的な文字列アンエスケープ
//
// すべて失敗した場合は空の点列と *model.DecodeError を返す。
func DecodePolyline(encoded string) ([]orb.Point, error) {
	var lastErr error = errNoPoints
	for _, candidate := range recoveryCandidates(encoded) {
		points, err := decodeStrict(candidate)
		if err == nil {
			return points, nil
		}
		lastErr = err
	}
	return []orb.Point{}, &model.DecodeError{Input: encoded, Err: lastErr}
}

// recoveryCandidates 復旧処理の各段階の文字列を試す順に返す
func recoveryCandidates(encoded string) []string {
	candidates := []string{encoded}

	stripped := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(encoded), "{"), "}")
	candidates = append(candidates, stripped)

	unescaped := strings.ReplaceAll(stripped, `\\`, `\`)
	candidates = append(candidates, unescaped)

	if s, err := strconv.Unquote(`"` + unescaped + `"`); err == nil {
		candidates = append(candidates, s)
	} else if s, err := strconv.Unquote(`"` + stripped + `"`); err == nil {
		candidates = append(candidates, s)
	}

	return candidates
}

// decodeStrict 1つでも不正な座標が含まれる結果は失敗として扱う
func decodeStrict(encoded string) ([]orb.Point, error) {
	if encoded == "" {
		return nil, errNoPoints
	}
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 || len(coords) == 0 {
		return nil, errNoPoints
	}

	points := make([]orb.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			return nil, errNoPoints
		}
		ll := model.LatLng{Lat: c[0], Lng: c[1]}
		if !ll.IsValid() {
			return nil, &model.RangeError{Lat: ll.Lat, Lng: ll.Lng}
		}
		points = append(points, ll.ToPoint())
	}
	return points, nil
}

// SamplePoints 等間隔に間引く。maxSamples <= 0 の場合は全点を返す
func SamplePoints(points []orb.Point, maxSamples int) []orb.Point {
	n := len(points)
	if maxSamples <= 0 || n <= maxSamples {
		return points
	}
	stride := int(math.Ceil(float64(n) / float64(maxSamples)))
	sampled := make([]orb.Point, 0, maxSamples)
	for i := 0; i < n; i += stride {
		sampled = append(sampled, points[i])
	}
	return sampled
}
