package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"SafeRoute-App/internal/domain/model"
)

// DefaultAverageSpeedKmh 所要時間が返らない場合の推定に使う平均速度
const DefaultAverageSpeedKmh = 30.0

// RouteNormalizer はプロバイダごとに形の異なるルートJSONを共通のルート候補に揃える
type RouteNormalizer interface {
	Normalize(raws []json.RawMessage) []*model.CandidateRoute
}

type routeNormalizer struct {
	avgSpeedKmh float64
	logger      *zap.Logger
}

func NewRouteNormalizer(avgSpeedKmh float64, logger *zap.Logger) RouteNormalizer {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = DefaultAverageSpeedKmh
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &routeNormalizer{avgSpeedKmh: avgSpeedKmh, logger: logger}
}

type polylineExtractor func(route gjson.Result) (string, bool)
type distanceExtractor func(route gjson.Result) (model.Distance, bool)
type durationExtractor func(route gjson.Result) (model.Duration, bool)

// 先に解決できたものを採用する。Directions API → Routes API v2 の順
var (
	polylineExtractors = []polylineExtractor{
		stringAt("overview_polyline.points"),
		stringAt("polyline.encodedPolyline"),
		stringAt("polyline"),
	}
	distanceExtractors = []distanceExtractor{
		directionsDistance,
		routesDistance,
	}
	durationExtractors = []durationExtractor{
		directionsDuration,
		routesDuration,
	}
)

func (n *routeNormalizer) Normalize(raws []json.RawMessage) []*model.CandidateRoute {
	routes := make([]*model.CandidateRoute, 0, len(raws))
	for i, raw := range raws {
		if !gjson.ValidBytes(raw) {
			n.logger.Warn("⚠️  ルートJSONが不正なためスキップ", zap.Int("index", i))
			continue
		}
		parsed := gjson.ParseBytes(raw)

		encoded, ok := firstPolyline(parsed)
		if !ok {
			n.logger.Warn("⚠️  ポリラインを持たないルートをスキップ", zap.Int("index", i))
			continue
		}

		route := &model.CandidateRoute{
			ID:       uuid.NewString(),
			Polyline: encoded,
			Tags:     []string{},
		}
		if d, ok := firstDistance(parsed); ok {
			route.Distance = d
		}
		if d, ok := firstDuration(parsed); ok {
			route.Duration = d
		} else if route.Distance.Known {
			route.Duration = n.estimateDuration(route.Distance.Meters)
		}
		routes = append(routes, route)
	}
	return routes
}

// estimateDuration 距離と平均速度から所要時間を推定する（表記は "~" 付き）
func (n *routeNormalizer) estimateDuration(meters int) model.Duration {
	seconds := int(math.Round(float64(meters) / (n.avgSpeedKmh / 3.6)))
	return model.Duration{
		Text:        "~" + formatDuration(seconds),
		Seconds:     seconds,
		Approximate: true,
		Known:       true,
	}
}

func firstPolyline(route gjson.Result) (string, bool) {
	for _, extract := range polylineExtractors {
		if v, ok := extract(route); ok {
			return v, true
		}
	}
	return "", false
}

func firstDistance(route gjson.Result) (model.Distance, bool) {
	for _, extract := range distanceExtractors {
		if v, ok := extract(route); ok {
			return v, true
		}
	}
	return model.Distance{}, false
}

func firstDuration(route gjson.Result) (model.Duration, bool) {
	for _, extract := range durationExtractors {
		if v, ok := extract(route); ok {
			return v, true
		}
	}
	return model.Duration{}, false
}

func stringAt(path string) polylineExtractor {
	return func(route gjson.Result) (string, bool) {
		v := route.Get(path)
		if v.Type != gjson.String || v.Str == "" {
			return "", false
		}
		return v.Str, true
	}
}

// directionsDistance Directions APIの legs[].distance を合算する
func directionsDistance(route gjson.Result) (model.Distance, bool) {
	legs := route.Get("legs.#.distance")
	if !legs.IsArray() || len(legs.Array()) == 0 {
		return model.Distance{}, false
	}
	total, texts := 0, []string{}
	for _, leg := range legs.Array() {
		value := leg.Get("value")
		if value.Type != gjson.Number {
			return model.Distance{}, false
		}
		total += int(value.Int())
		texts = append(texts, leg.Get("text").String())
	}
	text := formatDistance(total)
	if len(texts) == 1 && texts[0] != "" {
		text = texts[0]
	}
	return model.Distance{Text: text, Meters: total, Known: true}, true
}

func routesDistance(route gjson.Result) (model.Distance, bool) {
	value := route.Get("distanceMeters")
	if value.Type != gjson.Number {
		return model.Distance{}, false
	}
	meters := int(value.Int())
	text := route.Get("localizedValues.distance.text").String()
	if text == "" {
		text = formatDistance(meters)
	}
	return model.Distance{Text: text, Meters: meters, Known: true}, true
}

// directionsDuration Directions APIの legs[].duration を合算する
func directionsDuration(route gjson.Result) (model.Duration, bool) {
	legs := route.Get("legs.#.duration")
	if !legs.IsArray() || len(legs.Array()) == 0 {
		return model.Duration{}, false
	}
	total, texts := 0, []string{}
	for _, leg := range legs.Array() {
		value := leg.Get("value")
		if value.Type != gjson.Number {
			return model.Duration{}, false
		}
		total += int(value.Int())
		texts = append(texts, leg.Get("text").String())
	}
	text := formatDuration(total)
	if len(texts) == 1 && texts[0] != "" {
		text = texts[0]
	}
	return model.Duration{Text: text, Seconds: total, Known: true}, true
}

// routesDuration Routes API v2 の "123s" 形式
func routesDuration(route gjson.Result) (model.Duration, bool) {
	raw := route.Get("duration")
	if raw.Type != gjson.String || !strings.HasSuffix(raw.Str, "s") {
		return model.Duration{}, false
	}
	secs, err := strconv.ParseFloat(strings.TrimSuffix(raw.Str, "s"), 64)
	if err != nil {
		return model.Duration{}, false
	}
	seconds := int(math.Round(secs))
	text := route.Get("localizedValues.duration.text").String()
	if text == "" {
		text = formatDuration(seconds)
	}
	return model.Duration{Text: text, Seconds: seconds, Known: true}, true
}

func formatDistance(meters int) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", meters)
	}
	return fmt.Sprintf("%.1f km", float64(meters)/1000)
}

func formatDuration(seconds int) string {
	minutes := int(math.Round(float64(seconds) / 60))
	if minutes < 60 {
		if minutes <= 1 {
			return "1 min"
		}
		return fmt.Sprintf("%d mins", minutes)
	}
	return fmt.Sprintf("%d hours %d mins", minutes/60, minutes%60)
}
