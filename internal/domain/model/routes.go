package model

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

// ルートに付与するタグ（複数付与可）
const (
	TagSafest   = "safest"
	TagFastest  = "fastest"
	TagShortest = "shortest"
)

// 表示用の色区分
const (
	ColorGreen   = "green"
	ColorYellow  = "yellow"
	ColorRed     = "red"
	ColorNeutral = "gray"
)

// NoDataLabel セルを1つも含まないルートのスコア表記
const NoDataLabel = "no data"

// IsValidPreference preferに指定できる値か
func IsValidPreference(prefer string) bool {
	switch prefer {
	case TagSafest, TagFastest, TagShortest:
		return true
	default:
		return false
	}
}

// Distance ルートの距離
type Distance struct {
	Text   string `json:"text"`
	Meters int    `json:"meters"`
	Known  bool   `json:"-"` // プロバイダから取得できたか
}

// Duration ルートの所要時間
type Duration struct {
	Text        string `json:"text"`
	Seconds     int    `json:"seconds"`
	Approximate bool   `json:"approximate,omitempty"` // 距離と平均速度から推定した値
	Known       bool   `json:"-"`
}

// SafetyScore ルートの安全スコア。セルがない場合は "no data" としてシリアライズする
type SafetyScore struct {
	Value   float64
	HasData bool
}

// ScoreOf 数値スコアを作る
func ScoreOf(v float64) SafetyScore {
	return SafetyScore{Value: v, HasData: true}
}

// NoData "no data" スコアを作る
func NoData() SafetyScore {
	return SafetyScore{}
}

func (s SafetyScore) String() string {
	if !s.HasData {
		return NoDataLabel
	}
	return fmt.Sprintf("%.2f", s.Value)
}

func (s SafetyScore) MarshalJSON() ([]byte, error) {
	if !s.HasData {
		return json.Marshal(NoDataLabel)
	}
	return json.Marshal(s.Value)
}

func (s *SafetyScore) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		if label != NoDataLabel {
			return fmt.Errorf("不正なsafety_score: %q", label)
		}
		*s = NoData()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("safety_scoreのパースに失敗: %w", err)
	}
	*s = ScoreOf(v)
	return nil
}

// CandidateRoute 1リクエスト内だけで使うルート候補
type CandidateRoute struct {
	ID          string      `json:"id"`
	Polyline    string      `json:"polyline"`
	Points      []orb.Point `json:"-"`
	CellIDs     []string    `json:"-"`
	CellsCount  int         `json:"cells_count"`
	Distance    Distance    `json:"distance"`
	Duration    Duration    `json:"duration"`
	SafetyScore SafetyScore `json:"safety_score"`
	Color       string      `json:"color"`
	Tags        []string    `json:"tags"`
}

// HasTag 指定したタグを持つか
func (r *CandidateRoute) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag 重複しないようにタグを追加
func (r *CandidateRoute) AddTag(tag string) {
	if !r.HasTag(tag) {
		r.Tags = append(r.Tags, tag)
	}
}

// CompareRoutesRequest ルート比較APIのリクエスト
type CompareRoutesRequest struct {
	Origin      string `json:"origin"`      // 住所 または "lat,lng"
	Destination string `json:"destination"` // 住所 または "lat,lng"
	Single      bool   `json:"single"`
	Prefer      string `json:"prefer"` // safest / fastest / shortest
	TravelMode  string `json:"travel_mode"`
}

// ScoreSummary スコア計算時のセル解決状況
type ScoreSummary struct {
	CellsTotal   int `json:"cells_total"`
	CellsCreated int `json:"cells_created"`
}

// CompareRoutesResponse ルート比較APIのレスポンス。singleの場合はRouteのみ
type CompareRoutesResponse struct {
	Routes  []*CandidateRoute `json:"routes,omitempty"`
	Route   *CandidateRoute   `json:"route,omitempty"`
	Summary ScoreSummary      `json:"summary"`
}
