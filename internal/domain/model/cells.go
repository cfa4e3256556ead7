package model

import "time"

// 安全スコアの因子名
const (
	FactorLighting  = "lighting"
	FactorCrowd     = "crowd"
	FactorPolice    = "police"
	FactorIncidents = "incidents"
	FactorAccidents = "accidents"
)

const (
	// NeutralFactorValue 未計測の因子に使う中立値
	NeutralFactorValue = 5.0
	MinFactorValue     = 0.0
	MaxFactorValue     = 10.0
)

// Factors セルの安全スコアを構成する5つの因子（各0〜10）
type Factors struct {
	Lighting  float64 `json:"lighting" firestore:"lighting"`
	Crowd     float64 `json:"crowd" firestore:"crowd"`
	Police    float64 `json:"police" firestore:"police"`
	Incidents float64 `json:"incidents" firestore:"incidents"`
	Accidents float64 `json:"accidents" firestore:"accidents"`
}

// PartialFactors 一部の因子だけを持つ入力・更新用の型（nilは未指定）
type PartialFactors struct {
	Lighting  *float64 `json:"lighting,omitempty"`
	Crowd     *float64 `json:"crowd,omitempty"`
	Police    *float64 `json:"police,omitempty"`
	Incidents *float64 `json:"incidents,omitempty"`
	Accidents *float64 `json:"accidents,omitempty"`
}

// Partial 全因子を指定済みのPartialFactorsに変換
func (f Factors) Partial() PartialFactors {
	return PartialFactors{
		Lighting:  Float64(f.Lighting),
		Crowd:     Float64(f.Crowd),
		Police:    Float64(f.Police),
		Incidents: Float64(f.Incidents),
		Accidents: Float64(f.Accidents),
	}
}

// Merge 指定された因子だけを上書きした新しいFactorsを返す（値は0〜10に丸める）
func (f Factors) Merge(p PartialFactors) Factors {
	merged := f
	if p.Lighting != nil {
		merged.Lighting = ClampFactor(*p.Lighting)
	}
	if p.Crowd != nil {
		merged.Crowd = ClampFactor(*p.Crowd)
	}
	if p.Police != nil {
		merged.Police = ClampFactor(*p.Police)
	}
	if p.Incidents != nil {
		merged.Incidents = ClampFactor(*p.Incidents)
	}
	if p.Accidents != nil {
		merged.Accidents = ClampFactor(*p.Accidents)
	}
	return merged
}

// IsEmpty どの因子も指定されていないか
func (p PartialFactors) IsEmpty() bool {
	return p.Lighting == nil && p.Crowd == nil && p.Police == nil && p.Incidents == nil && p.Accidents == nil
}

// Values 指定済みの因子を因子名→値のmapで返す（部分更新のパス生成に使用）
func (p PartialFactors) Values() map[string]float64 {
	values := make(map[string]float64, 5)
	if p.Lighting != nil {
		values[FactorLighting] = *p.Lighting
	}
	if p.Crowd != nil {
		values[FactorCrowd] = *p.Crowd
	}
	if p.Police != nil {
		values[FactorPolice] = *p.Police
	}
	if p.Incidents != nil {
		values[FactorIncidents] = *p.Incidents
	}
	if p.Accidents != nil {
		values[FactorAccidents] = *p.Accidents
	}
	return values
}

// ClampFactor 因子の値を0〜10に収める
func ClampFactor(v float64) float64 {
	if v < MinFactorValue {
		return MinFactorValue
	}
	if v > MaxFactorValue {
		return MaxFactorValue
	}
	return v
}

// Float64 ポインタ生成用の小さなヘルパー
func Float64(v float64) *float64 {
	return &v
}

// NearestPolice 最寄り警察施設への弱参照。名前や電話番号などPOI側の可変項目は持たない
type NearestPolice struct {
	PlaceID        string  `json:"place_id" firestore:"placeId"`
	DistanceMeters float64 `json:"distance_meters" firestore:"distanceMeters"`
}

// Cell グリッドセル1つ分の安全スコア記録
type Cell struct {
	ID            string         `json:"id" firestore:"-"`                            // geohash（CellPrecision桁）
	Score         float64        `json:"score" firestore:"score"`                     // 0〜10
	Factors       Factors        `json:"factors" firestore:"factors"`                 // 各0〜10
	NearestPolice *NearestPolice `json:"nearest_police,omitempty" firestore:"nearestPolice,omitempty"`
	LastUpdated   time.Time      `json:"last_updated" firestore:"lastUpdated"`
}

// CellPatch セルの部分更新内容。Factorsは指定された因子だけ上書きする
type CellPatch struct {
	ID            string
	Factors       PartialFactors
	Score         float64
	NearestPolice *NearestPolice
	LastUpdated   time.Time
}

// BulkResult 一括部分更新の結果。個別の失敗はErrorsに入り、処理全体は止めない
type BulkResult struct {
	Updated int
	Failed  int
	Errors  []*StoreError
}

// Add 別チャンクの結果を合算する
func (r *BulkResult) Add(other BulkResult) {
	r.Updated += other.Updated
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}
