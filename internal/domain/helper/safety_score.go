package helper

import (
	"math"

	"SafeRoute-App/internal/domain/model"
)

// 因子ごとの重み（合計1.0）
const (
	WeightLighting  = 0.25
	WeightCrowd     = 0.20
	WeightPolice    = 0.25
	WeightIncidents = 0.20
	WeightAccidents = 0.10
)

// DefaultFactors 新規セル用の中立な因子
func DefaultFactors() model.Factors {
	return model.Factors{
		Lighting:  model.NeutralFactorValue,
		Crowd:     model.NeutralFactorValue,
		Police:    model.NeutralFactorValue,
		Incidents: model.NeutralFactorValue,
		Accidents: model.NeutralFactorValue,
	}
}

// ComputeSafetyScore 因子の加重平均で0〜10の安全スコアを計算する（小数第2位で丸め）。
// incidents と accidents はリスクの件数なので 10 - v に反転して加算する。
func ComputeSafetyScore(f model.PartialFactors) float64 {
	score := WeightLighting*factorValue(f.Lighting) +
		WeightCrowd*factorValue(f.Crowd) +
		WeightPolice*factorValue(f.Police) +
		WeightIncidents*(model.MaxFactorValue-factorValue(f.Incidents)) +
		WeightAccidents*(model.MaxFactorValue-factorValue(f.Accidents))

	return model.ClampFactor(Round2(score))
}

// ComputeCellScore 全因子がそろっている場合のショートカット
func ComputeCellScore(f model.Factors) float64 {
	return ComputeSafetyScore(f.Partial())
}

// Round2 小数第2位で丸める
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func factorValue(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return model.NeutralFactorValue
	}
	return model.ClampFactor(*v)
}
