package model

// MapPoliceRequest 最寄り警察マッピングのリクエスト
type MapPoliceRequest struct {
	CellIDs []string `json:"cell_ids"`
	Limit   int      `json:"limit"`
	DryRun  bool     `json:"dry_run"`
}

// MapPoliceResult セル1つ分のマッピング結果。最寄りが見つからない場合Nearestはnil
type MapPoliceResult struct {
	CellID      string         `json:"cell_id"`
	Nearest     *NearestPolice `json:"nearest"`
	PoliceScore float64        `json:"police_score"`
	Score       float64        `json:"score"`
	Error       string         `json:"error,omitempty"`
}

// MapPoliceResponse 最寄り警察マッピングのレスポンス
type MapPoliceResponse struct {
	Processed int               `json:"processed"`
	Updated   int               `json:"updated"`
	DryRun    bool              `json:"dry_run"`
	Results   []MapPoliceResult `json:"results"`
}
