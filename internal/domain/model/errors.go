package model

import "fmt"

// InputError 必須パラメータの欠落など、外部に問い合わせる前に弾く入力エラー
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Field + ": " + e.Message
}

// RangeError 緯度経度が有効範囲外
type RangeError struct {
	Lat float64
	Lng float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("座標が範囲外です (lat=%f, lng=%f): 緯度は-90〜90、経度は-180〜180", e.Lat, e.Lng)
}

// ProviderError ルートプロバイダの通信失敗。自動リトライはしない
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ルートプロバイダ(%s)の呼び出しに失敗: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NotFoundError 対象が見つからない（プロバイダがルートを返さない等）
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	return e.Resource + ": " + e.Message
}

// DecodeError ポリラインを復旧処理後もデコードできない
type DecodeError struct {
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	input := e.Input
	if len(input) > 32 {
		input = input[:32] + "..."
	}
	return fmt.Sprintf("ポリラインのデコードに失敗 (%q): %v", input, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StoreError 一括書き込み内の個別アイテムの失敗。そのアイテムだけに閉じる
type StoreError struct {
	CellID string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("セル %s の書き込みに失敗: %v", e.CellID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
