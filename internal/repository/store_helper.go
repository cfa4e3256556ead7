package repository

import "errors"

var (
	errCellNotFound       = errors.New("セルが存在しません")
	errInvalidCooldownTTL = errors.New("クールダウンのTTLは正の値である必要があります")
)

// chunkStrings idsをsize件ずつに分割する
func chunkStrings(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		chunks = append(chunks, ids[start:min(start+size, len(ids))])
	}
	return chunks
}
