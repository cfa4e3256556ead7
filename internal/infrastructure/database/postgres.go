package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// PostgreSQLClient PostgreSQL直接接続クライアント
type PostgreSQLClient struct {
	DB *sql.DB
}

// NewPostgreSQLClient DSNが指定されていればそれを、なければSupabaseのURLとDBパスワードから接続する
func NewPostgreSQLClient(ctx context.Context, dsn, supabaseURL, supabasePassword string) (*PostgreSQLClient, error) {
	if dsn == "" {
		var err error
		if dsn, err = SupabaseDSN(supabaseURL, supabasePassword); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("PostgreSQL接続の初期化に失敗: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("PostgreSQLへの接続に失敗: %w", err)
	}

	return NewPostgreSQLClientFromDB(db), nil
}

// NewPostgreSQLClientFromDB 既存の*sql.DBを包む（テストでsqlmockを渡す用途）
func NewPostgreSQLClientFromDB(db *sql.DB) *PostgreSQLClient {
	return &PostgreSQLClient{DB: db}
}

// SupabaseDSN SupabaseのURLからPostgreSQL接続文字列を組み立てる（ポート6543）
func SupabaseDSN(supabaseURL, password string) (string, error) {
	if supabaseURL == "" {
		return "", fmt.Errorf("postgres.dsn または supabase.url が設定されていません")
	}
	if password == "" {
		return "", fmt.Errorf("supabase.db_passwordが設定されていません")
	}

	// https://xxx.supabase.co -> xxx.supabase.co
	host := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(supabaseURL, "https://"), "http://"), "/")
	return fmt.Sprintf(
		"host=db.%s port=6543 user=postgres password=%s dbname=postgres sslmode=require",
		host, password,
	), nil
}

// Close データベース接続を閉じる
func (pc *PostgreSQLClient) Close() error {
	if pc.DB != nil {
		return pc.DB.Close()
	}
	return nil
}

// HealthCheck データベース接続のヘルスチェック
func (pc *PostgreSQLClient) HealthCheck(ctx context.Context) error {
	if pc.DB == nil {
		return fmt.Errorf("PostgreSQLクライアントが初期化されていません")
	}
	return pc.DB.PingContext(ctx)
}
