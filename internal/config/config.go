package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config アプリケーション全体の設定
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Maps      MapsConfig      `mapstructure:"maps"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Police    PoliceConfig    `mapstructure:"police"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin のモード (debug / release / test)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json / console
}

// StoreConfig セル・POIのストア実装の選択
type StoreConfig struct {
	Cells string `mapstructure:"cells"` // firestore / postgres / supabase / memory
	POIs  string `mapstructure:"pois"`  // postgres / supabase
}

type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Collection      string `mapstructure:"collection"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	AnonKey    string `mapstructure:"anon_key"`
	DBPassword string `mapstructure:"db_password"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Backend        string        `mapstructure:"backend"` // redis / memory
	PoliceCooldown time.Duration `mapstructure:"police_cooldown"`
}

type MapsConfig struct {
	Provider string        `mapstructure:"provider"` // directions / routes
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	QPS      float64       `mapstructure:"qps"`
}

type RoutingConfig struct {
	AvgSpeedKmh float64 `mapstructure:"avg_speed_kmh"`
	MaxSamples  int     `mapstructure:"max_samples"` // 0 は全点を使う
}

type PoliceConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	Concurrency  int `mapstructure:"concurrency"`
	BatchSize    int `mapstructure:"batch_size"`
}

// Load .env → 環境変数 → config.yaml → デフォルト値 の優先順で設定を読み込む
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envの読み込みに失敗: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 既存のデプロイで使っている環境変数名
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("maps.api_key", "MAPS_API_KEY", "GOOGLE_MAPS_API_KEY")
	_ = v.BindEnv("firestore.project_id", "FIRESTORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	_ = v.BindEnv("firestore.credentials_file", "FIRESTORE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.cells", "memory")
	v.SetDefault("store.pois", "postgres")
	v.SetDefault("firestore.collection", "safetyCells")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.anon_key", "")
	v.SetDefault("supabase.db_password", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.police_cooldown", 30*time.Second)
	v.SetDefault("maps.provider", "directions")
	v.SetDefault("maps.timeout", 10*time.Second)
	v.SetDefault("maps.qps", 10)
	v.SetDefault("routing.avg_speed_kmh", 30)
	v.SetDefault("routing.max_samples", 0)
	v.SetDefault("police.default_limit", 500)
	v.SetDefault("police.concurrency", 8)
	v.SetDefault("police.batch_size", 200)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の変換に失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 選択肢のある設定値をチェックする
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.modeは debug / release / test のいずれかです: %q", c.Server.Mode)
	}
	switch c.Store.Cells {
	case "firestore", "postgres", "supabase", "memory":
	default:
		return fmt.Errorf("store.cellsは firestore / postgres / supabase / memory のいずれかです: %q", c.Store.Cells)
	}
	switch c.Store.POIs {
	case "postgres", "supabase":
	default:
		return fmt.Errorf("store.poisは postgres / supabase のいずれかです: %q", c.Store.POIs)
	}
	switch c.RateLimit.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("ratelimit.backendは redis / memory のいずれかです: %q", c.RateLimit.Backend)
	}
	switch c.Maps.Provider {
	case "directions", "routes":
	default:
		return fmt.Errorf("maps.providerは directions / routes のいずれかです: %q", c.Maps.Provider)
	}
	if c.RateLimit.PoliceCooldown <= 0 {
		return fmt.Errorf("ratelimit.police_cooldownは正の値で指定してください: %s", c.RateLimit.PoliceCooldown)
	}
	if c.Maps.QPS < 0 {
		return fmt.Errorf("maps.qpsは0以上で指定してください: %v", c.Maps.QPS)
	}
	if c.Police.DefaultLimit > 5000 {
		return fmt.Errorf("police.default_limitは5000以下で指定してください: %d", c.Police.DefaultLimit)
	}
	return nil
}

// InitLogger グローバルのzapロガーを初期化する
func InitLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("ログレベルの解析に失敗: %w", err)
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの生成に失敗: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
