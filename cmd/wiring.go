package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"SafeRoute-App/internal/config"
	domainrepo "SafeRoute-App/internal/domain/repository"
	"SafeRoute-App/internal/domain/service"
	"SafeRoute-App/internal/infrastructure/database"
	"SafeRoute-App/internal/infrastructure/firestore"
	"SafeRoute-App/internal/infrastructure/maps"
	"SafeRoute-App/internal/infrastructure/metrics"
	"SafeRoute-App/internal/infrastructure/redis"
	"SafeRoute-App/internal/repository"
	"SafeRoute-App/internal/usecase"
)

// app 設定から組み立てた依存一式
type app struct {
	cells    domainrepo.CellsRepository
	pois     domainrepo.POIsRepository
	cooldown domainrepo.CooldownRepository
	provider domainrepo.RouteProvider
	metrics  *metrics.Metrics

	compare usecase.RouteCompareUseCase
	police  usecase.PoliceMappingUseCase
	cellsUC usecase.CellsUseCase

	closers []func() error
}

// Close 開いた接続を逆順に閉じる
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildApp ストア・プロバイダを設定に従って初期化し、ユースケースまで組み立てる
func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{metrics: metrics.New()}

	var pg *database.PostgreSQLClient
	postgres := func() (*database.PostgreSQLClient, error) {
		if pg != nil {
			return pg, nil
		}
		client, err := database.NewPostgreSQLClient(ctx, cfg.Postgres.DSN, cfg.Supabase.URL, cfg.Supabase.DBPassword)
		if err != nil {
			return nil, err
		}
		pg = client
		a.closers = append(a.closers, client.Close)
		return pg, nil
	}

	var sb *database.SupabaseClient
	supabase := func() (*database.SupabaseClient, error) {
		if sb != nil {
			return sb, nil
		}
		client, err := database.NewSupabaseClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)
		if err != nil {
			return nil, err
		}
		sb = client
		return sb, nil
	}

	// セルストア
	switch cfg.Store.Cells {
	case "firestore":
		fc, err := firestore.NewFirestoreClient(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
		if err != nil {
			return nil, a.fail(err)
		}
		a.closers = append(a.closers, fc.Close)
		a.cells = repository.NewFirestoreCellsRepository(fc.GetClient(), cfg.Firestore.Collection)
	case "postgres":
		client, err := postgres()
		if err != nil {
			return nil, a.fail(err)
		}
		a.cells = repository.NewPostgresCellsRepository(client)
	case "supabase":
		sc, err := supabase()
		if err != nil {
			return nil, a.fail(err)
		}
		a.cells = repository.NewSupabaseCellsRepository(sc)
	default:
		logger.Warn("⚠️ インメモリのセルストアを使用します（再起動で消えます）")
		a.cells = repository.NewMemoryCellsRepository()
	}

	// POIストア
	switch cfg.Store.POIs {
	case "supabase":
		sc, err := supabase()
		if err != nil {
			return nil, a.fail(err)
		}
		a.pois = repository.NewSupabasePOIsRepository(sc)
	default:
		client, err := postgres()
		if err != nil {
			return nil, a.fail(err)
		}
		a.pois = repository.NewPostgresPOIsRepository(client)
	}

	// クールダウン
	switch cfg.RateLimit.Backend {
	case "redis":
		rc, err := redis.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, a.fail(err)
		}
		a.closers = append(a.closers, rc.Close)
		a.cooldown = repository.NewRedisCooldownRepository(rc.GetClient())
	default:
		a.cooldown = repository.NewMemoryCooldownRepository()
	}

	// ルートプロバイダ
	switch cfg.Maps.Provider {
	case "routes":
		a.provider = maps.NewGoogleRoutesProvider(cfg.Maps.APIKey, cfg.Maps.Timeout, cfg.Maps.QPS)
	default:
		a.provider = maps.NewGoogleDirectionsProvider(cfg.Maps.APIKey, cfg.Maps.Timeout, cfg.Maps.QPS)
	}
	if cfg.Maps.APIKey == "" {
		logger.Warn("⚠️ maps.api_keyが設定されていません。ルート比較は失敗します")
	}

	normalizer := service.NewRouteNormalizer(cfg.Routing.AvgSpeedKmh, logger)
	scorer := service.NewRouteScorer(a.cells, cfg.Routing.MaxSamples, logger)
	mapper := service.NewPoliceProximityMapper(a.cells, a.pois, service.PoliceMapperOptions{
		DefaultLimit: cfg.Police.DefaultLimit,
		Concurrency:  cfg.Police.Concurrency,
		BatchSize:    cfg.Police.BatchSize,
	}, logger)

	a.compare = usecase.NewRouteCompareUseCase(a.provider, normalizer, scorer, a.metrics, logger)
	a.police = usecase.NewPoliceMappingUseCase(mapper, a.metrics)
	a.cellsUC = usecase.NewCellsUseCase(a.cells, a.metrics, logger)

	logger.Info("✅ 依存関係の初期化完了",
		zap.String("cells_store", cfg.Store.Cells),
		zap.String("pois_store", cfg.Store.POIs),
		zap.String("cooldown", cfg.RateLimit.Backend),
		zap.String("provider", a.provider.Name()),
	)
	return a, nil
}

// fail 途中まで開いた接続を閉じてからエラーを返す
func (a *app) fail(err error) error {
	if cerr := a.Close(); cerr != nil {
		zap.L().Warn("⚠️ 接続のクローズに失敗", zap.Error(cerr))
	}
	return fmt.Errorf("初期化に失敗: %w", err)
}
