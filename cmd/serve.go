package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"SafeRoute-App/internal/handler"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTPサーバーを起動する",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		gin.SetMode(cfg.Server.Mode)
		router := handler.NewRouter(handler.RouterDeps{
			RouteCompare:   handler.NewRouteCompareHandler(a.compare),
			PoliceMap:      handler.NewPoliceMapHandler(a.police),
			Cells:          handler.NewCellsHandler(a.cellsUC),
			Cooldown:       a.cooldown,
			PoliceCooldown: cfg.RateLimit.PoliceCooldown,
			Metrics:        a.metrics,
			Logger:         logger,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			logger.Info("🛑 サーバーを停止します")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("❌ サーバー停止に失敗", zap.Error(err))
			}
		}()

		logger.Info("🚀 SafeRoute-App server starting", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "待ち受けポート（省略時は設定値）")
	rootCmd.AddCommand(serveCmd)
}
