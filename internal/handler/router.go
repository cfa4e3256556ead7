package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"SafeRoute-App/internal/domain/repository"
	"SafeRoute-App/internal/infrastructure/metrics"
)

// RouterDeps ルーター構築に必要な依存
type RouterDeps struct {
	RouteCompare   *RouteCompareHandler
	PoliceMap      *PoliceMapHandler
	Cells          *CellsHandler
	Cooldown       repository.CooldownRepository
	PoliceCooldown time.Duration
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), ZapLogger(deps.Logger))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "SafeRoute-App"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := r.Group("/api")
	{
		api.POST("/routes/compare", deps.RouteCompare.PostCompareRoutes)
		api.POST("/police/map", Cooldown(deps.Cooldown, "police_map", deps.PoliceCooldown), deps.PoliceMap.PostMapPolice)

		api.GET("/cells/geojson", deps.Cells.GetCellsGeoJSON)
		api.GET("/cells/:id", deps.Cells.GetCell)
		api.PUT("/cells/:id/factors", deps.Cells.PutCellFactors)
	}
	return r
}
