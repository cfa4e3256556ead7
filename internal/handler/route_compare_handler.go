package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/usecase"
)

// RouteCompareHandler はルート比較APIのハンドラー
type RouteCompareHandler struct {
	compareUseCase usecase.RouteCompareUseCase
}

func NewRouteCompareHandler(compareUseCase usecase.RouteCompareUseCase) *RouteCompareHandler {
	return &RouteCompareHandler{compareUseCase: compareUseCase}
}

// PostCompareRoutes はルート候補を安全スコアで比較するエンドポイント
// POST /api/routes/compare
func (h *RouteCompareHandler) PostCompareRoutes(c *gin.Context) {
	var req model.CompareRoutesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return
	}

	response, err := h.compareUseCase.CompareRoutes(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "ルートの比較に失敗しました", err)
		return
	}

	c.JSON(http.StatusOK, response)
}
