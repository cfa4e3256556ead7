package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/usecase"
)

// PoliceMapHandler は最寄り警察マッピングAPIのハンドラー
type PoliceMapHandler struct {
	mappingUseCase usecase.PoliceMappingUseCase
}

func NewPoliceMapHandler(mappingUseCase usecase.PoliceMappingUseCase) *PoliceMapHandler {
	return &PoliceMapHandler{mappingUseCase: mappingUseCase}
}

// PostMapPolice はセルごとに最寄りの警察施設を探してpolice因子を更新するエンドポイント
// POST /api/police/map （ボディ省略時はストアを走査）
func (h *PoliceMapHandler) PostMapPolice(c *gin.Context) {
	var req model.MapPoliceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return
	}

	response, err := h.mappingUseCase.MapPolice(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "最寄り警察のマッピングに失敗しました", err)
		return
	}

	c.JSON(http.StatusOK, response)
}
