package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"SafeRoute-App/internal/domain/model"
	"SafeRoute-App/internal/usecase"
)

// CellsHandler はセル管理APIのハンドラー
type CellsHandler struct {
	cellsUseCase usecase.CellsUseCase
}

func NewCellsHandler(cellsUseCase usecase.CellsUseCase) *CellsHandler {
	return &CellsHandler{cellsUseCase: cellsUseCase}
}

// GetCell GET /api/cells/:id
func (h *CellsHandler) GetCell(c *gin.Context) {
	cell, err := h.cellsUseCase.GetCell(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "セルの取得に失敗しました", err)
		return
	}
	c.JSON(http.StatusOK, cell)
}

// PutCellFactors 指定された因子だけを更新する
// PUT /api/cells/:id/factors
func (h *CellsHandler) PutCellFactors(c *gin.Context) {
	var factors model.PartialFactors
	if err := c.ShouldBindJSON(&factors); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return
	}

	cell, err := h.cellsUseCase.UpdateFactors(c.Request.Context(), c.Param("id"), factors)
	if err != nil {
		respondError(c, "セルの更新に失敗しました", err)
		return
	}
	c.JSON(http.StatusOK, cell)
}

// GetCellsGeoJSON GET /api/cells/geojson?ids=a,b,c
func (h *CellsHandler) GetCellsGeoJSON(c *gin.Context) {
	var ids []string
	for _, id := range strings.Split(c.Query("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	fc, err := h.cellsUseCase.CellsGeoJSON(c.Request.Context(), ids)
	if err != nil {
		respondError(c, "セルのGeoJSON生成に失敗しました", err)
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}
