package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"SafeRoute-App/internal/domain/model"
)

// respondError エラーの種類からステータスコードを決めてJSONで返す
func respondError(c *gin.Context, message string, err error) {
	var (
		inputErr    *model.InputError
		rangeErr    *model.RangeError
		providerErr *model.ProviderError
		notFoundErr *model.NotFoundError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &inputErr), errors.As(err, &rangeErr):
		status = http.StatusBadRequest
		message = "バリデーションエラー"
	case errors.As(err, &providerErr):
		status = http.StatusBadGateway
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	}

	if status >= http.StatusInternalServerError {
		zap.L().Error("❌ "+message, zap.Error(err), zap.String("path", c.FullPath()))
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
