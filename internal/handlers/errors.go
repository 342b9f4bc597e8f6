// Package handlers はHTTPリクエストを受け取り、サービスを呼び出してJSONで応答します。
package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"go-todo-api/internal/models"
	"go-todo-api/internal/repositories"
	"go-todo-api/internal/services"
)

// respondError はエラーをステータスコードと {error, details} に変換して返します。
// fallback は500のときのメッセージです。
func respondError(c *gin.Context, err error, fallback string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": verr.Error()})
	case errors.Is(err, repositories.ErrTodoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	default:
		_ = c.Error(err)
		log.Error(fallback, "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "details": err.Error()})
	}
}

// currentUserID は AuthMiddleware が設定したユーザーIDを取り出します。
func currentUserID(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
		return "", false
	}
	userID, ok := userIDVal.(string)
	if !ok || userID == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID type in context"})
		return "", false
	}
	return userID, true
}
