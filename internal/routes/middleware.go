package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"go-todo-api/internal/models"
	"go-todo-api/internal/services"
)

// TokenVerifier はベアラートークンを検証して呼び出し元を返します。
type TokenVerifier interface {
	ValidateToken(token string) (*models.Identity, error)
}

// AuthMiddleware はJWTトークンを検証し、ユーザー情報をコンテキストに設定するミドルウェアです。
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		// "Bearer " プレフィックスを削除
		scheme, token, found := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		identity, err := verifier.ValidateToken(token)
		if err != nil {
			if errors.Is(err, services.ErrInvalidToken) || errors.Is(err, services.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			log.Error("Failed to verify token", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify token", "details": err.Error()})
			return
		}

		c.Set("user_id", identity.UserID)
		c.Set("user_email", identity.Email)
		c.Next()
	}
}
