package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-todo-api/internal/models"
	"go-todo-api/internal/repositories"
	"go-todo-api/internal/services"
)

// UserHandler はユーザー関連のハンドラーを管理します。
type UserHandler struct {
	userService *services.UserService
	jwtService  *services.JWTService
}

// NewUserHandler は新しいUserHandlerを作成します。
func NewUserHandler(userService *services.UserService, jwtService *services.JWTService) *UserHandler {
	return &UserHandler{userService: userService, jwtService: jwtService}
}

// RegisterHandler はユーザー登録を処理します。
func (h *UserHandler) RegisterHandler(c *gin.Context) {
	var req models.UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	user, err := h.userService.RegisterUser(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
			return
		}
		respondError(c, err, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// LoginHandler はユーザーログインを処理し、ベアラートークンを発行します。
func (h *UserHandler) LoginHandler(c *gin.Context) {
	var req models.UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	user, err := h.userService.AuthenticateUser(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		respondError(c, err, "Failed to authenticate user")
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		respondError(c, err, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{Token: token, UserID: user.ID, ExpiresAt: expiresAt})
}

// MeHandler はトークンから取り出した呼び出し元を返します。
func (h *UserHandler) MeHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	email := c.GetString("user_email")
	c.JSON(http.StatusOK, models.Identity{UserID: userID, Email: email})
}
