package models

import (
	"fmt"
	"time"
)

// User は認証プロバイダーが管理するユーザーです。
// JSONタグ: クライアントとの通信用
// bindingタグ: Ginでのリクエストバリデーション用
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // JSONに出さない
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type UserRegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"` // 生パスワード
}

type UserLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"` // 生パスワード
}

// LoginResponse はログイン成功時のレスポンスです。
type LoginResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Identity はトークンから検証済みの呼び出し元です。
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// ValidationError はリクエストの検証エラーです。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
