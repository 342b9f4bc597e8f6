package client

import (
	"context"
	"net/http"
	"time"
)

// User は登録で返されるアカウントです。
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session はログイン成功時の結果です。
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Identity はサーバーから見た呼び出し元です。
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Register はアカウントを作成します。トークンは不要です。
func (c *Client) Register(ctx context.Context, username, email, password string) (*User, error) {
	var u User
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.anonymousJSON(ctx, http.MethodPost, "/api/register", body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login は認証情報をBearerトークンに交換します。
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.anonymousJSON(ctx, http.MethodPost, "/api/login", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Me は現在のトークンのユーザーを返します。
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.fetchJSON(ctx, http.MethodGet, "/api/me", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}
