// Package testutil はハンドラーテスト用のルーターとヘルパーを提供します。
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"go-todo-api/internal/config"
	"go-todo-api/internal/database"
	"go-todo-api/internal/models"
	"go-todo-api/internal/repositories"
	"go-todo-api/internal/routes"
	"go-todo-api/internal/services"
)

// TestSecret はテスト用のJWT署名鍵です。
const TestSecret = "test-secret-0123456789"

// TestConfig はテスト用の設定を返します。
func TestConfig() *config.Config {
	return &config.Config{
		Port:          "8080",
		DBDriver:      "sqlite3",
		DBDSN:         ":memory:",
		MongoDatabase: "todos",
		JWTSecret:     TestSecret,
		JWTIssuer:     "go-todo-api",
		TokenTTL:      time.Hour,
		CORSOrigins:   []string{"http://localhost:3000"},
		LogLevel:      "error",
		LogFormat:     "text",
	}
}

// SetupTestDB はインメモリSQLiteのストアを作成し、テストユーザーを投入してルーターを返します。
// normal_user@example.com / password123 と other_user@example.com / password456 が作成されます。
func SetupTestDB(t *testing.T) (*repositories.Store, *gin.Engine) {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQL(ctx, database.SQLite, ":memory:")
	require.NoError(t, err, "Failed to open test database")
	store := repositories.NewSQLStore(db)
	t.Cleanup(func() { _ = store.Close(ctx) })

	CreateTestUser(t, store.Users, "normal_user", "normal_user@example.com", "password123")
	CreateTestUser(t, store.Users, "other_user", "other_user@example.com", "password456")

	return store, SetupTestRouter(t, store)
}

// SetupTestRouter はテスト用のGinルーターをセットアップします。
func SetupTestRouter(t *testing.T, store *repositories.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := TestConfig()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	return routes.SetupRouter(store, jwtService, cfg, logger)
}

// CreateTestUser はパスワードをハッシュ化してユーザーを直接作成します。
func CreateTestUser(t *testing.T, userRepo repositories.UserRepository, username, email, password string) *models.User {
	t.Helper()
	hashedPassword, err := services.HashPassword(password)
	require.NoError(t, err)

	createdUser, err := userRepo.Create(context.Background(), &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
	})
	require.NoError(t, err)
	require.NotEmpty(t, createdUser.ID)
	return createdUser
}

// CreateTestTodo はAPI経由でTODOを作成します。
func CreateTestTodo(t *testing.T, router *gin.Engine, token, text string, completed bool) *models.Todo {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"text":      text,
		"completed": completed,
	})

	resp := DoRequest(router, http.MethodPost, "/api/todos", token, body)
	require.Equal(t, http.StatusCreated, resp.Code, "TODO作成に失敗しました: %s", resp.Body.String())

	var createdTodo models.Todo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &createdTodo))
	return &createdTodo
}

// LoginAndGetToken はログインしてトークンを取得します。
func LoginAndGetToken(t *testing.T, router *gin.Engine, email, password string) (string, error) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	resp := DoRequest(router, http.MethodPost, "/api/login", "", body)
	if resp.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}

	var loginRes models.LoginResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &loginRes); err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}
	if loginRes.Token == "" {
		return "", errors.New("token not found in login response")
	}
	return loginRes.Token, nil
}

// DoRequest はルーターにリクエストを送り、レスポンスを返します。token が空なら認証ヘッダーを付けません。
func DoRequest(router http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
