// Package repositories はToDoとユーザーを保存するドキュメントストアを提供します。
package repositories

import (
	"context"
	"errors"
	"time"

	"go-todo-api/internal/models"
)

var (
	// ErrTodoNotFound はTODOが見つからない場合のエラーです。
	ErrTodoNotFound   = errors.New("todo not found")
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrUserNotFound   = errors.New("user not found")
)

// TodoRepository はToDoドキュメントの永続化を扱います。
// ID・CreatedAt・UpdatedAt はストアが採番します。
type TodoRepository interface {
	Create(ctx context.Context, t *models.Todo) (*models.Todo, error)
	FindByID(ctx context.Context, id string) (*models.Todo, error)
	// FindByUserID は所有者のToDoを作成日時の降順で返します。
	FindByUserID(ctx context.Context, userID string) ([]*models.Todo, error)
	// Update はパッチを適用し UpdatedAt を更新します。UserID は変更しません。
	Update(ctx context.Context, id string, patch models.TodoPatch) (*models.Todo, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository は認証プロバイダーのユーザーを保存します。
type UserRepository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Store はバックエンドごとのリポジトリとコネクションをまとめたものです。
type Store struct {
	Driver string
	Todos  TodoRepository
	Users  UserRepository
	ping   func(ctx context.Context) error
	close  func(ctx context.Context) error
}

// Ping はバックエンドへの接続を確認します。
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close はバックエンドとの接続を閉じます。
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// timestamp はバックエンドの精度に切り詰めた現在時刻 (UTC) を返します。
func timestamp(precision time.Duration) time.Time {
	return time.Now().UTC().Truncate(precision)
}
