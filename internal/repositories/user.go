package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"go-todo-api/internal/database"
	"go-todo-api/internal/models"
)

// SQLUserRepository はSQLデータベースに対してユーザーを操作します。
type SQLUserRepository struct {
	DB *database.SQL
}

// NewSQLUserRepository は新しいSQLUserRepositoryインスタンスを作成します。
func NewSQLUserRepository(db *database.SQL) *SQLUserRepository {
	return &SQLUserRepository{DB: db}
}

// Create は新しいユーザーをデータベースに挿入します。
func (r *SQLUserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	created := *u
	created.ID = uuid.NewString()
	now := timestamp(time.Microsecond)
	created.CreatedAt = now
	created.UpdatedAt = now

	query := r.DB.Rebind("INSERT INTO users (id, username, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)")
	_, err := r.DB.ExecContext(ctx, query,
		created.ID, created.Username, created.Email, created.PasswordHash, created.CreatedAt, created.UpdatedAt)
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrDuplicateEmail
		}
		log.Error("Failed to insert user", "err", err)
		return nil, fmt.Errorf("could not insert user: %w", err)
	}
	return &created, nil
}

// FindByEmail はメールアドレスでユーザーを検索します。
func (r *SQLUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email", email)
}

// FindByID はIDでユーザーを検索します。
func (r *SQLUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *SQLUserRepository) findOne(ctx context.Context, column, value string) (*models.User, error) {
	query := r.DB.Rebind("SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE " + column + " = ?")
	var u models.User
	err := r.DB.QueryRowContext(ctx, query, value).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		log.Error("Failed to query user", "by", column, "err", err)
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
