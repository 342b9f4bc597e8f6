package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"go-todo-api/internal/models"
	"go-todo-api/internal/repositories"
)

// ErrInvalidCredentials はメールアドレスかパスワードが一致しない場合のエラーです。
var ErrInvalidCredentials = errors.New("invalid credentials")

// HashPassword は与えられたパスワードをbcryptでハッシュ化します。
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

// VerifyPassword はハッシュ化されたパスワードと平文のパスワードを比較します。
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// UserService はユーザー関連のビジネスロジックを扱います。
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService は新しいUserServiceを作成します。
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// RegisterUser はユーザーを登録します。
func (s *UserService) RegisterUser(ctx context.Context, req models.UserRegisterRequest) (*models.User, error) {
	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		log.Error("Failed to hash password", "err", err)
		return nil, err
	}

	newUser := &models.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hashedPassword,
	}

	createdUser, err := s.userRepo.Create(ctx, newUser)
	if err != nil {
		return nil, err
	}
	createdUser.PasswordHash = "" // レスポンスにパスワードを含めない
	return createdUser, nil
}

// AuthenticateUser はユーザーを認証し、成功したらユーザーを返します。
// 未登録のメールアドレスとパスワード違いは区別しません。
func (s *UserService) AuthenticateUser(ctx context.Context, req models.UserLoginRequest) (*models.User, error) {
	foundUser, err := s.userRepo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := VerifyPassword(foundUser.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	foundUser.PasswordHash = ""
	return foundUser, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
