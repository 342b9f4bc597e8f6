package services

import (
	"context"
	"errors"
	"strings"

	"go-todo-api/internal/models"
	"go-todo-api/internal/repositories"
)

// ErrForbidden は他のユーザーが所有するTodoへのアクセスです。
var ErrForbidden = errors.New("access denied")

// TodoService はTodo関連のビジネスロジックを扱います。
// 単一のTodoに対する操作はすべて所有者を確認してから行います。
type TodoService struct {
	todoRepo repositories.TodoRepository
}

// NewTodoService は新しいTodoServiceを作成します。
func NewTodoService(todoRepo repositories.TodoRepository) *TodoService {
	return &TodoService{todoRepo: todoRepo}
}

// CreateTodo は呼び出し元を所有者として新しいTodoを作成します。
func (s *TodoService) CreateTodo(ctx context.Context, in models.TodoInput, userID string) (*models.Todo, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, &models.ValidationError{Field: "text", Message: "is required"}
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return nil, &models.ValidationError{Field: "priority", Message: "must be one of low, medium, high"}
	}
	return s.todoRepo.Create(ctx, &models.Todo{
		UserID:    userID,
		Text:      in.Text,
		Completed: in.Completed,
		Priority:  in.Priority,
		DueDate:   in.DueDate,
	})
}

// GetTodos は呼び出し元のTodoを新しい順に取得します。
func (s *TodoService) GetTodos(ctx context.Context, userID string) ([]*models.Todo, error) {
	return s.todoRepo.FindByUserID(ctx, userID)
}

// GetTodoByID は指定IDのTodoを取得し、認可チェックを行います。
func (s *TodoService) GetTodoByID(ctx context.Context, id, userID string) (*models.Todo, error) {
	return s.owned(ctx, id, userID)
}

// UpdateTodo はTodoを更新し、認可チェックを行います。所有者は変わりません。
func (s *TodoService) UpdateTodo(ctx context.Context, id string, patch models.TodoPatch, userID string) (*models.Todo, error) {
	if patch.Text != nil && strings.TrimSpace(*patch.Text) == "" {
		return nil, &models.ValidationError{Field: "text", Message: "must not be blank"}
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, &models.ValidationError{Field: "priority", Message: "must be one of low, medium, high"}
	}
	if _, err := s.owned(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.todoRepo.Update(ctx, id, patch)
}

// DeleteTodo はTodoを削除し、認可チェックを行います。
func (s *TodoService) DeleteTodo(ctx context.Context, id, userID string) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	return s.todoRepo.Delete(ctx, id)
}

func (s *TodoService) owned(ctx context.Context, id, userID string) (*models.Todo, error) {
	todo, err := s.todoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if todo.UserID != userID {
		return nil, ErrForbidden
	}
	return todo, nil
}
