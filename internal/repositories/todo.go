package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-todo-api/internal/database"
	"go-todo-api/internal/models"
)

// SQLTodoRepository はSQLデータベースに対してToDoを操作します。
type SQLTodoRepository struct {
	DB *database.SQL
}

// NewSQLTodoRepository は新しいSQLTodoRepositoryインスタンスを作成します。
func NewSQLTodoRepository(db *database.SQL) *SQLTodoRepository {
	return &SQLTodoRepository{DB: db}
}

const todoColumns = "id, user_id, text, completed, priority, due_date, created_at, updated_at"

// Create は新しいToDoをデータベースに挿入します。
func (r *SQLTodoRepository) Create(ctx context.Context, t *models.Todo) (*models.Todo, error) {
	created := cloneTodo(t)
	created.ID = uuid.NewString()
	now := timestamp(time.Microsecond)
	created.CreatedAt = now
	created.UpdatedAt = now
	if created.DueDate != nil {
		due := created.DueDate.UTC().Truncate(time.Microsecond)
		created.DueDate = &due
	}

	query := r.DB.Rebind("INSERT INTO todos (" + todoColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	_, err := r.DB.ExecContext(ctx, query,
		created.ID,
		created.UserID,
		created.Text,
		created.Completed,
		nullPriority(created.Priority),
		nullTime(created.DueDate),
		created.CreatedAt,
		created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("could not insert todo: %w", err)
	}
	return created, nil
}

// FindByID はIDでToDoを検索します。
func (r *SQLTodoRepository) FindByID(ctx context.Context, id string) (*models.Todo, error) {
	query := r.DB.Rebind("SELECT " + todoColumns + " FROM todos WHERE id = ?")
	t, err := scanTodo(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("could not query todo: %w", err)
	}
	return t, nil
}

// FindByUserID は所有者のToDoを新しい順に取得します。
func (r *SQLTodoRepository) FindByUserID(ctx context.Context, userID string) ([]*models.Todo, error) {
	query := r.DB.Rebind("SELECT " + todoColumns + " FROM todos WHERE user_id = ? ORDER BY created_at DESC, seq DESC")
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("could not query todos: %w", err)
	}
	defer rows.Close()

	todos := make([]*models.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return todos, nil
}

// Update はパッチに含まれる列だけを更新します。
func (r *SQLTodoRepository) Update(ctx context.Context, id string, patch models.TodoPatch) (*models.Todo, error) {
	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	if patch.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *patch.Text)
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	if patch.ClearPriority {
		sets = append(sets, "priority = NULL")
	} else if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*patch.Priority))
	}
	if patch.ClearDueDate {
		sets = append(sets, "due_date = NULL")
	} else if patch.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, patch.DueDate.UTC().Truncate(time.Microsecond))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, timestamp(time.Microsecond), id)

	query := r.DB.Rebind("UPDATE todos SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	// MySQLは値が変わらない場合 RowsAffected が0になるため、存在確認は再取得で行う
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("could not update todo: %w", err)
	}
	return r.FindByID(ctx, id)
}

// Delete はToDoを削除します。
func (r *SQLTodoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM todos WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("could not delete todo: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if n == 0 {
		return ErrTodoNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTodo(row rowScanner) (*models.Todo, error) {
	var (
		t        models.Todo
		priority sql.NullString
		due      sql.NullTime
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Text,
		&t.Completed,
		&priority,
		&due,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Priority = models.Priority(priority.String)
	if due.Valid {
		d := due.Time.UTC()
		t.DueDate = &d
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func nullPriority(p models.Priority) sql.NullString {
	return sql.NullString{String: string(p), Valid: p != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
