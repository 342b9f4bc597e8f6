package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Todo はAPIが返すTodoです。
type Todo struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	Priority  string     `json:"priority,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewTodo は作成リクエストのボディです。
type NewTodo struct {
	Text      string     `json:"text"`
	Completed bool       `json:"completed,omitempty"`
	Priority  string     `json:"priority,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
}

// TodoUpdate は部分更新です。nil のフィールドは変更しません。
// ClearDueDate と ClearPriority は明示的に null を送ります。
type TodoUpdate struct {
	Text          *string
	Completed     *bool
	Priority      *string
	ClearPriority bool
	DueDate       *time.Time
	ClearDueDate  bool
}

func (u TodoUpdate) body() map[string]interface{} {
	m := make(map[string]interface{})
	if u.Text != nil {
		m["text"] = *u.Text
	}
	if u.Completed != nil {
		m["completed"] = *u.Completed
	}
	if u.ClearPriority {
		m["priority"] = nil
	} else if u.Priority != nil {
		m["priority"] = *u.Priority
	}
	if u.ClearDueDate {
		m["dueDate"] = nil
	} else if u.DueDate != nil {
		m["dueDate"] = u.DueDate.UTC().Format(time.RFC3339Nano)
	}
	return m
}

// ListTodos は自分のTodoを新しい順に返します。
func (c *Client) ListTodos(ctx context.Context) ([]Todo, error) {
	todos := make([]Todo, 0)
	if err := c.fetchJSON(ctx, http.MethodGet, "/api/todos", nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// CreateTodo は自分が所有するTodoを作成します。
func (c *Client) CreateTodo(ctx context.Context, in NewTodo) (*Todo, error) {
	var todo Todo
	if err := c.fetchJSON(ctx, http.MethodPost, "/api/todos", in, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// GetTodo はTodoを1件取得します。
func (c *Client) GetTodo(ctx context.Context, id string) (*Todo, error) {
	var todo Todo
	if err := c.fetchJSON(ctx, http.MethodGet, todoPath(id), nil, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo は部分更新を行い、保存後のTodoを返します。
func (c *Client) UpdateTodo(ctx context.Context, id string, u TodoUpdate) (*Todo, error) {
	var todo Todo
	if err := c.fetchJSON(ctx, http.MethodPut, todoPath(id), u.body(), &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// DeleteTodo はTodoを削除します。
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	_, err := c.Fetch(ctx, http.MethodDelete, todoPath(id), nil, nil)
	return err
}

func todoPath(id string) string {
	return "/api/todos/" + url.PathEscape(id)
}
