package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-todo-api/internal/models"
)

// NewMemoryStore はプロセス内のマップを使うストアを作成します。開発とテスト用です。
func NewMemoryStore() *Store {
	return &Store{
		Driver: "memory",
		Todos:  NewMemoryTodoRepository(),
		Users:  NewMemoryUserRepository(),
	}
}

type memoryTodo struct {
	todo models.Todo
	seq  int64
}

// MemoryTodoRepository はメモリ上のToDoリポジトリです。
type MemoryTodoRepository struct {
	mu    sync.RWMutex
	seq   int64
	todos map[string]*memoryTodo
}

// NewMemoryTodoRepository は新しいMemoryTodoRepositoryを作成します。
func NewMemoryTodoRepository() *MemoryTodoRepository {
	return &MemoryTodoRepository{todos: make(map[string]*memoryTodo)}
}

func (r *MemoryTodoRepository) Create(_ context.Context, t *models.Todo) (*models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := timestamp(time.Microsecond)
	created := cloneTodo(t)
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.seq++
	r.todos[created.ID] = &memoryTodo{todo: *created, seq: r.seq}
	return cloneTodo(created), nil
}

func (r *MemoryTodoRepository) FindByID(_ context.Context, id string) (*models.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mt, ok := r.todos[id]
	if !ok {
		return nil, ErrTodoNotFound
	}
	return cloneTodo(&mt.todo), nil
}

func (r *MemoryTodoRepository) FindByUserID(_ context.Context, userID string) ([]*models.Todo, error) {
	type entry struct {
		todo *models.Todo
		seq  int64
	}

	// ロック中にコピーを取り、Update と同じ構造体を共有しないようにする
	r.mu.RLock()
	matched := make([]entry, 0)
	for _, mt := range r.todos {
		if mt.todo.UserID == userID {
			matched = append(matched, entry{todo: cloneTodo(&mt.todo), seq: mt.seq})
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.todo.CreatedAt.Equal(b.todo.CreatedAt) {
			return a.todo.CreatedAt.After(b.todo.CreatedAt)
		}
		return a.seq > b.seq
	})

	todos := make([]*models.Todo, 0, len(matched))
	for _, e := range matched {
		todos = append(todos, e.todo)
	}
	return todos, nil
}

func (r *MemoryTodoRepository) Update(_ context.Context, id string, patch models.TodoPatch) (*models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mt, ok := r.todos[id]
	if !ok {
		return nil, ErrTodoNotFound
	}
	patch.Apply(&mt.todo)
	mt.todo.UpdatedAt = timestamp(time.Microsecond)
	return cloneTodo(&mt.todo), nil
}

func (r *MemoryTodoRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.todos[id]; !ok {
		return ErrTodoNotFound
	}
	delete(r.todos, id)
	return nil
}

func cloneTodo(t *models.Todo) *models.Todo {
	c := *t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return &c
}

// MemoryUserRepository はメモリ上のユーザーリポジトリです。
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewMemoryUserRepository は新しいMemoryUserRepositoryを作成します。
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]models.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
			return nil, ErrDuplicateEmail
		}
	}
	now := timestamp(time.Microsecond)
	created := *u
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now
	r.users[created.ID] = created
	return &created, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}
