package repositories

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todo-api/internal/database"
	"go-todo-api/internal/models"
)

// backends はテスト対象のストアを返します。
// MySQL / Postgres / MongoDB は環境変数が設定されている場合のみ実行します。
func backends(t *testing.T) map[string]func(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	b := map[string]func(t *testing.T) *Store{
		"memory": func(t *testing.T) *Store { return NewMemoryStore() },
		"sqlite3": func(t *testing.T) *Store {
			db, err := database.OpenSQL(ctx, database.SQLite, ":memory:")
			require.NoError(t, err)
			s := NewSQLStore(db)
			t.Cleanup(func() { _ = s.Close(ctx) })
			return s
		},
	}
	if dsn := os.Getenv("TEST_MYSQL_DSN"); dsn != "" {
		b["mysql"] = func(t *testing.T) *Store {
			db, err := database.OpenSQL(ctx, database.MySQL, dsn)
			require.NoError(t, err)
			s := NewSQLStore(db)
			t.Cleanup(func() { _ = s.Close(ctx) })
			return s
		}
	}
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		b["postgres"] = func(t *testing.T) *Store {
			db, err := database.OpenSQL(ctx, database.Postgres, dsn)
			require.NoError(t, err)
			s := NewSQLStore(db)
			t.Cleanup(func() { _ = s.Close(ctx) })
			return s
		}
	}
	if uri := os.Getenv("TEST_MONGO_URI"); uri != "" {
		b["mongo"] = func(t *testing.T) *Store {
			m, err := database.OpenMongo(ctx, uri, "todos_test_"+uuid.NewString()[:8])
			require.NoError(t, err)
			s := NewMongoStore(m)
			t.Cleanup(func() {
				_ = m.DB.Drop(ctx)
				_ = s.Close(ctx)
			})
			return s
		}
	}
	return b
}

func TestTodoRepository_Contract(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			require.NoError(t, store.Ping(ctx))
			owner := uuid.NewString()

			t.Run("create assigns id and timestamps", func(t *testing.T) {
				due := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
				created, err := store.Todos.Create(ctx, &models.Todo{
					UserID: owner, Text: "Buy milk", Priority: models.PriorityHigh, DueDate: &due,
				})
				require.NoError(t, err)
				assert.NotEmpty(t, created.ID)
				assert.Equal(t, owner, created.UserID)
				assert.False(t, created.CreatedAt.IsZero())
				assert.Equal(t, created.CreatedAt, created.UpdatedAt)

				found, err := store.Todos.FindByID(ctx, created.ID)
				require.NoError(t, err)
				assert.Equal(t, "Buy milk", found.Text)
				assert.Equal(t, models.PriorityHigh, found.Priority)
				require.NotNil(t, found.DueDate)
				assert.True(t, found.DueDate.Equal(due))
				assert.True(t, found.CreatedAt.Equal(created.CreatedAt))
			})

			t.Run("list is newest first and scoped to owner", func(t *testing.T) {
				other := uuid.NewString()
				_, err := store.Todos.Create(ctx, &models.Todo{UserID: other, Text: "not mine"})
				require.NoError(t, err)

				second, err := store.Todos.Create(ctx, &models.Todo{UserID: owner, Text: "second"})
				require.NoError(t, err)
				third, err := store.Todos.Create(ctx, &models.Todo{UserID: owner, Text: "third"})
				require.NoError(t, err)

				todos, err := store.Todos.FindByUserID(ctx, owner)
				require.NoError(t, err)
				require.Len(t, todos, 3)
				assert.Equal(t, third.ID, todos[0].ID)
				assert.Equal(t, second.ID, todos[1].ID)
				assert.Equal(t, "Buy milk", todos[2].Text)
				for _, td := range todos {
					assert.Equal(t, owner, td.UserID)
				}
			})

			t.Run("list for unknown owner is empty", func(t *testing.T) {
				todos, err := store.Todos.FindByUserID(ctx, uuid.NewString())
				require.NoError(t, err)
				assert.NotNil(t, todos)
				assert.Empty(t, todos)
			})

			t.Run("update applies patch", func(t *testing.T) {
				due := time.Date(2026, 12, 24, 18, 0, 0, 0, time.UTC)
				created, err := store.Todos.Create(ctx, &models.Todo{
					UserID: owner, Text: "patch me", Priority: models.PriorityLow, DueDate: &due,
				})
				require.NoError(t, err)

				done := true
				updated, err := store.Todos.Update(ctx, created.ID, models.TodoPatch{
					Completed: &done, ClearDueDate: true, ClearPriority: true,
				})
				require.NoError(t, err)
				assert.True(t, updated.Completed)
				assert.Equal(t, "patch me", updated.Text)
				assert.Nil(t, updated.DueDate)
				assert.Empty(t, updated.Priority)
				assert.Equal(t, owner, updated.UserID)
				assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
				assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

				text := "patched"
				medium := models.PriorityMedium
				updated, err = store.Todos.Update(ctx, created.ID, models.TodoPatch{Text: &text, Priority: &medium})
				require.NoError(t, err)
				assert.Equal(t, "patched", updated.Text)
				assert.True(t, updated.Completed)
				assert.Equal(t, models.PriorityMedium, updated.Priority)
			})

			t.Run("missing ids", func(t *testing.T) {
				missing := uuid.NewString()
				_, err := store.Todos.FindByID(ctx, missing)
				assert.ErrorIs(t, err, ErrTodoNotFound)
				_, err = store.Todos.Update(ctx, missing, models.TodoPatch{})
				assert.ErrorIs(t, err, ErrTodoNotFound)
				assert.ErrorIs(t, store.Todos.Delete(ctx, missing), ErrTodoNotFound)
			})

			t.Run("delete removes", func(t *testing.T) {
				created, err := store.Todos.Create(ctx, &models.Todo{UserID: owner, Text: "temporary"})
				require.NoError(t, err)
				require.NoError(t, store.Todos.Delete(ctx, created.ID))
				_, err = store.Todos.FindByID(ctx, created.ID)
				assert.ErrorIs(t, err, ErrTodoNotFound)
			})
		})
	}
}

func TestUserRepository_Contract(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			suffix := uuid.NewString()[:8]
			email := "alice-" + suffix + "@example.com"

			created, err := store.Users.Create(ctx, &models.User{
				Username: "alice-" + suffix, Email: email, PasswordHash: "hash",
			})
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)

			byEmail, err := store.Users.FindByEmail(ctx, email)
			require.NoError(t, err)
			assert.Equal(t, created.ID, byEmail.ID)
			assert.Equal(t, "hash", byEmail.PasswordHash)

			byID, err := store.Users.FindByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, email, byID.Email)

			_, err = store.Users.Create(ctx, &models.User{
				Username: "other-" + suffix, Email: email, PasswordHash: "hash",
			})
			assert.ErrorIs(t, err, ErrDuplicateEmail)

			_, err = store.Users.FindByEmail(ctx, "nobody-"+suffix+"@example.com")
			assert.ErrorIs(t, err, ErrUserNotFound)
			_, err = store.Users.FindByID(ctx, uuid.NewString())
			assert.ErrorIs(t, err, ErrUserNotFound)
		})
	}
}

func TestMemoryTodoRepository_ConcurrentUpdateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTodoRepository()
	created, err := repo.Create(ctx, &models.Todo{UserID: "u", Text: "start"})
	require.NoError(t, err)

	const iterations = 500
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			text := fmt.Sprintf("text %d", i)
			due := time.Date(2026, 11, 1, 0, 0, i, 0, time.UTC)
			if _, err := repo.Update(ctx, created.ID, models.TodoPatch{Text: &text, DueDate: &due}); err != nil {
				t.Errorf("update: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			todos, err := repo.FindByUserID(ctx, "u")
			if err != nil || len(todos) != 1 {
				t.Errorf("list: %v (%d todos)", err, len(todos))
				return
			}
			// 返されたコピーへの書き込みはストアに影響しない
			todos[0].Text = "mutated"
		}
	}()
	wg.Wait()

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("text %d", iterations-1), found.Text)
}
