package ui

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todo-api/pkg/client"
)

type fakeAPI struct {
	todos   []client.Todo
	listErr error
	nextID  int
}

func (f *fakeAPI) ListTodos(context.Context) ([]client.Todo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]client.Todo(nil), f.todos...), nil
}

func (f *fakeAPI) CreateTodo(_ context.Context, in client.NewTodo) (*client.Todo, error) {
	f.nextID++
	t := client.Todo{ID: fmt.Sprintf("new-%d", f.nextID), Text: in.Text, CreatedAt: time.Now()}
	f.todos = append([]client.Todo{t}, f.todos...)
	return &t, nil
}

func (f *fakeAPI) UpdateTodo(_ context.Context, id string, u client.TodoUpdate) (*client.Todo, error) {
	for i := range f.todos {
		if f.todos[i].ID == id {
			if u.Completed != nil {
				f.todos[i].Completed = *u.Completed
			}
			t := f.todos[i]
			return &t, nil
		}
	}
	return nil, &client.APIError{StatusCode: http.StatusNotFound, Message: "Todo not found"}
}

func (f *fakeAPI) DeleteTodo(_ context.Context, id string) error {
	for i := range f.todos {
		if f.todos[i].ID == id {
			f.todos = append(f.todos[:i], f.todos[i+1:]...)
			return nil
		}
	}
	return &client.APIError{StatusCode: http.StatusNotFound, Message: "Todo not found"}
}

// run はメッセージをモデルに渡し、返されたコマンドも実行します。
// bubbleteaのイベントループ1回分に相当します。
func run(t *testing.T, m *Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	if cmd == nil {
		return nil
	}
	next := cmd()
	if _, quit := next.(tea.QuitMsg); quit {
		return cmd
	}
	return run(t, m, next)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newLoadedModel(t *testing.T, api *fakeAPI) *Model {
	t.Helper()
	m := NewModel(context.Background(), api)
	cmd := m.Init()
	require.NotNil(t, cmd)
	run(t, m, cmd())
	return m
}

func TestModel_LoadAndNavigate(t *testing.T) {
	api := &fakeAPI{todos: []client.Todo{
		{ID: "2", Text: "Walk dog", Priority: "high"},
		{ID: "1", Text: "Buy milk", Completed: true},
	}}
	m := newLoadedModel(t, api)

	assert.Len(t, m.todos, 2)
	view := m.View()
	assert.Contains(t, view, "Walk dog")
	assert.Contains(t, view, "(high)")
	assert.Contains(t, view, "2 todos")

	run(t, m, key("down"))
	assert.Equal(t, 1, m.cursor)
	run(t, m, key("down"))
	assert.Equal(t, 1, m.cursor, "cursor stops at the last row")

	run(t, m, key("enter"))
	assert.Equal(t, modeDetail, m.mode)
	assert.Contains(t, m.View(), "Completed: true")

	run(t, m, key("esc"))
	assert.Equal(t, modeList, m.mode)
}

func TestModel_ToggleAddDelete(t *testing.T) {
	api := &fakeAPI{todos: []client.Todo{{ID: "1", Text: "Buy milk"}}}
	m := newLoadedModel(t, api)

	run(t, m, key(" "))
	assert.True(t, m.todos[0].Completed)
	assert.True(t, api.todos[0].Completed)
	assert.False(t, m.busy)

	run(t, m, key("a"))
	require.Equal(t, modeAdd, m.mode)
	for _, s := range []string{"W", "a", "l", "k", " ", "d", "o", "g"} {
		run(t, m, key(s))
	}
	assert.Contains(t, m.View(), "New todo: Walk dog")
	run(t, m, key("enter"))
	assert.Equal(t, modeList, m.mode)
	require.Len(t, m.todos, 2)
	assert.Equal(t, "Walk dog", m.todos[0].Text, "new todos are listed first")

	run(t, m, key("d"))
	require.Len(t, m.todos, 1)
	assert.Equal(t, "1", m.todos[0].ID)
	assert.Len(t, api.todos, 1)
}

func TestModel_BlankInputIsNotSubmitted(t *testing.T) {
	api := &fakeAPI{}
	m := newLoadedModel(t, api)

	run(t, m, key("a"))
	run(t, m, key(" "))
	run(t, m, key("enter"))
	assert.Empty(t, api.todos)
	assert.Contains(t, m.View(), "No todos yet")
}

func TestModel_ShowsErrors(t *testing.T) {
	api := &fakeAPI{listErr: client.ErrNotAuthenticated}
	m := newLoadedModel(t, api)
	assert.Contains(t, m.View(), "not logged in")

	api.listErr = nil
	api.todos = []client.Todo{{ID: "1", Text: "Buy milk"}}
	run(t, m, key("r"))
	assert.NotContains(t, m.View(), "Error:")

	// サーバー側で削除済みの行
	api.todos = nil
	run(t, m, key("x"))
	assert.Contains(t, m.View(), "Error: Todo not found")
}

func TestModel_Quit(t *testing.T) {
	m := newLoadedModel(t, &fakeAPI{})
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}
