// Package ui はTodoを閲覧・編集するターミナルUIを提供します。
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-todo-api/pkg/client"
)

// API はTUIが使うフェッチヘルパーの機能です。
type API interface {
	ListTodos(ctx context.Context) ([]client.Todo, error)
	CreateTodo(ctx context.Context, in client.NewTodo) (*client.Todo, error)
	UpdateTodo(ctx context.Context, id string, u client.TodoUpdate) (*client.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
}

// Run はTUIを起動し、終了するまでブロックします。
func Run(ctx context.Context, api API) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}
	program := tea.NewProgram(NewModel(ctx, api), tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := finalModel.(*Model); ok && errors.Is(m.err, client.ErrNotAuthenticated) {
		return m.err
	}
	return nil
}

type mode int

const (
	modeList mode = iota
	modeDetail
	modeAdd
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
	priorityStyle = map[string]lipgloss.Style{
		"high":   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		"medium": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"low":    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

// Model はbubbleteaのモデルです。状態は画面ローカルで、正はサーバー側にあり
// リフレッシュで再取得します。
type Model struct {
	ctx    context.Context
	api    API
	todos  []client.Todo
	cursor int
	mode   mode
	input  string
	busy   bool
	status string
	err    error
}

type todosLoadedMsg struct {
	todos []client.Todo
	err   error
}

type todoSavedMsg struct {
	todo *client.Todo
	err  error
}

type todoDeletedMsg struct {
	id  string
	err error
}

// NewModel は api と通信する Model を作成します。
func NewModel(ctx context.Context, api API) *Model {
	return &Model{ctx: ctx, api: api}
}

func (m *Model) Init() tea.Cmd {
	return m.load()
}

func (m *Model) load() tea.Cmd {
	m.busy = true
	m.status = "Loading..."
	return func() tea.Msg {
		todos, err := m.api.ListTodos(m.ctx)
		return todosLoadedMsg{todos: todos, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case todosLoadedMsg:
		m.busy = false
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.todos, m.err, m.status = msg.todos, nil, fmt.Sprintf("%d todos", len(msg.todos))
		m.clampCursor()
	case todoSavedMsg:
		m.busy = false
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.err = nil
		m.upsert(*msg.todo)
		m.status = "Saved"
	case todoDeletedMsg:
		m.busy = false
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.err = nil
		m.remove(msg.id)
		m.mode = modeList
		m.status = "Deleted"
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.mode == modeAdd {
		return m.handleInput(msg)
	}
	// リクエストは1件ずつ発行する
	if m.busy && msg.String() != "q" {
		return m, nil
	}

	switch msg.String() {
	case "q":
		if m.mode == modeDetail {
			m.mode = modeList
			return m, nil
		}
		return m, tea.Quit
	case "esc", "backspace":
		m.mode = modeList
	case "up", "k":
		if m.mode == modeList && m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.mode == modeList && m.cursor < len(m.todos)-1 {
			m.cursor++
		}
	case "enter":
		if m.mode == modeList && m.selected() != nil {
			m.mode = modeDetail
		}
	case " ", "x":
		if t := m.selected(); t != nil {
			return m, m.toggle(*t)
		}
	case "d":
		if t := m.selected(); t != nil {
			return m, m.delete(t.ID)
		}
	case "a":
		m.mode = modeAdd
		m.input = ""
	case "r":
		return m, m.load()
	}
	return m, nil
}

func (m *Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeList
		m.input = ""
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input)
		m.mode = modeList
		m.input = ""
		if text == "" {
			return m, nil
		}
		m.busy = true
		return m, func() tea.Msg {
			todo, err := m.api.CreateTodo(m.ctx, client.NewTodo{Text: text})
			return todoSavedMsg{todo: todo, err: err}
		}
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m *Model) toggle(t client.Todo) tea.Cmd {
	m.busy = true
	completed := !t.Completed
	return func() tea.Msg {
		todo, err := m.api.UpdateTodo(m.ctx, t.ID, client.TodoUpdate{Completed: &completed})
		return todoSavedMsg{todo: todo, err: err}
	}
}

func (m *Model) delete(id string) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return todoDeletedMsg{id: id, err: m.api.DeleteTodo(m.ctx, id)}
	}
}

func (m *Model) fail(err error) {
	m.err = err
	m.status = ""
}

func (m *Model) selected() *client.Todo {
	if m.cursor < 0 || m.cursor >= len(m.todos) {
		return nil
	}
	return &m.todos[m.cursor]
}

func (m *Model) upsert(t client.Todo) {
	for i := range m.todos {
		if m.todos[i].ID == t.ID {
			m.todos[i] = t
			return
		}
	}
	// 新規作成分は最新なので先頭に置く
	m.todos = append([]client.Todo{t}, m.todos...)
	m.cursor = 0
}

func (m *Model) remove(id string) {
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos = append(m.todos[:i], m.todos[i+1:]...)
			break
		}
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.todos) {
		m.cursor = len(m.todos) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Todos") + "\n\n")

	switch m.mode {
	case modeDetail:
		writeDetail(&b, m.selected())
	case modeAdd:
		b.WriteString("New todo: " + m.input + "█\n\n")
		b.WriteString(helpStyle.Render("enter save • esc cancel") + "\n")
	default:
		writeList(&b, m.todos, m.cursor)
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: "+describeError(m.err)) + "\n")
	} else if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	if m.mode != modeAdd {
		b.WriteString(helpStyle.Render("↑/↓ move • enter details • space toggle • a add • d delete • r refresh • q quit") + "\n")
	}
	return b.String()
}

func writeList(b *strings.Builder, todos []client.Todo, cursor int) {
	if len(todos) == 0 {
		b.WriteString("  No todos yet. Press a to add one.\n")
		return
	}
	for i, t := range todos {
		b.WriteString(formatTodo(t, i == cursor) + "\n")
	}
}

func writeDetail(b *strings.Builder, t *client.Todo) {
	if t == nil {
		b.WriteString("  Nothing selected.\n")
		return
	}
	fmt.Fprintf(b, "  Text:      %s\n", t.Text)
	fmt.Fprintf(b, "  Completed: %t\n", t.Completed)
	if t.Priority != "" {
		fmt.Fprintf(b, "  Priority:  %s\n", t.Priority)
	}
	if t.DueDate != nil {
		fmt.Fprintf(b, "  Due:       %s\n", t.DueDate.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(b, "  Created:   %s\n", t.CreatedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(b, "  Updated:   %s\n", t.UpdatedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(b, "  ID:        %s\n", t.ID)
}

func formatTodo(t client.Todo, selected bool) string {
	cursor := "  "
	if selected {
		cursor = cursorStyle.Render("> ")
	}
	check := "[ ]"
	text := t.Text
	if t.Completed {
		check = "[x]"
		text = doneStyle.Render(text)
	}
	line := fmt.Sprintf("%s%s %s", cursor, check, text)
	if t.Priority != "" {
		style, ok := priorityStyle[t.Priority]
		if !ok {
			style = lipgloss.NewStyle()
		}
		line += " " + style.Render("("+t.Priority+")")
	}
	if t.DueDate != nil {
		line += helpStyle.Render(" due " + t.DueDate.Local().Format("2006-01-02"))
	}
	return line
}

func describeError(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrNotAuthenticated):
		return "not logged in (run `todo login`)"
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return err.Error()
	}
}

// IsTTY は w が端末なら true を返します。
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
