package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-todo-api/internal/models"
	"go-todo-api/testutil"
)

func decodeTodo(t *testing.T, body []byte) models.Todo {
	t.Helper()
	var todo models.Todo
	require.NoError(t, json.Unmarshal(body, &todo), string(body))
	return todo
}

func TestCreateTodo_Success(t *testing.T) {
	_, r := testutil.SetupTestDB(t)

	token, err := testutil.LoginAndGetToken(t, r, "normal_user@example.com", "password123")
	require.NoError(t, err)
	me := testutil.DoRequest(r, http.MethodGet, "/api/me", token, nil)
	var identity models.Identity
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &identity))

	w := testutil.DoRequest(r, http.MethodPost, "/api/todos", token, []byte(`{"text":"Buy milk","completed":false}`))

	assert.Equal(t, http.StatusCreated, w.Code, "Expected HTTP Status Code 201 Created")
	createdTodo := decodeTodo(t, w.Body.Bytes())
	assert.NotEmpty(t, createdTodo.ID, "Expected a Todo ID")
	assert.Equal(t, "Buy milk", createdTodo.Text)
	assert.False(t, createdTodo.Completed)
	assert.Equal(t, identity.UserID, createdTodo.UserID)
	assert.WithinDuration(t, time.Now(), createdTodo.CreatedAt, 5*time.Second)
	assert.Equal(t, createdTodo.CreatedAt, createdTodo.UpdatedAt)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	_, err = time.Parse(time.RFC3339, raw["createdAt"].(string))
	assert.NoError(t, err, "createdAt should be an RFC 3339 string")
	assert.NotContains(t, raw, "dueDate")
	assert.NotContains(t, raw, "priority")

	otherToken, err := testutil.LoginAndGetToken(t, r, "other_user@example.com", "password456")
	require.NoError(t, err)
	w = testutil.DoRequest(r, http.MethodGet, "/api/todos/"+createdTodo.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateTodo_OwnerComesFromToken(t *testing.T) {
	_, r := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, "normal_user@example.com", "password123")
	require.NoError(t, err)

	w := testutil.DoRequest(r, http.MethodPost, "/api/todos", token,
		[]byte(`{"text":"mine","userId":"someone-else","id":"chosen","createdAt":"2000-01-01T00:00:00Z"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeTodo(t, w.Body.Bytes())
	assert.NotEqual(t, "someone-else", created.UserID)
	assert.NotEqual(t, "chosen", created.ID)
	assert.NotEqual(t, 2000, created.CreatedAt.Year())
}

func TestCreateTodo_WithOptionalFields(t *testing.T) {
	_, r := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, "normal_user@example.com", "password123")
	require.NoError(t, err)

	w := testutil.DoRequest(r, http.MethodPost, "/api/todos", token,
		[]byte(`{"text":"File taxes","priority":"high","dueDate":"2026-04-15T12:00:00Z"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeTodo(t, w.Body.Bytes())
	assert.Equal(t, models.PriorityHigh, created.Priority)
	require.NotNil(t, created.DueDate)
	assert.True(t, created.DueDate.Equal(time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)))
}

func TestCreateTodo_InvalidPayload(t *testing.T) {
	store, r := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, "normal_user@example.com", "password123")
	require.NoError(t, err)

	for name, body := range map[string]string{
		"missing text":     `{"completed":false}`,
		"blank text":       `{"text":"  "}`,
		"wrong type":       `{"text":"a","completed":"no"}`,
		"bad due date":     `{"text":"a","dueDate":"tomorrow"}`,
		"malformed json":   `{"text":`,
		"empty body":       ``,
		"unknown priority": `{"text":"a","priority":"asap"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := testutil.DoRequest(r, http.MethodPost, "/api/todos", token, []byte(body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var response map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "Invalid request payload", response["error"])
			assert.NotEmpty(t, response["details"])
		})
	}

	w := testutil.DoRequest(r, http.MethodGet, "/api/todos", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String(), "nothing should be persisted")

	me := testutil.DoRequest(r, http.MethodGet, "/api/me", token, nil)
	var identity models.Identity
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &identity))
	todos, err := store.Todos.FindByUserID(context.Background(), identity.UserID)
	require.NoError(t, err)
	assert.Empty(t, todos)
}

func TestGetTodosHandler_Authorization(t *testing.T) {
	_, router := testutil.SetupTestDB(t)

	tokenNormal, err := testutil.LoginAndGetToken(t, router, "normal_user@example.com", "password123")
	require.NoError(t, err)
	tokenOther, err := testutil.LoginAndGetToken(t, router, "other_user@example.com", "password456")
	require.NoError(t, err)

	todo1 := testutil.CreateTestTodo(t, router, tokenNormal, "Normal User Todo 1", false)
	todo2 := testutil.CreateTestTodo(t, router, tokenNormal, "Normal User Todo 2", true)
	_ = testutil.CreateTestTodo(t, router, tokenOther, "Other User Todo 1", false)

	w := testutil.DoRequest(router, http.MethodGet, "/api/todos", tokenNormal, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var todos []models.Todo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &todos))
	require.Len(t, todos, 2, "only the caller's todos are listed")
	assert.Equal(t, todo2.ID, todos[0].ID, "newest first")
	assert.Equal(t, todo1.ID, todos[1].ID)
	for _, td := range todos {
		assert.Equal(t, todo1.UserID, td.UserID)
	}

	w = testutil.DoRequest(router, http.MethodGet, "/api/todos", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetTodoByID(t *testing.T) {
	_, r := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, "normal_user@example.com", "password123")
	require.NoError(t, err)
	todo := testutil.CreateTestTodo(t, r, token, "read me", false)

	w := testutil.DoRequest(r, http.MethodGet, "/api/todos/"+todo.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, todo.ID, decodeTodo(t, w.Body.Bytes()).ID)

	w = testutil.DoRequest(r, http.MethodGet, "/api/todos/does-not-exist", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Todo not found"}`, w.Body.String())
}

func TestUpdateTodo_OwnerIsImmutable(t *testing.T) {
	_, r := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, "normal_user@example.com", "password123")
	require.NoError(t, err)
	todo := testutil.CreateTestTodo(t, r, token, "keep owner", false)

	w := testutil.DoRequest(r, http.MethodPut, "/api/todos/"+todo.ID, token,
		[]byte(`{"completed":true,"userId":"intruder"}`))
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeTodo(t, w.Body.Bytes())
	assert.True(t, updated.Completed)
	assert.Equal(t, todo.UserID, updated.UserID)
	assert.Equal(t, "keep owner", updated.Text)
	assert.True(t, updated.CreatedAt.Equal(todo.CreatedAt))
	assert.False(t, updated.UpdatedAt.Before(todo.UpdatedAt))

	w = testutil.DoRequest(r, http.MethodGet, "/api/todos/"+todo.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, todo.UserID, decodeTodo(t, w.Body.Bytes()).UserID)
}

func TestUpdateTodo_DueDateNullAndAbsent(t *testing.T) {
	_, r := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, "normal_user@example.com", "password123")
	require.NoError(t, err)

	w := testutil.DoRequest(r, http.MethodPost, "/api/todos", token,
		[]byte(`{"text":"due soon","dueDate":"2026-11-01T00:00:00Z","priority":"medium"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	todo := decodeTodo(t, w.Body.Bytes())

	w = testutil.DoRequest(r, http.MethodPut, "/api/todos/"+todo.ID, token, []byte(`{"text":"renamed"}`))
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeTodo(t, w.Body.Bytes())
	require.NotNil(t, updated.DueDate, "omitted dueDate is unchanged")
	assert.True(t, updated.DueDate.Equal(*todo.DueDate))
	assert.Equal(t, models.PriorityMedium, updated.Priority)

	w = testutil.DoRequest(r, http.MethodPut, "/api/todos/"+todo.ID, token, []byte(`{"dueDate":null}`))
	require.Equal(t, http.StatusOK, w.Code)
	updated = decodeTodo(t, w.Body.Bytes())
	assert.Nil(t, updated.DueDate, "null dueDate clears it")
	assert.Equal(t, "renamed", updated.Text)

	w = testutil.DoRequest(r, http.MethodPut, "/api/todos/"+todo.ID, token, []byte(`{"dueDate":"2027-01-01T00:00:00Z"}`))
	require.Equal(t, http.StatusOK, w.Code)
	updated = decodeTodo(t, w.Body.Bytes())
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, 2027, updated.DueDate.Year())
}

func TestUpdateTodo_Errors(t *testing.T) {
	_, r := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, "normal_user@example.com", "password123")
	require.NoError(t, err)
	otherToken, err := testutil.LoginAndGetToken(t, r, "other_user@example.com", "password456")
	require.NoError(t, err)
	todo := testutil.CreateTestTodo(t, r, token, "guarded", false)

	w := testutil.DoRequest(r, http.MethodPut, "/api/todos/"+todo.ID, otherToken, []byte(`{"completed":true}`))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Access denied"}`, w.Body.String())

	w = testutil.DoRequest(r, http.MethodPut, "/api/todos/missing", token, []byte(`{"completed":true}`))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoRequest(r, http.MethodPut, "/api/todos/"+todo.ID, token, []byte(`{"completed":"yes"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(r, http.MethodPut, "/api/todos/"+todo.ID, token, []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(r, http.MethodGet, "/api/todos/"+todo.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeTodo(t, w.Body.Bytes()).Completed, "rejected updates change nothing")
}

func TestDeleteTodo(t *testing.T) {
	_, r := testutil.SetupTestDB(t)
	token, err := testutil.LoginAndGetToken(t, r, "normal_user@example.com", "password123")
	require.NoError(t, err)
	otherToken, err := testutil.LoginAndGetToken(t, r, "other_user@example.com", "password456")
	require.NoError(t, err)
	todo := testutil.CreateTestTodo(t, r, token, "short lived", false)

	w := testutil.DoRequest(r, http.MethodDelete, "/api/todos/"+todo.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(r, http.MethodDelete, "/api/todos/"+todo.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = testutil.DoRequest(r, http.MethodGet, "/api/todos/"+todo.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoRequest(r, http.MethodDelete, "/api/todos/"+todo.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
