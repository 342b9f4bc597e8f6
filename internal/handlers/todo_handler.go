package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-todo-api/internal/schema"
	"go-todo-api/internal/services"
)

// TodoHandler はTodo関連のハンドラーを管理します。
type TodoHandler struct {
	todoService *services.TodoService
}

// NewTodoHandler は新しいTodoHandlerを作成します。
func NewTodoHandler(todoService *services.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

// CreateTodoHandler は新しいTodoを作成します。所有者はトークンのユーザーです。
func (h *TodoHandler) CreateTodoHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	in, err := schema.ParseCreate(body)
	if err != nil {
		respondError(c, err, "Failed to save todo")
		return
	}

	createdTodo, err := h.todoService.CreateTodo(c.Request.Context(), in, userID)
	if err != nil {
		respondError(c, err, "Failed to save todo")
		return
	}
	c.JSON(http.StatusCreated, createdTodo)
}

// UpdateTodoHandler はTodoを部分更新します。
func (h *TodoHandler) UpdateTodoHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	patch, err := schema.ParseUpdate(body)
	if err != nil {
		respondError(c, err, "Failed to update todo")
		return
	}

	updatedTodo, err := h.todoService.UpdateTodo(c.Request.Context(), c.Param("id"), patch, userID)
	if err != nil {
		respondError(c, err, "Failed to update todo")
		return
	}
	c.JSON(http.StatusOK, updatedTodo)
}

// DeleteTodoHandler はTodoを削除します。
func (h *TodoHandler) DeleteTodoHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.todoService.DeleteTodo(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err, "Failed to delete todo")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTodosHandler は呼び出し元のTodoリストを取得します。
func (h *TodoHandler) GetTodosHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	todos, err := h.todoService.GetTodos(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch todos")
		return
	}
	c.JSON(http.StatusOK, todos)
}

// GetTodoByIDHandler は指定IDのTodoを取得します。
func (h *TodoHandler) GetTodoByIDHandler(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	todo, err := h.todoService.GetTodoByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch todo")
		return
	}
	c.JSON(http.StatusOK, todo)
}
