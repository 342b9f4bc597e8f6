// Package routesはroutingを行います。
package routes

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go-todo-api/internal/config"
	"go-todo-api/internal/handlers"
	"go-todo-api/internal/logging"
	"go-todo-api/internal/repositories"
	"go-todo-api/internal/services"
)

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(store *repositories.Store, jwtService *services.JWTService, cfg *config.Config, logger *log.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(logger))

	// CORS対策
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// サービス
	todoService := services.NewTodoService(store.Todos)
	userService := services.NewUserService(store.Users)

	// ハンドラー
	userHandler := handlers.NewUserHandler(userService, jwtService)
	todoHandler := handlers.NewTodoHandler(todoService)

	// ルーティング
	r.GET("/api/hello", HelloHandler)
	r.GET("/api/dbcheck", func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database connection failed", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Database connection is healthy", "driver": store.Driver})
	})
	r.POST("/api/register", userHandler.RegisterHandler)
	r.POST("/api/login", userHandler.LoginHandler)

	authorized := r.Group("/api")
	authorized.Use(AuthMiddleware(jwtService))
	{
		authorized.GET("/todos", todoHandler.GetTodosHandler)
		authorized.GET("/todos/:id", todoHandler.GetTodoByIDHandler)
		authorized.POST("/todos", todoHandler.CreateTodoHandler)
		authorized.PUT("/todos/:id", todoHandler.UpdateTodoHandler)
		authorized.DELETE("/todos/:id", todoHandler.DeleteTodoHandler)
		authorized.GET("/me", userHandler.MeHandler)
	}

	return r
}

// HelloHandler は疎通確認用のメッセージを返します。
func HelloHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello from Go Backend!"})
}
