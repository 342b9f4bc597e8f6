package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"

	"go-todo-api/internal/config"
	"go-todo-api/internal/logging"
	"go-todo-api/internal/repositories"
	"go-todo-api/internal/routes"
	"go-todo-api/internal/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", "err", err)
	}

	logger, err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal("Failed to set up logger", "err", err)
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := repositories.NewStore(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("Failed to open store", "driver", cfg.DBDriver, "err", err)
	}

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	router := routes.SetupRouter(store, jwtService, cfg, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server listening", "port", cfg.Port, "driver", store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped", "err", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("Graceful shutdown initiated...")
				if err := srv.Shutdown(ctx); err != nil {
					return err
				}
				// 処理中のリクエストが終わってからストアを閉じる
				return store.Close(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("Server exited", "code", exitCode)
	os.Exit(exitCode)
}
