// Package logging はプロセス共通のロガーとGin用のリクエストログを提供します。
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// Setup はデフォルトロガーを level / format で初期化して返します。
func Setup(w io.Writer, level, format string) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	formatter := log.TextFormatter
	if format == "json" {
		formatter = log.JSONFormatter
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "todo-api",
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})
	log.SetDefault(logger)
	return logger, nil
}

// RequestLogger はリクエストごとにメソッド・パス・ステータス・処理時間を記録するミドルウェアです。
func RequestLogger(logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
		}
		if userID, ok := c.Get("user_id"); ok {
			fields = append(fields, "user", userID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
