// Package config は環境変数からサーバー設定を読み込み、起動時に検証します。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config はサーバーの設定です。Load 後は変更しません。
type Config struct {
	Port          string        `validate:"required,numeric"`
	DBDriver      string        `validate:"required,oneof=memory sqlite3 mysql postgres mongo"`
	DBDSN         string        // sqlite3 / postgres / mysql の接続文字列
	MongoURI      string        `validate:"required_if=DBDriver mongo"`
	MongoDatabase string        `validate:"required_if=DBDriver mongo"`
	JWTSecret     string        `validate:"required,min=16"`
	JWTIssuer     string        `validate:"required"`
	TokenTTL      time.Duration `validate:"gt=0"`
	CORSOrigins   []string      `validate:"required,dive,url"`
	LogLevel      string        `validate:"oneof=debug info warn error"`
	LogFormat     string        `validate:"oneof=text json"`
}

// Load は .env を読み込んだ後、環境変数から Config を構築して検証します。
// .env が無い場合はエラーにしません。
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return Parse(os.Getenv)
}

// Parse は getenv から Config を構築して検証します。
func Parse(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	ttl, err := time.ParseDuration(get("TOKEN_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	cfg := &Config{
		Port:          get("PORT", "8080"),
		DBDriver:      get("DB_DRIVER", "memory"),
		DBDSN:         get("DB_DSN", ""),
		MongoURI:      get("MONGO_URI", ""),
		MongoDatabase: get("MONGO_DATABASE", "todos"),
		JWTSecret:     getenv("JWT_SECRET"),
		JWTIssuer:     get("JWT_ISSUER", "go-todo-api"),
		TokenTTL:      ttl,
		CORSOrigins:   splitList(get("CORS_ORIGINS", "http://localhost:3000")),
		LogLevel:      strings.ToLower(get("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(get("LOG_FORMAT", "text")),
	}

	if cfg.DBDriver == "mysql" && cfg.DBDSN == "" {
		cfg.DBDSN = mysqlDSN(getenv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mysqlDSN は DB_USER などの個別の環境変数からMySQL接続文字列 (DSN) を構築します。
func mysqlDSN(getenv func(string) string) string {
	host := getenv("DB_HOST")
	if host == "" {
		return ""
	}
	port := getenv("DB_PORT")
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		getenv("DB_USER"), getenv("DB_PASS"), host, port, getenv("DB_NAME"))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		cfg := sl.Current().Interface().(Config)
		switch cfg.DBDriver {
		case "sqlite3", "mysql", "postgres":
			if cfg.DBDSN == "" {
				sl.ReportError(cfg.DBDSN, "DBDSN", "DBDSN", "required_for_sql", cfg.DBDriver)
			}
		}
	}, Config{})
	return v
}

// Validate は設定値を検証し、不足している項目をまとめて返します。
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

var envNames = map[string]string{
	"Port":          "PORT",
	"DBDriver":      "DB_DRIVER",
	"DBDSN":         "DB_DSN",
	"MongoURI":      "MONGO_URI",
	"MongoDatabase": "MONGO_DATABASE",
	"JWTSecret":     "JWT_SECRET",
	"JWTIssuer":     "JWT_ISSUER",
	"TokenTTL":      "TOKEN_TTL",
	"CORSOrigins":   "CORS_ORIGINS",
	"LogLevel":      "LOG_LEVEL",
	"LogFormat":     "LOG_FORMAT",
}

func describe(fe validator.FieldError) string {
	field := fe.StructField()
	if i := strings.Index(field, "["); i >= 0 {
		field = field[:i]
	}
	name, ok := envNames[field]
	if !ok {
		name = field
	}
	switch fe.Tag() {
	case "required", "required_if":
		return name + " is required"
	case "required_for_sql":
		return fmt.Sprintf("%s is required for DB_DRIVER=%s", name, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "url":
		return fmt.Sprintf("%s contains an invalid URL %q", name, fe.Value())
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, fe.Tag())
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
