// Package database はSQLとMongoDBのコネクションを初期化し、スキーマを用意します。
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

// Dialect はSQLバックエンドの種類です。
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

// SQL は *sql.DB と方言をまとめたものです。
type SQL struct {
	*sql.DB
	Dialect Dialect
}

// driverName は database/sql に登録されたドライバー名を返します。
func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return string(d)
}

// mysqlDSN は DATETIME を time.Time で読めるよう parseTime と UTC を強制します。
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// OpenSQL はデータベース接続を初期化し、接続確認とマイグレーションを行います。
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQL, error) {
	switch dialect {
	case SQLite, MySQL, Postgres:
	default:
		return nil, fmt.Errorf("unsupported SQL dialect %q", dialect)
	}

	if dialect == MySQL {
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if dialect == SQLite {
		// :memory: はコネクションごとに別のDBになるため1本に固定する
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQL{DB: db, Dialect: dialect}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("Successfully connected to database", "driver", dialect)
	return s, nil
}

// Migrate は users / todos テーブルが無ければ作成します。
func (s *SQL) Migrate(ctx context.Context) error {
	for _, stmt := range schema[s.Dialect] {
		if _, err := s.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate %s schema: %w", s.Dialect, err)
		}
	}
	return nil
}

// Rebind は ? プレースホルダーを方言に合わせて書き換えます。
func (s *SQL) Rebind(query string) string {
	if s.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsDuplicate は一意制約違反のエラーかどうかを判定します。
func IsDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var schema = map[Dialect][]string{
	SQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT NOT NULL UNIQUE,
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS todos (
			id TEXT NOT NULL UNIQUE,
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT 0,
			priority TEXT NULL,
			due_date DATETIME NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_user_created ON todos (user_id, created_at)`,
	},
	MySQL: {
		`CREATE TABLE IF NOT EXISTS users (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(36) NOT NULL UNIQUE,
			username VARCHAR(64) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS todos (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			id VARCHAR(36) NOT NULL UNIQUE,
			user_id VARCHAR(36) NOT NULL,
			text TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			priority VARCHAR(16) NULL,
			due_date DATETIME(6) NULL,
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_todos_user_created (user_id, created_at)
		)`,
	},
	Postgres: {
		`CREATE TABLE IF NOT EXISTS users (
			seq BIGSERIAL PRIMARY KEY,
			id VARCHAR(36) NOT NULL UNIQUE,
			username VARCHAR(64) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS todos (
			seq BIGSERIAL PRIMARY KEY,
			id VARCHAR(36) NOT NULL UNIQUE,
			user_id VARCHAR(36) NOT NULL,
			text TEXT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			priority VARCHAR(16) NULL,
			due_date TIMESTAMPTZ NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_user_created ON todos (user_id, created_at)`,
	},
}
