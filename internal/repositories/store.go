package repositories

import (
	"context"
	"fmt"

	"go-todo-api/internal/config"
	"go-todo-api/internal/database"
)

// NewStore は DB_DRIVER に応じたバックエンドに接続し、リポジトリを組み立てます。
// 接続できない場合は起動時にエラーを返します。
func NewStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.DBDriver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite3", "mysql", "postgres":
		db, err := database.OpenSQL(ctx, database.Dialect(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(db), nil
	case "mongo":
		m, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return NewMongoStore(m), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// NewSQLStore はSQL接続からストアを作成します。
func NewSQLStore(db *database.SQL) *Store {
	return &Store{
		Driver: string(db.Dialect),
		Todos:  NewSQLTodoRepository(db),
		Users:  NewSQLUserRepository(db),
		ping:   db.PingContext,
		close:  func(context.Context) error { return db.Close() },
	}
}

// NewMongoStore はMongoDB接続からストアを作成します。
func NewMongoStore(m *database.Mongo) *Store {
	return &Store{
		Driver: "mongo",
		Todos:  NewMongoTodoRepository(m.DB),
		Users:  NewMongoUserRepository(m.DB),
		ping:   m.Ping,
		close:  m.Close,
	}
}
