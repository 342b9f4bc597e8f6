package database

import (
	"context"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN_ForcesParseTime(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
	}{
		{"without params", "user:pw@tcp(db:3306)/todos"},
		{"parseTime disabled", "user:pw@tcp(db:3306)/todos?parseTime=false&loc=Local"},
		{"already set", "user:pw@tcp(db:3306)/todos?parseTime=true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mysqlDSN(tt.dsn)
			require.NoError(t, err)

			cfg, err := mysql.ParseDSN(got)
			require.NoError(t, err)
			assert.True(t, cfg.ParseTime)
			assert.Equal(t, time.UTC, cfg.Loc)
			assert.Equal(t, "user", cfg.User)
			assert.Equal(t, "db:3306", cfg.Addr)
			assert.Equal(t, "todos", cfg.DBName)
		})
	}
}

func TestOpenSQL_RejectsInvalidMySQLDSN(t *testing.T) {
	_, err := OpenSQL(context.Background(), MySQL, "not a dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mysql DSN")
}

func TestRebind(t *testing.T) {
	query := "UPDATE todos SET text = ? WHERE id = ?"
	assert.Equal(t, query, (&SQL{Dialect: MySQL}).Rebind(query))
	assert.Equal(t, "UPDATE todos SET text = $1 WHERE id = $2", (&SQL{Dialect: Postgres}).Rebind(query))
}
