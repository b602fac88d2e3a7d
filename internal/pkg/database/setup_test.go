package database

import (
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	t.Setenv("DB_USER", "market")
	t.Setenv("DB_PASSWORD", "p@ss:word")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_NAME", "classificados")

	cfg, err := mysqldriver.ParseDSN(DSN())
	require.NoError(t, err)
	assert.Equal(t, "market", cfg.User)
	assert.Equal(t, "p@ss:word", cfg.Passwd)
	assert.Equal(t, "db:3307", cfg.Addr)
	assert.Equal(t, "classificados", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Contains(t, DSN(), "charset=utf8mb4")
}
