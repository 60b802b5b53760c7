// Package dbtest opens throwaway SQLite databases with the full schema for service tests.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ptamhub/billing/internal/models"
	"github.com/ptamhub/billing/internal/platform/db"
)

// New returns an in-memory database private to t, migrated and seeded.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	// a single connection keeps the shared in-memory database alive and serializes writers
	return open(t, fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=0", name), 1)
}

// NewFile returns a WAL database file under t.TempDir() served by several connections,
// for tests where goroutines must really hit the database at the same time.
// Transactions take the write lock at BEGIN and wait on busy_timeout instead of failing.
func NewFile(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "billing.db")
	return open(t, "file:"+path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_fk=0", 8)
}

func open(t testing.TB, dsn string, conns int) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(models.All()...))
	require.NoError(t, db.SeedGateways(context.Background(), gdb))
	return gdb
}
