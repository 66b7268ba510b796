// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/farellandr/ticketgate/internal/models"
)

// NewDB returns a migrated in-memory SQLite database. It uses a single
// connection: an in-memory database lives and dies with its connection, and
// SQLite serializes writers anyway.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	return open(t, ":memory:", 1)
}

// TempDBPath returns a path for a database file removed with the test.
func TempDBPath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "ticketgate.db")
}

// OpenFile opens the SQLite database at path as an independent handle with
// its own connection pool, the way a second server process would. Writers
// on other handles are waited for rather than failing with SQLITE_BUSY.
func OpenFile(t testing.TB, path string) *gorm.DB {
	t.Helper()
	return open(t, path+"?_pragma=busy_timeout(10000)", 2)
}

func open(t testing.TB, dsn string, conns int) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
