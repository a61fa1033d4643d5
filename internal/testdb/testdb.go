// Package testdb opens throwaway databases for tests.
package testdb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Open returns a private in-memory database with models migrated. It is
// closed when the test ends.
func Open(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())

	db, err := database.OpenSQLite(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, models...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// OpenPostgres connects to the database named by TEST_POSTGRES_DSN, migrates
// models and empties the tables. The test is skipped when the variable is
// unset.
func OpenPostgres(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, closeDB, err := database.Open(ctx, database.Options{Driver: database.DriverPostgres, PostgresDSN: dsn})
	require.NoError(t, err)
	t.Cleanup(closeDB)

	require.NoError(t, database.Migrate(ctx, db, models...))
	require.NoError(t, db.Exec(`TRUNCATE order_items, orders, order_sequences, cart_lines, products, brands, categories, users RESTART IDENTITY CASCADE`).Error)
	return db
}
