package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/inventory-service/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	source, err := migrate.Source("")
	require.NoError(t, err)
	matches, err := fs.Glob(source, "*_"+suffix+".sql")
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)

	data, err := fs.ReadFile(source, matches[0])
	require.NoError(t, err)
	return string(data)
}

func assertStatements(t *testing.T, content string, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		assert.Contains(t, content, stmt)
	}
}

func TestInventoryItemsMigrationContainsConstraints(t *testing.T) {
	assertStatements(t, readMigration(t, "create_inventory_items"),
		"CREATE TABLE IF NOT EXISTS inventory_items",
		"CHECK (quantity >= 0)",
		"CHECK (reserved_quantity >= 0)",
		"CHECK (reserved_quantity <= quantity)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_items_product_id",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_items_sku",
		"DROP TABLE IF EXISTS inventory_items",
	)
}

func TestInventoryTransactionsMigrationContainsConstraints(t *testing.T) {
	assertStatements(t, readMigration(t, "create_inventory_transactions"),
		"CREATE TABLE IF NOT EXISTS inventory_transactions",
		"REFERENCES inventory_items(id)",
		"'stock_in', 'stock_out', 'adjustment', 'reservation', 'release', 'transfer', 'return', 'damaged', 'expired'",
		"idx_inventory_transactions_created_at",
		"DROP TABLE IF EXISTS inventory_transactions",
	)
}

func TestStockReservationsMigrationContainsConstraints(t *testing.T) {
	assertStatements(t, readMigration(t, "create_stock_reservations"),
		"CREATE TABLE IF NOT EXISTS stock_reservations",
		"CHECK (quantity >= 1)",
		"'active', 'fulfilled', 'expired', 'cancelled'",
		"DEFAULT 'order_processing'",
		"idx_stock_reservations_expires_at",
		"DROP TABLE IF EXISTS stock_reservations",
	)
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embedded, err := migrate.Source("")
	require.NoError(t, err)
	require.NoError(t, migrate.Validate(embedded))

	names, err := fs.Glob(embedded, "*.sql")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	assert.Len(t, names, len(onDisk))
	assert.Len(t, names, 3)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	bad := fstest.MapFS{
		"20260301120000_ok.sql":         {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
		"20260301120000_dup.sql":        {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"add_index.sql":                 {Data: []byte("-- +goose Up\n")},
		"20260301130000_no_down.sql":    {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"20260301140000_unbalanced.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n")},
		"README.md":                     {Data: []byte("ignored")},
	}
	err := migrate.Validate(bad)
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"already used", "add_index.sql", "missing -- +goose Down", "StatementBegin"} {
		assert.Contains(t, msg, want)
	}
	assert.NotContains(t, msg, "README")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

	path, err := migrate.CreateSQLMigration(dir, "Add Batch Index!", now)
	require.NoError(t, err)
	assert.Equal(t, "20260402093000_add_batch_index.sql", filepath.Base(path))
	require.NoError(t, migrate.Validate(os.DirFS(dir)))

	_, err = migrate.CreateSQLMigration(dir, "add batch index", now)
	assert.Error(t, err, "same version and slug must not overwrite")

	_, err = migrate.CreateSQLMigration(dir, "!!!", now)
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	v, err := migrate.ParseVersion("20260301120100")
	require.NoError(t, err)
	assert.Equal(t, int64(20260301120100), v)

	for _, raw := range []string{"", "2026", "20261301120100", "abcdefghijklmn"} {
		_, err := migrate.ParseVersion(raw)
		assert.Error(t, err, raw)
	}
}

func TestSourceRejectsFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "x.sql")
	require.NoError(t, os.WriteFile(file, []byte(""), 0o644))
	_, err := migrate.Source(file)
	assert.True(t, err != nil && strings.Contains(err.Error(), "not a directory"))
}
