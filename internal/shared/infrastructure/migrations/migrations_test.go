package migrations_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableNames(t *testing.T) {
	tables, err := migrations.TableNames("")
	require.NoError(t, err)
	assert.Equal(t, `"keystone_streams"`, tables.Streams)
	assert.Equal(t, `"keystone_snapshots"`, tables.Snapshots)
	assert.Equal(t, `"keystone_events"`, tables.Events)

	tables, err = migrations.TableNames("billing_")
	require.NoError(t, err)
	assert.Equal(t, `"billing_events"`, tables.Events)

	_, err = migrations.TableNames(`x"; DROP TABLE users; --`)
	assert.Error(t, err)
}

func TestFiles(t *testing.T) {
	for _, driver := range []database.Driver{database.DriverSQLite, database.DriverPostgres} {
		files, err := migrations.Files(driver)
		require.NoError(t, err)
		assert.NotEmpty(t, files, driver.String())
	}

	_, err := migrations.Files("mysql")
	assert.Error(t, err)
}

func TestRun_SQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: filepath.Join(t.TempDir(), "store.db")})
	require.NoError(t, err)
	defer conn.Close()

	tables, err := migrations.TableNames("")
	require.NoError(t, err)

	require.NoError(t, migrations.Run(ctx, conn, tables))
	require.NoError(t, migrations.Run(ctx, conn, tables))

	for _, table := range []string{"keystone_streams", "keystone_snapshots", "keystone_events"} {
		var name string
		err := conn.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}
