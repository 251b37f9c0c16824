package migrations

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"skyblock-price-lab/internal/storage/postgres"
)

func TestLoad_OrdersAndSkipsEmpty(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/010_late.sql":   {Data: []byte("SELECT 10;")},
		"pg/002_second.sql": {Data: []byte("SELECT 2;")},
		"pg/001_first.sql":  {Data: []byte("SELECT 1;")},
		"pg/003_blank.sql":  {Data: []byte("  \n")},
		"pg/README.md":      {Data: []byte("not sql")},
	}

	got, err := load(fsys, "pg")
	require.NoError(t, err)

	var versions []string
	for _, m := range got {
		versions = append(versions, m.Version)
	}
	assert.Equal(t, []string{"001_first", "002_second", "010_late"}, versions)
	assert.Equal(t, "SELECT 1;", got[0].SQL)
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := load(fstest.MapFS{}, "nope")
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	sql := `
-- header comment
CREATE TABLE a (x Int64) ENGINE = Memory;

CREATE TABLE b (y String)
ENGINE = Memory;
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int64) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String)\nENGINE = Memory", stmts[1])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1;`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b'`))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/prices")
	require.NoError(t, err)
	assert.Equal(t, "prices", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrationsAreSplittable(t *testing.T) {
	for _, dir := range []struct {
		fsys fs.FS
		name string
	}{{PostgresFS, "postgres"}, {ClickhouseFS, "clickhouse"}} {
		entries, err := fs.ReadDir(dir.fsys, dir.name)
		require.NoError(t, err)
		require.NotEmpty(t, entries, dir.name)

		for _, e := range entries {
			data, err := fs.ReadFile(dir.fsys, dir.name+"/"+e.Name())
			require.NoError(t, err)
			assert.NoError(t, validateNoSemicolonInStrings(string(data)), e.Name())
			assert.NotEmpty(t, splitStatements(string(data)), e.Name())
		}
	}
}

func TestRunPostgresMigrations_RecordsVersions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	want, err := load(PostgresFS, "postgres")
	require.NoError(t, err)

	applied, err := RunPostgresMigrations(ctx, pool)
	require.NoError(t, err)
	assert.Len(t, applied, len(want))

	// Second run finds everything recorded.
	applied, err = RunPostgresMigrations(ctx, pool)
	require.NoError(t, err)
	assert.Empty(t, applied)

	var tables int
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT count(*) FROM information_schema.tables
		WHERE table_name IN ('items', 'raw_price_observations', 'variant_summaries', 'auction_page_state')`,
	).Scan(&tables))
	assert.Equal(t, 4, tables)
}
