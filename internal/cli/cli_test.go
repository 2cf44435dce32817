package cli

import (
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/postmig/internal/config"
	"github.com/BartekS5/postmig/internal/store/storetest"
)

// sqliteEnv points the CLI at a fresh SQLite blog database holding one
// post with legacy data.
func sqliteEnv(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "blog.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(storetest.Schema)
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO posts (id, title, categories, tags, image_url) VALUES (?, ?, ?, ?, ?)",
		"p1", "Hello", "News, Go", "go", "/img/hello.png")
	require.NoError(t, err)

	t.Setenv("STORE_DRIVER", config.DriverSQLite)
	t.Setenv("SQL_CONNECTION_STRING", path)
	return db
}

func execute(args ...string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestResolveFlagsOverrideOptionsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(file, []byte("dryRun: true\nlogLevel: minimal\nfoldCase: true\n"), 0644))

	opts := &MigrateOptions{GlobalOptions: &GlobalOptions{}}
	cmd := newMigrateCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--options", file, "--log-level", "normal", "--report-path", "out.json"}))

	resolved, err := opts.resolve(cmd)
	require.NoError(t, err)
	assert.True(t, resolved.DryRun, "file value kept when the flag is not set")
	assert.True(t, resolved.FoldCase)
	assert.Equal(t, "normal", resolved.LogLevel, "explicit flag wins over the file")
	assert.Equal(t, "out.json", resolved.ReportPath)
	assert.True(t, resolved.GenerateReport, "default kept when neither sets it")
}

func TestResolveRejectsUnknownLogLevel(t *testing.T) {
	opts := &MigrateOptions{GlobalOptions: &GlobalOptions{}}
	cmd := newMigrateCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "chatty"}))

	_, err := opts.resolve(cmd)
	assert.Error(t, err)
}

func TestMigrateAndVerify(t *testing.T) {
	db := sqliteEnv(t)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	assert.Error(t, execute("verify", "--fail-on-issues", "--log-level", "minimal"))
	assert.NoError(t, execute("verify", "--log-level", "minimal"), "issues alone do not fail verify")

	require.NoError(t, execute("migrate", "--report-path", reportPath, "--log-level", "minimal"))
	assert.FileExists(t, reportPath)
	assert.Equal(t, 2, count(t, db, "categories"))
	assert.Equal(t, 1, count(t, db, "tags"))
	assert.Equal(t, 2, count(t, db, "post_categories"))
	assert.Equal(t, 1, count(t, db, "post_images"))

	assert.NoError(t, execute("verify", "--fail-on-issues", "--log-level", "minimal"))
}

func TestMigrateDryRunWritesNothing(t *testing.T) {
	db := sqliteEnv(t)

	require.NoError(t, execute("migrate", "--dry-run", "--clean-legacy-fields", "--generate-report=false", "--log-level", "minimal"))
	assert.Zero(t, count(t, db, "categories"))
	assert.Zero(t, count(t, db, "post_images"))

	var categories sql.NullString
	require.NoError(t, db.QueryRow("SELECT categories FROM posts WHERE id = 'p1'").Scan(&categories))
	assert.Equal(t, "News, Go", categories.String)
}
