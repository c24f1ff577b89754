package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
-- +migrate Up
CREATE TABLE services (id int);
ALTER TABLE services ADD COLUMN name text;

-- +migrate Down
DROP TABLE services;
`

func writeMigration(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSection(t *testing.T) {
	t.Run("Up", func(t *testing.T) {
		up := section(sample, sectionUp)
		assert.Contains(t, up, "CREATE TABLE services")
		assert.Contains(t, up, "ALTER TABLE services")
		assert.NotContains(t, up, "DROP TABLE")
		assert.NotContains(t, up, "+migrate")
	})

	t.Run("Down", func(t *testing.T) {
		down := section(sample, sectionDown)
		assert.Contains(t, down, "DROP TABLE services")
		assert.NotContains(t, down, "CREATE TABLE")
	})

	t.Run("Missing section", func(t *testing.T) {
		assert.Empty(t, section("CREATE TABLE x (id int);", sectionUp))
	})
}

func TestRun(t *testing.T) {
	t.Run("Unknown mode", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))

		err = run(conn, "sideways", t.TempDir())
		assert.ErrorContains(t, err, "unknown mode")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Up applies files in order", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		dir := t.TempDir()
		writeMigration(t, dir, "0002_seed.sql", "-- +migrate Up\nINSERT INTO services VALUES (1);\n-- +migrate Down\nDELETE FROM services;")
		writeMigration(t, dir, "0001_init.sql", sample)

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))

		mock.ExpectQuery("SELECT EXISTS").WithArgs("0001_init.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		mock.ExpectQuery("SELECT EXISTS").WithArgs("0002_seed.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO services").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("0002_seed.sql").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, run(conn, "up", dir))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMigrateUp(t *testing.T) {
	t.Run("Failure rolls back", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		file := writeMigration(t, t.TempDir(), "0001_init.sql", sample)

		mock.ExpectQuery("SELECT EXISTS").WithArgs("0001_init.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE services").WillReturnError(errors.New("syntax error"))
		mock.ExpectRollback()

		err = migrateUp(conn, []string{file})
		assert.ErrorContains(t, err, "apply 0001_init.sql: syntax error")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("File without up section", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		file := writeMigration(t, t.TempDir(), "0001_empty.sql", "-- nothing here\n")

		mock.ExpectQuery("SELECT EXISTS").WithArgs("0001_empty.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err = migrateUp(conn, []string{file})
		assert.ErrorContains(t, err, "has no")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMigrateDown(t *testing.T) {
	t.Run("Rolls back latest", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		file := writeMigration(t, t.TempDir(), "0001_init.sql", sample)

		mock.ExpectQuery("SELECT version FROM schema_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("0001_init.sql"))
		mock.ExpectBegin()
		mock.ExpectExec("DROP TABLE services").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM schema_migrations").WithArgs("0001_init.sql").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, migrateDown(conn, []string{file}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nothing applied", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		mock.ExpectQuery("SELECT version FROM schema_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"version"}))

		require.NoError(t, migrateDown(conn, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing file", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		mock.ExpectQuery("SELECT version FROM schema_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("0009_gone.sql"))

		err = migrateDown(conn, nil)
		assert.ErrorContains(t, err, "migration file not found")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatus(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	file := writeMigration(t, t.TempDir(), "0001_init.sql", sample)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("0001_init.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	require.NoError(t, status(conn, []string{file}))
	require.NoError(t, mock.ExpectationsWereMet())
}
