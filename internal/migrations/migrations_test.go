package migrations

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedMigrations(t *testing.T) {
	migrations, err := Load()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Name)
	assert.Contains(t, migrations[0].SQL, "enrollments_course_student_key")
}

func TestLoadOrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/002_second.sql": {Data: []byte("SELECT 2;")},
		"sql/001_first.sql":  {Data: []byte("SELECT 1;")},
	}
	migrations, err := load(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "second", migrations[1].Name)
}

func TestLoadRejectsBadFilename(t *testing.T) {
	_, err := load(fstest.MapFS{"sql/nounderscore.sql": {Data: []byte("SELECT 1;")}})
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (id INT);\n\n-- only a comment\n;CREATE INDEX b ON a (id);")
	require.Len(t, stmts, 2)
	assert.Equal(t, "-- header\nCREATE TABLE a (id INT)", stmts[0])
	assert.Equal(t, "CREATE INDEX b ON a (id)", stmts[1])
}

func TestStatusMarksApplied(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	m := NewWithMigrations(sqlx.NewDb(db, "sqlmock"), []Migration{
		{Version: "001", Name: "init"},
		{Version: "002", Name: "views"},
	})

	appliedAt := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version, name, applied_at FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at"}).AddRow("001", "init", appliedAt))

	statuses, err := m.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Applied())
	assert.Equal(t, appliedAt, *statuses[0].AppliedAt)
	assert.False(t, statuses[1].Applied())
	assert.NoError(t, mock.ExpectationsWereMet())
}
