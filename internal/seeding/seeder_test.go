package seeding

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlchat/cli/internal/sqlexec"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC) }

func TestSeedTwiceAppends(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "student.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	var events []Event
	s := New(db, sqlexec.SQLite, NewGenerator(7).WithClock(fixedNow), WithProgress(func(ev Event) {
		events = append(events, ev)
	}))

	res, err := s.Seed(ctx, DefaultCount)
	require.NoError(t, err)
	assert.Equal(t, Result{Inserted: 100, Total: 100}, res)

	res, err = s.Seed(ctx, DefaultCount)
	require.NoError(t, err)
	assert.Equal(t, Result{Inserted: 100, Total: 200}, res)

	var bad int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM students
		WHERE age NOT BETWEEN 18 AND 25 OR grade NOT BETWEEN 50 AND 100
		OR name = '' OR city IS NULL OR enrollment_date NOT LIKE '____-__-__'`).Scan(&bad))
	assert.Zero(t, bad)

	var maxID int64
	require.NoError(t, db.QueryRow(`SELECT MAX(id) FROM students`).Scan(&maxID))
	assert.EqualValues(t, 200, maxID)

	require.NotEmpty(t, events)
	assert.Equal(t, EventSchemaReady, events[0].Type)
	last := events[len(events)-1]
	assert.Equal(t, EventCommitted, last.Type)
	assert.Equal(t, 100, last.Done)
}

func TestEnsureSchemaKeepsExistingTable(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "student.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	_, err = db.Exec(`CREATE TABLE students (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER,
		grade INTEGER, city TEXT, enrollment_date TEXT, note TEXT)`)
	require.NoError(t, err)

	s := New(db, sqlexec.SQLite, NewGenerator(1))
	require.NoError(t, s.EnsureSchema(ctx))
	_, err = s.Seed(ctx, 5)
	require.NoError(t, err)

	var cols int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('students')`).Scan(&cols))
	assert.Equal(t, 7, cols, "existing columns are untouched")
}

func TestSeedRollsBackWholeBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS students").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO students")
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	var events []Event
	s := New(db, sqlexec.SQLite, NewGenerator(3), WithProgress(func(ev Event) { events = append(events, ev) }))

	_, err = s.Seed(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert row 2")
	require.NoError(t, mock.ExpectationsWereMet(), "no commit, one rollback")

	last := events[len(events)-1]
	assert.Equal(t, EventRolledBack, last.Type)
	assert.Equal(t, 1, last.Done)
	assert.Contains(t, last.Message, "disk full")
}

func TestSeedUsesDollarPlaceholdersForPostgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(createTable[sqlexec.Postgres]).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO students (name, age, grade, city, enrollment_date) VALUES ($1, $2, $3, $4, $5)")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT COUNT(*) FROM students").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))

	res, err := New(db, sqlexec.Postgres, NewGenerator(3)).Seed(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, Result{Inserted: 1, Total: 41}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a := NewGenerator(42).WithClock(fixedNow)
	b := NewGenerator(42).WithClock(fixedNow)
	earliest := fixedNow().AddDate(-2, 0, -1)

	for i := 0; i < 50; i++ {
		sa, sb := a.Next(), b.Next()
		require.Equal(t, sa, sb)
		assert.GreaterOrEqual(t, sa.Age, MinAge)
		assert.LessOrEqual(t, sa.Age, MaxAge)
		assert.GreaterOrEqual(t, sa.Grade, MinGrade)
		assert.LessOrEqual(t, sa.Grade, MaxGrade)
		assert.NotEmpty(t, sa.Name)
		assert.NotEmpty(t, sa.City)

		d, err := time.Parse(time.DateOnly, sa.EnrollmentDate)
		require.NoError(t, err)
		assert.False(t, d.After(fixedNow()), sa.EnrollmentDate)
		assert.True(t, d.After(earliest), sa.EnrollmentDate)
	}
}
