package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		age INTEGER,
		grade REAL
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO students (name, age, grade) VALUES ('Ana', 20, 91.5), ('Bo', 22, NULL)`)
	require.NoError(t, err)
	return db
}

func TestExecuteSelect(t *testing.T) {
	e := New(newTestDB(t), SQLite, nil)

	res, err := e.Execute(context.Background(), "SELECT name, age, grade FROM students ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "grade"}, res.Columns)
	assert.Equal(t, "[('Ana', 20, 91.5), ('Bo', 22, None)]", res.Literal())

	js, err := res.JSON()
	require.NoError(t, err)
	assert.Contains(t, js, `"columns":["name","age","grade"]`)
}

func TestExecuteRefusesWritesByDefault(t *testing.T) {
	db := newTestDB(t)
	e := New(db, SQLite, nil)
	ctx := context.Background()

	_, err := e.Execute(ctx, "DELETE FROM students")
	assert.True(t, errors.Is(err, ErrWriteNotAllowed))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM students").Scan(&n))
	assert.Equal(t, 2, n)

	e.AllowWrites = true
	res, err := e.Execute(ctx, "DELETE FROM students WHERE name = 'Bo'")
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.RowsAffected)
}

func TestExecuteReportsSQLErrors(t *testing.T) {
	e := New(newTestDB(t), SQLite, nil)
	_, err := e.Execute(context.Background(), "SELECT nope FROM students")
	assert.Error(t, err)

	_, err = e.Execute(context.Background(), "   ")
	assert.Error(t, err)
}

func TestIsReadOnly(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT * FROM students", true},
		{"  select count(*) from students;", true},
		{"WITH top AS (SELECT * FROM students) SELECT * FROM top", true},
		{"SELECT 'DROP TABLE x' AS s", true},
		{"-- DELETE\nSELECT 1", true},
		{"EXPLAIN SELECT 1", true},
		{"(SELECT 1)", true},
		{"SELECT name FROM students ORDER BY grade DESC", true},
		{"DELETE FROM students", false},
		{"SELECT 1; DROP TABLE students", false},
		{"WITH d AS (DELETE FROM students RETURNING *) SELECT * FROM d", false},
		{"INSERT INTO students (name) VALUES ('x')", false},
		{"PRAGMA writable_schema = 1", false},
		{"/* SELECT */ UPDATE students SET age = 1", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsReadOnly(tt.sql); got != tt.want {
			t.Errorf("IsReadOnly(%q) = %v, want %v", tt.sql, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "text", normalize([]byte("text")))
	assert.Equal(t, int64(3), normalize(int64(3)))
	uuid := []byte{0xde, 0xad, 0xbe, 0xef, 0, 1, 0, 2, 0, 3, 0, 4, 0, 5, 0, 0xff}
	assert.Equal(t, "deadbeef-0001-0002-0003-0004000500ff", normalize(uuid))
	assert.True(t, strings.HasPrefix(preview(strings.Repeat("x", 200)), strings.Repeat("x", 100)))
}
