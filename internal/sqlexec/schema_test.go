package sqlexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTablesAndDescribe(t *testing.T) {
	db := newTestDB(t)
	si := NewSchemaInspector(db, SQLite)
	ctx := context.Background()

	tables, err := si.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"students"}, tables)

	info, err := si.GetTableInfo(ctx, "students")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, info.PrimaryKeyCols())
	require.Len(t, info.Columns, 4)
	assert.True(t, info.Columns[1].NotNull)

	out, err := si.Describe(ctx, []string{"students"})
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE students (")
	assert.Contains(t, out, "\tname TEXT NOT NULL,")
	assert.Contains(t, out, "\tPRIMARY KEY (id)\n)")
	assert.Contains(t, out, "3 rows from students table:\nid\tname\tage\tgrade\n")
	assert.Contains(t, out, "2\tBo\t22\tNone\n*/")
}

func TestDescribeUnknownTable(t *testing.T) {
	si := NewSchemaInspector(newTestDB(t), SQLite)
	_, err := si.Describe(context.Background(), []string{"teachers"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teachers")
}

func TestGetTableInfoCaches(t *testing.T) {
	db := newTestDB(t)
	si := NewSchemaInspector(db, SQLite)
	ctx := context.Background()

	first, err := si.GetTableInfo(ctx, "students")
	require.NoError(t, err)
	second, err := si.GetTableInfo(ctx, "students")
	require.NoError(t, err)
	assert.Same(t, first, second)

	si.ClearCache()
	third, err := si.GetTableInfo(ctx, "students")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "`a``b`", NewSchemaInspector(nil, MySQL).Quote("a`b"))
	assert.Equal(t, `"a""b"`, NewSchemaInspector(nil, Postgres).Quote(`a"b`))
}
