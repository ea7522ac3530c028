// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SampleRows is how many rows TableInfo includes after the DDL.
const SampleRows = 3

// Column describes one table column.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// TableInfo holds information about table structure.
// It caches database metadata to avoid repeated queries to the catalog.
type TableInfo struct {
	// Name is the unqualified table name
	Name string
	// Columns are in ordinal order
	Columns []Column
}

// PrimaryKeyCols lists primary key column names in order.
func (t *TableInfo) PrimaryKeyCols() []string {
	var out []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// SchemaInspector provides database schema inspection and caching capabilities.
// It queries the catalog of the current database and caches results to
// minimize database roundtrips.
type SchemaInspector struct {
	// db is the connection pool for executing schema queries
	db      *sql.DB
	dialect Dialect
	// cache stores table information keyed by table name
	cache map[string]*TableInfo
	// mu protects concurrent access to the cache
	mu sync.RWMutex
}

// NewSchemaInspector creates a new SchemaInspector with the given connection pool.
func NewSchemaInspector(db *sql.DB, dialect Dialect) *SchemaInspector {
	return &SchemaInspector{
		db:      db,
		dialect: dialect,
		cache:   make(map[string]*TableInfo),
	}
}

// ListTables returns the user tables of the current database, sorted.
func (si *SchemaInspector) ListTables(ctx context.Context) ([]string, error) {
	var q string
	switch si.dialect {
	case SQLite:
		q = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	case MySQL:
		q = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`
	case Postgres:
		q = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name`
	default:
		return nil, fmt.Errorf("unsupported dialect %q", si.dialect)
	}

	rows, err := si.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables, rows.Err()
}

// GetTableInfo retrieves or caches table information.
func (si *SchemaInspector) GetTableInfo(ctx context.Context, table string) (*TableInfo, error) {
	si.mu.RLock()
	if info, exists := si.cache[table]; exists {
		si.mu.RUnlock()
		return info, nil
	}
	si.mu.RUnlock()

	info := &TableInfo{Name: table}
	if err := si.loadColumns(ctx, info); err != nil {
		return nil, err
	}
	if len(info.Columns) == 0 {
		return nil, fmt.Errorf("table %q not found", table)
	}
	if si.dialect == Postgres {
		if err := si.loadPrimaryKeys(ctx, info); err != nil {
			return nil, err
		}
	}

	si.mu.Lock()
	si.cache[table] = info
	si.mu.Unlock()
	return info, nil
}

// ClearCache clears all cached schema information.
// This is useful when schema changes are expected.
func (si *SchemaInspector) ClearCache() {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.cache = make(map[string]*TableInfo)
}

func (si *SchemaInspector) loadColumns(ctx context.Context, info *TableInfo) error {
	var q string
	switch si.dialect {
	case SQLite:
		q = `SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`
	case MySQL:
		q = `SELECT column_name, column_type, is_nullable = 'NO', column_key = 'PRI'
			FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position`
	case Postgres:
		q = `SELECT column_name, data_type, is_nullable = 'NO', 0
			FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 ORDER BY ordinal_position`
	default:
		return fmt.Errorf("unsupported dialect %q", si.dialect)
	}

	rows, err := si.db.QueryContext(ctx, q, info.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c  Column
			pk int
		)
		if err := rows.Scan(&c.Name, &c.Type, &c.NotNull, &pk); err != nil {
			return err
		}
		c.PrimaryKey = pk > 0
		info.Columns = append(info.Columns, c)
	}
	return rows.Err()
}

// loadPrimaryKeys marks primary key columns for postgres, whose columns view
// does not carry key information.
func (si *SchemaInspector) loadPrimaryKeys(ctx context.Context, info *TableInfo) error {
	pkQuery := `
		SELECT kc.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kc
			ON tc.constraint_name = kc.constraint_name AND tc.table_schema = kc.table_schema
		WHERE tc.table_schema = current_schema() AND tc.table_name = $1 AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kc.ordinal_position`

	rows, err := si.db.QueryContext(ctx, pkQuery, info.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	pks := map[string]bool{}
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return err
		}
		pks[colName] = true
	}
	for i := range info.Columns {
		info.Columns[i].PrimaryKey = pks[info.Columns[i].Name]
	}
	return rows.Err()
}

// Quote quotes an identifier for the dialect.
func (si *SchemaInspector) Quote(ident string) string {
	if si.dialect == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// DDL renders a CREATE TABLE statement from the cached column metadata.
func (t *TableInfo) DDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.Name)
	for i, c := range t.Columns {
		b.WriteString("\t" + c.Name + " " + c.Type)
		if c.NotNull {
			b.WriteString(" NOT NULL")
		}
		if i < len(t.Columns)-1 || len(t.PrimaryKeyCols()) > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	if pks := t.PrimaryKeyCols(); len(pks) > 0 {
		fmt.Fprintf(&b, "\tPRIMARY KEY (%s)\n", strings.Join(pks, ", "))
	}
	b.WriteString(")")
	return b.String()
}

// Describe returns the DDL of each table followed by a few sample rows,
// the context the agent sees before writing a query.
func (si *SchemaInspector) Describe(ctx context.Context, tables []string) (string, error) {
	known, err := si.ListTables(ctx)
	if err != nil {
		return "", err
	}
	exists := make(map[string]bool, len(known))
	for _, t := range known {
		exists[t] = true
	}
	var missing []string
	for _, t := range tables {
		if !exists[t] {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("table_names %v not found in database", missing)
	}

	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		info, err := si.GetTableInfo(ctx, t)
		if err != nil {
			return "", err
		}
		sample, err := si.sample(ctx, info)
		if err != nil {
			return "", err
		}
		parts = append(parts, info.DDL()+"\n\n"+sample)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (si *SchemaInspector) sample(ctx context.Context, info *TableInfo) (string, error) {
	q := fmt.Sprintf("SELECT * FROM %s LIMIT %d", si.Quote(info.Name), SampleRows)
	rows, err := si.db.QueryContext(ctx, q)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "/*\n%d rows from %s table:\n%s\n", SampleRows, info.Name, strings.Join(cols, "\t"))
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		cells := make([]string, len(vals))
		for i, v := range vals {
			if v == nil {
				cells[i] = "None"
				continue
			}
			cells[i] = truncate(fmt.Sprint(normalize(v)), 100)
		}
		b.WriteString(strings.Join(cells, "\t") + "\n")
	}
	b.WriteString("*/")
	return b.String(), rows.Err()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
