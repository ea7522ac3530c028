// Package sqlexec runs SQL on behalf of the agent over a database/sql pool.
// It handles statement execution, read-only enforcement and result
// formatting for the agent's observations.
//
// Key features include:
//   - Per-dialect schema inspection with an in-memory cache
//   - Transaction management for write operations
//   - Results rendered as literal rows the response interpreter understands
//   - Debug logging for troubleshooting
package sqlexec

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sqlchat/cli/internal/logging"
	"sqlchat/cli/internal/response"
)

// ErrWriteNotAllowed is returned for data-modifying statements on a read-only executor.
var ErrWriteNotAllowed = errors.New("only read-only statements are allowed")

// Dialect selects the SQL flavor for introspection and quoting.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

// Result represents a normalized SQL result.
type Result struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	RowsAffected int64    `json:"rows_affected,omitempty"`
}

// Literal renders the rows as a list of tuples.
func (r Result) Literal() string {
	return response.FormatLiteral(r.Rows)
}

// JSON renders the result as a JSON object.
func (r Result) JSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Executor executes SQL statements using a connection pool.
// It integrates schema inspection for the agent's tools.
type Executor struct {
	// DB is the pooled connection
	DB *sql.DB
	// Dialect drives introspection queries and identifier quoting
	Dialect Dialect
	// AllowWrites permits data-modifying statements
	AllowWrites bool

	inspector *SchemaInspector
	log       *logrus.Entry
}

// New creates an Executor over an existing pool. Writes are refused until
// AllowWrites is set.
func New(db *sql.DB, dialect Dialect, log *logrus.Entry) *Executor {
	if log == nil {
		log = logging.Discard()
	}
	return &Executor{
		DB:        db,
		Dialect:   dialect,
		inspector: NewSchemaInspector(db, dialect),
		log:       log,
	}
}

// Inspector exposes the cached schema inspector.
func (e *Executor) Inspector() *SchemaInspector { return e.inspector }

// Execute runs one SQL statement. Read statements return columns and rows;
// writes run in their own transaction and return the affected row count.
func (e *Executor) Execute(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, errors.New("empty query")
	}
	res := Result{Columns: []string{}, Rows: [][]any{}}

	if !IsReadOnly(query) {
		if !e.AllowWrites {
			e.log.WithField("sql", preview(query)).Warn("refused write statement")
			return res, ErrWriteNotAllowed
		}
		return e.write(ctx, query)
	}

	e.log.WithField("sql", preview(query)).Debug("executing query")
	rows, err := e.DB.QueryContext(ctx, query)
	if err != nil {
		return res, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return res, err
	}
	res.Columns = cols

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return res, err
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return res, err
	}
	e.log.WithField("rows", len(res.Rows)).Debug("query finished")
	return res, nil
}

func (e *Executor) write(ctx context.Context, query string) (Result, error) {
	res := Result{Columns: []string{}, Rows: [][]any{}}
	e.log.WithField("sql", preview(query)).Debug("BEGIN transaction")
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer tx.Rollback() // no-op after commit

	ct, err := tx.ExecContext(ctx, query)
	if err != nil {
		return res, err
	}
	if n, err := ct.RowsAffected(); err == nil {
		res.RowsAffected = n
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit failed: %w", err)
	}
	// Writes may change the schema.
	e.inspector.ClearCache()
	e.log.WithField("rows_affected", res.RowsAffected).Debug("COMMIT succeeded")
	return res, nil
}

// normalize turns driver values into printable Go values.
func normalize(v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if utf8.Valid(b) {
		return string(b)
	}
	if id, err := uuid.FromBytes(b); err == nil {
		return id.String()
	}
	return b
}

func preview(s string) string {
	if len(s) <= 100 {
		return s
	}
	return s[:100] + "..."
}

var readKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"EXPLAIN":  true,
	"DESCRIBE": true,
	"DESC":     true,
	"VALUES":   true,
}

var writeKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"MERGE":    true,
	"CREATE":   true,
	"DROP":     true,
	"ALTER":    true,
	"TRUNCATE": true,
	"GRANT":    true,
	"REVOKE":   true,
	"ATTACH":   true,
	"PRAGMA":   true,
	"INTO":     true,
}

// IsReadOnly reports whether every statement in query only reads data.
// Keywords inside string literals, quoted identifiers and comments are ignored.
func IsReadOnly(query string) bool {
	words := keywords(query)
	if len(words) == 0 {
		return false
	}
	expectStart := true
	for _, w := range words {
		if w == ";" {
			expectStart = true
			continue
		}
		if expectStart {
			if !readKeywords[w] {
				return false
			}
			expectStart = false
			continue
		}
		if writeKeywords[w] {
			return false
		}
	}
	return true
}

// keywords returns upper-cased bare words and ';' separators.
func keywords(query string) []string {
	var out []string
	i := 0
	for i < len(query) {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i++
			for i < len(query) && query[i] != c {
				if query[i] == '\\' && c == '\'' {
					i++
				}
				i++
			}
			i++
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			for i < len(query) && query[i] != '\n' {
				i++
			}
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				return out
			}
			i += end + 4
		case c == ';':
			out = append(out, ";")
			i++
		case isWordChar(c):
			start := i
			for i < len(query) && isWordChar(query[i]) {
				i++
			}
			out = append(out, strings.ToUpper(query[start:i]))
		default:
			i++
		}
	}
	// A trailing separator does not start a new statement.
	for len(out) > 0 && out[len(out)-1] == ";" {
		out = out[:len(out)-1]
	}
	return out
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
