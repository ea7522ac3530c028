package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sqlchat/cli/internal/sqlexec"
)

// Tool is something the model can call by name with a text input.
type Tool struct {
	Name        string
	Description string
	Run         func(ctx context.Context, input string) (string, error)
}

const (
	toolQuery      = "sql_db_query"
	toolSchema     = "sql_db_schema"
	toolListTables = "sql_db_list_tables"
)

// SQLTools returns the query, schema and list-tables tools over exec.
func SQLTools(exec *sqlexec.Executor) []Tool {
	return []Tool{
		{
			Name: toolQuery,
			Description: "Input to this tool is a detailed and correct SQL query, output is a result from the database. " +
				"If the query is not correct, an error message will be returned. " +
				"If an error is returned, rewrite the query, check the query, and try again. " +
				"If you encounter an issue with Unknown column 'xxxx' in 'field list', use " + toolSchema +
				" to query the correct table fields.",
			Run: func(ctx context.Context, input string) (string, error) {
				res, err := exec.Execute(ctx, stripMarkdownSQL(input))
				if err != nil {
					return "", err
				}
				if len(res.Columns) == 0 && len(res.Rows) == 0 {
					return fmt.Sprintf("%d rows affected", res.RowsAffected), nil
				}
				if len(res.Rows) == 0 {
					return "", nil
				}
				return res.Literal(), nil
			},
		},
		{
			Name: toolSchema,
			Description: "Input to this tool is a comma-separated list of tables, output is the schema and sample rows for those tables. " +
				"Be sure that the tables actually exist by calling " + toolListTables + " first! " +
				"Example Input: table1, table2, table3",
			Run: func(ctx context.Context, input string) (string, error) {
				tables := splitTables(input)
				if len(tables) == 0 {
					return "", errors.New("no table names given")
				}
				return exec.Inspector().Describe(ctx, tables)
			},
		},
		{
			Name:        toolListTables,
			Description: "Input is an empty string, output is a comma-separated list of tables in the database.",
			Run: func(ctx context.Context, _ string) (string, error) {
				tables, err := exec.Inspector().ListTables(ctx)
				if err != nil {
					return "", err
				}
				return strings.Join(tables, ", "), nil
			},
		},
	}
}

func splitTables(input string) []string {
	var out []string
	for _, t := range strings.Split(input, ",") {
		t = strings.Trim(strings.TrimSpace(t), "`'\"")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// stripMarkdownSQL removes a ```sql fence the model sometimes adds.
func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
