package agent

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlerrors "sqlchat/cli/internal/errors"
	"sqlchat/cli/internal/llm"
	"sqlchat/cli/internal/sqlexec"
)

// scriptedLLM replays canned completions and records the prompts it saw.
type scriptedLLM struct {
	replies []string
	prompts []string
	stops   [][]string
	err     error
}

func (s *scriptedLLM) Complete(_ context.Context, req llm.Request, onDelta func(string)) (llm.Response, error) {
	if s.err != nil {
		return llm.Response{}, s.err
	}
	s.prompts = append(s.prompts, req.Messages[0].Content)
	s.stops = append(s.stops, req.Stop)
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	if onDelta != nil {
		onDelta(reply)
	}
	return llm.Response{Text: reply}, nil
}

type recorder struct {
	steps  []string
	deltas int
}

func (r *recorder) OnStep(text string)  { r.steps = append(r.steps, text) }
func (r *recorder) OnDelta(text string) { r.deltas++ }

func newExecutor(t *testing.T) *sqlexec.Executor {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE students (id INTEGER PRIMARY KEY, name TEXT, grade INTEGER);
		INSERT INTO students (name, grade) VALUES ('Ana', 91), ('Bo', 78), ('Cy', 85);`)
	require.NoError(t, err)
	return sqlexec.New(db, sqlexec.SQLite, nil)
}

func TestRunAnswersWithTools(t *testing.T) {
	model := &scriptedLLM{replies: []string{
		"Action: sql_db_list_tables\nAction Input: ",
		"I should look at the schema.\nAction: sql_db_schema\nAction Input: students",
		"Action: sql_db_query\nAction Input: \"SELECT name, grade FROM students WHERE grade > 80 ORDER BY grade DESC\"\nObservation: made up",
		"I now know the final answer\nFinal Answer: [('Ana', 91), ('Cy', 85)]",
	}}
	rec := &recorder{}
	a := NewSQLAgent(model, newExecutor(t))

	answer, err := a.Run(context.Background(), "Who scored above 80?", rec)
	require.NoError(t, err)
	assert.Equal(t, "[('Ana', 91), ('Cy', 85)]", answer)

	require.Len(t, model.prompts, 4)
	assert.Contains(t, model.prompts[0], "syntactically correct SQLite query")
	assert.Contains(t, model.prompts[0], "DO NOT make any DML statements")
	assert.Contains(t, model.prompts[0], "Question: Who scored above 80?")
	assert.Contains(t, model.prompts[1], "Observation: students\nThought:")
	assert.Contains(t, model.prompts[2], "CREATE TABLE students (")
	assert.Contains(t, model.prompts[3], "Observation: [('Ana', 91), ('Cy', 85)]\nThought:")
	assert.NotContains(t, model.prompts[3], "made up", "text after the stop sequence is dropped")
	assert.Equal(t, []string{"\nObservation:"}, model.stops[0])

	// Three tool steps produce a thought and an observation each, then the final thought.
	assert.Len(t, rec.steps, 7)
	assert.Equal(t, "Observation: students", rec.steps[1])
	assert.Equal(t, 4, rec.deltas)
}

func TestRunFeedsBackParseErrors(t *testing.T) {
	model := &scriptedLLM{replies: []string{
		"I think the answer is 3",
		"Action: sql_db_query",
		"Action: sql_db_drop\nAction Input: students",
		"Final Answer: 3",
	}}
	a := NewSQLAgent(model, newExecutor(t))

	answer, err := a.Run(context.Background(), "How many students?")
	require.NoError(t, err)
	assert.Equal(t, "3", answer)
	assert.Contains(t, model.prompts[1], "Observation: Invalid Format: Missing 'Action:' after 'Thought:'")
	assert.Contains(t, model.prompts[2], "Observation: Invalid Format: Missing 'Action Input:' after 'Action:'")
	assert.Contains(t, model.prompts[3], "sql_db_drop is not a valid tool, try one of [sql_db_query, sql_db_schema, sql_db_list_tables].")
}

func TestRunRefusesWritesAndReportsToolErrors(t *testing.T) {
	model := &scriptedLLM{replies: []string{
		"Action: sql_db_query\nAction Input: DELETE FROM students",
		"Action: sql_db_query\nAction Input: SELECT nope FROM students",
		"Final Answer: I don't know",
	}}
	exec := newExecutor(t)
	a := NewSQLAgent(model, exec)

	_, err := a.Run(context.Background(), "delete everyone")
	require.NoError(t, err)
	assert.Contains(t, model.prompts[1], "Observation: Error: only read-only statements are allowed")
	assert.Contains(t, model.prompts[2], "Observation: Error: no such column: nope")

	var n int
	require.NoError(t, exec.DB.QueryRow("SELECT COUNT(*) FROM students").Scan(&n))
	assert.Equal(t, 3, n)
}

func TestRunStopsAtIterationLimit(t *testing.T) {
	model := &scriptedLLM{replies: []string{"Action: sql_db_list_tables\nAction Input: "}}
	a := NewSQLAgent(model, newExecutor(t), WithMaxIterations(3))

	answer, err := a.Run(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Equal(t, StoppedMessage, answer)
	assert.Len(t, model.prompts, 3)

	model = &scriptedLLM{replies: []string{"Action: sql_db_list_tables\nAction Input: "}}
	_, err = NewSQLAgent(model, newExecutor(t)).Run(context.Background(), "loop")
	require.NoError(t, err)
	assert.Len(t, model.prompts, DefaultMaxIterations)
}

func TestRunModelErrorIsAgentFailed(t *testing.T) {
	model := &scriptedLLM{err: errors.New("connection reset")}
	_, err := NewSQLAgent(model, nil).Run(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, sqlerrors.Is(err, sqlerrors.AgentFailed))
	assert.True(t, strings.Contains(err.Error(), "connection reset"))
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSQLAgent(&scriptedLLM{replies: []string{"Final Answer: x"}}, nil).Run(ctx, "q")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestObserverFunc(t *testing.T) {
	var got []string
	model := &scriptedLLM{replies: []string{"Final Answer: done"}}
	_, err := NewSQLAgent(model, nil).Run(context.Background(), "q", ObserverFunc(func(s string) { got = append(got, s) }))
	require.NoError(t, err)
	assert.Equal(t, []string{"Final Answer: done"}, got)
}
