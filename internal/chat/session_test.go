package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlchat/cli/internal/agent"
	sqlerrors "sqlchat/cli/internal/errors"
	"sqlchat/cli/internal/response"
	"sqlchat/cli/internal/transcript"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	os.Exit(m.Run())
}

type scriptedGateway struct {
	answers []string
	err     error
	queries []string
}

func (g *scriptedGateway) Run(_ context.Context, query string, observers ...agent.StepObserver) (string, error) {
	g.queries = append(g.queries, query)
	for _, o := range observers {
		o.OnStep("Action: sql_db_query")
	}
	if g.err != nil {
		return "", g.err
	}
	a := g.answers[0]
	g.answers = g.answers[1:]
	return a, nil
}

type countingView struct{ steps, closed int }

func (v *countingView) OnStep(string) { v.steps++ }
func (v *countingView) Close()        { v.closed++ }

func newSession(t *testing.T, gw agent.Gateway, opts ...Option) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{WithOutput(&out), WithExportDir(t.TempDir()), WithScreenClearer(func(io.Writer) {})}, opts...)
	return New(gw, opts...), &out
}

func TestTurnTabularAnswerIsRenderedAndRecorded(t *testing.T) {
	gw := &scriptedGateway{answers: []string{"[(1, 'x'), (2, 'y')]"}}
	view := &countingView{}
	s, out := newSession(t, gw, WithStepView(func() StepView { return view }))

	res, err := s.Turn(context.Background(), "list students")
	require.NoError(t, err)
	assert.Equal(t, response.Tabular, res.Kind)
	assert.Contains(t, out.String(), "x")
	assert.Equal(t, 1, view.steps)
	assert.Equal(t, 1, view.closed)

	assert.Equal(t, []transcript.Entry{
		{Role: transcript.Assistant, Content: transcript.Greeting},
		{Role: transcript.User, Content: "list students"},
		{Role: transcript.Assistant, Content: "[(1, 'x'), (2, 'y')]"},
	}, s.Transcript().All())
	require.NotNil(t, s.LastTable())
}

func TestTurnFreeformKeepsLastTable(t *testing.T) {
	gw := &scriptedGateway{answers: []string{"[(1,)]", "There are 3 students."}}
	s, out := newSession(t, gw)

	_, err := s.Turn(context.Background(), "ids")
	require.NoError(t, err)
	res, err := s.Turn(context.Background(), "how many?")
	require.NoError(t, err)

	assert.Equal(t, response.Freeform, res.Kind)
	assert.Contains(t, out.String(), "There are 3 students.\n")
	assert.NotNil(t, s.LastTable())
	assert.Equal(t, 5, s.Transcript().Len())
}

func TestAgentErrorAppendsNoAssistantEntry(t *testing.T) {
	gw := &scriptedGateway{err: sqlerrors.New(sqlerrors.AgentFailed, "Unavailable: agent service is down")}
	s, out := newSession(t, gw)

	require.NoError(t, s.Handle(context.Background(), "who is oldest?"))
	assert.Contains(t, out.String(), "Agent request failed")

	entries := s.Transcript().All()
	require.Len(t, entries, 2)
	assert.Equal(t, transcript.User, entries[1].Role)

	_, err := s.Turn(context.Background(), "again")
	assert.True(t, sqlerrors.Is(err, sqlerrors.AgentFailed))
	assert.Equal(t, 3, s.Transcript().Len())
}

func TestExportWritesLastTable(t *testing.T) {
	gw := &scriptedGateway{answers: []string{"[(1, 'x'), (2, 'y')]"}}
	dir := t.TempDir()
	s, out := newSession(t, gw, WithExportDir(dir))

	require.NoError(t, s.Handle(context.Background(), "/export"))
	assert.Contains(t, out.String(), "No table to export yet")

	require.NoError(t, s.Handle(context.Background(), "rows please"))
	require.NoError(t, s.Handle(context.Background(), "/export"))
	data, err := os.ReadFile(filepath.Join(dir, response.DefaultExportFile))
	require.NoError(t, err)
	assert.Equal(t, "0,1\n1,x\n2,y\n", string(data))

	require.NoError(t, s.Handle(context.Background(), "/export custom.csv"))
	assert.FileExists(t, filepath.Join(dir, "custom.csv"))
	assert.Contains(t, out.String(), "Saved 2 rows to")
}

func TestClearResetsTranscript(t *testing.T) {
	cleared := 0
	gw := &scriptedGateway{answers: []string{"[(1,)]"}}
	s, _ := newSession(t, gw, WithScreenClearer(func(io.Writer) { cleared++ }))

	require.NoError(t, s.Handle(context.Background(), "ids"))
	require.NoError(t, s.Handle(context.Background(), "/clear"))

	assert.Equal(t, 1, cleared)
	assert.Nil(t, s.LastTable())
	assert.Equal(t, []transcript.Entry{{Role: transcript.Assistant, Content: transcript.Greeting}}, s.Transcript().All())
}

func TestLoopStopsAtExit(t *testing.T) {
	gw := &scriptedGateway{answers: []string{"ok", "never"}}
	s, out := newSession(t, gw)

	lines := []string{"", "hello", "/history", "/nope", "/exit", "ignored"}
	next := func() (string, error) {
		if len(lines) == 0 {
			return "", io.EOF
		}
		l := lines[0]
		lines = lines[1:]
		return l, nil
	}
	require.NoError(t, s.Loop(context.Background(), next))

	assert.Equal(t, []string{"hello"}, gw.queries)
	assert.Equal(t, []string{"ignored"}, lines)
	assert.Contains(t, out.String(), "assistant: How can I help you?")
	assert.Contains(t, out.String(), "Unknown command /nope")
}

func TestLoopPropagatesInputErrors(t *testing.T) {
	s, _ := newSession(t, &scriptedGateway{})
	boom := errors.New("tty closed")
	err := s.Loop(context.Background(), func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}
