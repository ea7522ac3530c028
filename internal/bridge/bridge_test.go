package bridge

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"sqlchat/cli/internal/agent"
	"sqlchat/cli/internal/bridge/grpcclient"
	sqlerrors "sqlchat/cli/internal/errors"
)

type fakeGateway struct {
	steps  []string
	answer string
	err    error
	got    []string
}

func (f *fakeGateway) Run(_ context.Context, query string, observers ...agent.StepObserver) (string, error) {
	f.got = append(f.got, query)
	for _, s := range f.steps {
		for _, o := range observers {
			o.OnStep(s)
		}
	}
	return f.answer, f.err
}

func startServer(t *testing.T, gw agent.Gateway) *grpcclient.Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	Register(s, gw)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	c, err := Connect("bufnet", grpcclient.WithInsecure(), grpcclient.WithDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRemoteRunRelaysStepsAndAnswer(t *testing.T) {
	gw := &fakeGateway{steps: []string{"Action: sql_db_list_tables", "Observation: students"}, answer: "[(1, 'x')]"}
	c := startServer(t, gw)

	var steps []string
	answer, err := c.Run(context.Background(), "list students", agent.ObserverFunc(func(s string) { steps = append(steps, s) }))
	require.NoError(t, err)
	assert.Equal(t, "[(1, 'x')]", answer)
	assert.Equal(t, gw.steps, steps)
	assert.Equal(t, []string{"list students"}, gw.got)
	assert.NotEmpty(t, c.SessionID())
}

func TestRemoteRunAgentError(t *testing.T) {
	c := startServer(t, &fakeGateway{err: errors.New("model unavailable")})

	_, err := c.Run(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, sqlerrors.Is(err, sqlerrors.AgentFailed))
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestRemoteRunRejectsBlankQuery(t *testing.T) {
	gw := &fakeGateway{answer: "never"}
	c := startServer(t, gw)

	_, err := c.Run(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, sqlerrors.Is(err, sqlerrors.AgentFailed))
	assert.Contains(t, err.Error(), "InvalidArgument")
	assert.Empty(t, gw.got)
}
