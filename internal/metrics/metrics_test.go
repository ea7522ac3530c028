package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCounters(t *testing.T) {
	before := testutil.ToFloat64(toolCallsTotal.WithLabelValues("sql_db_query", "error"))
	ObserveToolCall("sql_db_query", errors.New("syntax error"))
	assert.Equal(t, before+1, testutil.ToFloat64(toolCallsTotal.WithLabelValues("sql_db_query", "error")))

	seeded := testutil.ToFloat64(seededRowsTotal)
	ObserveSeeded(100)
	ObserveSeeded(0)
	assert.Equal(t, seeded+100, testutil.ToFloat64(seededRowsTotal))

	turns := testutil.ToFloat64(turnsTotal.WithLabelValues("tabular"))
	ObserveTurn("tabular")
	assert.Equal(t, turns+1, testutil.ToFloat64(turnsTotal.WithLabelValues("tabular")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	ObserveAgentStep()
	ObserveLLMRequest(250*time.Millisecond, nil)
	ObserveConfigure("local", nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	for _, name := range []string{
		"sqlchat_agent_steps_total",
		"sqlchat_llm_request_duration_seconds_bucket",
		`sqlchat_db_configure_total{kind="local",outcome="ok"}`,
	} {
		assert.True(t, strings.Contains(string(body), name), name)
	}
}
