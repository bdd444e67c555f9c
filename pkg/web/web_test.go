package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ohbot/pkg/actuator"
	"github.com/teslashibe/go-ohbot/pkg/agent"
	"github.com/teslashibe/go-ohbot/pkg/display"
	"github.com/teslashibe/go-ohbot/pkg/gesture"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
	"github.com/teslashibe/go-ohbot/pkg/motion"
)

const quickTable = `
gestures:
  - name: nod
    priority: 1
    keywords: [yes]
    steps:
      - {channel: head_nod, target: 6}
`

func newTestServer(t *testing.T) (*Server, *agent.Local, *actuator.Recorder) {
	t.Helper()
	reg, err := gesture.Parse([]byte(quickTable))
	require.NoError(t, err)

	rec := actuator.NewRecorder()
	ctrl := motion.NewController(rec, nil, motion.DefaultConfig())
	m := metrics.New()
	dispatcher := gesture.NewDispatcher(reg, ctrl, nil, m)

	local := agent.NewLocal()
	require.NoError(t, local.Connect(context.Background()))

	s := NewServer(Options{
		Status: func() display.Status {
			return display.Status{Speaking: local.Speaking(), Utterance: "u-1"}
		},
		Speaker:  local,
		Gestures: dispatcher,
		Metrics:  m,
	})
	return s, local, rec
}

func do(t *testing.T, s *Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestStatus(t *testing.T) {
	s, _, _ := newTestServer(t)
	resp, body := do(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st display.Status
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "u-1", st.Utterance)
}

func TestSpeaking(t *testing.T) {
	s, local, _ := newTestServer(t)
	var seen []bool
	local.OnSpeakingStateChanged(func(speaking bool) { seen = append(seen, speaking) })

	resp, _ := do(t, s, http.MethodPost, "/api/speaking", `{"text":"hello there","speaking":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello there", local.CurrentResponse())
	assert.True(t, local.Speaking())
	assert.Equal(t, []bool{true}, seen)

	resp, _ = do(t, s, http.MethodPost, "/api/speaking", `{"speaking":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello there", local.CurrentResponse(), "empty text keeps the response")
	assert.False(t, local.Speaking())
}

func TestSpeaking_BadBody(t *testing.T) {
	s, _, _ := newTestServer(t)
	resp, _ := do(t, s, http.MethodPost, "/api/speaking", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSpeaking_Disconnected(t *testing.T) {
	s, local, _ := newTestServer(t)
	require.NoError(t, local.Close())
	resp, _ := do(t, s, http.MethodPost, "/api/speaking", `{"speaking":true}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGestures(t *testing.T) {
	s, _, rec := newTestServer(t)

	resp, body := do(t, s, http.MethodGet, "/api/gestures", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["nod"]`, string(body))

	resp, _ = do(t, s, http.MethodPost, "/api/gestures/nod", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, rec.CommandsFor(actuator.HeadNod))

	resp, _ = do(t, s, http.MethodPost, "/api/gestures/wave", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnconfiguredRoutes(t *testing.T) {
	s := NewServer(Options{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/status"},
		{http.MethodPost, "/api/speaking"},
		{http.MethodGet, "/api/gestures"},
		{http.MethodPost, "/api/gestures/nod"},
	} {
		resp, _ := do(t, s, tc.method, tc.path, "")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, tc.path)
	}
}

func TestShowUpdatesDisplay(t *testing.T) {
	s, _, _ := newTestServer(t)
	require.NoError(t, s.Show("The sky is blue"))

	resp, body := do(t, s, http.MethodGet, "/api/display", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ev DisplayEvent
	require.NoError(t, json.Unmarshal(body, &ev))
	assert.Equal(t, "display", ev.Type)
	assert.Equal(t, "The sky is blue", ev.Text)
}

func TestMetrics(t *testing.T) {
	s, _, _ := newTestServer(t)
	do(t, s, http.MethodPost, "/api/gestures/nod", "")

	resp, body := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `ohbot_gestures_total{gesture="nod"} 1`)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s, _, _ := newTestServer(t)
	resp, _ := do(t, s, http.MethodGet, "/ws/display", "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
