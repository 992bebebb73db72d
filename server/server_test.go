package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/evo-rl-tuning/evo"
	"github.com/zeu5/evo-rl-tuning/evoenv"
	"github.com/zeu5/evo-rl-tuning/policies"
	"github.com/zeu5/evo-rl-tuning/types"
	"golang.org/x/exp/rand"
)

var errBoom = errors.New("boom")

func fixedRunner(pop evo.Population) *evo.RunResult {
	return &evo.RunResult{
		Population:      pop,
		BestFitness:     1,
		SuccessRatio:    0.5,
		AverageDistance: 1e9,
	}
}

func newTestServer(t *testing.T, maxSteps int, runner evo.Runner) *Server {
	gin.SetMode(gin.TestMode)
	cfg := evoenv.DefaultConfig()
	cfg.PopulationSize = 10
	cfg.Dimension = 3
	cfg.EliteSize = 2
	env, err := evoenv.New(maxSteps, evoenv.WithConfig(cfg), evoenv.WithRunner(runner), evoenv.WithSeed(1))
	require.NoError(t, err)
	return New("", env, nil)
}

func defaultRunner() evo.Runner {
	return evo.RunnerFunc(func(_ evo.RunConfig, pop evo.Population) (*evo.RunResult, error) {
		return fixedRunner(pop), nil
	})
}

func request(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = bytes.NewBuffer(nil)
	case string:
		buf = bytes.NewBufferString(b)
	default:
		bs, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewBuffer(bs)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestSpaces(t *testing.T) {
	s := newTestServer(t, 3, defaultRunner())
	w := request(t, s, http.MethodGet, "/spaces", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := SpacesResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 15, resp.ActionSpace)
	assert.Equal(t, 1000, resp.ObservationSpace)
	assert.Equal(t, [2]int{3, 5}, resp.ActionShape)
	assert.Equal(t, [2]int{10, 100}, resp.ObservationShape)
	assert.Equal(t, 3, resp.MaxSteps)
}

func TestStepBeforeReset(t *testing.T) {
	s := newTestServer(t, 3, defaultRunner())
	w := request(t, s, http.MethodPost, "/step", StepRequest{Action: new(int)})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestResetAndStep(t *testing.T) {
	s := newTestServer(t, 1, defaultRunner())

	w := request(t, s, http.MethodPost, "/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	reset := ResetResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reset))
	assert.Less(t, reset.State, 100)

	action := 7
	w = request(t, s, http.MethodPost, "/step", StepRequest{Action: &action})
	require.Equal(t, http.StatusOK, w.Code)
	result := types.StepResult{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 501, result.State)
	assert.True(t, result.Terminated)

	w = request(t, s, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := StateResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "terminal", state.Phase)
	assert.Equal(t, 1, state.Step)
	assert.Equal(t, 5, state.SuccessBin)
	assert.Equal(t, 1, state.DistanceBin)
	assert.Equal(t, 1.0, state.BestQuality)

	w = request(t, s, http.MethodPost, "/step", StepRequest{Action: &action})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSeededResetReproducible(t *testing.T) {
	s := newTestServer(t, 2, defaultRunner())
	seed := uint64(12)
	w := request(t, s, http.MethodPost, "/reset", ResetRequest{Seed: &seed})
	require.Equal(t, http.StatusOK, w.Code)
	first := s.env.Population()
	w = request(t, s, http.MethodPost, "/reset", ResetRequest{Seed: &seed})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, s.env.Population())
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t, 3, defaultRunner())
	require.Equal(t, http.StatusOK, request(t, s, http.MethodPost, "/reset", nil).Code)

	assert.Equal(t, http.StatusBadRequest, request(t, s, http.MethodPost, "/step", "{").Code)
	assert.Equal(t, http.StatusBadRequest, request(t, s, http.MethodPost, "/step", "{}").Code)
	assert.Equal(t, http.StatusBadRequest, request(t, s, http.MethodPost, "/reset", "[").Code)

	invalid := 15
	w := request(t, s, http.MethodPost, "/step", StepRequest{Action: &invalid})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, s.env.StepCount())
}

func TestRunnerFailure(t *testing.T) {
	runner := evo.RunnerFunc(func(_ evo.RunConfig, _ evo.Population) (*evo.RunResult, error) {
		return nil, errBoom
	})
	s := newTestServer(t, 3, runner)
	require.Equal(t, http.StatusOK, request(t, s, http.MethodPost, "/reset", nil).Code)
	w := request(t, s, http.MethodPost, "/step", StepRequest{Action: new(int)})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := ErrorResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "boom")
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusCode(errors.Wrap(evoenv.ErrInvalidAction, "x")))
	assert.Equal(t, http.StatusConflict, StatusCode(errors.Wrap(evoenv.ErrNotReady, "x")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errBoom))
}

func TestClientDrivesAgent(t *testing.T) {
	s := newTestServer(t, 2, defaultRunner())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	client, err := NewClient(context.Background(), ts.URL, ts.Client())
	require.NoError(t, err)
	assert.Equal(t, 15, client.ActionSpace().N)
	assert.Equal(t, 1000, client.ObservationSpace().N)

	_, err = client.Step(0)
	assert.True(t, errors.Is(err, evoenv.ErrNotReady), "got %v", err)

	policy := policies.NewQLearningGreedy(0.8, 0.9, 0.1, rand.New(rand.NewSource(3)))
	agent := types.NewAgent(&types.AgentConfig{Episodes: 2, Horizon: 5, Policy: policy, Environment: client})
	traces, err := agent.Run()
	require.NoError(t, err)
	require.Len(t, traces, 2)
	for _, trace := range traces {
		assert.Equal(t, 2, trace.Len())
		last, _ := trace.Last()
		assert.True(t, last.Terminated)
	}

	_, err = client.Step(99)
	assert.True(t, errors.Is(err, evoenv.ErrNotReady) || errors.Is(err, evoenv.ErrInvalidAction))

	state, err := client.State()
	require.NoError(t, err)
	assert.Equal(t, "terminal", state.Phase)
}
