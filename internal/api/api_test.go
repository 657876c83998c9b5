package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/rescue-explorer/internal/engine"
	"github.com/talgya/rescue-explorer/internal/world"
)

func finishedSim(t *testing.T) *engine.Simulation {
	t.Helper()
	grid, err := world.ParseGrid(
		"..V",
		"B..",
	)
	require.NoError(t, err)
	sim := engine.NewSimulation(grid, []engine.AgentSpec{
		{Name: "EXPL_1", Index: 0, Budget: 100},
		{Name: "EXPL_2", Index: 1, Budget: 100},
	}, engine.Options{Costs: world.DefaultCosts()}, engine.NewRescuer(nil))

	for tick := uint64(1); tick <= 200 && !sim.Done(); tick++ {
		sim.TickAll(tick)
	}
	require.True(t, sim.Done())
	return sim
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatus(t *testing.T) {
	s := &Server{Sim: finishedSim(t), RunID: "run-1"}
	rec := get(t, s.Handler(), "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body["run"])
	assert.Equal(t, true, body["done"])
	assert.Equal(t, float64(2), body["explorers"])
	assert.Equal(t, float64(2), body["home"])
	assert.Equal(t, float64(2), body["reports"])
	assert.Equal(t, float64(6), body["mapped_cells"])
	assert.Equal(t, float64(1), body["victims"])
}

func TestExplorersAndVictims(t *testing.T) {
	s := &Server{Sim: finishedSim(t)}
	h := s.Handler()

	var explorers []engine.AgentSummary
	require.NoError(t, json.Unmarshal(get(t, h, "/api/v1/explorers").Body.Bytes(), &explorers))
	require.Len(t, explorers, 2)
	assert.Equal(t, "EXPL_1", explorers[0].Name)
	assert.Equal(t, world.Origin, explorers[0].Pos)

	var victims []engine.VictimEntry
	require.NoError(t, json.Unmarshal(get(t, h, "/api/v1/victims").Body.Bytes(), &victims))
	require.Len(t, victims, 1)
	assert.Equal(t, world.Position{X: 2, Y: -1}, victims[0].Pos)
}

func TestEventsFilterAndLimit(t *testing.T) {
	s := &Server{Sim: finishedSim(t)}
	h := s.Handler()

	var events []engine.Event
	require.NoError(t, json.Unmarshal(get(t, h, "/api/v1/events?explorer=EXPL_2").Body.Bytes(), &events))
	require.NotEmpty(t, events)
	for _, e := range events {
		assert.Equal(t, "EXPL_2", e.Agent)
	}

	require.NoError(t, json.Unmarshal(get(t, h, "/api/v1/events?limit=1").Body.Bytes(), &events))
	assert.Len(t, events, 1)
}

func TestGridDump(t *testing.T) {
	s := &Server{Sim: finishedSim(t)}
	rec := get(t, s.Handler(), "/api/v1/grid")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "..V\nB..\n", rec.Body.String())
}

func TestRejectsWrites(t *testing.T) {
	s := &Server{Sim: finishedSim(t)}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Equal(t, 61, rl.RetryAfter("10.0.0.1"))
	assert.Equal(t, 0, rl.RetryAfter("unknown"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	h := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "192.0.2.7, 10.0.0.1")

	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, "192.0.2.7", clientIP(req))
	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	plain.RemoteAddr = "198.51.100.4:5555"
	assert.Equal(t, "198.51.100.4", clientIP(plain))
}
