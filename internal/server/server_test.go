package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/odesolve/internal/config"
	"github.com/njchilds90/odesolve/internal/engine"
	"github.com/njchilds90/odesolve/internal/pipeline"
	"github.com/njchilds90/odesolve/symbolic"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.ServerConfig {
	cfg := config.DefaultConfig().Server
	cfg.RateLimit = 0
	return cfg
}

func newTestServer(t *testing.T, cfg config.ServerConfig, eng engine.Engine) *Server {
	t.Helper()
	if eng == nil {
		eng = engine.New()
	}
	return New(cfg, pipeline.New(eng, nil), eng, WithVersion("test"))
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeSolve(t *testing.T, w *httptest.ResponseRecorder) SolveResponse {
	t.Helper()
	var resp SolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func joined(resp SolveResponse) string { return strings.Join(resp.Steps, "\n") }

// =============================================================================
// POST /solve
// =============================================================================

func TestSolve_GeneralSolution(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	w := do(s, http.MethodPost, "/solve", `{"equation": "y' = y", "method": "auto"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	resp := decodeSolve(t, w)
	assert.True(t, resp.Success, joined(resp))
	require.NotNil(t, resp.Solution)
	require.NotNil(t, resp.GeneralSolution)
	assert.Equal(t, *resp.GeneralSolution, *resp.Solution)
	assert.Nil(t, resp.ParticularSolution)
	assert.NotEmpty(t, resp.Steps)
}

func TestSolve_WithInitialConditions(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	w := do(s, http.MethodPost, "/solve", `{"equation": "y' = y", "initial_conditions": "y(0)=1"}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeSolve(t, w)
	require.True(t, resp.Success, joined(resp))
	require.NotNil(t, resp.ParticularSolution)
	assert.Equal(t, *resp.ParticularSolution, *resp.Solution)
	assert.NotEqual(t, *resp.GeneralSolution, *resp.Solution)
}

func TestSolve_KeepsRequestID(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	req := httptest.NewRequest(http.MethodPost, "/solve", strings.NewReader(`{"equation": "y' = 2y"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestSolve_UnparseableEquation(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	w := do(s, http.MethodPost, "/solve", `{"equation": "y = )("}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeSolve(t, w)
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Solution)
	assert.Contains(t, joined(resp), "parser=")
	assert.Contains(t, joined(resp), "evaluator=")
}

func TestSolve_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"empty body", "", http.StatusBadRequest, "no data was received"},
		{"malformed json", `{"equation": `, http.StatusBadRequest, "Error processing the request"},
		{"wrong type", `{"equation": 12}`, http.StatusBadRequest, "Error processing the request"},
		{"missing equation", `{"method": "auto"}`, http.StatusBadRequest, "equation is required"},
		{"unknown method", `{"equation": "y' = y", "method": "magic"}`, http.StatusBadRequest, "method must be one of: auto, separable"},
		{"too long", `{"equation": "` + strings.Repeat("y", 2001) + `"}`, http.StatusBadRequest, "equation must be at most 2000 characters"},
	}
	s := newTestServer(t, testConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(s, http.MethodPost, "/solve", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			resp := decodeSolve(t, w)
			assert.False(t, resp.Success)
			assert.Nil(t, resp.Solution)
			assert.Contains(t, joined(resp), tt.want)
		})
	}
}

func TestSolve_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 1024
	s := newTestServer(t, cfg, nil)
	w := do(s, http.MethodPost, "/solve", `{"equation": "`+strings.Repeat("y", 4096)+`"}`)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, joined(decodeSolve(t, w)), "exceeds 1024 bytes")
}

func TestSolve_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	s := newTestServer(t, cfg, nil)

	first := do(s, http.MethodPost, "/solve", `{"equation": "y' = y"}`)
	assert.Equal(t, http.StatusOK, first.Code)

	second := do(s, http.MethodPost, "/solve", `{"equation": "y' = y"}`)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.False(t, decodeSolve(t, second).Success)
}

func TestSolve_BusyWhenSlotsTaken(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentSolves = 1
	s := newTestServer(t, cfg, nil)
	require.True(t, s.slots.TryAcquire(1))
	defer s.slots.Release(1)

	w := do(s, http.MethodPost, "/solve", `{"equation": "y' = y"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, joined(decodeSolve(t, w)), "busy")
}

type panicEngine struct{ *engine.CAS }

func (panicEngine) Display(symbolic.Expr) string { panic("display exploded") }

func TestSolve_PipelineFaultIs500(t *testing.T) {
	s := newTestServer(t, testConfig(), panicEngine{engine.New()})
	w := do(s, http.MethodPost, "/solve", `{"equation": "y' = y"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeSolve(t, w)
	assert.False(t, resp.Success)
	assert.Contains(t, joined(resp), "display exploded")
}

func TestRecovery_HandlerPanicKeepsShape(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	s.router.GET("/boom", func(*gin.Context) { panic("boom") })

	w := do(s, http.MethodGet, "/boom", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeSolve(t, w)
	assert.False(t, resp.Success)
	require.NotEmpty(t, resp.Steps)
	assert.Equal(t, "❌ Unexpected error: boom", resp.Steps[0])
}

// =============================================================================
// Pages, health, metrics
// =============================================================================

func TestIndexAndStatic(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := do(s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Differential equation solver")

	w = do(s, http.MethodGet, "/static/app.js", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fetch('/solve'")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	w := do(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status     string   `json:"status"`
		Version    string   `json:"version"`
		Strategies []string `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)
	assert.Contains(t, body.Strategies, "constant_coeff")
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	do(s, http.MethodGet, "/health", "")

	w := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "odesolve_http_requests_total")

	off := New(testConfig(), pipeline.New(engine.New(), nil), engine.New(), WithMetrics(false))
	assert.Equal(t, http.StatusNotFound, do(off, http.MethodGet, "/metrics", "").Code)
}

// =============================================================================
// Tool surface
// =============================================================================

func callTool(t *testing.T, s *Server, tool string, params map[string]interface{}) (int, symbolic.ToolResponse) {
	t.Helper()
	body, err := json.Marshal(symbolic.ToolRequest{Tool: tool, Params: params})
	require.NoError(t, err)
	w := do(s, http.MethodPost, "/tool", string(body))
	var resp symbolic.ToolResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func TestTool_Normalize(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	code, resp := callTool(t, s, "normalize", map[string]interface{}{"equation": "dy/dx = 2x"})
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Error)
	assert.NotEmpty(t, resp.String)
	assert.NotContains(t, resp.String, "dy/dx")
}

func TestTool_Classify(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	code, resp := callTool(t, s, "classify", map[string]interface{}{"equation": "y' = y"})
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Error)
	assert.True(t, strings.HasPrefix(resp.String, "separable"), resp.String)
	assert.Contains(t, resp.String, "1st_linear")
}

func TestTool_SolveODE(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	code, resp := callTool(t, s, "solve_ode", map[string]interface{}{
		"equation":           "y'' + y = 0",
		"initial_conditions": "y(0)=0, y'(0)=1",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Error)
	assert.Contains(t, resp.LaTeX, `y{\left(x \right)} = `)

	_, resp = callTool(t, s, "solve_ode", map[string]interface{}{})
	assert.Equal(t, "missing param: equation", resp.Error)
}

func TestTool_KernelFallback(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	code, resp := callTool(t, s, "diff", map[string]interface{}{"expr": "x^3", "var": "x"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "3*x^2", resp.String)

	_, resp = callTool(t, s, "frobnicate", nil)
	assert.Equal(t, "unknown tool: frobnicate", resp.Error)
}

func TestTool_MalformedRequest(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	w := do(s, http.MethodPost, "/tool", `{"tool": [}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchema(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	w := do(s, http.MethodGet, "/schema", "")
	require.Equal(t, http.StatusOK, w.Code)

	var spec struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spec))
	var names []string
	for _, tool := range spec.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"solve_ode", "normalize", "classify"}, names[:3])
	assert.Contains(t, names, "integrate")
	assert.Contains(t, names, "solve")
}

func TestHTTPServer(t *testing.T) {
	cfg := testConfig()
	cfg.Address = "127.0.0.1:0"
	hs := newTestServer(t, cfg, nil).HTTPServer()
	assert.Equal(t, "127.0.0.1:0", hs.Addr)
	assert.Equal(t, cfg.ReadTimeout, hs.ReadTimeout)
	assert.Equal(t, cfg.WriteTimeout, hs.WriteTimeout)
	assert.NotNil(t, hs.Handler)
}
