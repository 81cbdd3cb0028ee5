package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"wincvex/internal/agent"
	"wincvex/internal/agentproxy"
	"wincvex/internal/auth"
	"wincvex/internal/config"
	"wincvex/internal/metrics"
	"wincvex/internal/model"
	"wincvex/internal/store/memory"
)

type testEnv struct {
	srv   *Server
	store *memory.Store
	ts    *httptest.Server
}

type envOption func(*config.Config, *Options)

func withLimiter(l *auth.RateLimiter) envOption {
	return func(_ *config.Config, o *Options) { o.Limiter = l }
}

func withCORS(origins ...string) envOption {
	return func(c *config.Config, _ *Options) { c.CORSOrigins = origins }
}

// newTestEnv runs wincvex-dc and wincvex-host-c as real agent runtimes;
// wincvex-host-b points at a closed port.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	urls := map[string]string{}
	for _, id := range []string{"wincvex-dc", "wincvex-host-c"} {
		a := agent.NewServer(agent.Options{
			ID:          id,
			LogInterval: 10 * time.Millisecond,
			Runner: func(_ context.Context, argv []string) ([]byte, error) {
				return []byte("ran " + strings.Join(argv, " ")), nil
			},
		})
		ts := httptest.NewServer(a.Handler())
		t.Cleanup(ts.Close)
		urls[id] = ts.URL
	}
	dead := httptest.NewServer(http.NotFoundHandler())
	urls["wincvex-host-b"] = dead.URL
	dead.Close()

	cfg := config.Config{
		JWTSecret:     "test-secret",
		AgentIDs:      []string{"wincvex-dc", "wincvex-host-b", "wincvex-host-c"},
		TokenTTL:      time.Hour,
		TerminalDelay: time.Millisecond,
		LogInterval:   10 * time.Millisecond,
	}
	o := Options{
		Limiter: auth.NewRateLimiter(time.Nanosecond),
		Metrics: metrics.NewGenerator(24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&cfg, &o)
	}
	o.Agents = agentproxy.New(agentproxy.Options{
		Agents:        cfg.AgentIDs,
		BaseURL:       func(id string) string { return urls[id] },
		StatusTimeout: time.Second,
		ExecTimeout:   time.Second,
	})

	st := memory.NewStore()
	srv := NewServer(cfg, st, o)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, store: st, ts: ts}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func detailOf(t *testing.T, resp *http.Response) string {
	return decodeBody[map[string]string](t, resp)["detail"]
}

func creds(u, p string) map[string]string {
	return map[string]string{"username": u, "password": p}
}

// login signs up and logs in, returning the bearer token.
func (e *testEnv) login(t *testing.T, user string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/signup", "", creds(user, "secret1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = e.do(t, http.MethodPost, "/api/login", "", creds(user, "secret1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[tokenResponse](t, resp).AccessToken
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	for _, p := range []string{"/health", "/api/health"} {
		resp := e.do(t, http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", decodeBody[map[string]string](t, resp)["status"])
		assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
	}
}

func TestSignupThenLogin(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/signup", "", creds("alice", "secret1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "User created", decodeBody[messageResponse](t, resp).Message)

	resp = e.do(t, http.MethodPost, "/api/login", "", creds("alice", "secret1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tok := decodeBody[tokenResponse](t, resp)
	assert.Equal(t, "bearer", tok.TokenType)
	require.NotEmpty(t, tok.AccessToken)

	claims, ok := e.srv.tokens.Verify(tok.AccessToken)
	require.True(t, ok)
	assert.Equal(t, "alice", claims.Subject)

	u, err := e.store.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$pbkdf2-sha256$"))
}

func TestSignupDuplicate(t *testing.T) {
	e := newTestEnv(t)

	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/signup", "", creds("bob", "pw")).StatusCode)
	resp := e.do(t, http.MethodPost, "/api/signup", "", creds("bob", "other"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Username already taken", detailOf(t, resp))
}

func TestSignupValidation(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/signup", "", creds("", "pw"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/signup", "", map[string]string{"username": "carol"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, e.ts.URL+"/api/signup", strings.NewReader("{"))
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	e := newTestEnv(t)
	e.login(t, "alice")

	wrong := e.do(t, http.MethodPost, "/api/login", "", creds("alice", "wrong"))
	unknown := e.do(t, http.MethodPost, "/api/login", "", creds("mallory", "secret1"))

	assert.Equal(t, http.StatusBadRequest, wrong.StatusCode)
	assert.Equal(t, wrong.StatusCode, unknown.StatusCode)
	assert.Equal(t, "Invalid credentials", detailOf(t, wrong))
	assert.Equal(t, "Invalid credentials", detailOf(t, unknown))
}

func TestLoginRateLimited(t *testing.T) {
	e := newTestEnv(t, withLimiter(auth.NewRateLimiter(time.Hour)))

	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/signup", "", creds("dave", "pw")).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, e.do(t, http.MethodPost, "/api/signup", "", creds("dave", "pw")).StatusCode)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/login", "", creds("dave", "pw")).StatusCode)
	resp := e.do(t, http.MethodPost, "/api/login", "", creds("dave", "pw"))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Too many requests", detailOf(t, resp))

	// Keys are per user.
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/login", "", creds("erin", "pw")).StatusCode)
}

func TestLoginUpgradesBcryptHash(t *testing.T) {
	e := newTestEnv(t)
	legacy, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = e.store.CreateUser(context.Background(), model.User{Username: "legacy", PasswordHash: string(legacy)})
	require.NoError(t, err)

	resp := e.do(t, http.MethodPost, "/api/login", "", creds("legacy", "hunter2"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, err := e.store.GetUserByUsername(context.Background(), "legacy")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.PasswordHash, "$pbkdf2-sha256$"), u.PasswordHash)
	assert.True(t, auth.VerifyPassword("hunter2", u.PasswordHash))

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/login", "", creds("legacy", "hunter2")).StatusCode)
}

func TestMe(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	resp := e.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, body, "PasswordHash")
	assert.NotContains(t, body, "password_hash")
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t)

	tokens := auth.NewTokens("test-secret", time.Hour)
	ghost, err := tokens.Issue("ghost")
	require.NoError(t, err)
	foreign, err := auth.NewTokens("other-secret", time.Hour).Issue("alice")
	require.NoError(t, err)
	e.login(t, "alice")

	for _, tok := range []string{"", "garbage", ghost, foreign} {
		resp := e.do(t, http.MethodGet, "/api/agents", tok, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "token %q", tok)
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
		assert.Equal(t, "Invalid authentication credentials", detailOf(t, resp))
	}
}

func TestAgentsList(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	resp := e.do(t, http.MethodGet, "/api/agents", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[agentsResponse](t, resp).Agents

	require.Len(t, got, 3)
	assert.Equal(t, []string{"wincvex-dc", "wincvex-host-b", "wincvex-host-c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Contains(t, got[0].Vulnerabilities, "weak_smb_signing")
	assert.NotNil(t, got[1].Vulnerabilities)
	assert.Empty(t, got[1].Vulnerabilities)
	assert.Equal(t, map[string]bool{"open_firewall_port": false}, got[2].Vulnerabilities)
}

func TestAgentGet(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	resp := e.do(t, http.MethodGet, "/api/agents/wincvex-host-c", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeBody[model.AgentStatus](t, resp)
	assert.Equal(t, "wincvex-host-c", st.ID)

	resp = e.do(t, http.MethodGet, "/api/agents/nowhere", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Unknown agent", detailOf(t, resp))

	resp = e.do(t, http.MethodGet, "/api/agents/bad.id", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAgentToggle(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	resp := e.do(t, http.MethodPost, "/api/agents/wincvex-dc/vulnerabilities/weak_smb_signing/enable", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]map[string]bool](t, resp)
	assert.True(t, body["vulnerabilities"]["weak_smb_signing"])

	cases := []struct {
		path   string
		status int
		detail string
	}{
		{"/api/agents/nowhere/vulnerabilities/weak_smb_signing/enable", http.StatusNotFound, "Unknown agent"},
		{"/api/agents/wincvex-dc/vulnerabilities/weak_smb_signing/flip", http.StatusBadRequest, "Action must be enable or disable"},
		{"/api/agents/wincvex-dc/vulnerabilities/nope/enable", http.StatusNotFound, "Unknown vulnerability"},
		{"/api/agents/wincvex-host-b/vulnerabilities/outdated_packages/enable", http.StatusInternalServerError, "Failed to contact agent"},
	}
	for _, c := range cases {
		resp := e.do(t, http.MethodPost, c.path, token, nil)
		assert.Equal(t, c.status, resp.StatusCode, c.path)
		assert.Equal(t, c.detail, detailOf(t, resp), c.path)
	}

	resp = e.do(t, http.MethodGet, "/api/agents/wincvex-dc", token, nil)
	st := decodeBody[model.AgentStatus](t, resp)
	assert.True(t, st.Vulnerabilities["weak_smb_signing"])
}

func TestAgentExec(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	resp := e.do(t, http.MethodPost, "/api/agents/wincvex-dc/exec", token, map[string]string{"command": "cat_os"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ran cat /etc/os-release", decodeBody[execResponse](t, resp).Output)

	resp = e.do(t, http.MethodPost, "/api/agents/wincvex-dc/exec", token, map[string]string{"command": "rm -rf /"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to execute command", detailOf(t, resp))

	resp = e.do(t, http.MethodPost, "/api/agents/wincvex-host-b/exec", token, map[string]string{"command": "ls"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/agents/nowhere/exec", token, map[string]string{"command": "ls"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/agents/wincvex-dc/exec", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMachineVulns(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/api/machines/wincvex-dc/vulns", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[[]model.Vulnerability](t, resp)
	require.Len(t, list, 2)
	assert.Equal(t, "weak_smb_signing", list[0].Key)

	resp = e.do(t, http.MethodGet, "/api/machines/unknown/vulns", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decodeBody[[]model.Vulnerability](t, resp)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMachineToggle(t *testing.T) {
	e := newTestEnv(t)
	path := "/api/machines/wincvex-dc/vulns/weak_smb_signing/"

	for _, step := range []struct {
		action string
		want   bool
	}{{"enable", true}, {"enable", true}, {"disable", false}, {"enable", true}} {
		resp := e.do(t, http.MethodPost, path+step.action, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		v := decodeBody[model.Vulnerability](t, resp)
		assert.Equal(t, "weak_smb_signing", v.Key)
		assert.Equal(t, step.want, v.Enabled, step.action)
	}

	resp := e.do(t, http.MethodPost, path+"toggle", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	list := decodeBody[[]model.Vulnerability](t, e.do(t, http.MethodGet, "/api/machines/wincvex-dc/vulns", "", nil))
	assert.True(t, list[0].Enabled, "bad action must not mutate")

	resp = e.do(t, http.MethodPost, "/api/machines/wincvex-dc/vulns/nope/enable", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Vulnerability not found", detailOf(t, resp))

	resp = e.do(t, http.MethodPost, "/api/machines/unknown/vulns/weak_smb_signing/enable", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMachineMetrics(t *testing.T) {
	e := newTestEnv(t)

	a := decodeBody[model.Metrics](t, e.do(t, http.MethodGet, "/api/machines/wincvex-dc/metrics", "", nil))
	b := decodeBody[model.Metrics](t, e.do(t, http.MethodGet, "/api/machines/wincvex-dc/metrics", "", nil))
	assert.Equal(t, a, b)
	assert.Contains(t, []float64{8, 16, 32, 64}, a.MemTotalGB)

	resp := e.do(t, http.MethodGet, "/api/machines/wincvex-dc/metrics", "", nil)
	raw := decodeBody[map[string]float64](t, resp)
	for _, k := range []string{"cpuPct", "memUsedGb", "memTotalGb", "netKbps"} {
		assert.Contains(t, raw, k)
	}
}

func TestCORS(t *testing.T) {
	plain := newTestEnv(t)
	req, _ := http.NewRequest(http.MethodGet, plain.ts.URL+"/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	e := newTestEnv(t, withCORS("http://localhost:3000"))

	req, _ = http.NewRequest(http.MethodOptions, e.ts.URL+"/api/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type,authorization")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "content-type,authorization", resp.Header.Get("Access-Control-Allow-Headers"))

	req, _ = http.NewRequest(http.MethodGet, e.ts.URL+"/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecoverMiddleware(t *testing.T) {
	h := recoverMiddleware(zap.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal server error"}`, rec.Body.String())
}

func TestTerminalWebSocket(t *testing.T) {
	e := newTestEnv(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(e.ts, "/api/ws?host=wincvex-dc"), nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var f model.Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, model.Frame{Type: model.FrameStatus, Text: "Connected to wincvex-dc"}, f)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello"}`)))
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, model.Frame{Type: model.FrameError, Text: "Invalid message"}, f)

	require.NoError(t, conn.WriteJSON(model.Frame{Type: model.FrameCommand, Command: "whoami"}))
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "$ whoami", f.Text)
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "wincvex-dc/user", f.Text)
}

func requirePolicyClose(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	require.True(t, errors.As(err, &ce), "want close error, got %v", err)
	assert.Equal(t, websocket.ClosePolicyViolation, ce.Code)
}

func TestAuthenticatedWebSocketsRefuseBadTokens(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{
		"/api/ws/terminal?host=wincvex-dc",
		"/api/ws/terminal?host=wincvex-dc&token=garbage",
		"/api/ws/logs/wincvex-dc",
		"/api/ws/logs/wincvex-dc?token=garbage",
	} {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(e.ts, path), nil)
		require.NoError(t, err, path)
		requirePolicyClose(t, conn)
		conn.Close()
	}
}

func TestAuthenticatedTerminal(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(e.ts, "/api/ws/terminal?host=wincvex-host-b&token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var f model.Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "Connected to wincvex-host-b", f.Text)
}

func TestLogStreamRelaysAgent(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(e.ts, "/api/ws/logs/wincvex-dc?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	for _, want := range []string{"wincvex-dc log line 0", "wincvex-dc log line 1"} {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want, string(msg))
	}
}

func TestLogStreamFallsBackToSimulation(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(e.ts, "/api/ws/logs/wincvex-host-b?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	for _, want := range []string{"[wincvex-host-b] simulated log line 0", "[wincvex-host-b] simulated log line 1"} {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want, string(msg))
	}
}

func TestLogStreamUnknownAgent(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(e.ts, "/api/ws/logs/nowhere?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()
	requirePolicyClose(t, conn)
}
