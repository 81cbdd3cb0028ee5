// Package agentproxy forwards status, toggle, exec and log-stream requests to
// the per-machine agent runtimes. Each machine id maps to exactly one agent
// base URL; there is no retry, caching or load balancing.
package agentproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"wincvex/internal/model"
)

const (
	DefaultStatusTimeout  = 5 * time.Second
	DefaultExecTimeout    = 10 * time.Second
	DefaultMaxConcurrency = 8

	maxBodyBytes = 1 << 20
)

var (
	ErrUnknownAgent         = errors.New("unknown agent")
	ErrInvalidAction        = errors.New("action must be enable or disable")
	ErrUnknownVulnerability = errors.New("unknown vulnerability")
	ErrUpstream             = errors.New("agent request failed")
)

type Action string

const (
	ActionEnable  Action = "enable"
	ActionDisable Action = "disable"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionEnable, ActionDisable:
		return a, nil
	}
	return "", ErrInvalidAction
}

type Options struct {
	// Agents is the configured machine list; its order is the ListAll order.
	Agents  []string
	BaseURL func(id string) string

	HTTPClient     *http.Client
	Dialer         *websocket.Dialer
	StatusTimeout  time.Duration
	ExecTimeout    time.Duration
	MaxConcurrency int
	Logger         *zap.Logger
}

type Proxy struct {
	agents  []string
	known   map[string]struct{}
	baseURL func(string) string

	http          *http.Client
	dialer        *websocket.Dialer
	statusTimeout time.Duration
	execTimeout   time.Duration
	maxGoroutines int
	log           *zap.Logger
}

func New(opts Options) *Proxy {
	p := &Proxy{
		agents:        append([]string(nil), opts.Agents...),
		known:         make(map[string]struct{}, len(opts.Agents)),
		baseURL:       opts.BaseURL,
		http:          opts.HTTPClient,
		dialer:        opts.Dialer,
		statusTimeout: opts.StatusTimeout,
		execTimeout:   opts.ExecTimeout,
		maxGoroutines: opts.MaxConcurrency,
		log:           opts.Logger,
	}
	for _, id := range p.agents {
		p.known[id] = struct{}{}
	}
	if p.baseURL == nil {
		p.baseURL = func(id string) string { return "http://" + id + ":8500" }
	}
	if p.http == nil {
		p.http = &http.Client{}
	}
	if p.dialer == nil {
		p.dialer = &websocket.Dialer{HandshakeTimeout: DefaultStatusTimeout}
	}
	if p.statusTimeout <= 0 {
		p.statusTimeout = DefaultStatusTimeout
	}
	if p.execTimeout <= 0 {
		p.execTimeout = DefaultExecTimeout
	}
	if p.maxGoroutines <= 0 {
		p.maxGoroutines = DefaultMaxConcurrency
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return p
}

func (p *Proxy) Agents() []string {
	return append([]string(nil), p.agents...)
}

func (p *Proxy) Known(id string) bool {
	_, ok := p.known[id]
	return ok
}

type statusResponse struct {
	Vulnerabilities map[string]bool `json:"vulnerabilities"`
}

// Status never fails: an unreachable or misbehaving agent yields an empty map.
func (p *Proxy) Status(ctx context.Context, id string) model.AgentStatus {
	out := model.AgentStatus{ID: id, Vulnerabilities: map[string]bool{}}

	ctx, cancel := context.WithTimeout(ctx, p.statusTimeout)
	defer cancel()

	var res statusResponse
	if _, err := p.do(ctx, http.MethodGet, p.baseURL(id)+"/status", nil, &res); err != nil {
		p.log.Debug("agent status unavailable", zap.String("agent", id), zap.Error(err))
		return out
	}
	if res.Vulnerabilities != nil {
		out.Vulnerabilities = res.Vulnerabilities
	}
	return out
}

// ListAll queries every configured agent concurrently; results keep the
// configured order.
func (p *Proxy) ListAll(ctx context.Context) []model.AgentStatus {
	mapper := iter.Mapper[string, model.AgentStatus]{MaxGoroutines: p.maxGoroutines}
	return mapper.Map(p.agents, func(id *string) model.AgentStatus {
		return p.Status(ctx, *id)
	})
}

func (p *Proxy) Toggle(ctx context.Context, id, key string, action string) (map[string]bool, error) {
	if !p.Known(id) {
		return nil, ErrUnknownAgent
	}
	act, err := ParseAction(action)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.statusTimeout)
	defer cancel()

	u := p.baseURL(id) + "/vulns/" + url.PathEscape(key) + "/" + string(act)
	var res statusResponse
	status, err := p.do(ctx, http.MethodPost, u, nil, &res)
	if status == http.StatusNotFound {
		return nil, ErrUnknownVulnerability
	}
	if err != nil {
		p.log.Warn("agent toggle failed", zap.String("agent", id), zap.String("key", key), zap.Error(err))
		return nil, ErrUpstream
	}
	if res.Vulnerabilities == nil {
		res.Vulnerabilities = map[string]bool{}
	}
	return res.Vulnerabilities, nil
}

type execRequest struct {
	Command string `json:"command"`
}

type execResponse struct {
	Output string `json:"output"`
}

// Exec forwards command verbatim; the agent enforces its allow-list.
func (p *Proxy) Exec(ctx context.Context, id, command string) (string, error) {
	if !p.Known(id) {
		return "", ErrUnknownAgent
	}

	ctx, cancel := context.WithTimeout(ctx, p.execTimeout)
	defer cancel()

	var res execResponse
	if _, err := p.do(ctx, http.MethodPost, p.baseURL(id)+"/exec", execRequest{Command: command}, &res); err != nil {
		p.log.Warn("agent exec failed", zap.String("agent", id), zap.Error(err))
		return "", ErrUpstream
	}
	return res.Output, nil
}

// DialLogs opens the agent's log stream. The caller owns the connection.
func (p *Proxy) DialLogs(ctx context.Context, id string) (*websocket.Conn, error) {
	if !p.Known(id) {
		return nil, ErrUnknownAgent
	}
	u, err := url.Parse(p.baseURL(id) + "/ws/logs")
	if err != nil {
		return nil, fmt.Errorf("agent url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, resp, err := p.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return conn, nil
}

// do sends one JSON request. The returned status is 0 when no response was
// received.
func (p *Proxy) do(ctx context.Context, method, u string, body any, out any) (int, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return resp.StatusCode, fmt.Errorf("agent returned %s", strings.TrimSpace(resp.Status))
	}
	if out != nil {
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode agent response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
