package httpapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wincvex/internal/agentproxy"
	"wincvex/internal/auth"
	"wincvex/internal/catalog"
	"wincvex/internal/config"
	"wincvex/internal/httpx"
	"wincvex/internal/metrics"
	"wincvex/internal/store"
)

// Options carries collaborators that tests or main may want to supply. Nil
// fields are built from the config.
type Options struct {
	Logger  *zap.Logger
	Agents  *agentproxy.Proxy
	Catalog *catalog.Catalog
	Metrics *metrics.Generator
	Tokens  *auth.Tokens
	Limiter *auth.RateLimiter
}

type Server struct {
	cfg      config.Config
	store    store.Store
	log      *zap.Logger
	tokens   *auth.Tokens
	limiter  *auth.RateLimiter
	catalog  *catalog.Catalog
	metrics  *metrics.Generator
	agents   *agentproxy.Proxy
	validate *validator.Validate
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

func NewServer(cfg config.Config, st store.Store, opts Options) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		log:      opts.Logger,
		tokens:   opts.Tokens,
		limiter:  opts.Limiter,
		catalog:  opts.Catalog,
		metrics:  opts.Metrics,
		agents:   opts.Agents,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		mux:      http.NewServeMux(),
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.tokens == nil {
		s.tokens = auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	}
	if s.limiter == nil {
		s.limiter = auth.NewRateLimiter(auth.DefaultRateInterval)
	}
	if s.catalog == nil {
		s.catalog = catalog.New(catalog.Seed())
	}
	if s.metrics == nil {
		s.metrics = metrics.NewGenerator(metrics.DefaultBucket)
	}
	if s.agents == nil {
		s.agents = agentproxy.New(agentproxy.Options{
			Agents:         cfg.AgentIDs,
			BaseURL:        cfg.AgentBaseURL,
			MaxConcurrency: cfg.AgentConcurrency,
			Logger:         s.log.Named("agentproxy"),
		})
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = recoverMiddleware(s.log, h)
	h = corsMiddleware(s.cfg.CORSOrigins, h)
	h = loggingMiddleware(s.log, h)
	h = requestIDMiddleware(h)
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("POST /api/signup", s.handleSignup)
	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.Handle("GET /api/me", s.requireAuth(http.HandlerFunc(s.handleMe)))

	s.mux.Handle("GET /api/agents", s.requireAuth(http.HandlerFunc(s.handleAgentsList)))
	s.mux.Handle("GET /api/agents/{id}", s.requireAuth(http.HandlerFunc(s.handleAgentGet)))
	s.mux.Handle("POST /api/agents/{id}/vulnerabilities/{key}/{action}", s.requireAuth(http.HandlerFunc(s.handleAgentToggle)))
	s.mux.Handle("POST /api/agents/{id}/exec", s.requireAuth(http.HandlerFunc(s.handleAgentExec)))

	s.mux.HandleFunc("GET /api/machines/{id}/vulns", s.handleMachineVulns)
	s.mux.HandleFunc("POST /api/machines/{id}/vulns/{key}/{action}", s.handleMachineToggle)
	s.mux.HandleFunc("GET /api/machines/{id}/metrics", s.handleMachineMetrics)

	s.mux.HandleFunc("GET /api/ws", s.handleTerminal)
	s.mux.HandleFunc("GET /api/ws/terminal", s.handleAuthTerminal)
	s.mux.HandleFunc("GET /api/ws/logs/{agent_id}", s.handleLogs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
