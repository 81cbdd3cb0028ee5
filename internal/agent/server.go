// Package agent is the runtime deployed on each lab machine. It owns that
// machine's vulnerability flags and exposes status, toggle, allow-listed exec
// and a log stream over HTTP.
package agent

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wincvex/internal/catalog"
	"wincvex/internal/httpx"
)

const DefaultLogInterval = 2 * time.Second

type Options struct {
	ID          string
	LogInterval time.Duration
	Commands    []Command
	Runner      Runner
	Logger      *zap.Logger
}

type Server struct {
	id          string
	catalog     *catalog.Catalog
	commands    map[string]Command
	runner      Runner
	logInterval time.Duration
	log         *zap.Logger
	mux         *http.ServeMux
	upgrader    websocket.Upgrader
}

func NewServer(opts Options) *Server {
	s := &Server{
		id:          opts.ID,
		catalog:     catalog.New(catalog.ForAgent(opts.ID)),
		commands:    make(map[string]Command),
		runner:      opts.Runner,
		logInterval: opts.LogInterval,
		log:         opts.Logger,
		mux:         http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API relays this stream; browsers never reach agents directly.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	cmds := opts.Commands
	if cmds == nil {
		cmds = DefaultCommands()
	}
	for _, c := range cmds {
		s.commands[c.Name] = c
	}
	if s.runner == nil {
		s.runner = execRunner
	}
	if s.logInterval <= 0 {
		s.logInterval = DefaultLogInterval
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("POST /vulns/{name}/{action}", s.handleToggle)
	s.mux.HandleFunc("POST /exec", s.handleExec)
	s.mux.HandleFunc("GET /ws/logs", s.handleLogs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "agent": s.id})
}

type statusResponse struct {
	Vulnerabilities map[string]bool `json:"vulnerabilities"`
}

func (s *Server) status() statusResponse {
	m, _ := s.catalog.Status(s.id)
	return statusResponse{Vulnerabilities: m}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var enabled bool
	switch r.PathValue("action") {
	case "enable":
		enabled = true
	case "disable":
	default:
		httpx.WriteError(w, http.StatusBadRequest, "Invalid action")
		return
	}

	name := r.PathValue("name")
	if _, err := s.catalog.SetEnabled(s.id, name, enabled); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "Unknown vulnerability")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.log.Info("vulnerability toggled", zap.String("key", name), zap.Bool("enabled", enabled))
	httpx.WriteJSON(w, http.StatusOK, s.status())
}

type execRequest struct {
	Command string `json:"command"`
}

type execResponse struct {
	Output string `json:"output"`
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	var req execRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	cmd, ok := s.commands[strings.TrimSpace(req.Command)]
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "Command not allowed")
		return
	}

	out, err := s.runner(r.Context(), cmd.Argv)
	if err != nil {
		s.log.Warn("command failed", zap.String("command", cmd.Name), zap.Error(err))
		httpx.WriteJSON(w, http.StatusOK, execResponse{Output: "Error: " + err.Error()})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, execResponse{Output: string(out)})
}
