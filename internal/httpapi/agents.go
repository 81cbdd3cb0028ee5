package httpapi

import (
	"errors"
	"net/http"
	"regexp"

	"wincvex/internal/agentproxy"
	"wincvex/internal/httpx"
	"wincvex/internal/model"
)

var agentIDPattern = regexp.MustCompile(`^[\w-]+$`)

type agentsResponse struct {
	Agents []model.AgentStatus `json:"agents"`
}

type execRequest struct {
	Command string `json:"command" validate:"required"`
}

type execResponse struct {
	Output string `json:"output"`
}

func (s *Server) handleAgentsList(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, agentsResponse{Agents: s.agents.ListAll(r.Context())})
}

func (s *Server) handleAgentGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !agentIDPattern.MatchString(id) {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid agent id")
		return
	}
	if !s.agents.Known(id) {
		httpx.WriteError(w, http.StatusNotFound, "Unknown agent")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s.agents.Status(r.Context(), id))
}

func (s *Server) handleAgentToggle(w http.ResponseWriter, r *http.Request) {
	vulns, err := s.agents.Toggle(r.Context(), r.PathValue("id"), r.PathValue("key"), r.PathValue("action"))
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, map[string]map[string]bool{"vulnerabilities": vulns})
	case errors.Is(err, agentproxy.ErrUnknownAgent):
		httpx.WriteError(w, http.StatusNotFound, "Unknown agent")
	case errors.Is(err, agentproxy.ErrInvalidAction):
		httpx.WriteError(w, http.StatusBadRequest, "Action must be enable or disable")
	case errors.Is(err, agentproxy.ErrUnknownVulnerability):
		httpx.WriteError(w, http.StatusNotFound, "Unknown vulnerability")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to contact agent")
	}
}

func (s *Server) handleAgentExec(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.agents.Known(id) {
		httpx.WriteError(w, http.StatusNotFound, "Unknown agent")
		return
	}

	var req execRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Command is required")
		return
	}

	out, err := s.agents.Exec(r.Context(), id, req.Command)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "Failed to execute command")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, execResponse{Output: out})
}
