package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"wincvex/internal/catalog"
	"wincvex/internal/httpx"
)

func (s *Server) handleMachineVulns(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.catalog.List(r.PathValue("id")))
}

func (s *Server) handleMachineToggle(w http.ResponseWriter, r *http.Request) {
	var enabled bool
	switch r.PathValue("action") {
	case "enable":
		enabled = true
	case "disable":
	default:
		httpx.WriteError(w, http.StatusBadRequest, "Action must be enable or disable")
		return
	}

	id, key := r.PathValue("id"), r.PathValue("key")
	v, err := s.catalog.SetEnabled(id, key, enabled)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "Vulnerability not found")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.log.Info("vulnerability toggled", zap.String("machine", id), zap.String("key", key), zap.Bool("enabled", enabled))
	httpx.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) handleMachineMetrics(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.metrics.Get(r.PathValue("id")))
}
