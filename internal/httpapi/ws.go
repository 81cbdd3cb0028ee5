package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wincvex/internal/auth"
	"wincvex/internal/terminal"
)

const wsWriteWait = 10 * time.Second

// checkOrigin applies the CORS allow-list to upgrades when one is configured.
func (s *Server) checkOrigin(r *http.Request) bool {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(origins, origin)
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, bool) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		s.log.Debug("websocket upgrade failed", zap.String("path", r.URL.Path), zap.Error(err))
		return nil, false
	}
	return conn, true
}

// refuse sends a policy-violation close frame. Nothing else is written first.
func refuse(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}

// wsAuthenticate checks the token query parameter on an upgraded connection.
func (s *Server) wsAuthenticate(ctx context.Context, conn *websocket.Conn, r *http.Request) (auth.Claims, bool) {
	_, claims, ok := s.authenticate(ctx, r.URL.Query().Get("token"))
	if !ok {
		refuse(conn, "Invalid authentication credentials")
		return auth.Claims{}, false
	}
	return claims, true
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	defer conn.Close()

	sess := terminal.Session{
		Host:   r.URL.Query().Get("host"),
		Delay:  s.cfg.TerminalDelay,
		Logger: s.log.Named("terminal"),
	}
	if err := sess.Run(r.Context(), conn); err != nil {
		s.log.Debug("terminal ended", zap.Error(err))
	}
}

func (s *Server) handleAuthTerminal(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	defer conn.Close()

	claims, ok := s.wsAuthenticate(r.Context(), conn, r)
	if !ok {
		return
	}

	sess := terminal.Session{
		Host:   r.URL.Query().Get("host"),
		Claims: &claims,
		Delay:  s.cfg.TerminalDelay,
		Logger: s.log.Named("terminal"),
	}
	if err := sess.Run(r.Context(), conn); err != nil {
		s.log.Debug("terminal ended", zap.Error(err))
	}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	defer conn.Close()

	claims, ok := s.wsAuthenticate(r.Context(), conn, r)
	if !ok {
		return
	}
	agentID := r.PathValue("agent_id")
	if !s.agents.Known(agentID) {
		refuse(conn, "Unknown agent")
		return
	}

	log := s.log.With(zap.String("agent", agentID), zap.String("user", claims.Subject))
	done := watchClose(conn)

	upstream, err := s.agents.DialLogs(r.Context(), agentID)
	if err != nil {
		log.Info("agent log stream unavailable, simulating", zap.Error(err))
		s.simulateLogs(r.Context(), conn, done, agentID)
		return
	}
	defer upstream.Close()
	relayLogs(r.Context(), conn, upstream, done)
}

// watchClose drains client frames and closes the returned channel once the
// peer goes away.
func watchClose(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return done
}

func relayLogs(ctx context.Context, client, upstream *websocket.Conn, done <-chan struct{}) {
	go func() {
		select {
		case <-done:
		case <-ctx.Done():
		}
		_ = upstream.Close()
	}()

	for {
		mt, msg, err := upstream.ReadMessage()
		if err != nil {
			return
		}
		_ = client.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := client.WriteMessage(mt, msg); err != nil {
			return
		}
	}
}

func (s *Server) simulateLogs(ctx context.Context, conn *websocket.Conn, done <-chan struct{}, agentID string) {
	interval := s.cfg.LogInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		line := fmt.Sprintf("[%s] simulated log line %d", agentID, n)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
