// Package terminal runs the simulated shell behind the dashboard's terminal
// view. Nothing typed here is ever executed.
package terminal

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"wincvex/internal/auth"
	"wincvex/internal/model"
)

// Conn is the subset of *websocket.Conn the session needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
}

type Session struct {
	// Host is shown in the banner and in whoami output. Empty means "agent".
	Host string
	// Claims is set when the connection was authenticated.
	Claims *auth.Claims
	// Delay is the simulated command latency; zero answers immediately.
	Delay  time.Duration
	Logger *zap.Logger
}

type reply func(cmd, host string) string

type rule struct {
	names []string
	reply reply
}

// rules are matched in order; the first rule naming the command wins.
var rules = []rule{
	{names: []string{"whoami", "id"}, reply: func(_, host string) string { return host + "/user" }},
	{names: []string{"hostname"}, reply: func(_, host string) string { return host }},
	{names: []string{"uptime"}, reply: func(string, string) string { return "up 3 days, 04:12" }},
	{names: []string{"ls", "dir"}, reply: func(string, string) string { return "documents logs tools" }},
}

func respond(cmd, host string) string {
	for _, r := range rules {
		for _, n := range r.names {
			if n == cmd {
				return r.reply(cmd, host)
			}
		}
	}
	return "Executed: " + cmd
}

// Run serves frames until the peer disconnects or ctx is done. The caller
// closes conn.
func (s *Session) Run(ctx context.Context, conn Conn) error {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if s.Claims != nil {
		log = log.With(zap.String("user", s.Claims.Subject))
	}
	host := hostOrDefault(s.Host)
	if err := conn.WriteJSON(model.Frame{Type: model.FrameStatus, Text: "Connected to " + host}); err != nil {
		return err
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug("terminal closed", zap.Error(err))
			return nil
		}

		var in model.Frame
		if err := json.Unmarshal(data, &in); err != nil || in.Type != model.FrameCommand {
			if err := conn.WriteJSON(model.Frame{Type: model.FrameError, Text: "Invalid message"}); err != nil {
				return err
			}
			continue
		}

		cmd := strings.TrimSpace(in.Command)
		if cmd == "" {
			if err := conn.WriteJSON(model.Frame{Type: model.FrameError, Text: "Empty command"}); err != nil {
				return err
			}
			continue
		}

		target := host
		if h := strings.TrimSpace(in.Host); h != "" {
			target = h
		}

		if err := conn.WriteJSON(model.Frame{Type: model.FrameLine, Text: "$ " + cmd}); err != nil {
			return err
		}

		if s.Delay > 0 {
			t := time.NewTimer(s.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		log.Debug("terminal command", zap.String("host", target), zap.String("command", cmd))
		if err := conn.WriteJSON(model.Frame{Type: model.FrameLine, Text: respond(cmd, target)}); err != nil {
			return err
		}
	}
}

func hostOrDefault(h string) string {
	if h = strings.TrimSpace(h); h != "" {
		return h
	}
	return "agent"
}
