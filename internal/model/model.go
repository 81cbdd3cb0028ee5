package model

// Vulnerability is a single toggleable flaw on a lab machine.
type Vulnerability struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	Fix         string `json:"fix"`
}

// AgentStatus is built per request from a live call to the machine's agent.
// An empty Vulnerabilities map may mean the agent was unreachable.
type AgentStatus struct {
	ID              string          `json:"id"`
	Vulnerabilities map[string]bool `json:"vulnerabilities"`
}

type Metrics struct {
	CPUPct     float64 `json:"cpuPct"`
	MemUsedGB  float64 `json:"memUsedGb"`
	MemTotalGB float64 `json:"memTotalGb"`
	NetKbps    float64 `json:"netKbps"`
}

type FrameType string

const (
	FrameStatus  FrameType = "status"
	FrameCommand FrameType = "command"
	FrameLine    FrameType = "line"
	FrameError   FrameType = "error"
)

// Frame is one message of the terminal protocol, in either direction.
type Frame struct {
	Type    FrameType `json:"type"`
	Text    string    `json:"text,omitempty"`
	Command string    `json:"command,omitempty"`
	Host    string    `json:"host,omitempty"`
}
