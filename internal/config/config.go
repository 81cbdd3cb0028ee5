package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAgentIDs         = "wincvex-dc,wincvex-host-b,wincvex-host-c"
	defaultAgentURLTemplate = "http://{id}:8500"
)

type Log struct {
	Level  string
	Format string
	File   string
}

type Config struct {
	Port        int
	DatabaseURL string
	// RedisURL is accepted for deployment parity; nothing reads it.
	RedisURL    string
	SecretKey   string
	JWTSecret   string
	CORSOrigins []string

	AgentIDs         []string
	AgentURLTemplate string
	AgentConcurrency int

	TokenTTL      time.Duration
	TerminalDelay time.Duration
	LogInterval   time.Duration

	Log Log
}

type AgentConfig struct {
	ID          string
	Listen      string
	LogInterval time.Duration
	Log         Log
}

// loadDotEnv reads .env from the working directory when present. Real
// environment variables win.
func loadDotEnv() {
	_ = godotenv.Load()
}

func Load() Config {
	loadDotEnv()

	cfg := Config{
		Port:             8000,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		SecretKey:        envOr("SECRET_KEY", "changeme"),
		JWTSecret:        envOr("JWT_SECRET", "changeme"),
		CORSOrigins:      splitList(os.Getenv("CORS_ORIGINS")),
		AgentIDs:         splitList(envOr("AGENT_IDS", defaultAgentIDs)),
		AgentURLTemplate: envOr("AGENT_URL_TEMPLATE", defaultAgentURLTemplate),
		AgentConcurrency: 8,
		TokenTTL:         60 * time.Minute,
		TerminalDelay:    150 * time.Millisecond,
		LogInterval:      2 * time.Second,
		Log:              loadLog(),
	}

	if v := os.Getenv("API_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p < 65536 {
			cfg.Port = p
		}
	}

	if v := os.Getenv("AGENT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AgentConcurrency = n
		}
	}

	if v := os.Getenv("TOKEN_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TokenTTL = time.Duration(n) * time.Minute
		}
	}

	if v := os.Getenv("TERMINAL_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.TerminalDelay = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("LOG_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LogInterval = time.Duration(n) * time.Second
		}
	}

	return cfg
}

func LoadAgent() AgentConfig {
	loadDotEnv()

	cfg := AgentConfig{
		ID:          envOr("AGENT_ID", "agent"),
		Listen:      envOr("AGENT_LISTEN", ":8500"),
		LogInterval: 2 * time.Second,
		Log:         loadLog(),
	}

	if v := os.Getenv("AGENT_LOG_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LogInterval = time.Duration(n) * time.Second
		}
	}

	return cfg
}

func (c Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// AgentBaseURL expands AgentURLTemplate for one agent id.
func (c Config) AgentBaseURL(id string) string {
	return strings.TrimRight(strings.ReplaceAll(c.AgentURLTemplate, "{id}", id), "/")
}

func loadLog() Log {
	return Log{
		Level:  envOr("LOG_LEVEL", "info"),
		Format: envOr("LOG_FORMAT", "console"),
		File:   os.Getenv("LOG_FILE"),
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
