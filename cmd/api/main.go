package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"wincvex/internal/config"
	"wincvex/internal/httpapi"
	"wincvex/internal/logging"
	"wincvex/internal/store"
	"wincvex/internal/store/bolt"
	"wincvex/internal/store/memory"
	"wincvex/internal/store/postgres"
	"wincvex/internal/store/sqlite"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	st, kind, err := openStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to init store", zap.Error(err))
	}
	defer st.Close()
	logger.Info("using store", zap.String("kind", kind))

	if cfg.JWTSecret == "changeme" {
		logger.Warn("JWT_SECRET is the default value; set it outside local development")
	}

	srv := httpapi.NewServer(cfg, st, httpapi.Options{Logger: logger})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", cfg.ListenAddr()), zap.Strings("agents", cfg.AgentIDs))
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
}

// openStore picks the backend from the DATABASE_URL scheme. Empty means
// in-memory.
func openStore(databaseURL string) (store.Store, string, error) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case u == "":
		return memory.NewStore(), "memory", nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		pg, err := postgres.NewStore(u)
		if err != nil {
			return nil, "", err
		}
		return pg, "postgres", nil
	case strings.HasPrefix(u, "sqlite://"):
		db, err := sqlite.NewStore(strings.TrimPrefix(u, "sqlite://"))
		if err != nil {
			return nil, "", err
		}
		return db, "sqlite", nil
	case strings.HasPrefix(u, "bolt://"):
		db, err := bolt.NewStore(strings.TrimPrefix(u, "bolt://"))
		if err != nil {
			return nil, "", err
		}
		return db, "bolt", nil
	case strings.HasPrefix(u, "file:"):
		db, err := sqlite.NewStore(u)
		if err != nil {
			return nil, "", err
		}
		return db, "sqlite", nil
	}
	return nil, "", fmt.Errorf("unsupported DATABASE_URL scheme: %q", u)
}
