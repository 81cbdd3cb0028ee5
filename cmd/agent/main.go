package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wincvex/internal/agent"
	"wincvex/internal/config"
	"wincvex/internal/logging"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "labagent",
	Short: "WinCVEx lab machine agent",
	Long:  `labagent runs on each lab machine. It reports and toggles the machine's simulated vulnerabilities, runs allow-listed commands and streams log lines.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("labagent %s\n", version)
		fmt.Printf("OS: %s\n", runtime.GOOS)
		fmt.Printf("Arch: %s\n", runtime.GOARCH)
		fmt.Printf("Go Version: %s\n", runtime.Version())
	},
}

var (
	flagID          string
	flagListen      string
	flagLogInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent HTTP server",
	RunE:  runAgent,
}

func init() {
	runCmd.Flags().StringVar(&flagID, "id", "", "agent id (default $AGENT_ID)")
	runCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (default $AGENT_LISTEN or :8500)")
	runCmd.Flags().DurationVar(&flagLogInterval, "log-interval", 0, "log stream interval (default $AGENT_LOG_INTERVAL_SECONDS or 2s)")

	rootCmd.AddCommand(runCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg := config.LoadAgent()
	if cmd.Flags().Changed("id") {
		cfg.ID = flagID
	}
	if cmd.Flags().Changed("listen") {
		cfg.Listen = flagListen
	}
	if cmd.Flags().Changed("log-interval") && flagLogInterval > 0 {
		cfg.LogInterval = flagLogInterval
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("agent", cfg.ID))

	srv := agent.NewServer(agent.Options{
		ID:          cfg.ID,
		LogInterval: cfg.LogInterval,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("agent listening", zap.String("addr", cfg.Listen))
		errCh <- httpServer.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctxShutdown)
}
