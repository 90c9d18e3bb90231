// Blaze is a kanban task board server with real-time updates and an
// AI-agent-assisted workflow. Cards and plans live in a single JSON file;
// an external agent CLI handles natural-language requests.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/arctek/blaze/board"
	"github.com/arctek/blaze/internal/agent"
	"github.com/arctek/blaze/internal/db"
	"github.com/arctek/blaze/internal/web"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

func main() {
	var (
		addr         = flag.String("addr", ":8787", "HTTP listen address")
		dataDir      = flag.String("data", "", "Data directory (default $BLAZE_DATA_DIR or ./data)")
		agentBin     = flag.String("agent-bin", "openclaw", "Agent CLI binary (empty disables agent endpoints)")
		agentTimeout = flag.Duration("agent-timeout", 5*time.Minute, "Agent invocation timeout")
		auditDB      = flag.String("audit-db", "", "Agent audit database path (default <data>/audit.db)")
		verbose      = flag.Bool("verbose", false, "Debug logging")
		showVersion  = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("blaze %s (commit: %s, built: %s)\n", version, gitCommit, buildTime)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	dir := *dataDir
	if dir == "" {
		dir = os.Getenv("BLAZE_DATA_DIR")
	}
	if dir == "" {
		dir = "data"
	}

	store, err := board.Open(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open board store: %v\n", err)
		os.Exit(1)
	}

	token, err := web.LoadToken(dir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load API token: %v\n", err)
		os.Exit(1)
	}

	var auditStore *db.AuditStore
	var agentClient web.AgentClient
	if *agentBin != "" {
		dbPath := *auditDB
		if dbPath == "" {
			dbPath = filepath.Join(dir, "audit.db")
		}
		database, err := db.Open(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open audit database: %v\n", err)
			os.Exit(1)
		}
		defer database.Close()
		auditStore = db.NewAuditStore(database)
		agentClient = agent.NewClient(*agentBin, *agentTimeout, auditStore, logger)
	}

	server := web.NewServer(web.Config{
		Store:  store,
		Agent:  agentClient,
		Audit:  auditStore,
		Token:  token,
		Logger: logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("blaze starting", "addr", *addr, "data", dir, "board", store.Path())
	if err := server.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
