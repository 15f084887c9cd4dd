package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/feltround/holdem/internal/room"
	"github.com/feltround/holdem/internal/server"
	"github.com/feltround/holdem/internal/store"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"holdem-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	Database string `short:"d" long:"database" help:"SQLite database path (overrides config)"`
	Memory   bool   `long:"memory" help:"Use an in-memory store instead of SQLite"`
	Seed     int64  `long:"seed" help:"Deterministic shuffle seed (0 = random)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Database != "" {
		cfg.Server.Database = CLI.Database
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	var st store.Store
	if CLI.Memory {
		st = store.NewMemory()
	} else {
		sqlite, err := store.OpenSQLite(cfg.Server.Database)
		if err != nil {
			logger.Fatal("opening database", "path", cfg.Server.Database, "error", err)
		}
		st = sqlite
	}
	defer st.Close()

	writer := store.NewWriter(logger)
	defer writer.Close()

	registry := room.NewRegistry(room.RegistryConfig{
		Store:       st,
		Writer:      writer,
		Clock:       quartz.NewReal(),
		Logger:      logger,
		TurnTimeout: cfg.TurnTimeout(),
		Seed:        CLI.Seed,
	})

	addr := cfg.Addr()
	if CLI.Addr != "" {
		addr = CLI.Addr
	}
	srv := server.NewServer(addr, st, registry, logger)

	logger.Info("starting holdem room server",
		"addr", addr,
		"turnTimeout", cfg.TurnTimeout(),
		"database", cfg.Server.Database)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", "error", err)
	}
	logger.Info("shutdown complete")
}
