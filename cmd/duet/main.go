package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/martinemde/duet/agent"
	"github.com/martinemde/duet/genclient"
	"github.com/martinemde/duet/sim"
)

func main() {
	configPath := flag.String("config", "duet.yaml", "path to the simulation config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := sim.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	generators := make(map[string]agent.Generator, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		gen, err := buildGenerator(ac, logger)
		if err != nil {
			return fmt.Errorf("building generator for %q: %w", ac.Name, err)
		}
		generators[ac.Name] = gen
	}

	session, err := sim.NewSession(cfg, generators, logger)
	if err != nil {
		return err
	}

	logger.Info("starting duet",
		"config", configPath,
		"session_id", cfg.Session.ID,
		"agents", len(cfg.Agents),
	)

	return session.Run(ctx)
}

// buildGenerator constructs the configured generator for one agent. The
// scripted generator gives a deterministic dry run without provider access.
func buildGenerator(ac sim.AgentConfig, logger *slog.Logger) (agent.Generator, error) {
	switch ac.Generator {
	case "scripted":
		return genclient.NewScripted(
			agent.Action{AgentName: ac.Name, Kind: agent.KindSpeak, Argument: ac.Goal},
			agent.Action{AgentName: ac.Name, Kind: agent.KindLeave},
		), nil
	case "", "gollm":
		return genclient.NewGollmGenerator(genclient.Config{
			Provider:    ac.Provider,
			Model:       ac.Model,
			APIKey:      ac.APIKey,
			MaxTokens:   ac.MaxTokens,
			Temperature: ac.Temperature,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown generator %q", ac.Generator)
	}
}

func setupLogger(cfg sim.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
