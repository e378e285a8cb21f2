// Amadeus is a local tool-using conversational agent.
//
// It talks to a local Ollama instance for inference, persists the
// conversation in SQLite, and exposes a small HTTP/WebSocket API with a
// built-in chat page. Configuration is loaded from a single YAML file
// discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	amadeus serve            Start the agent and API server
//	amadeus init [dir]       Initialize a working directory with defaults
//	amadeus ask <question>   Ask a single question (for testing)
//	amadeus version          Print version and build information
//	amadeus -o json version  Output version information as JSON
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/amadeus-agent/amadeus/internal/agent"
	"github.com/amadeus-agent/amadeus/internal/api"
	"github.com/amadeus-agent/amadeus/internal/buildinfo"
	"github.com/amadeus-agent/amadeus/internal/config"
	"github.com/amadeus-agent/amadeus/internal/conversation"
	"github.com/amadeus-agent/amadeus/internal/events"
	"github.com/amadeus-agent/amadeus/internal/fetch"
	"github.com/amadeus-agent/amadeus/internal/llm"
	"github.com/amadeus-agent/amadeus/internal/mqtt"
	"github.com/amadeus-agent/amadeus/internal/persona"
	"github.com/amadeus-agent/amadeus/internal/prompts"
	"github.com/amadeus-agent/amadeus/internal/system"
	"github.com/amadeus-agent/amadeus/internal/tools"
	"github.com/amadeus-agent/amadeus/internal/transport"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the amadeus command. All OS-level
// dependencies are injected as parameters: ctx controls process
// lifetime, stdout and stderr receive output, and args is os.Args[1:].
// Arguments are parsed manually rather than with the flag package to
// avoid global state that interferes with parallel tests.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var (
		configPath string
		outputFmt  string
		command    string
		cmdArgs    []string
	)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-config":
			if i+1 >= len(args) {
				return fmt.Errorf("-config requires a path argument")
			}
			i++
			configPath = args[i]
		case strings.HasPrefix(arg, "-config="):
			configPath = strings.TrimPrefix(arg, "-config=")
		case arg == "-o" || arg == "--output":
			if i+1 >= len(args) {
				return fmt.Errorf("%s requires a format argument", arg)
			}
			i++
			outputFmt = args[i]
		case arg == "-h" || arg == "--help":
			return printUsage(stdout)
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			if command == "" {
				command = arg
			} else {
				cmdArgs = append(cmdArgs, arg)
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: amadeus ask <question>")
		}
		return runAsk(ctx, stdout, stderr, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// amadeus is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Amadeus - Local Tool-Using Conversational Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: amadeus [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the agent and API server")
	fmt.Fprintln(w, "  init [dir]   Initialize working directory with defaults (default: .)")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/amadeus/config.yaml, /etc/amadeus/config.yaml")
	return nil
}

// runAsk handles the "amadeus ask <question>" subcommand. It boots a
// minimal agent (in-memory conversation store, no API server, no MQTT)
// and processes a single question, printing the response to stdout.
// Useful for quick smoke tests without starting the daemon.
func runAsk(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string, args []string) error {
	logger := newLogger(stderr, slog.LevelWarn, "text")

	question := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	engine := llm.NewOllamaClient(cfg.Model.OllamaURL, cfg.Model.Name, llm.WithLogger(logger))

	pers, err := loadPersona(cfg)
	if err != nil {
		return err
	}
	registry := buildRegistry(cfg)

	// Nothing to persist for a one-shot question.
	loop, err := agent.New(ctx, agent.Options{
		Store:         conversation.NewMemoryStore(),
		Engine:        engine,
		Registry:      registry,
		Logger:        logger,
		SystemPrompt:  prompts.System(pers, registry),
		HistoryLimit:  cfg.Agent.HistoryLimit,
		MaxIterations: cfg.Agent.MaxToolIterations,
	})
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go loop.Run(loopCtx)

	response, err := loop.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, response)
	return nil
}

// runServe handles the "amadeus serve" subcommand. It is the primary
// operating mode: loads config, opens the conversation database, wires
// the tool registry and transport, starts the agent loop and API
// server, and blocks until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting Amadeus", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level and format are
	// known. The initial Info-level text logger covers only the startup
	// banner.
	{
		level := slog.LevelInfo
		if cfg.LogLevel != "" {
			// Already validated by config.Validate, so the error path
			// should be unreachable in practice.
			level, _ = config.ParseLogLevel(cfg.LogLevel)
		}
		logger = newLogger(stdout, level, cfg.LogFormat)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Model.Name,
		"ollama_url", cfg.Model.OllamaURL,
	)

	// --- Data directory and conversation database ---
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	dbPath := filepath.Join(cfg.DataDir, "amadeus.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("open database %s: %w", dbPath, err)
	}
	defer db.Close()

	store, err := conversation.NewSQLiteStore(db)
	if err != nil {
		return fmt.Errorf("open conversation store %s: %w", dbPath, err)
	}
	logger.Info("conversation database opened", "path", dbPath)

	// --- Inference engine ---
	engine := llm.NewOllamaClient(cfg.Model.OllamaURL, cfg.Model.Name, llm.WithLogger(logger))

	// --- Persona and tools ---
	pers, err := loadPersona(cfg)
	if err != nil {
		return err
	}
	registry := buildRegistry(cfg)
	logger.Info("tools registered", "count", registry.Len(), "names", registry.Names())

	// --- Transport and event bus ---
	tr := transport.New(16, 64)
	bus := events.New()

	// --- Signal handling ---
	// NotifyContext wraps the parent context so that SIGINT/SIGTERM
	// cancellation flows through the same ctx used by all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Agent loop ---
	loop, err := agent.New(ctx, agent.Options{
		Store:         store,
		Engine:        engine,
		Registry:      registry,
		Transport:     tr,
		Bus:           bus,
		Logger:        logger,
		SystemPrompt:  prompts.System(pers, registry),
		HistoryLimit:  cfg.Agent.HistoryLimit,
		MaxIterations: cfg.Agent.MaxToolIterations,
	})
	if err != nil {
		return fmt.Errorf("start agent: %w", err)
	}

	go func() {
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("agent loop stopped", "error", err)
		}
	}()
	loop.Greet()

	// --- API server ---
	listen := net.JoinHostPort(cfg.Listen.Address, strconv.Itoa(cfg.Listen.Port))
	server := api.NewServer(api.Options{
		Listen:    listen,
		PublicURL: cfg.PublicURL,
		Model:     cfg.Model.Name,
		Loop:      loop,
		Store:     store,
		Transport: tr,
		Bus:       bus,
		Logger:    logger,
	})

	// --- MQTT presence (optional) ---
	var mqttPub *mqtt.Publisher
	if cfg.MQTT.Enabled {
		mqttPub = mqtt.New(cfg.MQTT, &mqttStatsAdapter{
			model: cfg.Model.Name,
			store: store,
			loop:  loop,
		}, logger)
		go func() {
			if err := mqttPub.Start(ctx); err != nil {
				logger.Error("mqtt publisher failed", "error", err)
			}
		}()
		logger.Info("mqtt publishing enabled", "broker", cfg.MQTT.Broker, "device_name", cfg.MQTT.DeviceName)
	} else {
		logger.Info("mqtt publishing disabled (not configured)")
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		if mqttPub != nil {
			offlineCtx, offlineCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer offlineCancel()
			if err := mqttPub.Stop(offlineCtx); err != nil {
				logger.Error("mqtt shutdown failed", "error", err)
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	// Start blocks until the server is shut down via context
	// cancellation or fatal error.
	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Amadeus stopped")
	return nil
}

// loadPersona resolves the agent persona: an explicit persona file from
// config, or the built-in default.
func loadPersona(cfg *config.Config) (persona.Persona, error) {
	if cfg.Agent.PersonaFile == "" {
		return persona.Default(), nil
	}
	p, err := persona.Load(cfg.Agent.PersonaFile)
	if err != nil {
		return persona.Persona{}, fmt.Errorf("load persona %s: %w", cfg.Agent.PersonaFile, err)
	}
	return p, nil
}

// buildRegistry assembles the tool registry from configuration. Each
// capability is registered only when configured: file tools need a
// workspace path, screenshot and input tools need their commands. The
// web navigator is always available.
func buildRegistry(cfg *config.Config) *tools.Registry {
	registry := tools.NewRegistry()

	if cfg.Workspace.Path != "" {
		_ = registry.Register(tools.FileSystem(cfg.Workspace.Path))
	}
	_ = registry.Register(fetch.Tool(fetch.New()))
	if cfg.System.ScreenshotCommand != "" {
		_ = registry.Register(system.ScreenshotTool(system.NewExecCapturer(cfg.System.ScreenshotCommand, cfg.DataDir)))
	}
	if cfg.System.InputCommand != "" {
		_ = registry.Register(system.InputTool(system.NewExecInput(cfg.System.InputCommand)))
	}

	return registry
}

// newLogger creates a structured logger that writes to w at the given
// level and format. Format must be "text" or "json"; any other value
// defaults to text. All log output goes through slog; this helper
// standardizes the handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig locates and parses the YAML configuration file. If explicit
// is non-empty, that exact path is used (and must exist). Otherwise,
// [config.FindConfig] searches the default locations. When no file is
// found anywhere, built-in defaults apply.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		return config.Default(), "(defaults)", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}

// mqttStatsAdapter bridges the conversation store, build info, and the
// agent loop to the MQTT publisher's [mqtt.StatsSource] interface.
type mqttStatsAdapter struct {
	model string
	store conversation.Store
	loop  *agent.Loop
}

func (a *mqttStatsAdapter) Uptime() time.Duration { return buildinfo.Uptime() }
func (a *mqttStatsAdapter) Version() string       { return buildinfo.Version }
func (a *mqttStatsAdapter) Model() string         { return a.model }
func (a *mqttStatsAdapter) Degraded() bool        { return a.loop.Degraded() }

func (a *mqttStatsAdapter) MessageCount() int {
	n, err := a.store.Count()
	if err != nil {
		return 0
	}
	return n
}
