package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/apifeed/apifeed/config"
	"github.com/apifeed/apifeed/connector"
	"github.com/apifeed/apifeed/conversations"
	"github.com/apifeed/apifeed/fetch"
	apilogger "github.com/apifeed/apifeed/logger"
	"github.com/apifeed/apifeed/migrations"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse command-line flags
	var (
		configPath = flag.String("config", "", "Path to config file. Defaults to APIFEED_CONFIG or ~/.apifeed/config.yaml")
		mode       = flag.String("mode", "", "Run a single mode: query, batch, or converse. Runs a short demo of all three when empty")
		prompt     = flag.String("prompt", "Summarize the key information in this data.", "Prompt sent to the model alongside the fetched data")
		endpoints  = flag.String("endpoints", "/", "API path to fetch. Batch mode accepts a comma-separated list")
		method     = flag.String("method", "GET", "HTTP method for fetches")
		includeRaw = flag.Bool("include-raw", false, "Include raw and processed payloads in query output")
		logFile    = flag.String("logfile", "", "Path to log file. If not set, logs to stderr")
		pretty     = flag.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
	)
	flag.Parse()

	// Validate that --logfile and --pretty are mutually exclusive
	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}

	// Initialize logger with options
	logger, err := apilogger.InitWithOptions(*logFile, *pretty)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err == nil {
		logger.Debug().Msg("Loaded environment from .env")
	}

	path := *configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info().Str("path", path).Msg("Loaded configuration")

	fillCredentialsFromEnv(cfg)

	// Cancel in-flight work on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	opts := []connector.Option{connector.WithLogger(logger)}

	// ---------------------------
	// 1. Conversation Store (optional)
	// ---------------------------

	if cfg.Memory.Enabled {
		store, closeDB, err := openStore(cfg.Memory, logger)
		if err != nil {
			return err
		}
		defer closeDB()
		opts = append(opts, connector.WithStore(store, cfg.Memory.SessionID))
	}

	// ---------------------------
	// 2. Build the Connector
	// ---------------------------

	conn, err := connector.New(cfg.API, cfg.Model, opts...)
	if err != nil {
		return fmt.Errorf("failed to build connector: %w", err)
	}
	defer conn.Close()

	if id := conn.SessionID(); id != "" {
		logger.Info().Str("session_id", id).Msg("Conversation persistence enabled")
	}

	paths := splitEndpoints(*endpoints)

	// ---------------------------
	// 3. Run the Requested Mode
	// ---------------------------

	switch *mode {
	case "query":
		return runQuery(ctx, conn, *prompt, paths[0], *method, *includeRaw)
	case "batch":
		return runBatch(ctx, conn, *prompt, paths, *method)
	case "converse":
		return runConverse(ctx, conn, *prompt, paths[0], *method)
	case "":
		return runDemo(ctx, conn, *prompt, paths, *method)
	default:
		return fmt.Errorf("unknown mode %q (expected query, batch, or converse)", *mode)
	}
}

// fillCredentialsFromEnv supplies credentials the config file leaves out.
// Keys never need to live in the config file itself.
func fillCredentialsFromEnv(cfg *config.Config) {
	if cfg.API.APIKey == "" {
		cfg.API.APIKey = os.Getenv("APIFEED_API_KEY")
	}
	if cfg.Model.APIKey == "" {
		switch cfg.Model.Provider {
		case "openai":
			cfg.Model.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			cfg.Model.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
}

// openStore opens the SQLite database behind conversation persistence
// and brings its schema up to date.
func openStore(cfg config.MemoryConfig, logger zerolog.Logger) (*conversations.Store, func(), error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	logger.Info().Str("path", cfg.Path).Msg("Initializing conversation store")
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrations.RunMigrations(db, "./migrations", logger); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	closeDB := func() { _ = db.Close() }
	return conversations.NewStore(db), closeDB, nil
}

func runQuery(ctx context.Context, conn *connector.Connector, prompt, path, method string, includeRaw bool) error {
	result, err := conn.QueryWithData(ctx, prompt, fetch.Request{Path: path, Method: method}, includeRaw)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return printJSON(result)
}

func runBatch(ctx context.Context, conn *connector.Connector, prompt string, paths []string, method string) error {
	reqs := make([]fetch.Request, len(paths))
	for i, p := range paths {
		reqs[i] = fetch.Request{Path: p, Method: method}
	}
	result, err := conn.BatchProcess(ctx, reqs, prompt, 0)
	if err != nil {
		return fmt.Errorf("batch analysis failed: %w", err)
	}
	return printJSON(result)
}

// runConverse adds one turn to the conversation. With persistence
// enabled, repeated invocations against the same session build up a
// transcript across process restarts.
func runConverse(ctx context.Context, conn *connector.Connector, prompt, path, method string) error {
	var req *fetch.Request
	if endpointsFlagSet() {
		req = &fetch.Request{Path: path, Method: method}
	}
	result, err := conn.Converse(ctx, prompt, req)
	if err != nil {
		return fmt.Errorf("conversation turn failed: %w", err)
	}
	return printJSON(result)
}

// runDemo walks all three modes against the configured API.
func runDemo(ctx context.Context, conn *connector.Connector, prompt string, paths []string, method string) error {
	fmt.Println("=== One-shot query ===")
	if err := runQuery(ctx, conn, prompt, paths[0], method, false); err != nil {
		return err
	}

	if len(paths) > 1 {
		fmt.Println("\n=== Batch analysis ===")
		if err := runBatch(ctx, conn, prompt, paths, method); err != nil {
			return err
		}
	}

	fmt.Println("\n=== Conversation ===")
	first, err := conn.Converse(ctx, prompt, &fetch.Request{Path: paths[0], Method: method})
	if err != nil {
		return fmt.Errorf("conversation turn failed: %w", err)
	}
	if err := printJSON(first); err != nil {
		return err
	}

	second, err := conn.Converse(ctx, "What stands out the most?", nil)
	if err != nil {
		return fmt.Errorf("conversation turn failed: %w", err)
	}
	return printJSON(second)
}

func endpointsFlagSet() bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "endpoints" {
			set = true
		}
	})
	return set
}

func splitEndpoints(raw string) []string {
	parts := strings.Split(raw, ",")
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	if len(paths) == 0 {
		paths = []string{"/"}
	}
	return paths
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
