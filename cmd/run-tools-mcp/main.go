// Command run-tools-mcp serves the trigger-task, list-runs and get-run tools
// to MCP clients over HTTP+SSE, or over stdio with --stdio.
//
// Configuration is layered: built-in defaults, then an optional YAML file
// (--config), then environment variables, then explicitly set flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"

	"github.com/AltairaLabs/run-tools-mcp/internal/config"
	"github.com/AltairaLabs/run-tools-mcp/internal/server"
)

// Environment variables read by the CLI
const (
	envAPIURL       = "TRIGGER_API_URL"
	envAccessToken  = "TRIGGER_ACCESS_TOKEN"
	envProjectRef   = "TRIGGER_PROJECT_REF"
	envDashboardURL = "TRIGGER_DASHBOARD_URL"
	envPort         = "MCP_PORT"
)

type options struct {
	cfg     config.Config
	debug   bool
	stdio   bool
	version bool
}

func main() {
	if err := run(); err != nil {
		// the server has already logged the missing credential
		if !errors.Is(err, config.ErrMissingCredential) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	opts, err := parseArgs(os.Args[1:], os.Getenv)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if opts.version {
		fmt.Printf("run-tools-mcp v%s\n", opts.cfg.ServerVersion)
		return nil
	}

	logger := newLogger(opts.debug)
	slog.SetDefault(logger)

	logger.Info("Starting run-tools MCP server",
		"version", opts.cfg.ServerVersion,
		"debug", opts.debug,
		"stdio", opts.stdio,
		"port", opts.cfg.Port,
		"api_url", opts.cfg.APIURL,
	)

	srv := server.New(opts.cfg, logger)

	if opts.stdio {
		return srv.ServeStdio()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// newLogger writes JSON records to stderr, leaving stdout to the stdio
// transport
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// parseArgs builds the options from args, the environment and the optional
// config file
func parseArgs(args []string, getenv func(string) string) (options, error) {
	var opts options
	var configPath string
	var port, maxSessions int
	var apiURL, projectRef, dashboardURL string

	flagSet := pflag.NewFlagSet("run-tools-mcp", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flagSet.IntVarP(&port, "port", "p", config.DefaultPort, "HTTP listening port (env "+envPort+")")
	flagSet.StringVar(&apiURL, "api-url", config.DefaultAPIURL, "task/run API base URL (env "+envAPIURL+")")
	flagSet.StringVar(&projectRef, "project-ref", "", "project reference used in run links (env "+envProjectRef+")")
	flagSet.StringVar(&dashboardURL, "dashboard-url", config.DefaultDashboardURL, "dashboard base URL (env "+envDashboardURL+")")
	flagSet.IntVar(&maxSessions, "max-sessions", config.DefaultMaxSessions, "open event streams allowed at once")
	flagSet.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flagSet.BoolVar(&opts.stdio, "stdio", false, "serve over stdio instead of HTTP+SSE")
	flagSet.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return opts, err
		}
		cfg = loaded
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return opts, err
	}

	if flagSet.Changed("port") {
		cfg.Port = port
	}
	if flagSet.Changed("api-url") {
		cfg.APIURL = apiURL
	}
	if flagSet.Changed("project-ref") {
		cfg.ProjectRef = projectRef
	}
	if flagSet.Changed("dashboard-url") {
		cfg.DashboardURL = dashboardURL
	}
	if flagSet.Changed("max-sessions") {
		cfg.MaxSessions = maxSessions
	}

	opts.cfg = cfg.WithDefaults()
	return opts, nil
}

// applyEnv overlays the environment onto cfg. Unset variables leave the
// field alone.
func applyEnv(cfg *config.Config, getenv func(string) string) error {
	if v := getenv(envAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := getenv(envAccessToken); v != "" {
		cfg.AccessToken = v
	}
	if v := getenv(envProjectRef); v != "" {
		cfg.ProjectRef = v
	}
	if v := getenv(envDashboardURL); v != "" {
		cfg.DashboardURL = v
	}
	if v := getenv(envPort); v != "" {
		port, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", envPort, v, err)
		}
		cfg.Port = port
	}
	return nil
}
