package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/AltairaLabs/run-tools-mcp/internal/backend"
	"github.com/AltairaLabs/run-tools-mcp/internal/config"
	"github.com/AltairaLabs/run-tools-mcp/internal/tools"
	"github.com/AltairaLabs/run-tools-mcp/internal/tools/handlers/runs"
	"github.com/AltairaLabs/run-tools-mcp/internal/transport"
)

// ErrAlreadyStarted is returned when Start is called on a running server
var ErrAlreadyStarted = errors.New("server already started")

// Server runs the MCP endpoint over HTTP+SSE
type Server struct {
	cfg    config.Config
	logger *slog.Logger

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	transport  *transport.Transport
	started    bool
	stopped    bool
}

// New creates a server for cfg. Nothing is bound until Start.
func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg.WithDefaults(),
		logger: logger,
	}
}

// checkConfig validates the configuration, logging the one startup error
// emitted for a missing access token
func (s *Server) checkConfig() error {
	err := s.cfg.Validate()
	if errors.Is(err, config.ErrMissingCredential) {
		s.logger.Error(config.ErrMissingAccessToken)
		return err
	}
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// buildMCPServer assembles the backend client, tools and protocol server
func (s *Server) buildMCPServer() *MCPServer {
	pc := s.cfg.ProcessContext()
	client := backend.New(pc.APIURL, pc.AccessToken,
		backend.WithTimeout(s.cfg.RequestTimeout),
		backend.WithLogger(s.logger),
	)
	registry := tools.NewRegistry(tools.NewAuditLogger(s.logger), runs.Definitions(client, pc)...)
	return NewMCPServer(Info{Name: s.cfg.ServerName, Version: s.cfg.ServerVersion}, registry)
}

// Start binds the configured port and serves in the background. Without an
// access token it logs a single error and returns ErrMissingCredential
// without binding anything.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	if err := s.checkConfig(); err != nil {
		return err
	}

	mcpServer := s.buildMCPServer()
	tr := transport.New(mcpServer, transport.Options{
		KeepAlive:   s.cfg.KeepAliveInterval,
		MaxSessions: s.cfg.MaxSessions,
		Logger:      s.logger,
	})

	listenConfig := net.ListenConfig{}
	ln, err := listenConfig.Listen(ctx, "tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Address(), err)
	}

	s.listener = ln
	s.transport = tr
	s.httpServer = &http.Server{
		Handler:           transport.NewRouter(tr),
		ReadHeaderTimeout: config.DefaultReadHeaderTimeout,
	}
	s.started = true

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.logger.Info(config.MsgServerRunning, "port", ln.Addr().(*net.TCPAddr).Port)
	return nil
}

// Stop closes every session and shuts the HTTP server down. In-flight tool
// calls are abandoned. Calling Stop more than once, or before Start, is a
// no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return nil
	}
	s.stopped = true

	s.transport.Shutdown()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.Warn("Graceful shutdown timeout, forcing stop", "error", err)
		err = s.httpServer.Close()
	}

	s.logger.Info(config.MsgServerStopped)
	return err
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ServeStdio runs the tools over stdio instead of HTTP. It blocks until stdin
// closes.
func (s *Server) ServeStdio() error {
	if err := s.checkConfig(); err != nil {
		return err
	}
	s.logger.Info("Starting MCP server on stdio")
	return s.buildMCPServer().Serve()
}
