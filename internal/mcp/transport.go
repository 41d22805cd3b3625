package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// TransportType represents the available MCP transport protocols.
type TransportType string

const (
	// TransportStdio is for desktop clients and local tools.
	TransportStdio TransportType = "stdio"
	// TransportSSE is the older HTTP transport some clients still speak.
	TransportSSE TransportType = "sse"
	// TransportHTTP is streamable HTTP.
	TransportHTTP TransportType = "http"
)

// GracefulShutdownTimeout is the maximum time to wait for in-flight requests.
const GracefulShutdownTimeout = 30 * time.Second

type TransportConfig struct {
	Type TransportType `env:"MCP_TRANSPORT" envDefault:"stdio"`
	Host string        `env:"MCP_HOST" envDefault:"0.0.0.0"`
	Port int           `env:"MCP_PORT" envDefault:"8090"`
}

// LoadTransportConfig reads MCP_TRANSPORT, MCP_HOST and MCP_PORT.
func LoadTransportConfig() (TransportConfig, error) {
	var cfg TransportConfig
	if err := env.Parse(&cfg); err != nil {
		return TransportConfig{}, fmt.Errorf("parse transport config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c TransportConfig) Validate() error {
	switch c.Type {
	case TransportStdio, TransportSSE, TransportHTTP:
	default:
		return fmt.Errorf("invalid MCP_TRANSPORT value: %s (must be stdio, sse, or http)", c.Type)
	}
	if c.Type != TransportStdio && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("invalid MCP_PORT value: %d (must be between 1 and 65535)", c.Port)
	}
	return nil
}

func (c TransportConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Middleware wraps the HTTP transports, typically with rate limiting.
type Middleware func(http.Handler) http.Handler

// Serve runs the server on the configured transport until ctx is done.
func Serve(ctx context.Context, mcpServer *server.MCPServer, cfg TransportConfig, wrap Middleware, logger zerolog.Logger) error {
	switch cfg.Type {
	case TransportStdio:
		return serveStdio(ctx, mcpServer, logger)
	case TransportSSE:
		return serveHTTP(ctx, server.NewSSEServer(mcpServer), cfg, wrap, logger)
	case TransportHTTP:
		return serveHTTP(ctx, server.NewStreamableHTTPServer(mcpServer), cfg, wrap, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s", cfg.Type)
	}
}

// serveStdio never logs to stdout; that stream carries the protocol.
func serveStdio(ctx context.Context, mcpServer *server.MCPServer, logger zerolog.Logger) error {
	logger.Info().Str("transport", string(TransportStdio)).Msg("starting MCP server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ServeStdio(mcpServer); err != nil {
			errCh <- fmt.Errorf("stdio server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("context cancelled, stdio server stopping")
		return nil
	case err := <-errCh:
		return err
	}
}

func serveHTTP(ctx context.Context, handler http.Handler, cfg TransportConfig, wrap Middleware, logger zerolog.Logger) error {
	if wrap != nil {
		handler = wrap(handler)
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server error: %w", cfg.Type, err)
		}
		close(errCh)
	}()
	logger.Info().Str("transport", string(cfg.Type)).Str("addr", httpServer.Addr).Msg("MCP server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s server shutdown error: %w", cfg.Type, err)
		}
		logger.Info().Msg("MCP server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}
