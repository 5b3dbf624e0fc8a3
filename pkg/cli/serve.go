package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"

	"github.com/shifanka/recall/pkg/cli/config"
	httpctrl "github.com/shifanka/recall/pkg/controller/http"
	mcpctrl "github.com/shifanka/recall/pkg/controller/mcp"
	"github.com/shifanka/recall/pkg/usecase"
	"github.com/shifanka/recall/pkg/utils/logging"
	"github.com/shifanka/recall/pkg/utils/safe"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var transport string
	var repoCfg config.Repository
	var vectorCfg config.Vector
	var embeddingCfg config.Embedding
	var searchCfg config.Search

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address (http transport only)",
			Value:       ":8080",
			Sources:     cli.EnvVars("RECALL_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "transport",
			Usage:       "MCP transport (stdio or http)",
			Value:       "stdio",
			Sources:     cli.EnvVars("RECALL_TRANSPORT"),
			Destination: &transport,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, vectorCfg.Flags()...)
	flags = append(flags, embeddingCfg.Flags()...)
	flags = append(flags, searchCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the MCP memory server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// Initialize the attribute store
			store, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize attribute store")
			}
			defer safe.Close(ctx, store)

			// Initialize the embedding provider before the index so the
			// index gets the effective vector dimension
			embedder, err := embeddingCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize embedding provider")
			}

			index, err := vectorCfg.Configure(ctx, &repoCfg, embedder.Dimension())
			if err != nil {
				return goerr.Wrap(err, "failed to initialize similarity index")
			}
			defer safe.Close(ctx, index)

			ucOpts, err := searchCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load search configuration")
			}

			uc := usecase.New(store, index, embedder, ucOpts...)
			mcpServer := mcpctrl.New(uc, version)

			switch transport {
			case "stdio":
				return serveStdio(ctx, mcpServer)
			case "http":
				return serveHTTP(ctx, mcpServer, addr, version)
			default:
				return goerr.New("invalid transport", goerr.V("transport", transport))
			}
		},
	}
}

func serveStdio(ctx context.Context, server *mcp.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Default().Info("Starting MCP server on stdio")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "failed to run MCP server")
	}
	return nil
}

func serveHTTP(ctx context.Context, mcpServer *mcp.Server, addr, version string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           httpctrl.New(mcpServer, version),
		ReadHeaderTimeout: 30 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logging.Default().Info("Starting HTTP server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- goerr.Wrap(err, "failed to start server")
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logging.Default().Info("Received shutdown signal", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return goerr.Wrap(err, "failed to shutdown server gracefully")
		}

		logging.Default().Info("Server shutdown completed")
		return nil
	}
}
