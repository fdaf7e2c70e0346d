package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docsense/docsense/internal/api"
	"github.com/docsense/docsense/internal/config"
	"github.com/docsense/docsense/internal/dal"
	"github.com/docsense/docsense/internal/mcptools"
	"github.com/docsense/docsense/internal/service"
)

const version = "0.1.0"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := dal.NewStore(cfg.BasePath, cfg.PDFFallbackPdftotext)
	svc := service.New(store, log, cfg)

	// The tool interface runs over stdio unless the process is started
	// as an HTTP server only; HTTP=1 enables both.
	httpOn := cfg.Port != "" || cfg.HTTPEnabled
	stdioOn := cfg.Port == "" || cfg.HTTPEnabled

	var httpServer *http.Server
	if httpOn {
		port := cfg.Port
		if port == "" {
			port = "8090"
		}
		srv := api.NewServer(svc, log, cfg)
		httpServer = &http.Server{
			Addr:         ":" + port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info("starting docsense http", "port", port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("server error", "error", err)
				cancel()
			}
		}()
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		log.Info("shutting down...")

		if httpServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)
		}
		cancel()
	}()

	if stdioOn {
		srv := mcp.NewServer(&mcp.Implementation{Name: "docsense", Version: version}, nil)
		mcptools.New(svc).Register(srv)
		log.Info("starting docsense mcp", "transport", "stdio")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			log.Error("mcp server error", "error", err)
			os.Exit(1)
		}
		return
	}

	<-ctx.Done()
}
