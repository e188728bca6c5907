package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/viant/brain/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Serve /add, /search and /notes over HTTP. The embedding model loads in the background; requests fail with 503 until it is ready.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := globalConfig
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close store", "error", err)
		}
	}()

	relayDone := make(chan struct{})
	close(relayDone)
	if cfg.Events.NATSURL != "" {
		relay, pub, err := newRelay(ctx, a.db, cfg.Events, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		relayDone = make(chan struct{})
		go func() {
			defer close(relayDone)
			_ = relay.Run(ctx)
		}()
		logger.Info("event relay started", "nats", cfg.Events.NATSURL, "subject", cfg.Events.Subject)
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	server := api.New(a.engine, a.handle, api.Options{
		MaxLimit:   cfg.Server.MaxLimit,
		CORSOrigin: cfg.Server.CORSOrigin,
		RateLimit:  cfg.Server.RateLimit,
		Burst:      cfg.Server.Burst,
		Logger:     logger,
	})
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			<-relayDone
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutCtx)
	stop()
	<-relayDone
	return err
}
