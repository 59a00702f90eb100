package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/stashbox/config"
	stashhttp "github.com/sagarc03/stashbox/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the stashbox web server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5000, "HTTP server port (env: STASHBOX_SERVER_PORT)")
	serveCmd.Flags().Bool("debug", false, "debug logging and source locations (env: STASHBOX_SERVER_DEBUG, FLASK_DEBUG)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	service, err := newService(cfg, b.store)
	if err != nil {
		return err
	}

	handlerConfig := stashhttp.HandlerConfig{
		Policy:          service.Policy(),
		UploadRateLimit: cfg.Upload.RateLimit,
		UploadBurst:     cfg.Upload.Burst,
		TrustedOrigins:  cfg.Server.TrustedOrigins,
		CORS:            cfg.CORS,
	}
	if b.signer != nil {
		handlerConfig.LinkVerifier = b.signer
	}
	if err := handlerConfig.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	handler := stashhttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	readTimeout, writeTimeout, idleTimeout := cfg.Server.Timeouts()
	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}

		slog.Info("shutting down server...")
		timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"store", cfg.Store.Type,
		"max_upload_size", cfg.Server.MaxUploadSize,
		"read_timeout", readTimeout,
		"write_timeout", writeTimeout,
		"allowed_extensions", service.Policy().Allowed(),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
