package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/comigor/msghook/internal/api"
	"github.com/comigor/msghook/internal/config"
	"github.com/comigor/msghook/internal/inbox"
	"github.com/comigor/msghook/internal/logger"
	"github.com/comigor/msghook/internal/signature"
	"github.com/comigor/msghook/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	signFile := flag.String("sign", "", "print the X-Signature value for the contents of `file` and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if *signFile != "" {
		return printSignature(cfg.Webhook.Secret, *signFile)
	}

	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	if cfg.Webhook.Secret == "" {
		logger.L.Warn("WEBHOOK_SECRET is not set; /webhook will answer 503")
	}

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.L.Error("failed to close store", "error", err)
		}
	}()
	logger.L.Info("message store ready", "driver", cfg.Database.Driver)

	svc := inbox.New(st, inbox.Config{
		Secret:       cfg.Webhook.Secret,
		DefaultLimit: cfg.Query.DefaultLimit,
		MaxLimit:     cfg.Query.MaxLimit,
	})
	router := api.NewRouter(svc, api.Options{
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.L.Info("starting server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.L.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.L.Info("server stopped")
	return nil
}

func printSignature(secret, path string) error {
	if secret == "" {
		return errors.New("WEBHOOK_SECRET is not set")
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fmt.Println(signature.Sign(secret, body))
	return nil
}
