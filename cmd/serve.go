package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/michaelssavage/spanish-worksheets/internal/api"
	"github.com/michaelssavage/spanish-worksheets/internal/auth"
	"github.com/michaelssavage/spanish-worksheets/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides config http.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.cfg.ValidateServer(); err != nil {
		return err
	}
	tokens, err := auth.New(e.cfg.HTTP.JWTSecret, e.cfg.HTTP.TokenTTL)
	if err != nil {
		return err
	}
	svc, err := e.delivery(ctx)
	if err != nil {
		return err
	}

	if mode := e.cfg.Log.Mode; mode == "production" || mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterConfig{
		Worksheets:  svc,
		Sweeper:     scheduler.NewSweeper(svc, e.store.Users(), e.cfg.Scheduler, e.log),
		Users:       e.store.Users(),
		Tokens:      tokens,
		CronSecret:  e.cfg.Scheduler.CronSecret,
		CORSOrigins: e.cfg.HTTP.CORSOrigins,
		Log:         e.log,
	})

	addr := e.cfg.HTTP.Addr
	if a, _ := cmd.Flags().GetString("addr"); a != "" {
		addr = a
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       e.cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: e.cfg.HTTP.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		e.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	e.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
