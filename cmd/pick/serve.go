package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aryannaik/pick/internal/draft"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
	"github.com/aryannaik/pick/internal/server"
	"github.com/aryannaik/pick/internal/suggest"
	"github.com/aryannaik/pick/internal/wiki"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()
	store, err := a.openStore(m)
	if err != nil {
		return err
	}

	client, cached, closeLookup, err := a.newLookup(ctx, m)
	if err != nil {
		return err
	}
	defer closeLookup()

	session := suggest.NewSession(client, suggest.Config{Limit: a.cfg.SuggestLimit}, m, a.log)
	composer := draft.NewComposer(client, session, draft.Config{
		Retries:       a.cfg.Retries,
		RetryInterval: wiki.DefaultRetryInterval,
	}, m, a.log)
	handlers := server.NewHandlers(store, composer, cached, a.log)
	srv := server.New(a.cfg.Addr(), server.NewRouter(handlers, m, a.log), a.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("Server shutdown error", logger.Err(err))
		}

		if err := store.Save(); err != nil {
			return fmt.Errorf("save directory: %w", err)
		}
		a.log.Info("Directory saved", logger.String("path", store.Path()), logger.Int("candidates", store.Len()))
		return nil
	})
	return g.Wait()
}
