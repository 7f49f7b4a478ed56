package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/smith3v/tg-habit-tracker/pkg/api"
	"github.com/smith3v/tg-habit-tracker/pkg/bot/handlers"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, the Telegram bot and the ops HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return rt.serve(ctx)
		},
	}
}

func (rt *runtime) serve(ctx context.Context) error {
	b, err := rt.newBot(bot.WithDefaultHandler(handlers.DefaultHandler))
	if err != nil {
		return err
	}
	scheduler, runner, err := rt.scheduler(b)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Start(ctx)
	}()

	if b != nil {
		handlers.New(rt.store, rt.service).Register(b)
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("starting telegram bot")
			b.Start(ctx)
		}()
	}

	var srv *http.Server
	if addr := rt.cfg.HTTP.Addr; addr != "" {
		srv = &http.Server{
			Addr:              addr,
			Handler:           api.NewRouter(api.NewHandler(scheduler, runner, rt.store)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("starting ops http server", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops http server stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down ops http server", "error", err)
		}
	}
	wg.Wait()
	return nil
}
