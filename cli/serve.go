package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"callnotes/service"
	"callnotes/telegram"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram webhook and the reminder dispatcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	if err := a.cfg.RequireTelegram(); err != nil {
		return err
	}

	nb, store, closeDB, err := a.openNotebook()
	if err != nil {
		return err
	}
	defer closeDB()

	bot, err := telegram.NewBotSender(a.cfg.TelegramBotToken, a.cfg.TelegramAPIBaseURL, a.log)
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := service.NewDispatcher(store, bot, a.cfg.ReminderPollInterval, a.cfg.Location, a.log)
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.Handle(a.cfg.WebhookPath, telegram.NewWebhookHandler(bot, nb, a.cfg.TelegramWebhookSecret, a.log))

	server := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.ListenAddr).Str("path", a.cfg.WebhookPath).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			a.log.Error().Err(err).Msg("http server error")
			stop()
			<-dispatchDone
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("http server shutdown")
	}
	<-dispatchDone

	a.log.Info().Msg("shutdown complete")
	return nil
}
