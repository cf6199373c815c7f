package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"cipherchat/internal/app"
	"cipherchat/internal/observability"
	"cipherchat/internal/relay"
	"cipherchat/internal/services/account"
	"cipherchat/internal/store"
)

type options struct {
	listen   string
	db       string
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Run the cipherchat account API and websocket relay",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.listen, "listen", ":8080", "address to listen on")
	cmd.Flags().StringVar(&opts.db, "db", "cipherchat-relay.db", "bolt database for user records")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

func run(ctx context.Context, opts options) error {
	log := observability.NewLogger("cipherchat-relay", app.Version, os.Stderr, opts.logLevel)

	users, err := store.OpenBoltUserStore(opts.db)
	if err != nil {
		log.Error().Err(err).Str("db", opts.db).Msg("open user store")
		return err
	}
	defer users.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	accounts, err := account.New(users, nil, log, metrics)
	if err != nil {
		return err
	}
	hub := relay.NewHub(log, metrics)

	srv := &http.Server{
		Addr:              opts.listen,
		Handler:           relay.NewServer(accounts, hub, metrics, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		count, _ := users.Count()
		log.Info().Str("addr", opts.listen).Int("users", count).Msg("relay listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
		return err
	}
	return nil
}
