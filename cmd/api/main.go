package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/walletledger/internal/api"
	"github.com/fastprodman/walletledger/internal/config"
	"github.com/fastprodman/walletledger/internal/infra/logging"
	"github.com/fastprodman/walletledger/internal/services/notify"
	"github.com/fastprodman/walletledger/pkg/envconf"
	"github.com/fastprodman/walletledger/pkg/shutdownqueue"
	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg := new(apiConfig)

	err = envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	err = config.Validate(cfg.Store, cfg.Notify, cfg.Maintenance)
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	q := shutdownqueue.New()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := q.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	store, err := openStore(ctx, cfg.Store, q)
	if err != nil {
		return err
	}

	sink, err := openSink(ctx, cfg.Notify, q)
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(sink, cfg.Notify.Workers,
		notify.WithQueueSize(cfg.Notify.QueueSize),
		notify.WithSendTimeout(cfg.Notify.SendTimeout),
	)
	q.Add("notification dispatcher", dispatcher.Close)

	// --- Services ---
	scorer, err := newScorer(cfg.Risk)
	if err != nil {
		return fmt.Errorf("init scorer: %w", err)
	}

	svc, err := newLedger(store, scorer, dispatcher, cfg.Ledger)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}

	if cfg.Maintenance.Enabled {
		startScheduler(ctx, svc, dispatcher, *cfg, q)
	}

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, svc)

	q.Add("http server", func(c context.Context) error {
		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port, "store", cfg.Store.Backend, "sink", cfg.Notify.Sink)

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
