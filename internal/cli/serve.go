package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"halya/internal/amqp"
	apphttp "halya/internal/http"
	"halya/internal/log"
	"halya/internal/probe"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = time.Minute
)

func newServeCmd(a *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web lookup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = a.cfg.Port
			}
			return runServe(cmd.Context(), a, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

func runServe(parent context.Context, a *app, port string) error {
	ctx, stop := ShutdownContext(parent)
	defer stop()

	cfg, logger := a.cfg, a.logger

	be, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldBackend, cfg.DataBackend, log.FieldError, err.Error())
		return err
	}
	defer be.Close()

	classifier, err := LoadClassifier(cfg)
	if err != nil {
		return err
	}

	deps := apphttp.Deps{
		Store:           be.Store,
		Logger:          logger,
		Classifier:      classifier,
		FetchTimeout:    cfg.FetchTimeout,
		SessionTTL:      cfg.SessionTTL,
		SessionCapacity: cfg.SessionCapacity,
		RateLimit:       cfg.RateLimit,
	}

	var diagnostics *amqp.Sink
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Diagnostics channel disabled", log.FieldError, err.Error())
		} else {
			defer client.Close()
			diagnostics = amqp.NewSink(client, 256, logger)
			deps.EventSink = diagnostics
		}
	}

	var storeProbe *probe.Probe
	if cfg.ProbeSchedule != "" {
		storeProbe, err = probe.New(be.Store, cfg.ProbeSchedule, cfg.FetchTimeout, logger)
		if err != nil {
			return err
		}
		deps.Readiness = storeProbe
	}

	srv, err := apphttp.NewServer(":"+port, deps)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting halya server", "port", port, log.FieldBackend, be.Type.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return srv.RunSessionSweeper(gctx, sweepInterval)
	})
	if storeProbe != nil {
		g.Go(func() error { return storeProbe.Run(gctx) })
	}
	if diagnostics != nil {
		g.Go(func() error { return diagnostics.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if diagnostics != nil {
			diagnostics.Close()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
