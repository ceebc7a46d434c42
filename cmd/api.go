package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/backstage/services/events/internal/api"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAPI(); err != nil {
			log.Fatal().Err(err).Msg("API server exited with error")
		}
	},
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI() error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.ensureIndexes(ctx); err != nil {
		return err
	}

	scheduler, err := newHealthScheduler(ctx, a.db, a.metrics, a.cfg.Mongo.HealthCheckInterval)
	if err != nil {
		return err
	}
	scheduler.Start()

	server := api.NewServer(a.cfg, a.events, a.db, a.metrics, a.tracer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutdown signal received")

		if err := scheduler.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
		return server.Shutdown(context.Background())
	})

	return g.Wait()
}
