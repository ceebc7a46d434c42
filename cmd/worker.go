package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/backstage/services/events/internal/messaging"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume event submissions from Azure Service Bus",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWorker(); err != nil {
			log.Fatal().Err(err).Msg("Worker exited with error")
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker() error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	consumer, err := messaging.NewConsumer(a.cfg.Azure, messaging.NewProcessor(a.events), a.metrics)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := consumer.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("Failed to close consumer")
		}
	}()

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

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return scheduler.Shutdown()
	})

	log.Info().Str("queue", a.cfg.Azure.QueueName).Msg("Worker started")
	return g.Wait()
}
