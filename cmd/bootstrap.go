package cmd

import (
	"context"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/events/config"
	"example.com/backstage/services/events/internal/apperrors"
	"example.com/backstage/services/events/internal/cache"
	"example.com/backstage/services/events/internal/database"
	"example.com/backstage/services/events/internal/metrics"
	"example.com/backstage/services/events/internal/repositories"
	"example.com/backstage/services/events/internal/services"
	"example.com/backstage/services/events/internal/tracing"
)

// app holds the components shared by every command
type app struct {
	cfg     config.Config
	db      *database.Cache
	repo    repositories.EventRepository
	cache   *cache.RedisCache
	tracer  tracing.Tracer
	metrics *metrics.Metrics
	events  *services.EventService
}

func loadApp() (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, err
	}

	configureLogging(cfg.Logging)

	m := metrics.NewMetrics()
	db := database.Shared(cfg.Mongo, database.WithObserver(m))
	repo := repositories.NewEventRepository(db, cfg.Mongo.Collection)

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache, _ = cache.NewRedisCache(config.RedisConfig{Enabled: false})
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}

	return &app{
		cfg:     cfg,
		db:      db,
		repo:    repo,
		cache:   redisCache,
		tracer:  tracer,
		metrics: m,
		events:  services.NewEventService(repo, redisCache, tracer, m, cfg.Mongo.Collection),
	}, nil
}

// ensureIndexes creates the collection indexes. A configuration problem is
// returned; a connection failure is only logged so the service can start and
// retry on the next acquire.
func (a *app) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := a.repo.EnsureIndexes(ctx)
	if err == nil {
		log.Info().Str("collection", a.cfg.Mongo.Collection).Msg("Collection indexes ensured")
		return nil
	}

	if apperrors.IsConfiguration(err) {
		return err
	}
	log.Warn().Err(err).Msg("Failed to ensure indexes, will retry on next connection")
	return nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := database.CloseShared(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to close database connection")
	}
	if err := a.cache.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis cache")
	}
	a.tracer.Close()
}

// newHealthScheduler pings the shared connection on an interval and drops it
// when the ping fails, so the next acquire reconnects.
func newHealthScheduler(ctx context.Context, db *database.Cache, m *metrics.Metrics, interval time.Duration) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			checkCtx, cancel := context.WithTimeout(ctx, interval/2)
			defer cancel()

			if err := db.Check(checkCtx); err != nil {
				m.SetHealth("mongodb", false)
				log.Error().Err(err).Msg("MongoDB health check failed, connection reset")
				return
			}
			m.SetHealth("mongodb", db.State() == database.StateReady)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to schedule health check")
	}

	return scheduler, nil
}

// configureLogging applies the configured format and level. LOG_LEVEL, when
// set, keeps precedence over the configured level.
func configureLogging(cfg config.LoggingConfig) {
	if level, err := zerolog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" && os.Getenv("LOG_LEVEL") == "" {
		zerolog.SetGlobalLevel(level)
	}

	switch cfg.Format {
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
