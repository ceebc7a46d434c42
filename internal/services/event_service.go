package services

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"

	"example.com/backstage/services/events/internal/apperrors"
	"example.com/backstage/services/events/internal/cache"
	"example.com/backstage/services/events/internal/metrics"
	"example.com/backstage/services/events/internal/models"
	"example.com/backstage/services/events/internal/pipeline"
	"example.com/backstage/services/events/internal/repositories"
	"example.com/backstage/services/events/internal/tracing"
)

// Messages returned for rejected slugs
const (
	MessageInvalidSlug = "Invalid or missing slug parameter"
	MessageSlugTaken   = "An event with this title already exists"
)

// EventCache is the read-through cache in front of the repository
type EventCache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// EventService handles event lookups and writes
type EventService struct {
	repo       repositories.EventRepository
	cache      EventCache
	tracer     tracing.Tracer
	metrics    *metrics.Metrics
	collection string
}

// NewEventService creates a new event service
func NewEventService(
	repo repositories.EventRepository,
	cache EventCache,
	tracer tracing.Tracer,
	metrics *metrics.Metrics,
	collection string,
) *EventService {
	return &EventService{
		repo:       repo,
		cache:      cache,
		tracer:     tracer,
		metrics:    metrics,
		collection: collection,
	}
}

// GetEventBySlug looks up an event by slug. The key is trimmed and
// lowercased before the lookup. A missing event yields apperrors.ErrNotFound.
// A cached event is only served while the store handle can be acquired.
func (s *EventService) GetEventBySlug(ctx context.Context, rawSlug string) (*models.Event, error) {
	slug := pipeline.NormalizeKey(rawSlug)
	if slug == "" {
		s.metrics.RecordLookup(metrics.LookupInvalid)
		return nil, apperrors.NewValidationError(models.FieldSlug, MessageInvalidSlug)
	}

	txn := s.tracer.StartTransaction("get-event-by-slug")
	defer s.tracer.EndTransaction(txn)
	s.tracer.AddAttribute(txn, "slug", slug)

	if event, ok := s.cached(ctx, txn, slug); ok {
		if err := s.repo.Ready(ctx); err != nil {
			s.metrics.RecordLookup(metrics.LookupError)
			s.tracer.RecordError(txn, err)
			return nil, err
		}
		s.metrics.RecordLookup(metrics.LookupFound)
		return event, nil
	}

	segment := s.tracer.StartDatastoreSegment(txn, s.collection, "findOne")
	event, err := s.repo.FindBySlug(ctx, slug)
	segment.End()

	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.metrics.RecordLookup(metrics.LookupNotFound)
			return nil, apperrors.ErrNotFound
		}
		s.metrics.RecordLookup(metrics.LookupError)
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	s.store(ctx, event)
	s.metrics.RecordLookup(metrics.LookupFound)
	return event, nil
}

// CreateEvent normalizes input as a new record and stores it
func (s *EventService) CreateEvent(ctx context.Context, input *models.Event) (*models.Event, error) {
	txn := s.tracer.StartTransaction("create-event")
	defer s.tracer.EndTransaction(txn)

	event, err := pipeline.Normalize(input, nil, true)
	if err != nil {
		return nil, s.rejected(txn, err)
	}
	event.ID = bson.ObjectID{}

	if err := s.ensureSlugFree(ctx, txn, event.Slug, bson.ObjectID{}); err != nil {
		return nil, err
	}

	segment := s.tracer.StartDatastoreSegment(txn, s.collection, "insertOne")
	err = s.repo.Insert(ctx, event)
	segment.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to create event")
	}

	s.invalidate(ctx, event.Slug)
	s.metrics.RecordWrite("create")

	log.Info().
		Str("id", event.ID.Hex()).
		Str("slug", event.Slug).
		Msg("Event created successfully")

	return event, nil
}

// UpdateEvent replaces the event stored under rawSlug with input. Only the
// derived fields whose raw source changed are recomputed. The slug in input is
// ignored; the slug changes only when the title does.
func (s *EventService) UpdateEvent(ctx context.Context, rawSlug string, input *models.Event) (*models.Event, error) {
	slug := pipeline.NormalizeKey(rawSlug)
	if slug == "" {
		return nil, apperrors.NewValidationError(models.FieldSlug, MessageInvalidSlug)
	}
	if input == nil {
		return nil, apperrors.NewValidationError(models.FieldTitle, "Event title is required")
	}

	txn := s.tracer.StartTransaction("update-event")
	defer s.tracer.EndTransaction(txn)
	s.tracer.AddAttribute(txn, "slug", slug)

	stored, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.tracer.RecordError(txn, err)
		}
		return nil, err
	}

	next := input.Clone()
	next.ID = stored.ID
	next.CreatedAt = stored.CreatedAt
	next.Slug = stored.Slug

	event, err := pipeline.Normalize(next, models.ChangedFields(stored, next), false)
	if err != nil {
		return nil, s.rejected(txn, err)
	}

	if event.Slug != stored.Slug {
		if err := s.ensureSlugFree(ctx, txn, event.Slug, stored.ID); err != nil {
			return nil, err
		}
	}

	segment := s.tracer.StartDatastoreSegment(txn, s.collection, "replaceOne")
	err = s.repo.Replace(ctx, event)
	segment.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to update event")
	}

	s.invalidate(ctx, stored.Slug, event.Slug)
	s.metrics.RecordWrite("update")

	log.Info().
		Str("id", event.ID.Hex()).
		Str("slug", event.Slug).
		Str("previous_slug", stored.Slug).
		Msg("Event updated successfully")

	return event, nil
}

func (s *EventService) ensureSlugFree(ctx context.Context, txn *newrelic.Transaction, slug string, excludeID bson.ObjectID) error {
	taken, err := s.repo.SlugExists(ctx, slug, excludeID)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return errors.Wrap(err, "failed to check slug")
	}
	if taken {
		return s.rejected(txn, apperrors.NewValidationError(models.FieldSlug, MessageSlugTaken))
	}
	return nil
}

func (s *EventService) rejected(txn *newrelic.Transaction, err error) error {
	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		s.metrics.RecordValidationFailure(verr.Field)
		s.tracer.AddAttribute(txn, "validation_field", verr.Field)
		log.Debug().Str("field", verr.Field).Str("reason", verr.Reason).Msg("Event rejected")
	}
	return err
}

func (s *EventService) cached(ctx context.Context, txn *newrelic.Transaction, slug string) (*models.Event, bool) {
	if s.cache == nil {
		return nil, false
	}

	segment := s.tracer.StartSpan("cache-get", txn)
	var event models.Event
	err := s.cache.Get(ctx, cache.EventCacheKey(slug), &event)
	segment.End()
	switch {
	case err == nil:
		s.metrics.RecordCache(true)
		return &event, true
	case errors.Is(err, cache.ErrDisabled):
	case errors.Is(err, cache.ErrCacheMiss):
		s.metrics.RecordCache(false)
	default:
		s.metrics.RecordCache(false)
		log.Warn().Err(err).Str("slug", slug).Msg("Failed to read event from cache")
	}
	return nil, false
}

func (s *EventService) store(ctx context.Context, event *models.Event) {
	if s.cache == nil {
		return
	}

	err := s.cache.Set(ctx, cache.EventCacheKey(event.Slug), event, 0)
	if err != nil && !errors.Is(err, cache.ErrDisabled) {
		log.Warn().Err(err).Str("slug", event.Slug).Msg("Failed to cache event")
	}
}

func (s *EventService) invalidate(ctx context.Context, slugs ...string) {
	if s.cache == nil {
		return
	}

	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		keys = append(keys, cache.EventCacheKey(slug))
	}

	err := s.cache.Delete(ctx, keys...)
	if err != nil && !errors.Is(err, cache.ErrDisabled) {
		log.Warn().Err(err).Strs("keys", keys).Msg("Failed to invalidate cached events")
	}
}

// NotFoundMessage is the client-facing message for a missing slug
func NotFoundMessage(slug string) string {
	return fmt.Sprintf("Event with slug %s not found", pipeline.NormalizeKey(slug))
}
