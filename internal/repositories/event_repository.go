package repositories

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"example.com/backstage/services/events/internal/apperrors"
	"example.com/backstage/services/events/internal/database"
	"example.com/backstage/services/events/internal/models"
)

const slugIndexName = "slug_unique"

// EventRepository defines the interface for event persistence
type EventRepository interface {
	Ready(ctx context.Context) error
	FindBySlug(ctx context.Context, slug string) (*models.Event, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Event, error)
	SlugExists(ctx context.Context, slug string, excludeID bson.ObjectID) (bool, error)
	Insert(ctx context.Context, event *models.Event) error
	Replace(ctx context.Context, event *models.Event) error
	EnsureIndexes(ctx context.Context) error
}

// invalidator is implemented by connection sources that can drop a broken handle
type invalidator interface {
	Invalidate(ctx context.Context, failed *database.Connection) bool
}

// eventRepository implements EventRepository on a MongoDB collection
type eventRepository struct {
	db         database.Acquirer
	collection string
}

// NewEventRepository creates a new event repository. Every operation obtains
// its handle from db, so the repository itself never opens a connection.
func NewEventRepository(db database.Acquirer, collection string) EventRepository {
	return &eventRepository{
		db:         db,
		collection: collection,
	}
}

func (r *eventRepository) acquire(ctx context.Context) (*database.Connection, *mongo.Collection, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Collection(r.collection), nil
}

// fail maps err and drops the shared handle when the failure is fatal to it
func (r *eventRepository) fail(ctx context.Context, conn *database.Connection, err error, message string) error {
	if isFatal(err) {
		if inv, ok := r.db.(invalidator); ok && inv.Invalidate(context.WithoutCancel(ctx), conn) {
			log.Warn().Err(err).Str("collection", r.collection).Msg("Dropped database connection after network error")
		}
		return &apperrors.ConnectionError{Err: err}
	}
	return mapError(err, message)
}

// Ready acquires the shared handle without issuing a query
func (r *eventRepository) Ready(ctx context.Context) error {
	_, err := r.db.Acquire(ctx)
	return err
}

// FindBySlug finds an event by its exact slug
func (r *eventRepository) FindBySlug(ctx context.Context, slug string) (*models.Event, error) {
	conn, coll, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	var event models.Event
	if err := coll.FindOne(ctx, bson.D{{Key: models.FieldSlug, Value: slug}}).Decode(&event); err != nil {
		return nil, r.fail(ctx, conn, err, "failed to find event by slug")
	}
	return &event, nil
}

// FindByID finds an event by its document ID
func (r *eventRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Event, error) {
	conn, coll, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	var event models.Event
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&event); err != nil {
		return nil, r.fail(ctx, conn, err, "failed to find event by id")
	}
	return &event, nil
}

// SlugExists reports whether another event already uses slug. A zero
// excludeID checks against all events.
func (r *eventRepository) SlugExists(ctx context.Context, slug string, excludeID bson.ObjectID) (bool, error) {
	conn, coll, err := r.acquire(ctx)
	if err != nil {
		return false, err
	}

	filter := bson.D{{Key: models.FieldSlug, Value: slug}}
	if !excludeID.IsZero() {
		filter = append(filter, bson.E{Key: "_id", Value: bson.D{{Key: "$ne", Value: excludeID}}})
	}

	n, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, r.fail(ctx, conn, err, "failed to check slug")
	}
	return n > 0, nil
}

// Insert stores a new event and assigns its ID and timestamps
func (r *eventRepository) Insert(ctx context.Context, event *models.Event) error {
	conn, coll, err := r.acquire(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if event.ID.IsZero() {
		event.ID = bson.NewObjectID()
	}
	event.CreatedAt = now
	event.UpdatedAt = now

	if _, err := coll.InsertOne(ctx, event); err != nil {
		return r.fail(ctx, conn, err, "failed to insert event")
	}
	return nil
}

// Replace overwrites an existing event and bumps its update time
func (r *eventRepository) Replace(ctx context.Context, event *models.Event) error {
	conn, coll, err := r.acquire(ctx)
	if err != nil {
		return err
	}

	event.UpdatedAt = time.Now().UTC()

	res, err := coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: event.ID}}, event)
	if err != nil {
		return r.fail(ctx, conn, err, "failed to replace event")
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// EnsureIndexes creates the unique slug index
func (r *eventRepository) EnsureIndexes(ctx context.Context) error {
	conn, coll, err := r.acquire(ctx)
	if err != nil {
		return err
	}

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: models.FieldSlug, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(slugIndexName),
	})
	if err != nil {
		return r.fail(ctx, conn, err, "failed to create slug index")
	}
	return nil
}
