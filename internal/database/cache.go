package database

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/events/config"
	"example.com/backstage/services/events/internal/apperrors"
)

const defaultAttemptTimeout = 30 * time.Second

// State is the lifecycle state of the shared connection
type State int32

const (
	StateEmpty State = iota
	StateConnecting
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Connector establishes a ready connection for the given configuration
type Connector func(ctx context.Context, cfg config.MongoConfig) (*Connection, error)

// Pinger checks the liveness of an established connection
type Pinger func(ctx context.Context, conn *Connection) error

// Observer receives connection lifecycle notifications
type Observer interface {
	ConnectAttempt(success bool, duration time.Duration)
	ConnectionState(state string)
}

// Acquirer hands out the shared connection
type Acquirer interface {
	Acquire(ctx context.Context) (*Connection, error)
}

// Option configures a Cache
type Option func(*Cache)

// WithConnector replaces the dialer used to establish the connection
func WithConnector(fn Connector) Option {
	return func(c *Cache) {
		c.connect = fn
	}
}

// WithPinger replaces the liveness check used by Check
func WithPinger(fn Pinger) Option {
	return func(c *Cache) {
		c.ping = fn
	}
}

// WithObserver registers a lifecycle observer
func WithObserver(o Observer) Option {
	return func(c *Cache) {
		c.observer = o
	}
}

type attempt struct {
	done chan struct{}
	conn *Connection
	err  error
}

// Cache owns the single shared connection. At most one connection attempt is
// in flight at any time; every caller that arrives while it is running waits
// for the same outcome. A failed attempt is never cached and the next call
// starts a fresh one.
type Cache struct {
	cfg      config.MongoConfig
	connect  Connector
	ping     Pinger
	observer Observer

	ready    atomic.Pointer[Connection]
	state    atomic.Int32
	attempts atomic.Int64
	waiting  atomic.Int32

	mu       sync.Mutex
	inflight *attempt
}

// NewCache creates an empty cache. No I/O happens until the first Acquire.
func NewCache(cfg config.MongoConfig, opts ...Option) *Cache {
	c := &Cache{
		cfg:     cfg,
		connect: Dial,
		ping: func(ctx context.Context, conn *Connection) error {
			return conn.Ping(ctx)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Acquire returns the ready connection, establishing it if needed.
//
// Configuration problems are reported as *apperrors.ConfigurationError before
// any network I/O. Failures of the attempt itself are reported as
// *apperrors.ConnectionError and leave the cache empty. Cancelling ctx only
// stops this caller from waiting; the attempt continues for the others.
func (c *Cache) Acquire(ctx context.Context) (*Connection, error) {
	if conn := c.ready.Load(); conn != nil {
		return conn, nil
	}

	c.mu.Lock()
	if conn := c.ready.Load(); conn != nil {
		c.mu.Unlock()
		return conn, nil
	}

	a := c.inflight
	if a == nil {
		if err := ValidateConfig(c.cfg); err != nil {
			c.mu.Unlock()
			return nil, err
		}

		a = &attempt{done: make(chan struct{})}
		c.inflight = a
		c.setState(StateConnecting)
		go c.establish(a)
	}
	c.mu.Unlock()

	c.waiting.Add(1)
	defer c.waiting.Add(-1)

	select {
	case <-a.done:
		return a.conn, a.err
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "waiting for database connection")
	}
}

func (c *Cache) establish(a *attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), c.attemptTimeout())
	defer cancel()

	n := c.attempts.Add(1)
	start := time.Now()
	log.Info().Int64("attempt", n).Str("database", c.cfg.Database).Msg("Connecting to MongoDB")

	conn, err := c.connect(ctx, c.cfg)
	if err == nil && conn == nil {
		err = errNotConnected
	}
	duration := time.Since(start)

	c.mu.Lock()
	if err != nil {
		if !apperrors.IsConnection(err) {
			err = &apperrors.ConnectionError{Err: err}
		}
		a.err = err
		c.setState(StateEmpty)
	} else {
		a.conn = conn
		c.ready.Store(conn)
		c.setState(StateReady)
	}
	c.inflight = nil
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.ConnectAttempt(err == nil, duration)
	}
	close(a.done)

	if err != nil {
		log.Error().Err(err).Int64("attempt", n).Dur("duration", duration).Msg("MongoDB connection failed")
		return
	}
	log.Info().Int64("attempt", n).Dur("duration", duration).Msg("Connected to MongoDB")
}

func (c *Cache) attemptTimeout() time.Duration {
	d := c.cfg.ServerSelectionTimeout + c.cfg.ConnectTimeout
	if d <= 0 {
		return defaultAttemptTimeout
	}
	return d
}

func (c *Cache) setState(s State) {
	c.state.Store(int32(s))
	if c.observer != nil {
		c.observer.ConnectionState(s.String())
	}
}

// State reports the current lifecycle state
func (c *Cache) State() State {
	return State(c.state.Load())
}

// Attempts reports how many connection attempts have been started
func (c *Cache) Attempts() int64 {
	return c.attempts.Load()
}

// Invalidate drops the ready connection if it is still the given one, so the
// next Acquire reconnects. It returns false when the cache has already moved
// on to another connection.
func (c *Cache) Invalidate(ctx context.Context, failed *Connection) bool {
	c.mu.Lock()
	if failed == nil || c.ready.Load() != failed {
		c.mu.Unlock()
		return false
	}
	c.ready.Store(nil)
	c.setState(StateEmpty)
	c.mu.Unlock()

	if err := failed.Disconnect(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to disconnect invalidated MongoDB client")
	}
	log.Warn().Msg("MongoDB connection invalidated")
	return true
}

// Check pings the ready connection, if any, and invalidates it on failure.
// An empty cache is not an error.
func (c *Cache) Check(ctx context.Context) error {
	conn := c.ready.Load()
	if conn == nil {
		return nil
	}

	if err := c.ping(ctx, conn); err != nil {
		c.Invalidate(ctx, conn)
		return &apperrors.ConnectionError{Err: errors.Wrap(err, "health check ping failed")}
	}
	return nil
}

// Close waits for an in-flight attempt and disconnects the ready connection.
// The cache is left empty.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	a := c.inflight
	c.mu.Unlock()

	if a != nil {
		select {
		case <-a.done:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for in-flight connection attempt")
		}
	}

	c.mu.Lock()
	conn := c.ready.Swap(nil)
	if conn != nil {
		c.setState(StateEmpty)
	}
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return errors.Wrap(conn.Disconnect(ctx), "failed to disconnect MongoDB client")
}
