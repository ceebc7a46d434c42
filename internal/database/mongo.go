package database

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"

	"example.com/backstage/services/events/config"
	"example.com/backstage/services/events/internal/apperrors"
)

var errNotConnected = errors.New("connection has no client")

// Connection is the shared handle to the document store
type Connection struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Collection returns a handle for the named collection
func (c *Connection) Collection(name string) *mongo.Collection {
	return c.Database.Collection(name)
}

// Ping verifies the primary is reachable
func (c *Connection) Ping(ctx context.Context) error {
	if c.Client == nil {
		return errNotConnected
	}
	return c.Client.Ping(ctx, readpref.Primary())
}

// Disconnect closes the underlying client
func (c *Connection) Disconnect(ctx context.Context) error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Disconnect(ctx)
}

// ValidateConfig checks the connection parameters without performing any I/O
func ValidateConfig(cfg config.MongoConfig) error {
	if cfg.URI == "" {
		return &apperrors.ConfigurationError{Param: "MONGODB_URI", Reason: "connection string is not set"}
	}

	cs, err := parseURI(cfg.URI)
	if err != nil {
		return &apperrors.ConfigurationError{Param: "MONGODB_URI", Reason: "malformed connection string", Err: err}
	}

	if cs.Database == "" && cfg.Database == "" {
		return &apperrors.ConfigurationError{Param: "mongodb.database", Reason: "no database name in connection string or configuration"}
	}

	return nil
}

// parseURI checks the connection string syntax. SRV records are resolved by
// the driver at connect time, so an SRV string is parsed as its plain
// equivalent to keep validation free of DNS lookups.
func parseURI(uri string) (*connstring.ConnString, error) {
	if rest, ok := strings.CutPrefix(uri, "mongodb+srv://"); ok {
		if err := validateSRVHost(rest); err != nil {
			return nil, err
		}
		return connstring.ParseAndValidate("mongodb://" + rest)
	}
	return connstring.ParseAndValidate(uri)
}

// validateSRVHost requires exactly one host name without a port
func validateSRVHost(rest string) error {
	authority := rest
	if i := strings.IndexAny(authority, "/?"); i >= 0 {
		authority = authority[:i]
	}
	if i := strings.LastIndex(authority, "@"); i >= 0 {
		authority = authority[i+1:]
	}

	switch {
	case authority == "":
		return errors.New("mongodb+srv URI must name a host")
	case strings.Contains(authority, ","):
		return errors.New("mongodb+srv URI cannot have multiple hosts")
	case strings.Contains(authority, ":"):
		return errors.New("mongodb+srv URI cannot have a port number")
	}
	return nil
}

// Dial opens a client with the configured transport options and pings the
// primary before returning, so no operation is ever issued against a handle
// that is not ready.
func Dial(ctx context.Context, cfg config.MongoConfig) (*Connection, error) {
	cs, err := parseURI(cfg.URI)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse MongoDB connection string")
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}
	if cfg.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.SocketTimeout > 0 {
		opts.SetTimeout(cfg.SocketTimeout)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create MongoDB client")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "failed to ping MongoDB")
	}

	name := cs.Database
	if name == "" {
		name = cfg.Database
	}

	return &Connection{Client: client, Database: client.Database(name)}, nil
}
