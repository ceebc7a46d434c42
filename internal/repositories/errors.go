package repositories

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"example.com/backstage/services/events/internal/apperrors"
)

// mapError translates driver errors into repository errors
func mapError(err error, message string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperrors.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return apperrors.ErrDuplicateKey
	default:
		return errors.Wrap(err, message)
	}
}

// isFatal reports whether err means the connection itself is unusable
func isFatal(err error) bool {
	return mongo.IsNetworkError(err)
}
