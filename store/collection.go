// Package store is the document-store layer. Services read and write typed collections
// through Collection; the MongoDB and in-memory implementations share the same merge and
// not-found semantics.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("document already exists")
)

// Collection is a typed view over one document collection. Documents carry their
// identifier in the `_id` field.
type Collection[T any] interface {
	Name() string
	All(ctx context.Context) ([]T, error)
	// Where returns documents whose field equals value. Dotted paths address nested fields.
	Where(ctx context.Context, field string, value any) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Insert(ctx context.Context, doc T) error
	// Put replaces the document, creating it if absent.
	Put(ctx context.Context, id string, doc T) error
	// Merge sets top-level fields on an existing document. Last writer wins per field.
	Merge(ctx context.Context, id string, fields bson.M) error
	// Push appends values to an array field of an existing document.
	Push(ctx context.Context, id string, field string, values ...any) error
	Delete(ctx context.Context, id string) error
}
