package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Connect opens a MongoDB client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// MongoCollection implements Collection over a *mongo.Collection.
type MongoCollection[T any] struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func NewMongoCollection[T any](db *mongo.Database, name string) *MongoCollection[T] {
	return &MongoCollection[T]{coll: db.Collection(name), timeout: defaultTimeout}
}

func (c *MongoCollection[T]) Name() string { return c.coll.Name() }

func (c *MongoCollection[T]) All(ctx context.Context) ([]T, error) {
	return c.find(ctx, bson.M{})
}

func (c *MongoCollection[T]) Where(ctx context.Context, field string, value any) ([]T, error) {
	return c.find(ctx, bson.M{field: value})
}

func (c *MongoCollection[T]) find(ctx context.Context, filter bson.M) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cursor, err := c.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.Name(), err)
	}
	return docs, nil
}

func (c *MongoCollection[T]) Get(ctx context.Context, id string) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var doc T
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, ErrNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("find %s/%s: %w", c.Name(), id, err)
	}
	return doc, nil
}

func (c *MongoCollection[T]) Insert(ctx context.Context, doc T) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert %s: %w", c.Name(), err)
	}
	return nil
}

func (c *MongoCollection[T]) Put(ctx context.Context, id string, doc T) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", c.Name(), id, err)
	}
	return nil
}

func (c *MongoCollection[T]) Merge(ctx context.Context, id string, fields bson.M) error {
	return c.update(ctx, id, bson.M{"$set": fields})
}

func (c *MongoCollection[T]) Push(ctx context.Context, id string, field string, values ...any) error {
	return c.update(ctx, id, bson.M{"$push": bson.M{field: bson.M{"$each": values}}})
}

func (c *MongoCollection[T]) update(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", c.Name(), id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *MongoCollection[T]) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.Name(), id, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
