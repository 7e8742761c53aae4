package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/tomb.v2"
)

// Watcher invokes fn whenever the named collection may have changed. The returned
// function stops the subscription and may be called more than once.
type Watcher interface {
	Watch(collection string, fn func()) (unsubscribe func(), err error)
}

// Ticker is a polling Watcher: fn runs every Interval regardless of actual changes.
type Ticker struct {
	Interval time.Duration
}

func (t Ticker) Watch(_ string, fn func()) (func(), error) {
	if t.Interval <= 0 {
		return nil, fmt.Errorf("ticker interval must be positive, got %s", t.Interval)
	}
	var tb tomb.Tomb
	tb.Go(func() error {
		ticker := time.NewTicker(t.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-tb.Dying():
				return nil
			case <-ticker.C:
				fn()
			}
		}
	})
	return stopper(&tb), nil
}

// MongoWatcher pushes change notifications from MongoDB change streams.
// Change streams require a replica set or sharded cluster.
type MongoWatcher struct {
	DB *mongo.Database
}

func (w MongoWatcher) Watch(collection string, fn func()) (func(), error) {
	var tb tomb.Tomb
	ctx := tb.Context(context.Background())

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := w.DB.Collection(collection).Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		tb.Kill(nil)
		return nil, fmt.Errorf("watch %s: %w", collection, err)
	}
	tb.Go(func() error {
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			fn()
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("change stream %s: %w", collection, err)
		}
		return nil
	})
	return stopper(&tb), nil
}

func stopper(tb *tomb.Tomb) func() {
	return func() {
		tb.Kill(nil)
		_ = tb.Wait()
	}
}
