package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"go-storefront/cache"
	"go-storefront/models"
	"go-storefront/store"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var errStoreDown = errors.New("store unavailable")

func newTestDB(t *testing.T) *store.Database {
	t.Helper()
	return store.OpenMemory(store.NewMemoryStore())
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errors...)
}

// flakyCollection fails every call while down is set.
type flakyCollection[T any] struct {
	store.Collection[T]
	mu   sync.Mutex
	down bool
	// failIDs fails Merge for the listed ids only.
	failIDs map[string]bool
}

func (f *flakyCollection[T]) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *flakyCollection[T]) isDown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down
}

func (f *flakyCollection[T]) All(ctx context.Context) ([]T, error) {
	if f.isDown() {
		return nil, errStoreDown
	}
	return f.Collection.All(ctx)
}

func (f *flakyCollection[T]) Get(ctx context.Context, id string) (T, error) {
	if f.isDown() {
		var zero T
		return zero, errStoreDown
	}
	return f.Collection.Get(ctx, id)
}

func (f *flakyCollection[T]) Insert(ctx context.Context, doc T) error {
	if f.isDown() {
		return errStoreDown
	}
	return f.Collection.Insert(ctx, doc)
}

func (f *flakyCollection[T]) Merge(ctx context.Context, id string, fields bson.M) error {
	f.mu.Lock()
	fail := f.down || f.failIDs[id]
	f.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return f.Collection.Merge(ctx, id, fields)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, ev models.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) orderIDs(typ string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		if ev.Type == typ {
			out = append(out, ev.OrderID)
		}
	}
	return out
}

// gatedCollection holds All after it has read, until release is closed. Set both channels
// before the call that should block.
type gatedCollection[T any] struct {
	store.Collection[T]
	read    chan struct{}
	release chan struct{}
}

func (g *gatedCollection[T]) All(ctx context.Context) ([]T, error) {
	list, err := g.Collection.All(ctx)
	if g.read != nil {
		g.read <- struct{}{}
		<-g.release
	}
	return list, err
}
