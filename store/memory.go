package store

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore holds documents in process, encoded as BSON so partial merges and decoding
// behave the way they do against MongoDB. Collections opened with the same name share data.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryData
}

type memoryData struct {
	docs  map[string]bson.Raw
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryData)}
}

func (s *MemoryStore) data(name string) *memoryData {
	d, ok := s.collections[name]
	if !ok {
		d = &memoryData{docs: make(map[string]bson.Raw)}
		s.collections[name] = d
	}
	return d
}

// peek returns the named collection without creating it. Safe under the read lock.
func (s *MemoryStore) peek(name string) *memoryData {
	if d, ok := s.collections[name]; ok {
		return d
	}
	return &memoryData{}
}

// Drop removes every document of the named collection.
func (s *MemoryStore) Drop(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
}

// MemoryCollection implements Collection over a MemoryStore.
type MemoryCollection[T any] struct {
	store *MemoryStore
	name  string
}

func NewMemoryCollection[T any](s *MemoryStore, name string) *MemoryCollection[T] {
	return &MemoryCollection[T]{store: s, name: name}
}

func (c *MemoryCollection[T]) Name() string { return c.name }

func (c *MemoryCollection[T]) All(ctx context.Context) ([]T, error) {
	return c.filter(ctx, func(bson.Raw) bool { return true })
}

func (c *MemoryCollection[T]) Where(ctx context.Context, field string, value any) ([]T, error) {
	t, data, err := bson.MarshalValue(value)
	if err != nil {
		return nil, fmt.Errorf("encode filter value: %w", err)
	}
	path := strings.Split(field, ".")
	return c.filter(ctx, func(raw bson.Raw) bool {
		rv, err := raw.LookupErr(path...)
		return err == nil && rv.Type == t && bytes.Equal(rv.Value, data)
	})
}

func (c *MemoryCollection[T]) filter(ctx context.Context, keep func(bson.Raw) bool) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	d := c.store.peek(c.name)
	docs := []T{}
	for _, id := range d.order {
		raw := d.docs[id]
		if !keep(raw) {
			continue
		}
		var doc T
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *MemoryCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var doc T
	if err := ctx.Err(); err != nil {
		return doc, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	raw, ok := c.store.peek(c.name).docs[id]
	if !ok {
		return doc, ErrNotFound
	}
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
	}
	return doc, nil
}

func (c *MemoryCollection[T]) Insert(ctx context.Context, doc T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	id, ok := bson.Raw(raw).Lookup("_id").StringValueOK()
	if !ok || id == "" {
		return fmt.Errorf("insert %s: document has no string _id", c.name)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	d := c.store.data(c.name)
	if _, exists := d.docs[id]; exists {
		return ErrDuplicate
	}
	d.docs[id] = raw
	d.order = append(d.order, id)
	return nil
}

func (c *MemoryCollection[T]) Put(ctx context.Context, id string, doc T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	d := c.store.data(c.name)
	if _, exists := d.docs[id]; !exists {
		d.order = append(d.order, id)
	}
	d.docs[id] = raw
	return nil
}

func (c *MemoryCollection[T]) Merge(ctx context.Context, id string, fields bson.M) error {
	return c.modify(ctx, id, func(m bson.M) {
		for k, v := range fields {
			m[k] = v
		}
	})
}

func (c *MemoryCollection[T]) Push(ctx context.Context, id string, field string, values ...any) error {
	return c.modify(ctx, id, func(m bson.M) {
		arr, _ := m[field].(bson.A)
		m[field] = append(arr, values...)
	})
}

func (c *MemoryCollection[T]) modify(ctx context.Context, id string, apply func(bson.M)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	d := c.store.data(c.name)
	raw, ok := d.docs[id]
	if !ok {
		return ErrNotFound
	}
	m := bson.M{}
	if err := bson.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("decode %s/%s: %w", c.name, id, err)
	}
	apply(m)
	m["_id"] = id
	updated, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	d.docs[id] = updated
	return nil
}

func (c *MemoryCollection[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	d := c.store.data(c.name)
	if _, ok := d.docs[id]; !ok {
		return ErrNotFound
	}
	delete(d.docs, id)
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}
