package storage

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process memory, in insertion order.
// It backs tests and single-instance development runs.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
	indexes     Indexes
}

// NewMemoryStore creates an empty store enforcing the given unique indexes
func NewMemoryStore(indexes Indexes) *MemoryStore {
	return &MemoryStore{
		collections: map[string][]Document{},
		indexes:     indexes,
	}
}

// Collection returns a handle on the named collection
func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: s, name: name}
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

type memoryCollection struct {
	store *MemoryStore
	name  string
}

func (c *memoryCollection) Insert(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n, err := normalize(doc)
	if err != nil {
		return "", err
	}
	id := n.ID()
	if id == "" {
		id = uuid.NewString()
		n[IDField] = id
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs := c.store.collections[c.name]
	for _, existing := range docs {
		if existing.ID() == id {
			return "", fmt.Errorf("%w: %s already exists", ErrDuplicate, id)
		}
	}
	if err := c.checkUnique(docs, n, ""); err != nil {
		return "", err
	}
	c.store.collections[c.name] = append(docs, n)
	return id, nil
}

func (c *memoryCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	idx, err := c.first(filter)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, ErrNoDocument
	}
	return normalize(c.store.collections[c.name][idx])
}

func (c *memoryCollection) Find(ctx context.Context, filter Filter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	out := []Document{}
	for _, doc := range c.store.collections[c.name] {
		ok, err := filter.Match(doc)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		cp, err := normalize(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (c *memoryCollection) UpdateOne(ctx context.Context, filter Filter, set Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ns, err := normalize(set)
	if err != nil {
		return 0, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	idx, err := c.first(filter)
	if err != nil {
		return 0, err
	}
	if idx < 0 {
		return 0, nil
	}
	docs := c.store.collections[c.name]
	merged := merge(docs[idx], ns)
	if err := c.checkUnique(docs, merged, merged.ID()); err != nil {
		return 0, err
	}
	docs[idx] = merged
	return 1, nil
}

func (c *memoryCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	idx, err := c.first(filter)
	if err != nil {
		return 0, err
	}
	if idx < 0 {
		return 0, nil
	}
	docs := c.store.collections[c.name]
	c.store.collections[c.name] = append(docs[:idx:idx], docs[idx+1:]...)
	return 1, nil
}

// first returns the index of the first match or -1; callers hold the lock
func (c *memoryCollection) first(filter Filter) (int, error) {
	for i, doc := range c.store.collections[c.name] {
		ok, err := filter.Match(doc)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

// checkUnique rejects doc when a unique field collides with another document; callers hold the lock
func (c *memoryCollection) checkUnique(docs []Document, doc Document, selfID string) error {
	for _, field := range c.store.indexes[c.name] {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		for _, existing := range docs {
			if selfID != "" && existing.ID() == selfID {
				continue
			}
			if reflect.DeepEqual(existing[field], v) {
				return fmt.Errorf("%w: %s.%s", ErrDuplicate, c.name, field)
			}
		}
	}
	return nil
}
