package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/google/uuid"

	redisinfra "github.com/aryan0dhankhar/companyhub/internal/infrastructure/redis"
)

// RedisClient is the subset of the Redis wrapper the store relies on
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value string) (bool, error)
	CompareAndSwap(ctx context.Context, key, old, next string) (bool, error)
	CompareAndDelete(ctx context.Context, key, old string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	RPush(ctx context.Context, key string, value string) error
	LRange(ctx context.Context, key string) ([]string, error)
	LRem(ctx context.Context, key string, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// maxWriteAttempts bounds the retries of an update or delete that keeps losing
// the compare-and-swap to concurrent writers
const maxWriteAttempts = 16

// RedisStore keeps each document as a JSON string under <collection>:doc:<id>.
// Insertion order lives in the <collection>:ids list and unique fields are
// reserved with SETNX on <collection>:unique:<field>:<value>. Updates and
// deletes only land if the stored JSON is unchanged since it was read.
type RedisStore struct {
	client  RedisClient
	indexes Indexes
	logger  *slog.Logger
}

// NewRedisStore creates a store over an established client
func NewRedisStore(client RedisClient, indexes Indexes, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, indexes: indexes, logger: logger}
}

// Collection returns a handle on the named collection
func (s *RedisStore) Collection(name string) Collection {
	return &redisCollection{store: s, name: name}
}

// Ping checks connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisCollection struct {
	store *RedisStore
	name  string
}

func (c *redisCollection) docKey(id string) string { return c.name + ":doc:" + id }
func (c *redisCollection) idsKey() string         { return c.name + ":ids" }
func (c *redisCollection) uniqueKey(field string, v any) string {
	return fmt.Sprintf("%s:unique:%s:%v", c.name, field, v)
}

func (c *redisCollection) Insert(ctx context.Context, doc Document) (string, error) {
	n, err := normalize(doc)
	if err != nil {
		return "", err
	}
	id := n.ID()
	if id == "" {
		id = uuid.NewString()
		n[IDField] = id
	}
	body, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	ok, err := c.store.client.SetNX(ctx, c.docKey(id), string(body))
	if err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s already exists", ErrDuplicate, id)
	}

	reserved, err := c.reserveUnique(ctx, n, id, nil)
	if err != nil {
		c.release(ctx, append(reserved, c.docKey(id))...)
		return "", err
	}

	if err := c.store.client.RPush(ctx, c.idsKey(), id); err != nil {
		c.release(ctx, append(reserved, c.docKey(id))...)
		return "", fmt.Errorf("failed to index document: %w", err)
	}
	return id, nil
}

func (c *redisCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	doc, _, err := c.first(ctx, filter)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNoDocument
	}
	return doc, nil
}

func (c *redisCollection) Find(ctx context.Context, filter Filter) ([]Document, error) {
	out := []Document{}
	err := c.scan(ctx, func(doc Document, _ string) (bool, error) {
		ok, err := filter.Match(doc)
		if err != nil {
			return false, err
		}
		if ok {
			out = append(out, doc)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *redisCollection) UpdateOne(ctx context.Context, filter Filter, set Document) (int64, error) {
	ns, err := normalize(set)
	if err != nil {
		return 0, err
	}
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		current, raw, err := c.first(ctx, filter)
		if err != nil {
			return 0, err
		}
		if current == nil {
			return 0, nil
		}
		id := current.ID()
		merged := merge(current, ns)

		reserved, err := c.reserveUnique(ctx, merged, id, current)
		if err != nil {
			c.release(ctx, reserved...)
			return 0, err
		}

		body, err := json.Marshal(merged)
		if err != nil {
			c.release(ctx, reserved...)
			return 0, fmt.Errorf("failed to marshal document: %w", err)
		}
		swapped, err := c.store.client.CompareAndSwap(ctx, c.docKey(id), raw, string(body))
		if err != nil {
			c.release(ctx, reserved...)
			return 0, fmt.Errorf("failed to store document: %w", err)
		}
		if !swapped {
			c.release(ctx, reserved...)
			continue
		}

		// release reservations for unique values the update replaced
		var stale []string
		for _, field := range c.store.indexes[c.name] {
			old, ok := current[field]
			if !ok || old == nil || reflect.DeepEqual(old, merged[field]) {
				continue
			}
			stale = append(stale, c.uniqueKey(field, old))
		}
		c.release(ctx, stale...)
		return 1, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrWriteConflict, c.name)
}

func (c *redisCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		current, raw, err := c.first(ctx, filter)
		if err != nil {
			return 0, err
		}
		if current == nil {
			return 0, nil
		}
		id := current.ID()
		deleted, err := c.store.client.CompareAndDelete(ctx, c.docKey(id), raw)
		if err != nil {
			return 0, fmt.Errorf("failed to delete document: %w", err)
		}
		if !deleted {
			continue
		}

		var keys []string
		for _, field := range c.store.indexes[c.name] {
			if v, ok := current[field]; ok && v != nil {
				keys = append(keys, c.uniqueKey(field, v))
			}
		}
		c.release(ctx, keys...)
		if err := c.store.client.LRem(ctx, c.idsKey(), id); err != nil {
			return 0, fmt.Errorf("failed to unindex document: %w", err)
		}
		return 1, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrWriteConflict, c.name)
}

// reserveUnique claims the unique values of doc for id. Values already held by
// previous (the document's pre-update state) are skipped. It returns the keys
// it claimed so callers can release them on failure.
func (c *redisCollection) reserveUnique(ctx context.Context, doc Document, id string, previous Document) ([]string, error) {
	var claimed []string
	for _, field := range c.store.indexes[c.name] {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		if previous != nil && reflect.DeepEqual(previous[field], v) {
			continue
		}
		key := c.uniqueKey(field, v)
		ok, err := c.store.client.SetNX(ctx, key, id)
		if err != nil {
			return claimed, fmt.Errorf("failed to reserve %s: %w", field, err)
		}
		if !ok {
			owner, err := c.store.client.Get(ctx, key)
			if err == nil && owner == id {
				continue
			}
			return claimed, fmt.Errorf("%w: %s.%s", ErrDuplicate, c.name, field)
		}
		claimed = append(claimed, key)
	}
	return claimed, nil
}

func (c *redisCollection) release(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.store.client.Delete(ctx, keys...); err != nil {
		c.store.logger.Warn("failed to release redis keys",
			slog.String("collection", c.name),
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
}

// first returns the first matching document together with its stored JSON
func (c *redisCollection) first(ctx context.Context, filter Filter) (Document, string, error) {
	var (
		found Document
		body  string
	)
	err := c.scan(ctx, func(doc Document, raw string) (bool, error) {
		ok, err := filter.Match(doc)
		if err != nil {
			return false, err
		}
		if ok {
			found, body = doc, raw
			return false, nil
		}
		return true, nil
	})
	return found, body, err
}

// scan walks documents in insertion order until fn returns false
func (c *redisCollection) scan(ctx context.Context, fn func(doc Document, raw string) (bool, error)) error {
	ids, err := c.store.client.LRange(ctx, c.idsKey())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	for _, id := range ids {
		raw, err := c.store.client.Get(ctx, c.docKey(id))
		if errors.Is(err, redisinfra.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load document %s: %w", id, err)
		}
		var doc Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return fmt.Errorf("failed to decode document %s: %w", id, err)
		}
		more, err := fn(doc, raw)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}
