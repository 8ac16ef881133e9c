package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisinfra "github.com/aryan0dhankhar/companyhub/internal/infrastructure/redis"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRedis is an in-memory RedisClient
type fakeRedis struct {
	mu      sync.Mutex
	strings map[string]string
	lists   map[string][]string
	failing bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{strings: map[string]string{}, lists: map[string][]string{}}
}

var errRedisDown = errors.New("connection refused")

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return "", errRedisDown
	}
	v, ok := f.strings[key]
	if !ok {
		return "", redisinfra.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeRedis) CompareAndSwap(_ context.Context, key, old, next string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return false, errRedisDown
	}
	if v, ok := f.strings[key]; !ok || v != old {
		return false, nil
	}
	f.strings[key] = next
	return true, nil
}

func (f *fakeRedis) CompareAndDelete(_ context.Context, key, old string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return false, errRedisDown
	}
	if v, ok := f.strings[key]; !ok || v != old {
		return false, nil
	}
	delete(f.strings, key)
	return true, nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return false, errRedisDown
	}
	if _, ok := f.strings[key]; ok {
		return false, nil
	}
	f.strings[key] = value
	return true, nil
}

func (f *fakeRedis) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errRedisDown
	}
	for _, k := range keys {
		delete(f.strings, k)
		delete(f.lists, k)
	}
	return nil
}

func (f *fakeRedis) RPush(_ context.Context, key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errRedisDown
	}
	f.lists[key] = append(f.lists[key], value)
	return nil
}

func (f *fakeRedis) LRange(_ context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errRedisDown
	}
	return append([]string(nil), f.lists[key]...), nil
}

func (f *fakeRedis) LRem(_ context.Context, key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errRedisDown
	}
	kept := f.lists[key][:0]
	for _, v := range f.lists[key] {
		if v != value {
			kept = append(kept, v)
		}
	}
	f.lists[key] = kept
	return nil
}

func (f *fakeRedis) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errRedisDown
	}
	return nil
}

func (f *fakeRedis) Close() error { return nil }

func (f *fakeRedis) keysWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.strings {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func backends() map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore(DefaultIndexes) },
		"redis": func() Store {
			return NewRedisStore(newFakeRedis(), DefaultIndexes, discardLogger())
		},
	}
}

func TestStore_InsertAndFind(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll := newStore().Collection("companies")

			id, err := coll.Insert(ctx, Document{"name": "Acme", "status": "active", "count": 3})
			require.NoError(t, err)
			require.NotEmpty(t, id)

			doc, err := coll.FindOne(ctx, ByID(id))
			require.NoError(t, err)
			assert.Equal(t, id, doc.ID())
			assert.Equal(t, "Acme", doc["name"])
			assert.Equal(t, float64(3), doc["count"])

			_, err = coll.FindOne(ctx, Where(Eq("name", "Nope")))
			assert.ErrorIs(t, err, ErrNoDocument)
		})
	}
}

func TestStore_InsertKeepsCallerID(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll := newStore().Collection("documents")

			id, err := coll.Insert(ctx, Document{"id": "entry-1", "value": true})
			require.NoError(t, err)
			assert.Equal(t, "entry-1", id)

			_, err = coll.Insert(ctx, Document{"id": "entry-1", "value": false})
			assert.ErrorIs(t, err, ErrDuplicate)
		})
	}
}

func TestStore_FindPreservesInsertionOrder(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll := newStore().Collection("companies")

			for _, n := range []string{"a", "b", "c", "d"} {
				status := "active"
				if n == "c" {
					status = "inactive"
				}
				_, err := coll.Insert(ctx, Document{"name": n, "status": status})
				require.NoError(t, err)
			}

			docs, err := coll.Find(ctx, Where(Eq("status", "active")))
			require.NoError(t, err)
			var names []string
			for _, d := range docs {
				names = append(names, d["name"].(string))
			}
			assert.Equal(t, []string{"a", "b", "d"}, names)

			all, err := coll.Find(ctx, nil)
			require.NoError(t, err)
			assert.Len(t, all, 4)
		})
	}
}

func TestStore_NeFilter(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll := newStore().Collection("users")

			first, err := coll.Insert(ctx, Document{"email": "a@x.io"})
			require.NoError(t, err)
			_, err = coll.Insert(ctx, Document{"email": "b@x.io"})
			require.NoError(t, err)

			_, err = coll.FindOne(ctx, Where(Eq("email", "a@x.io"), Ne(IDField, first)))
			assert.ErrorIs(t, err, ErrNoDocument)

			doc, err := coll.FindOne(ctx, Where(Ne(IDField, first)))
			require.NoError(t, err)
			assert.Equal(t, "b@x.io", doc["email"])
		})
	}
}

func TestStore_UpdateOne(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll := newStore().Collection("companies")

			id, err := coll.Insert(ctx, Document{"name": "Acme", "code": "AC"})
			require.NoError(t, err)

			n, err := coll.UpdateOne(ctx, ByID(id), Document{"name": "Acme Corp", "id": "hijack"})
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			doc, err := coll.FindOne(ctx, ByID(id))
			require.NoError(t, err)
			assert.Equal(t, "Acme Corp", doc["name"])
			assert.Equal(t, "AC", doc["code"])

			n, err = coll.UpdateOne(ctx, ByID("missing"), Document{"name": "x"})
			require.NoError(t, err)
			assert.Equal(t, int64(0), n)
		})
	}
}

func TestStore_DeleteOne(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll := newStore().Collection("companies")

			id, err := coll.Insert(ctx, Document{"name": "Acme"})
			require.NoError(t, err)

			n, err := coll.DeleteOne(ctx, ByID(id))
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			n, err = coll.DeleteOne(ctx, ByID(id))
			require.NoError(t, err)
			assert.Equal(t, int64(0), n)

			_, err = coll.FindOne(ctx, ByID(id))
			assert.ErrorIs(t, err, ErrNoDocument)
		})
	}
}

func TestStore_UniqueEmail(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()
			users := store.Collection("users")

			first, err := users.Insert(ctx, Document{"email": "a@x.io"})
			require.NoError(t, err)
			second, err := users.Insert(ctx, Document{"email": "b@x.io"})
			require.NoError(t, err)

			_, err = users.Insert(ctx, Document{"email": "a@x.io"})
			assert.ErrorIs(t, err, ErrDuplicate)

			_, err = users.UpdateOne(ctx, ByID(second), Document{"email": "a@x.io"})
			assert.ErrorIs(t, err, ErrDuplicate)

			// rewriting a document with its own email is not a conflict
			n, err := users.UpdateOne(ctx, ByID(first), Document{"email": "a@x.io", "phone": "1"})
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			// a released email can be claimed again
			_, err = users.UpdateOne(ctx, ByID(first), Document{"email": "c@x.io"})
			require.NoError(t, err)
			_, err = users.UpdateOne(ctx, ByID(second), Document{"email": "a@x.io"})
			require.NoError(t, err)

			// other collections are not constrained
			companies := store.Collection("companies")
			_, err = companies.Insert(ctx, Document{"email": "c@x.io"})
			require.NoError(t, err)
			_, err = companies.Insert(ctx, Document{"email": "c@x.io"})
			require.NoError(t, err)
		})
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	for name, newStore := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			coll := newStore().Collection("companies")

			id, err := coll.Insert(ctx, Document{"name": "Acme"})
			require.NoError(t, err)

			doc, err := coll.FindOne(ctx, ByID(id))
			require.NoError(t, err)
			doc["name"] = "mutated"

			again, err := coll.FindOne(ctx, ByID(id))
			require.NoError(t, err)
			assert.Equal(t, "Acme", again["name"])
		})
	}
}

func TestRedisStore_DeleteReleasesKeys(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	users := NewRedisStore(client, DefaultIndexes, discardLogger()).Collection("users")

	id, err := users.Insert(ctx, Document{"email": "a@x.io"})
	require.NoError(t, err)
	assert.Equal(t, []string{"users:doc:" + id, "users:unique:email:a@x.io"}, client.keysWithPrefix("users:"))

	_, err = users.DeleteOne(ctx, ByID(id))
	require.NoError(t, err)
	assert.Empty(t, client.keysWithPrefix("users:"))
}

func TestRedisStore_FailedInsertRollsBack(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	users := NewRedisStore(client, DefaultIndexes, discardLogger()).Collection("users")

	_, err := users.Insert(ctx, Document{"email": "a@x.io"})
	require.NoError(t, err)
	_, err = users.Insert(ctx, Document{"id": "dup", "email": "a@x.io"})
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = client.Get(ctx, "users:doc:dup")
	assert.ErrorIs(t, err, redisinfra.ErrKeyNotFound)
}

func TestEncodeDecode(t *testing.T) {
	type record struct {
		Name  string    `json:"name"`
		At    time.Time `json:"at"`
		Extra *string   `json:"extra"`
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	doc, err := Encode(record{Name: "x", At: at})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T12:00:00Z", doc["at"])
	assert.Contains(t, doc, "extra")

	var out record
	require.NoError(t, Decode(doc, &out))
	assert.True(t, at.Equal(out.At))
	assert.Nil(t, out.Extra)
}
