// Package storage defines the document-collection capability the directories
// persist through, and its memory, PostgreSQL and Redis backends.
//
// Every backend passes documents through JSON encoding, so a value read back
// has the same shape regardless of where it was stored: numbers are float64,
// timestamps are RFC 3339 strings, nested objects are map[string]any.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// IDField is the attribute holding a document's identifier
const IDField = "id"

var (
	// ErrNoDocument is returned by FindOne when nothing matches the filter
	ErrNoDocument = errors.New("no document matches filter")

	// ErrDuplicate is returned when a write would violate identifier or unique-field uniqueness
	ErrDuplicate = errors.New("duplicate key")

	// ErrWriteConflict is returned when a document kept changing under an update or delete
	ErrWriteConflict = errors.New("document modified concurrently")

	// ErrUnavailable is returned by a guarded store while its circuit is open
	ErrUnavailable = errors.New("storage temporarily unavailable (circuit breaker open)")
)

// Document is a single stored record
type Document map[string]any

// ID returns the document identifier, or "" when it has none
func (d Document) ID() string {
	if id, ok := d[IDField].(string); ok {
		return id
	}
	return ""
}

// Collection is a named set of documents
type Collection interface {
	// Insert stores doc and returns its identifier. A non-empty "id" in doc is
	// kept; otherwise the backend generates one.
	Insert(ctx context.Context, doc Document) (string, error)
	FindOne(ctx context.Context, filter Filter) (Document, error)
	// Find returns all matches in backend-native order
	Find(ctx context.Context, filter Filter) ([]Document, error)
	// UpdateOne merges set into the first match and returns the matched count (0 or 1).
	// The identifier is never changed.
	UpdateOne(ctx context.Context, filter Filter, set Document) (int64, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
}

// Store hands out collections over a single shared connection
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close() error
}

// Indexes declares unique fields per collection
type Indexes map[string][]string

// DefaultIndexes enforces user email uniqueness. The PostgreSQL backend
// declares the same constraint in its migrations.
var DefaultIndexes = Indexes{
	"users": {"email"},
}

// Op is a filter comparison operator
type Op int

const (
	OpEq Op = iota
	OpNe
)

// Condition compares one attribute against a value
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions; an empty filter matches everything
type Filter []Condition

// Eq matches documents whose field equals value
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// Ne matches documents whose field differs from value
func Ne(field string, value any) Condition {
	return Condition{Field: field, Op: OpNe, Value: value}
}

// Where builds a filter from conditions
func Where(conds ...Condition) Filter {
	return Filter(conds)
}

// ByID matches the document with the given identifier
func ByID(id string) Filter {
	return Where(Eq(IDField, id))
}

// Match reports whether a normalized document satisfies every condition
func (f Filter) Match(doc Document) (bool, error) {
	for _, c := range f {
		want, err := normalizeValue(c.Value)
		if err != nil {
			return false, fmt.Errorf("filter on %s: %w", c.Field, err)
		}
		equal := reflect.DeepEqual(doc[c.Field], want)
		switch c.Op {
		case OpEq:
			if !equal {
				return false, nil
			}
		case OpNe:
			if equal {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unknown filter operator %d", c.Op)
		}
	}
	return true, nil
}

// Encode converts a JSON-tagged value into a document
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc, nil
}

// Decode fills a JSON-tagged value from a document
func Decode(doc Document, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// normalize returns a deep copy of doc in its JSON-decoded form
func normalize(doc Document) (Document, error) {
	if doc == nil {
		return Document{}, nil
	}
	return Encode(doc)
}

func normalizeValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// merge overlays set onto base, leaving the identifier untouched
func merge(base, set Document) Document {
	out := make(Document, len(base)+len(set))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range set {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}
