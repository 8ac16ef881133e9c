package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/observability/metrics"
	"github.com/aryan0dhankhar/companyhub/internal/observability/tracing"
	"github.com/aryan0dhankhar/companyhub/internal/storage"
)

// Batch operations
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpRead   = "read"
	OpDelete = "delete"
)

// BatchEntry is one operation of a batch file
type BatchEntry struct {
	Operation string           `json:"operation"`
	Data      storage.Document `json:"data"`
}

// BatchResult is the outcome of one entry
type BatchResult struct {
	Status string           `json:"status"`
	Data   storage.Document `json:"data,omitempty"`
	Detail string           `json:"detail,omitempty"`
}

// BatchReport holds one result per entry, in file order
type BatchReport struct {
	Results []BatchResult `json:"results"`
}

// BatchService applies create/update/read/delete entries from a JSON file to a
// generic document collection
type BatchService struct {
	docs   storage.Collection
	path   string
	logger *slog.Logger
}

// NewBatchService creates a batch applier over collection in store reading path
func NewBatchService(store storage.Store, collection, path string, logger *slog.Logger) *BatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchService{
		docs:   store.Collection(collection),
		path:   path,
		logger: logger,
	}
}

// ApplyFile reads the configured file and applies every entry in it
func (s *BatchService) ApplyFile(ctx context.Context) (*BatchReport, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: batch file %s", domain.ErrNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var entries []BatchEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid batch file: %v", err))
	}
	return s.Apply(ctx, entries), nil
}

// Apply runs entries in order. A failing entry is reported and processing continues.
func (s *BatchService) Apply(ctx context.Context, entries []BatchEntry) *BatchReport {
	ctx, span := tracing.Start(ctx, "BatchService.Apply")
	defer span.End()

	report := &BatchReport{Results: make([]BatchResult, 0, len(entries))}
	for i, entry := range entries {
		if entry.Operation == "" || len(entry.Data) == 0 {
			report.Results = append(report.Results, BatchResult{Status: "error", Detail: "invalid entry"})
			metrics.ObserveBatchEntry("none", "error")
			continue
		}
		result, err := s.applyOne(ctx, entry.Operation, normalizeID(entry.Data))
		if err != nil {
			s.logger.Warn("batch entry failed",
				slog.Int("index", i),
				slog.String("operation", entry.Operation),
				slog.String("error", err.Error()),
			)
			result = BatchResult{Status: "error", Detail: err.Error()}
		}
		metrics.ObserveBatchEntry(entry.Operation, result.Status)
		report.Results = append(report.Results, result)
	}

	s.logger.Info("batch applied", slog.Int("entries", len(entries)))
	return report
}

func (s *BatchService) applyOne(ctx context.Context, op string, data storage.Document) (BatchResult, error) {
	id := data.ID()
	if op != OpCreate && id == "" && isKnownOp(op) {
		return BatchResult{}, domain.NewValidationError("document id is required")
	}

	switch op {
	case OpCreate:
		if id != "" {
			_, err := s.docs.FindOne(ctx, storage.ByID(id))
			if err == nil {
				return BatchResult{}, domain.NewValidationError("document with this id already exists")
			}
			if !errors.Is(err, storage.ErrNoDocument) {
				return BatchResult{}, storageFailure("find document", err)
			}
		}
		newID, err := s.docs.Insert(ctx, data)
		if errors.Is(err, storage.ErrDuplicate) {
			return BatchResult{}, domain.NewValidationError("document with this id already exists")
		}
		if err != nil {
			return BatchResult{}, storageFailure("insert document", err)
		}
		data[storage.IDField] = newID
		return BatchResult{Status: "created", Data: data}, nil

	case OpUpdate:
		matched, err := s.docs.UpdateOne(ctx, storage.ByID(id), data)
		if err != nil {
			return BatchResult{}, storageFailure("update document", err)
		}
		if matched == 0 {
			return BatchResult{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		return BatchResult{Status: "updated", Data: data}, nil

	case OpRead:
		doc, err := s.docs.FindOne(ctx, storage.ByID(id))
		if errors.Is(err, storage.ErrNoDocument) {
			return BatchResult{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		if err != nil {
			return BatchResult{}, storageFailure("find document", err)
		}
		return BatchResult{Status: "read", Data: doc}, nil

	case OpDelete:
		deleted, err := s.docs.DeleteOne(ctx, storage.ByID(id))
		if err != nil {
			return BatchResult{}, storageFailure("delete document", err)
		}
		if deleted == 0 {
			return BatchResult{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		return BatchResult{Status: "deleted", Data: data}, nil

	default:
		return BatchResult{}, domain.NewValidationError("invalid operation")
	}
}

func isKnownOp(op string) bool {
	switch op {
	case OpCreate, OpUpdate, OpRead, OpDelete:
		return true
	}
	return false
}

// normalizeID accepts "_id" as an alias for the identifier and renders
// non-string identifiers as strings
func normalizeID(data storage.Document) storage.Document {
	out := make(storage.Document, len(data))
	for k, v := range data {
		out[k] = v
	}
	if raw, ok := out["_id"]; ok {
		if _, has := out[storage.IDField]; !has {
			out[storage.IDField] = raw
		}
		delete(out, "_id")
	}
	if raw, ok := out[storage.IDField]; ok && raw != nil {
		if _, isString := raw.(string); !isString {
			out[storage.IDField] = fmt.Sprint(raw)
		}
	}
	return out
}
