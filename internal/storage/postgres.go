package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// gooseUp is a seam for testing migrations without a live database
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// PostgresStore keeps all collections in a single JSONB table
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a store over an open connection pool
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// Migrate applies the embedded schema migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := gooseUp(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	s.logger.Info("database migrations applied")
	return nil
}

// Collection returns a handle on the named collection
func (s *PostgresStore) Collection(name string) Collection {
	return &postgresCollection{store: s, name: name}
}

// Ping checks connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type postgresCollection struct {
	store *PostgresStore
	name  string
}

func (c *postgresCollection) Insert(ctx context.Context, doc Document) (string, error) {
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

	query := `INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3)`
	if _, err := c.store.db.ExecContext(ctx, query, c.name, id, string(body)); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s", ErrDuplicate, c.name)
		}
		c.store.logger.Error("failed to insert document",
			slog.String("collection", c.name),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("failed to insert document: %w", err)
	}
	return id, nil
}

func (c *postgresCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return nil, err
	}
	query := `SELECT body FROM documents WHERE ` + where + ` ORDER BY seq LIMIT 1`

	var raw []byte
	if err := c.store.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDocument
		}
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return decodeBody(raw)
}

func (c *postgresCollection) Find(ctx context.Context, filter Filter) ([]Document, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return nil, err
	}
	query := `SELECT body FROM documents WHERE ` + where + ` ORDER BY seq`

	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := decodeBody(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return out, nil
}

func (c *postgresCollection) UpdateOne(ctx context.Context, filter Filter, set Document) (int64, error) {
	ns, err := normalize(set)
	if err != nil {
		return 0, err
	}
	delete(ns, IDField)
	patch, err := json.Marshal(ns)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal update: %w", err)
	}

	where, args, err := c.where(filter)
	if err != nil {
		return 0, err
	}
	args = append(args, string(patch))
	query := fmt.Sprintf(
		`UPDATE documents SET body = body || $%d::jsonb
		WHERE collection = $1 AND id = (SELECT id FROM documents WHERE %s ORDER BY seq LIMIT 1)`,
		len(args), where,
	)

	res, err := c.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrDuplicate, c.name)
		}
		return 0, fmt.Errorf("failed to update document: %w", err)
	}
	return res.RowsAffected()
}

func (c *postgresCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	where, args, err := c.where(filter)
	if err != nil {
		return 0, err
	}
	query := `DELETE FROM documents
		WHERE collection = $1 AND id = (SELECT id FROM documents WHERE ` + where + ` ORDER BY seq LIMIT 1)`

	res, err := c.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document: %w", err)
	}
	return res.RowsAffected()
}

// where renders the filter as a predicate over documents; $1 is always the collection
func (c *postgresCollection) where(filter Filter) (string, []any, error) {
	clauses := []string{"collection = $1"}
	args := []any{c.name}
	for _, cond := range filter {
		v, err := json.Marshal(cond.Value)
		if err != nil {
			return "", nil, fmt.Errorf("filter on %s: %w", cond.Field, err)
		}
		args = append(args, cond.Field, string(v))
		k, p := len(args)-1, len(args)
		switch cond.Op {
		case OpEq:
			clauses = append(clauses, fmt.Sprintf("body -> $%d::text = $%d::jsonb", k, p))
		case OpNe:
			clauses = append(clauses, fmt.Sprintf("(body -> $%d::text) IS DISTINCT FROM $%d::jsonb", k, p))
		default:
			return "", nil, fmt.Errorf("unknown filter operator %d", cond.Op)
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}

func decodeBody(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation
}
