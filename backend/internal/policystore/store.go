// Package policystore implements the durable policy store: CRUD over a
// "policies" table and the load_all operation that turns every stored
// document into one cedar.PolicySet.
package policystore

import (
	"context"
	"database/sql"
	"time"

	"github.com/cedar-policy/cedar-go"
	"github.com/google/uuid"
	"github.com/hodei-project/hodei-authz/backend/internal/authzerr"
	_ "github.com/lib/pq"
)

// Document is one stored policy row.
type Document struct {
	ID        string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the durable policy CRUD contract. PostgresStore is the durable
// implementation; MemStore is the in-memory one used by tests and dev mode.
type Store interface {
	Create(ctx context.Context, content string) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
	List(ctx context.Context) ([]Document, error)
	Update(ctx context.Context, id, content string) (Document, error)
	Delete(ctx context.Context, id string) error
	LoadAll(ctx context.Context) (*cedar.PolicySet, error)
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS policies (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ
)`

// PostgresStore is a policystore.Store backed by database/sql + lib/pq.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to dsn and returns a PostgresStore. It does not run the
// migration; call Init for that.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &authzerr.Database{Op: "open", Err: err}
	}
	return &PostgresStore{db: db}, nil
}

// Init runs the idempotent schema migration. A fresh database reaches the
// current schema by running this once; it is always safe to call again.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return &authzerr.Database{Op: "migrate", Err: err}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Create inserts a new policy document with a generated id.
func (s *PostgresStore) Create(ctx context.Context, content string) (Document, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO policies (id, content, created_at, updated_at) VALUES ($1, $2, $3, $3)`,
		id, content, now)
	if err != nil {
		return Document{}, &authzerr.Database{Op: "create", Err: err}
	}
	return Document{ID: id, Content: content, CreatedAt: now, UpdatedAt: now}, nil
}

// Get fetches one policy document by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Document, error) {
	var d Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, content, created_at, updated_at FROM policies WHERE id = $1`, id,
	).Scan(&d.ID, &d.Content, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return Document{}, &authzerr.NotFound{ID: id}
	}
	if err != nil {
		return Document{}, &authzerr.Database{Op: "get", Err: err}
	}
	return d, nil
}

// List returns every stored policy document in creation order.
func (s *PostgresStore) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, created_at, updated_at FROM policies ORDER BY created_at, id`)
	if err != nil {
		return nil, &authzerr.Database{Op: "list", Err: err}
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Content, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, &authzerr.Database{Op: "list", Err: err}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Update replaces the content of an existing policy document.
func (s *PostgresStore) Update(ctx context.Context, id, content string) (Document, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE policies SET content = $1, updated_at = $2 WHERE id = $3`, content, now, id)
	if err != nil {
		return Document{}, &authzerr.Database{Op: "update", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Document{}, &authzerr.NotFound{ID: id}
	}
	return s.Get(ctx, id)
}

// Delete removes a policy document by id.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM policies WHERE id = $1`, id)
	if err != nil {
		return &authzerr.Database{Op: "delete", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &authzerr.NotFound{ID: id}
	}
	return nil
}

// LoadAll reads every stored document and parses it into one policy set.
// A single unparseable row aborts the whole load — callers never receive
// a partially-populated set.
func (s *PostgresStore) LoadAll(ctx context.Context) (*cedar.PolicySet, error) {
	docs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	ps := cedar.NewPolicySet()
	for _, d := range docs {
		var p cedar.Policy
		if err := p.UnmarshalCedar([]byte(d.Content)); err != nil {
			return nil, &authzerr.ParseError{ID: d.ID, Err: err}
		}
		ps.Add(cedar.PolicyID(d.ID), &p)
	}
	return ps, nil
}

var _ Store = (*PostgresStore)(nil)
