// Package postgres provides a fragments.MetadataStore backed by
// PostgreSQL via pgx.
//
// Expected schema:
//
//	CREATE TABLE fragments (
//	    id       TEXT PRIMARY KEY,
//	    owner_id TEXT NOT NULL,
//	    type     TEXT NOT NULL,
//	    size     BIGINT NOT NULL,
//	    created  TIMESTAMPTZ NOT NULL,
//	    updated  TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX fragments_owner_idx ON fragments (owner_id);
//
// Every query filters on owner_id, so one owner can never observe
// another's rows. The type column is written only on insert: a conflicting
// put updates size and updated but leaves type untouched, enforcing type
// immutability at the storage layer as well.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fragsvc/fragments/pkg/fragments"
)

// DBTX allows using either a connection pool or a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store is the PostgreSQL metadata store.
type Store struct {
	db DBTX
}

var _ fragments.MetadataStore = (*Store)(nil)

// New creates a store over an existing connection or transaction.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// NewWithPool creates a store over a pgx connection pool.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

func (s *Store) wrapError(op, key string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		err = fmt.Errorf("fragments table does not exist, migration required: %w", err)
	}
	return &fragments.StorageError{
		Backend: "postgres",
		Key:     key,
		Op:      op,
		Err:     err,
	}
}

func (s *Store) PutFragment(ctx context.Context, fragment *fragments.Fragment) error {
	query := `
		INSERT INTO fragments (id, owner_id, type, size, created, updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET size = EXCLUDED.size, updated = EXCLUDED.updated
		WHERE fragments.owner_id = EXCLUDED.owner_id`

	_, err := s.db.Exec(ctx, query,
		fragment.ID, fragment.OwnerID, fragment.Type,
		fragment.Size, fragment.Created, fragment.Updated)
	if err != nil {
		return s.wrapError("put", fragment.ID, err)
	}
	return nil
}

func (s *Store) GetFragment(ctx context.Context, ownerID, fragmentID string) (*fragments.Fragment, error) {
	query := `
		SELECT id, owner_id, type, size, created, updated
		FROM fragments
		WHERE owner_id = $1 AND id = $2`

	var fragment fragments.Fragment
	err := s.db.QueryRow(ctx, query, ownerID, fragmentID).Scan(
		&fragment.ID, &fragment.OwnerID, &fragment.Type,
		&fragment.Size, &fragment.Created, &fragment.Updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fragments.ErrNotFound
		}
		return nil, s.wrapError("get", fragmentID, err)
	}
	return &fragment, nil
}

func (s *Store) ListFragments(ctx context.Context, ownerID string) ([]*fragments.Fragment, error) {
	query := `
		SELECT id, owner_id, type, size, created, updated
		FROM fragments
		WHERE owner_id = $1
		ORDER BY created, id`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, s.wrapError("list", ownerID, err)
	}
	defer rows.Close()

	var list []*fragments.Fragment
	for rows.Next() {
		var fragment fragments.Fragment
		if err := rows.Scan(
			&fragment.ID, &fragment.OwnerID, &fragment.Type,
			&fragment.Size, &fragment.Created, &fragment.Updated); err != nil {
			return nil, s.wrapError("list", ownerID, err)
		}
		list = append(list, &fragment)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapError("list", ownerID, err)
	}
	if list == nil {
		list = []*fragments.Fragment{}
	}
	return list, nil
}

func (s *Store) DeleteFragment(ctx context.Context, ownerID, fragmentID string) error {
	query := `DELETE FROM fragments WHERE owner_id = $1 AND id = $2`

	tag, err := s.db.Exec(ctx, query, ownerID, fragmentID)
	if err != nil {
		return s.wrapError("delete", fragmentID, err)
	}
	if tag.RowsAffected() == 0 {
		return fragments.ErrNotFound
	}
	return nil
}
