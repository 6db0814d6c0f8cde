package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

var _ Store = (*Postgres)(nil)

// Postgres stores documents as jsonb rows in the documents table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed document store. The documents table
// must already exist (see database.Migrate).
func NewPostgres(pool *pgxpool.Pool) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return decode(raw)
}

func (p *Postgres) Set(ctx context.Context, collection, id string, fields Document, opts SetOptions) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var current Document
		if opts.Merge {
			// Make sure a row exists to lock so concurrent merges serialize.
			if _, err := tx.Exec(ctx,
				`INSERT INTO documents (collection, id, data, updated_at)
				 VALUES ($1, $2, '{}'::jsonb, NOW())
				 ON CONFLICT (collection, id) DO NOTHING`,
				collection, id,
			); err != nil {
				return fmt.Errorf("reserve document: %w", err)
			}
			doc, err := lockDocument(ctx, tx, collection, id)
			if err != nil {
				return err
			}
			current = doc
		}
		next, err := ApplySet(current, fields, opts)
		if err != nil {
			return err
		}
		return upsertDocument(ctx, tx, collection, id, next)
	})
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields Document) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		doc, err := lockDocument(ctx, tx, collection, id)
		if err != nil {
			return err
		}
		if err := ApplyUpdate(doc, fields); err != nil {
			return err
		}
		return upsertDocument(ctx, tx, collection, id, doc)
	})
}

func (p *Postgres) List(ctx context.Context, collection string) ([]Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY id ASC`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{ID: id, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := p.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (p *Postgres) Close() error { return nil }

func lockDocument(ctx context.Context, tx pgx.Tx, collection, id string) (Document, error) {
	var raw []byte
	err := tx.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("lock document: %w", err)
	}
	return decode(raw)
}

func upsertDocument(ctx context.Context, tx pgx.Tx, collection, id string, doc Document) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO documents (collection, id, data, updated_at)
		 VALUES ($1, $2, $3::jsonb, NOW())
		 ON CONFLICT (collection, id)
		 DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		collection, id, string(raw),
	); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
