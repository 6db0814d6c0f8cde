package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 50

var _ Store = (*Redis)(nil)

// Redis stores each document as a JSON string under <prefix>:doc:<collection>:<id>
// and tracks IDs per collection in a set for List.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis-backed document store.
func NewRedis(client *redis.Client, prefix string) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if prefix == "" {
		prefix = "kidventure"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) docKey(collection, id string) string {
	return r.prefix + ":doc:" + collection + ":" + id
}

func (r *Redis) indexKey(collection string) string {
	return r.prefix + ":idx:" + collection
}

func (r *Redis) Get(ctx context.Context, collection, id string) (Document, error) {
	raw, err := r.client.Get(ctx, r.docKey(collection, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return decode(raw)
}

func (r *Redis) Set(ctx context.Context, collection, id string, fields Document, opts SetOptions) error {
	if !opts.Merge {
		next, err := ApplySet(nil, fields, opts)
		if err != nil {
			return err
		}
		raw, err := encode(next)
		if err != nil {
			return err
		}
		_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.docKey(collection, id), raw, 0)
			pipe.SAdd(ctx, r.indexKey(collection), id)
			return nil
		})
		if err != nil {
			return fmt.Errorf("set document: %w", err)
		}
		return nil
	}

	return r.transact(ctx, collection, id, func(current Document) (Document, error) {
		return ApplySet(current, fields, opts)
	}, false)
}

func (r *Redis) Update(ctx context.Context, collection, id string, fields Document) error {
	return r.transact(ctx, collection, id, func(current Document) (Document, error) {
		if err := ApplyUpdate(current, fields); err != nil {
			return nil, err
		}
		return current, nil
	}, true)
}

// transact runs an optimistic read-modify-write on a single document.
func (r *Redis) transact(ctx context.Context, collection, id string, fn func(Document) (Document, error), mustExist bool) error {
	key := r.docKey(collection, id)

	txf := func(tx *redis.Tx) error {
		var current Document
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			doc, err := decode(raw)
			if err != nil {
				return err
			}
			current = doc
		case errors.Is(err, redis.Nil):
			if mustExist {
				return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
			}
		default:
			return fmt.Errorf("read document: %w", err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		encoded, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			pipe.SAdd(ctx, r.indexKey(collection), id)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("write %s/%s: too much contention", collection, id)
}

func (r *Redis) List(ctx context.Context, collection string) ([]Snapshot, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(collection, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	out := make([]Snapshot, 0, len(ids))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Index entry without a document; skip it.
			continue
		}
		doc, err := decode([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{ID: ids[i], Data: doc})
	}
	return out, nil
}

func (r *Redis) Delete(ctx context.Context, collection, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.docKey(collection, id))
		pipe.SRem(ctx, r.indexKey(collection), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis) Close() error { return nil }
