// Package cache wraps an order repository with a Redis read-through cache
// for single-order lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"scoopflow/pkg/logger"
	"scoopflow/pkg/order"
)

const (
	keyPrefix = "order:"
	// tombstone marks a deleted order so a slower read cannot put it back.
	tombstone = "deleted"
)

// Repository caches Get results in Redis. Redis failures are logged and the
// wrapped repository answers instead.
//
// Writes overwrite the key unconditionally while a Get miss only fills an
// absent key, so a fill racing a write or a delete never wins.
type Repository struct {
	next order.Repository
	rdb  *redis.Client
	ttl  time.Duration
	log  *logger.Logger
}

// New wraps next with a cache stored in rdb.
func New(next order.Repository, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *Repository {
	return &Repository{next: next, rdb: rdb, ttl: ttl, log: log}
}

// Name reports the wrapped backend with the cache suffix.
func (r *Repository) Name() string { return r.next.Name() + "+redis" }

// Ping checks the wrapped repository only; the cache is optional.
func (r *Repository) Ping(ctx context.Context) error { return r.next.Ping(ctx) }

// List is not cached.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	return r.next.List(ctx)
}

// Create persists o and caches the stored order.
func (r *Repository) Create(ctx context.Context, o order.Order) (order.Order, error) {
	created, err := r.next.Create(ctx, o)
	if err != nil {
		return order.Order{}, err
	}
	r.set(ctx, created)
	return created, nil
}

// Get serves from Redis when possible and fills the cache on a miss.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	data, err := r.rdb.Get(ctx, keyPrefix+id).Bytes()
	switch {
	case err == nil:
		if string(data) == tombstone {
			return order.Order{}, order.ErrNotFound
		}
		var o order.Order
		if err := json.Unmarshal(data, &o); err == nil {
			return o, nil
		}
		r.log.Warn(ctx, "cache: dropping undecodable entry", "order_id", id)
		r.evict(ctx, id)
	case !errors.Is(err, redis.Nil):
		r.log.Warn(ctx, "cache: get failed", "order_id", id, "error", err)
	}

	o, err := r.next.Get(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	r.fill(ctx, o)
	return o, nil
}

// UpdateStatus updates the wrapped repository and caches the new version.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) (order.Order, error) {
	o, err := r.next.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			r.bury(ctx, id)
		}
		return order.Order{}, err
	}
	r.set(ctx, o)
	return o, nil
}

// Delete removes the order and leaves a tombstone in its place.
func (r *Repository) Delete(ctx context.Context, id string) error {
	err := r.next.Delete(ctx, id)
	if err == nil || errors.Is(err, order.ErrNotFound) {
		r.bury(ctx, id)
	}
	return err
}

func (r *Repository) set(ctx context.Context, o order.Order) {
	data, err := json.Marshal(o)
	if err != nil {
		r.log.Warn(ctx, "cache: encode failed", "order_id", o.ID, "error", err)
		return
	}
	if err := r.rdb.Set(ctx, keyPrefix+o.ID, data, r.ttl).Err(); err != nil {
		r.log.Warn(ctx, "cache: set failed", "order_id", o.ID, "error", err)
	}
}

// fill caches o only if nothing was written for it since the miss.
func (r *Repository) fill(ctx context.Context, o order.Order) {
	data, err := json.Marshal(o)
	if err != nil {
		r.log.Warn(ctx, "cache: encode failed", "order_id", o.ID, "error", err)
		return
	}
	if err := r.rdb.SetNX(ctx, keyPrefix+o.ID, data, r.ttl).Err(); err != nil {
		r.log.Warn(ctx, "cache: fill failed", "order_id", o.ID, "error", err)
	}
}

func (r *Repository) bury(ctx context.Context, id string) {
	if err := r.rdb.Set(ctx, keyPrefix+id, tombstone, r.ttl).Err(); err != nil {
		r.log.Warn(ctx, "cache: tombstone failed", "order_id", id, "error", err)
	}
}

func (r *Repository) evict(ctx context.Context, id string) {
	if err := r.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		r.log.Warn(ctx, "cache: delete failed", "order_id", id, "error", err)
	}
}
