// Package memory implements an in-memory order repository used when no
// database is reachable. Its contents are lost on restart.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"scoopflow/pkg/order"
)

// Repository provides an in-memory implementation of order.Repository.
// Orders are kept in insertion order.
type Repository struct {
	mu     sync.RWMutex
	orders []order.Order
	lastID int64
	now    func() time.Time
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{now: time.Now}
}

// Name identifies the backend in health reports.
func (r *Repository) Name() string { return "memory" }

// Ping always succeeds.
func (r *Repository) Ping(ctx context.Context) error { return nil }

// List returns a copy of all orders sorted by date, newest first. Orders
// sharing a date come back newest insertion first.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	r.mu.RLock()
	out := make([]order.Order, 0, len(r.orders))
	for i := len(r.orders) - 1; i >= 0; i-- {
		out = append(out, r.orders[i])
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return order.Order{}, order.ErrNotFound
	}
	return r.orders[i], nil
}

// Create stores the order under a fresh timestamp-derived ID.
func (r *Repository) Create(ctx context.Context, o order.Order) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = r.nextID()
	if o.Date.IsZero() {
		o.Date = r.now()
	}
	r.orders = append(r.orders, o)
	return o, nil
}

// UpdateStatus replaces the status of an existing order.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return order.Order{}, order.ErrNotFound
	}
	r.orders[i].Status = status
	return r.orders[i], nil
}

// Delete removes an order by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return order.ErrNotFound
	}
	r.orders = append(r.orders[:i], r.orders[i+1:]...)
	return nil
}

// indexOf must be called with mu held.
func (r *Repository) indexOf(id string) int {
	for i := range r.orders {
		if r.orders[i].ID == id {
			return i
		}
	}
	return -1
}

// nextID encodes the current time in base 36. IDs never repeat within a
// process because the timestamp is bumped past the last one issued.
// nextID must be called with mu held.
func (r *Repository) nextID() string {
	n := r.now().UnixNano()
	if n <= r.lastID {
		n = r.lastID + 1
	}
	r.lastID = n
	return strconv.FormatInt(n, 36)
}
