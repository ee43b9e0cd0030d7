// Package postgres stores orders as JSONB documents in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"scoopflow/pkg/order"
)

// Schema creates the single orders collection. Each row carries the whole
// order document; created_at mirrors the document date for ordering.
const Schema = `CREATE TABLE IF NOT EXISTS orders (
	id         TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// Open connects to PostgreSQL and verifies the connection within timeout.
func Open(ctx context.Context, dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Repository persists orders in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the orders table if it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}
	return nil
}

// Name identifies the backend in health reports.
func (r *Repository) Name() string { return "postgres" }

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create inserts a new order under a random UUID.
func (r *Repository) Create(ctx context.Context, o order.Order) (order.Order, error) {
	o.ID = uuid.NewString()
	if o.Date.IsZero() {
		o.Date = time.Now()
	}
	doc, err := json.Marshal(o)
	if err != nil {
		return order.Order{}, fmt.Errorf("encode order: %w", err)
	}
	// lib/pq sends []byte as bytea, so the document goes over as text.
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO orders (id, doc, created_at) VALUES ($1, $2, $3)",
		o.ID, string(doc), o.Date,
	); err != nil {
		return order.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx, "SELECT doc FROM orders WHERE id = $1", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, order.ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("select order: %w", err)
	}
	return decode(doc)
}

// List fetches all orders, newest first.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT doc FROM orders ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []order.Order{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o, err := decode(doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus rewrites the status field of the stored document.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) (order.Order, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx,
		"UPDATE orders SET doc = jsonb_set(doc, '{status}', to_jsonb($2::text)) WHERE id = $1 RETURNING doc",
		id, status,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, order.ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return decode(doc)
}

// Delete removes an order by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if n == 0 {
		return order.ErrNotFound
	}
	return nil
}

func decode(doc []byte) (order.Order, error) {
	var o order.Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return order.Order{}, fmt.Errorf("decode order: %w", err)
	}
	return o, nil
}
