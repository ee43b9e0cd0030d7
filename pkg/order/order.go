package order

import (
	"context"
	"errors"
	"time"
)

// StatusPending is the status every order starts with.
const StatusPending = "pending"

// Scoop describes the ice cream itself.
type Scoop struct {
	Flavor string `json:"flavor"`
	Color  string `json:"color"`
}

// Cone describes what the scoop sits on.
type Cone struct {
	Style string `json:"style"`
	Color string `json:"color"`
}

// Sprinkles holds the topping level: none, light, normal or heavy.
// The level is free text and not checked against that list.
type Sprinkles struct {
	Level string `json:"level"`
}

// Address is where an order is delivered.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
}

// Customer identifies who placed the order.
type Customer struct {
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

// Order represents a customer's ice-cream purchase.
// Only Status changes after creation.
type Order struct {
	ID        string    `json:"id"`
	Scoop     Scoop     `json:"scoop"`
	Cone      Cone      `json:"cone"`
	Sprinkles Sprinkles `json:"sprinkles"`
	Customer  Customer  `json:"customer"`
	Price     float64   `json:"price"`
	Status    string    `json:"status"`
	Date      time.Time `json:"date"`
}

// Repository defines behavior for persisting orders.
type Repository interface {
	// List returns every order, newest first.
	List(ctx context.Context) ([]Order, error)
	Get(ctx context.Context, id string) (Order, error)
	// Create assigns the order an ID, stores it and returns the stored copy.
	Create(ctx context.Context, o Order) (Order, error)
	UpdateStatus(ctx context.Context, id, status string) (Order, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Name() string
}

// ErrNotFound indicates the requested order does not exist.
var ErrNotFound = errors.New("order not found")
