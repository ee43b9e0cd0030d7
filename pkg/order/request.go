package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValidationError reports which field of a request was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CustomerRequest is the customer part of a create payload.
type CustomerRequest struct {
	Name    string   `json:"name"`
	Address *Address `json:"address"`
}

// CreateRequest is the payload accepted when placing an order. Pointer fields
// distinguish a missing object from an empty one.
type CreateRequest struct {
	Scoop     *Scoop           `json:"scoop"`
	Cone      *Cone            `json:"cone"`
	Sprinkles *Sprinkles       `json:"sprinkles"`
	Customer  *CustomerRequest `json:"customer"`
	// Price may be sent as a JSON number or as a numeric string.
	Price json.RawMessage `json:"price" swaggertype:"number"`
	// Status is accepted and ignored; new orders are always pending.
	Status string `json:"status,omitempty"`
}

// Validate checks that every required field is present and that price is
// numeric. Nested objects are not checked beyond presence.
func (r *CreateRequest) Validate() error {
	switch {
	case r.Scoop == nil:
		return required("scoop")
	case r.Cone == nil:
		return required("cone")
	case r.Sprinkles == nil:
		return required("sprinkles")
	case r.Customer == nil:
		return required("customer")
	case r.Customer.Name == "":
		return required("customer.name")
	case r.Customer.Address == nil:
		return required("customer.address")
	}

	if isAbsent(r.Price) {
		return required("price")
	}
	if _, err := ParsePrice(r.Price); err != nil {
		return &ValidationError{Field: "price", Message: "must be a number"}
	}
	return nil
}

// Order builds the order to persist from a validated request. Status is
// forced to pending and Date to now.
func (r *CreateRequest) Order(now time.Time) (Order, error) {
	if err := r.Validate(); err != nil {
		return Order{}, err
	}
	price, _ := ParsePrice(r.Price)

	return Order{
		Scoop:     *r.Scoop,
		Cone:      *r.Cone,
		Sprinkles: *r.Sprinkles,
		Customer: Customer{
			Name:    r.Customer.Name,
			Address: *r.Customer.Address,
		},
		Price:  price,
		Status: StatusPending,
		Date:   now,
	}, nil
}

// StatusRequest is the payload of a status update.
type StatusRequest struct {
	Status string `json:"status"`
}

// Validate rejects an empty status.
func (r *StatusRequest) Validate() error {
	if r.Status == "" {
		return required("status")
	}
	return nil
}

// ParsePrice decodes a price given either as a JSON number or as a string
// holding a plain decimal number, e.g. 4.5, "4.50" or "1e2". Hexadecimal
// forms and digit separators are rejected.
func ParsePrice(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if isAbsent(raw) {
		return 0, fmt.Errorf("price is missing")
	}

	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("decode price: %w", err)
		}
		text = strings.TrimSpace(text)
	} else {
		text = string(raw)
	}

	if strings.ContainsAny(text, "xX_") {
		return 0, fmt.Errorf("parse price %q: not a decimal number", text)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("price %q is not finite", text)
	}
	return v, nil
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func required(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}
