package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"scoopflow/pkg/events"
	"scoopflow/pkg/order"
	"scoopflow/pkg/otel"
)

const (
	maxBodyBytes   = 1 << 20
	publishTimeout = 2 * time.Second
	pingTimeout    = 2 * time.Second
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports which store is serving requests.
type HealthResponse struct {
	OK       bool   `json:"ok"`
	Store    string `json:"store"`
	Database string `json:"database" enums:"connected,unreachable,disabled"`
	Fallback bool   `json:"fallback"`
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	OK bool `json:"ok"`
}

// health reports database connectivity.
// @Summary Health check
// @Produce json
// @Success 200 {object} api.HealthResponse
// @Router /api/health [get]
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		OK:       true,
		Store:    h.repo.Name(),
		Database: "disabled",
		Fallback: h.fallback,
	}
	if !strings.HasPrefix(resp.Store, "memory") {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		resp.Database = "connected"
		if err := h.repo.Ping(ctx); err != nil {
			h.log.Warn(ctx, "health: database ping failed", "error", err)
			resp.Database = "unreachable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// listOrders lists orders, newest first.
// @Summary List orders
// @Produce json
// @Success 200 {array} order.Order
// @Failure 500 {object} api.ErrorResponse
// @Router /api/orders [get]
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "api.listOrders")
	defer span.End()

	orders, err := h.repo.List(ctx)
	if err != nil {
		h.storeFailed(ctx, w, "list orders", err)
		return
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	writeJSON(w, http.StatusOK, orders)
}

// getOrder retrieves an order by ID.
// @Summary Get order
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} order.Order
// @Failure 404 {object} api.ErrorResponse
// @Failure 500 {object} api.ErrorResponse
// @Router /api/orders/{id} [get]
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, span := otel.AddSpan(r.Context(), "api.getOrder", attribute.String("order.id", id))
	defer span.End()

	o, err := h.repo.Get(ctx, id)
	if err != nil {
		h.storeFailed(ctx, w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// createOrder places a new order. Status is always set to pending and date
// to the time of the request.
// @Summary Create order
// @Accept json
// @Produce json
// @Param order body order.CreateRequest true "Order"
// @Success 201 {object} order.Order
// @Failure 400 {object} api.ErrorResponse
// @Failure 500 {object} api.ErrorResponse
// @Router /api/orders [post]
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "api.createOrder")
	defer span.End()

	var req order.CreateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	o, err := req.Order(h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid field "+err.Error())
		return
	}

	created, err := h.repo.Create(ctx, o)
	if err != nil {
		h.log.Error(ctx, "create order", "error", err)
		h.metrics.StoreFailed(ctx, "create order")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "failed to create order",
			Details: err.Error(),
		})
		return
	}
	span.SetAttributes(attribute.String("order.id", created.ID))

	h.metrics.OrdersCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("store", h.repo.Name())))
	h.metrics.OrderPrice.Record(ctx, created.Price)
	h.publish(ctx, events.New(events.OrderCreated, created))
	h.log.Info(ctx, "order created", "order_id", created.ID, "price", created.Price)

	writeJSON(w, http.StatusCreated, created)
}

// updateOrderStatus changes the status of an order. Every other field is
// left untouched.
// @Summary Update order status
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param status body order.StatusRequest true "New status"
// @Success 200 {object} order.Order
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 500 {object} api.ErrorResponse
// @Router /api/orders/{id}/status [post]
// @Router /api/orders/{id}/status [patch]
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, span := otel.AddSpan(r.Context(), "api.updateOrderStatus", attribute.String("order.id", id))
	defer span.End()

	var req order.StatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	o, err := h.repo.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		h.storeFailed(ctx, w, "update order status", err)
		return
	}

	h.metrics.StatusUpdates.Add(ctx, 1, metric.WithAttributes(attribute.String("status", o.Status)))
	h.publish(ctx, events.New(events.OrderStatusUpdated, o))
	h.log.Info(ctx, "order status updated", "order_id", o.ID, "status", o.Status)

	writeJSON(w, http.StatusOK, o)
}

// deleteOrder removes an order.
// @Summary Delete order
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} api.DeleteResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 500 {object} api.ErrorResponse
// @Router /api/orders/{id} [delete]
func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, span := otel.AddSpan(r.Context(), "api.deleteOrder", attribute.String("order.id", id))
	defer span.End()

	if err := h.repo.Delete(ctx, id); err != nil {
		h.storeFailed(ctx, w, "delete order", err)
		return
	}

	h.metrics.OrdersDeleted.Add(ctx, 1)
	h.publish(ctx, events.Deleted(id))
	h.log.Info(ctx, "order deleted", "order_id", id)

	writeJSON(w, http.StatusOK, DeleteResponse{OK: true})
}

// storeFailed maps a repository error to 404 or 500.
func (h *Handler) storeFailed(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if errors.Is(err, order.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	h.log.Error(ctx, op, "error", err)
	h.metrics.StoreFailed(ctx, op)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// publish sends e without letting a broker problem fail the request.
func (h *Handler) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := h.events.Publish(ctx, e); err != nil {
		h.log.Warn(ctx, "publish event failed", "type", e.Type, "order_id", e.OrderID, "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
