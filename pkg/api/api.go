// Package api exposes the order HTTP endpoints.
package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"scoopflow/pkg/events"
	"scoopflow/pkg/logger"
	"scoopflow/pkg/order"
	"scoopflow/pkg/otel"
)

// Config holds the collaborators of the HTTP layer.
type Config struct {
	Repo    order.Repository
	Events  events.Publisher
	Metrics *otel.Metrics
	Log     *logger.Logger
	Tracer  trace.Tracer
	// Fallback marks that Repo is the memory store standing in for an
	// unreachable database.
	Fallback    bool
	CORSOrigins []string
}

// Handler serves the order API.
type Handler struct {
	repo        order.Repository
	events      events.Publisher
	metrics     *otel.Metrics
	log         *logger.Logger
	tracer      trace.Tracer
	fallback    bool
	corsOrigins []string
	now         func() time.Time
}

// New builds a Handler. Events, Metrics and Log are optional.
func New(cfg Config) *Handler {
	h := &Handler{
		repo:        cfg.Repo,
		events:      cfg.Events,
		metrics:     cfg.Metrics,
		log:         cfg.Log,
		tracer:      cfg.Tracer,
		fallback:    cfg.Fallback,
		corsOrigins: cfg.CORSOrigins,
		now:         time.Now,
	}
	if h.events == nil {
		h.events = events.Nop{}
	}
	if h.metrics == nil {
		// Instrument creation on a noop meter cannot fail.
		h.metrics, _ = otel.NewMetrics(noop.NewMeterProvider().Meter("scoopflow"))
	}
	if h.log == nil {
		h.log = logger.New(io.Discard, logger.LevelError, "scoopflow", nil)
	}
	if len(h.corsOrigins) == 0 {
		h.corsOrigins = []string{"*"}
	}
	return h
}

// Routes returns the router with middleware applied.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(h.traceMiddleware, h.logMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", h.deleteOrder).Methods(http.MethodDelete)
	api.HandleFunc("/orders/{id}/status", h.updateOrderStatus).Methods(http.MethodPost, http.MethodPatch)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// mux skips middleware when nothing matches.
	r.NotFoundHandler = h.traceMiddleware(h.logMiddleware(http.NotFoundHandler()))
	r.MethodNotAllowedHandler = h.traceMiddleware(h.logMiddleware(http.HandlerFunc(methodNotAllowed)))

	cors := handlers.CORS(
		handlers.AllowedOrigins(h.corsOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{log: h.log}))
	return recovery(cors(r))
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}
