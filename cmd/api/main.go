package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "scoopflow/docs"
	"scoopflow/pkg/api"
	"scoopflow/pkg/config"
	"scoopflow/pkg/events"
	"scoopflow/pkg/logger"
	"scoopflow/pkg/order"
	"scoopflow/pkg/order/cache"
	"scoopflow/pkg/order/store"
	"scoopflow/pkg/otel"
)

const serviceName = "scoopflow"

// @title Scoopflow API
// @version 1.0
// @description Order API for the novelty ice-cream storefront
// @host localhost:5000
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(os.Stderr, logger.LevelError, serviceName, nil).
			Error(context.Background(), "load config", "error", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logger.LevelInfo
	}
	log := logger.New(os.Stdout, level, serviceName, otel.GetTraceID)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error(context.Background(), "startup", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelCfg := otel.Config{ServiceName: serviceName, Host: cfg.OTELHost, Probability: cfg.TraceProbability}
	tp, shutdownTracing, err := otel.InitTracing(log, otelCfg)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	mp, shutdownMetrics, err := otel.InitMetrics(log, otelCfg)
	if err != nil {
		return err
	}
	defer shutdownMetrics(context.Background())

	metrics, err := otel.NewMetrics(mp.Meter(serviceName))
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, store.Options{
		DatabaseURL:    cfg.DatabaseURL,
		Fallback:       cfg.StoreFallback,
		ConnectTimeout: cfg.DBConnectTimeout,
	}, log)
	if err != nil {
		return err
	}
	defer st.Close()

	var repo order.Repository = st.Repository
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		repo = cache.New(repo, rdb, cfg.CacheTTL, log)
		log.Info(ctx, "order cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL.String())
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		if err := events.CreateTopic(ctx, cfg.KafkaBrokers[0], cfg.KafkaTopic, 3, 1); err != nil {
			log.Warn(ctx, "create topic (may already exist)", "topic", cfg.KafkaTopic, "error", err)
		}
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info(ctx, "order events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	defer publisher.Close()

	h := api.New(api.Config{
		Repo:        repo,
		Events:      publisher,
		Metrics:     metrics,
		Log:         log,
		Tracer:      tp.Tracer(serviceName),
		Fallback:    st.Fallback,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", srv.Addr, "store", repo.Name(), "fallback", st.Fallback)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
