package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/greenthumb-app/greenthumb/internal/availability"
	"github.com/greenthumb-app/greenthumb/internal/booking"
	"github.com/greenthumb-app/greenthumb/internal/handlers"
	"github.com/greenthumb-app/greenthumb/internal/outbox"
	"github.com/greenthumb-app/greenthumb/internal/storage"
	"github.com/greenthumb-app/greenthumb/libs/config"
	"github.com/greenthumb-app/greenthumb/libs/db"
	"github.com/greenthumb-app/greenthumb/libs/httpx"
	"github.com/greenthumb-app/greenthumb/libs/kafkax"
	otelx "github.com/greenthumb-app/greenthumb/libs/otel"
	"github.com/greenthumb-app/greenthumb/libs/runtime"
)

func parseList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	if err := storage.Migrate(dbURL); err != nil {
		logger.Error("db migration failed", "err", err)
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	loc, err := time.LoadLocation(config.String("BOOKING_TIMEZONE", "Europe/Paris"))
	if err != nil {
		logger.Error("invalid BOOKING_TIMEZONE", "err", err)
		panic(err)
	}

	resourceRepo := storage.NewResourceRepository(pool)
	availabilityRepo := storage.NewAvailabilityRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool, outboxRepo)

	expander := availability.NewExpander(availabilityRepo, availabilityRepo)
	ledger := booking.NewLedger(bookingRepo, resourceRepo, expander, loc)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	bookingHandler := handlers.NewBookingHandler(ledger, logger, loc)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityRepo, resourceRepo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/bookings", bookingHandler.Bookings)
	mux.HandleFunc("/api/v1/bookings/confirm", bookingHandler.Confirm)
	mux.HandleFunc("/api/v1/bookings/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/bookings/occupied", bookingHandler.Occupied)
	mux.HandleFunc("/api/v1/occurrences", bookingHandler.Occurrences)
	mux.HandleFunc("/api/v1/availability/templates", availabilityHandler.Templates)
	mux.HandleFunc("/api/v1/availability/windows", availabilityHandler.Windows)

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			panic(err)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, isTruthy(config.String("RATE_LIMIT_FAIL_OPEN", "true")))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id,X-User-Id")),
			AllowCredentials: isTruthy(config.String("CORS_ALLOW_CREDENTIALS", "false")),
			MaxAge:           config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("HTTP_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("HTTP_REQUEST_TIMEOUT", 15*time.Second)),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
