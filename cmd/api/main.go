package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/modules/admin"
	"github.com/jisr-market/jisr-backend/internal/modules/auth"
	"github.com/jisr-market/jisr-backend/internal/modules/buyer"
	"github.com/jisr-market/jisr-backend/internal/modules/catalog"
	"github.com/jisr-market/jisr-backend/internal/modules/content"
	"github.com/jisr-market/jisr-backend/internal/modules/dispute"
	"github.com/jisr-market/jisr-backend/internal/modules/factory"
	"github.com/jisr-market/jisr-backend/internal/modules/messaging"
	"github.com/jisr-market/jisr-backend/internal/modules/notification"
	"github.com/jisr-market/jisr-backend/internal/modules/order"
	"github.com/jisr-market/jisr-backend/internal/modules/payment"
	"github.com/jisr-market/jisr-backend/internal/modules/product"
	"github.com/jisr-market/jisr-backend/internal/modules/review"
	"github.com/jisr-market/jisr-backend/internal/modules/rfq"
	"github.com/jisr-market/jisr-backend/internal/modules/routing"
	"github.com/jisr-market/jisr-backend/internal/modules/user"
	"github.com/jisr-market/jisr-backend/internal/platform/cache"
	"github.com/jisr-market/jisr-backend/internal/platform/config"
	"github.com/jisr-market/jisr-backend/internal/platform/database"
	"github.com/jisr-market/jisr-backend/internal/platform/events"
	"github.com/jisr-market/jisr-backend/internal/platform/httpx"
	"github.com/jisr-market/jisr-backend/internal/platform/logger"
	"github.com/jisr-market/jisr-backend/internal/platform/storage"
	"github.com/jisr-market/jisr-backend/internal/platform/telemetry"
)

const serviceName = "jisr-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Env, serviceName)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(serviceName, cfg.JaegerEndpoint, log)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background()) //nolint:errcheck

	// ── Infrastructure ──────────────────────────────────────
	db, err := database.Connect(ctx, cfg.DatabaseURL, database.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		ConnLifetime: cfg.DBConnLifetime,
	}, log)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	appCache, err := newCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	backend, err := newStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	publicURL := cfg.StoragePublicURL
	if publicURL == "" {
		publicURL = "/uploads"
	}
	uploader := storage.NewUploader(backend, publicURL, cfg.UploadMaxBytes, log)

	publisher, closePublisher, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.Tracing(serviceName))
	router.Use(telemetry.RequestLogger(log))
	router.Use(telemetry.Metrics)

	router.Get("/health", health(db))
	router.Handle("/metrics", telemetry.Handler())

	// ── Identity ────────────────────────────────────────────
	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo)
	authService := auth.NewService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	if cfg.AdminEmail != "" {
		created, err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName)
		if err != nil {
			return err
		}
		if created {
			log.Info("bootstrap admin created", zap.String("email", cfg.AdminEmail))
		}
	}

	// Everything below sees the caller identity when a bearer token is sent.
	api := router.With(auth.Authenticate(authService))
	auth.NewHandler(authService).RegisterRoutes(api)
	user.NewHandler(userService).RegisterRoutes(api)

	notificationService := notification.NewService(notification.NewPostgresRepository(db), publisher, cfg.NotificationTopic, log)
	notification.NewHandler(notificationService).RegisterRoutes(api)

	buyer.NewHandler(buyer.NewService(buyer.NewPostgresRepository(db))).RegisterRoutes(api)

	// ── Marketplace ─────────────────────────────────────────
	factoryService := factory.NewService(factory.NewPostgresRepository(db), uploader, notificationService, appCache, log)
	factory.NewHandler(factoryService, cfg.UploadMaxBytes).RegisterRoutes(api)

	productRepo := product.NewPostgresRepository(db)
	productService := product.NewService(productRepo, factoryService, uploader, appCache, cfg.DefaultCurrency, log)
	product.NewHandler(productService, cfg.UploadMaxBytes).RegisterRoutes(api)

	catalog.NewHandler(catalog.NewService(catalog.NewPostgresRepository(db), appCache, log)).RegisterRoutes(api)

	rfqRepo := rfq.NewPostgresRepository(db)
	rfqService := rfq.NewService(rfqRepo, factoryService, uploader, notificationService, cfg.DefaultCurrency, log)
	rfq.NewHandler(rfqService, cfg.UploadMaxBytes).RegisterRoutes(api)

	routingService := routing.NewService(routing.NewPostgresRepository(db), rfqRepo, factoryService, notificationService, log)
	routing.NewHandler(routingService).RegisterRoutes(api)

	// ── Orders & after-sale ─────────────────────────────────
	orderService := order.NewService(order.NewPostgresRepository(db), productRepo, factoryService, notificationService, log)
	order.NewHandler(orderService).RegisterRoutes(api)

	disputeService := dispute.NewService(dispute.NewPostgresRepository(db), orderService, factoryService, uploader, notificationService, log)
	dispute.NewHandler(disputeService, cfg.UploadMaxBytes).RegisterRoutes(api)

	reviewService := review.NewService(review.NewPostgresRepository(db), orderService, factoryService, appCache, notificationService, log)
	review.NewHandler(reviewService).RegisterRoutes(api)

	gateways := payment.GatewayRegistry{
		payment.ProviderCard: payment.NewCardSandboxGateway(cfg.CardGatewayKey, cfg.CardGatewayBaseURL, log),
	}
	paymentService := payment.NewService(payment.NewPostgresRepository(db), orderService, factoryService, gateways, uploader, notificationService, log)
	payment.NewHandler(paymentService, cfg.UploadMaxBytes, cfg.CardGatewayWebhookSecret, log).RegisterRoutes(api)

	messagingService := messaging.NewService(messaging.NewPostgresRepository(db), factoryService, uploader, notificationService, log)
	messaging.NewHandler(messagingService, cfg.UploadMaxBytes).RegisterRoutes(api)

	// ── Admin console & CMS ─────────────────────────────────
	content.NewHandler(content.NewService(content.NewPostgresRepository(db), appCache, log)).RegisterRoutes(api)
	admin.NewHandler(admin.NewService(admin.NewPostgresRepository(db), appCache, log)).RegisterRoutes(api)

	if mem, ok := backend.(*storage.Memory); ok {
		router.Handle(publicURL+"/*", http.StripPrefix(publicURL+"/", mem))
	}

	// ── Start Server ────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("jisr api listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func health(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			httpx.Respond(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpx.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Outside production a missing Redis, object store or Kafka broker degrades
// to an in-process stand-in instead of failing startup.

func newCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.Cache, error) {
	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, log)
	if err == nil {
		return cache.NewRedis(rdb, cfg.CacheTTL, log), nil
	}
	if cfg.IsProduction() {
		return nil, err
	}
	log.Warn("redis unavailable, using in-memory cache", zap.Error(err))
	return cache.NewMemory(), nil
}

func newStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Backend, error) {
	if cfg.StorageAccessKey != "" {
		m, err := storage.NewMinio(ctx, storage.MinioOptions{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			UseSSL:    cfg.StorageUseSSL,
		}, log)
		if err == nil {
			return m, nil
		}
		if cfg.IsProduction() {
			return nil, err
		}
		log.Warn("object storage unavailable, using in-memory storage", zap.Error(err))
	} else if cfg.IsProduction() {
		return nil, errors.New("STORAGE_ACCESS_KEY is required in production")
	}
	return storage.NewMemory(), nil
}

func newPublisher(cfg *config.Config, log *zap.Logger) (events.Publisher, func(), error) {
	producer, err := events.NewSyncProducer(cfg.KafkaBrokers, log)
	if err == nil {
		k := events.NewKafka(producer, log)
		return k, func() {
			if err := k.Close(); err != nil {
				log.Warn("close kafka producer", zap.Error(err))
			}
		}, nil
	}
	if cfg.IsProduction() {
		return nil, nil, err
	}
	log.Warn("kafka unavailable, notifications are only logged", zap.Error(err))
	return events.LogPublisher{Logger: log}, func() {}, nil
}
