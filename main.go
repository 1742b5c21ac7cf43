// File: venuebook/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"venuebook/config"
	"venuebook/cron"
	"venuebook/database"
	bookingRepo "venuebook/database/repository/booking"
	documentRepo "venuebook/database/repository/document"
	listingRepo "venuebook/database/repository/listing"
	settingsRepo "venuebook/database/repository/settings"
	tokenRepo "venuebook/database/repository/token"
	transactionRepo "venuebook/database/repository/transaction"
	"venuebook/handlers"
	"venuebook/middleware"
	"venuebook/routes"
	"venuebook/services/booking"
	"venuebook/services/documents"
	"venuebook/services/notification"
	"venuebook/services/payment"
	"venuebook/services/settings"
	"venuebook/services/storage"
	"venuebook/services/verification"
	"venuebook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type repositories struct {
	listings     listingRepo.ListingRepository
	tokens       tokenRepo.TokenRepository
	bookings     bookingRepo.BookingRepository
	documents    documentRepo.DocumentRepository
	settings     settingsRepo.SettingsRepository
	transactions transactionRepo.TransactionRepository
}

func mongoRepositories(db *mongo.Database, logger *zap.Logger) repositories {
	return repositories{
		listings:     listingRepo.NewMongoListingRepo(db, logger),
		tokens:       tokenRepo.NewMongoTokenRepo(db, logger),
		bookings:     bookingRepo.NewMongoBookingRepo(db, logger),
		documents:    documentRepo.NewMongoDocumentRepo(db, logger),
		settings:     settingsRepo.NewMongoSettingsRepo(db),
		transactions: transactionRepo.NewMongoTransactionRepo(db, logger),
	}
}

func memoryRepositories() repositories {
	return repositories{
		listings:     listingRepo.NewInMemoryListingRepo(),
		tokens:       tokenRepo.NewInMemoryTokenRepo(),
		bookings:     bookingRepo.NewInMemoryBookingRepo(),
		documents:    documentRepo.NewInMemoryDocumentRepo(),
		settings:     settingsRepo.NewInMemorySettingsRepo(),
		transactions: transactionRepo.NewInMemoryTransactionRepo(),
	}
}

// gateways registers every gateway with credentials configured.
func gateways(cfg *config.Config, logger *zap.Logger) *payment.Registry {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	var gws []payment.Gateway
	if cfg.FlutterwaveSecretKey != "" {
		gws = append(gws, payment.NewFlutterwaveGateway(payment.FlutterwaveConfig{
			SecretKey:  cfg.FlutterwaveSecretKey,
			SecretHash: cfg.FlutterwaveSecretHash,
			BaseURL:    cfg.FlutterwaveBaseURL,
		}, httpClient, logger))
	}
	if cfg.PesapalConsumerKey != "" {
		gws = append(gws, payment.NewPesapalGateway(payment.PesapalConfig{
			ConsumerKey:    cfg.PesapalConsumerKey,
			ConsumerSecret: cfg.PesapalConsumerSecret,
			NotificationID: cfg.PesapalNotificationID,
			BaseURL:        cfg.PesapalBaseURL,
		}, httpClient, logger))
	}
	if cfg.StripeKey != "" {
		gws = append(gws, payment.NewStripeGateway(cfg.StripeKey, cfg.StripeWebhookSecret, logger))
	}
	registry := payment.NewRegistry(gws...)
	if len(gws) == 0 {
		logger.Warn("main: no payment gateway configured; bookings cannot be paid")
	} else {
		logger.Info("main: payment gateways ready", zap.Strings("gateways", registry.Names()))
	}
	return registry
}

// mailTransport is what actually delivers email, on the worker side of the queue.
func mailTransport(ctx context.Context, cfg *config.Config, logger *zap.Logger) notification.Mailer {
	if cfg.MailDriver != "ses" {
		return notification.NewLogMailer(logger)
	}
	ses, err := notification.NewSESMailer(ctx, cfg.SESRegion, cfg.MailFrom, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize SES mailer: %v", err)
	}
	return ses
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Sugar().Fatalf("main: %v", err)
	}
	logger, err := utils.NewLogger(cfg)
	if err != nil {
		zap.NewExample().Sugar().Fatalf("main: failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	pingers := map[string]utils.Pinger{}

	// repositories.
	var repos repositories
	var mongoClient *mongo.Client
	if cfg.UsesMemoryStore() {
		logger.Warn("main: DATABASE_URL=memory, data lives only as long as the process")
		repos = memoryRepositories()
	} else {
		mongoClient, err = database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		repos = mongoRepositories(mongoClient.Database(cfg.DatabaseName), logger)
		pingers["database"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	}

	// Redis backs the listing cache, settings reloads, cron locks and the email queue.
	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache, err = utils.NewRedisClient(ctx, cfg, cfg.RedisCacheDB)
		if err != nil {
			if cfg.IsProduction() {
				logger.Sugar().Fatalf("main: %v", err)
			}
			logger.Warn("main: running without Redis", zap.Error(err))
			cache = nil
		}
	}
	if cache != nil {
		pingers["redis"] = func(ctx context.Context) error { return cache.Ping(ctx).Err() }
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize %s storage: %v", cfg.StorageDriver, err)
	}

	// email.
	transport := mailTransport(ctx, cfg, logger)
	var mailer notification.Mailer = transport
	var emailWorker *cron.EmailWorker
	var queueClient *asynq.Client
	if cache != nil {
		queueClient = asynq.NewClient(cron.RedisOpt(cfg))
		mailer = notification.NewQueueMailer(queueClient, logger)
		emailWorker = cron.NewEmailWorker(cfg, transport, logger)
		emailWorker.Start()
	}

	// services.
	settingsStore := settings.NewStore(repos.settings, cache, logger)
	if err := settingsStore.Load(ctx); err != nil {
		logger.Sugar().Fatalf("main: failed to load platform settings: %v", err)
	}
	go settingsStore.WatchReloads(ctx)

	verificationService := &verification.DefaultVerificationService{
		Listings: repos.listings,
		Tokens:   repos.tokens,
		Mailer:   mailer,
		TokenTTL: cfg.VerificationTokenTTL,
		BaseURL:  cfg.PublicBaseURL,
		Logger:   logger,
	}
	if cache != nil {
		verificationService.Cache = verification.NewRedisListingCache(cache, 5*time.Minute)
	}

	bookingService := &booking.DefaultBookingService{
		Bookings:    repos.bookings,
		Listings:    repos.listings,
		Ledgers:     repos.transactions,
		Settings:    settingsStore,
		Gateways:    gateways(cfg, logger),
		Mailer:      mailer,
		CallbackURL: strings.TrimRight(cfg.PublicBaseURL, "/") + "/payments/complete",
		Logger:      logger,
	}
	documentService := documents.NewDocumentService(repos.documents, store, logger)

	// background jobs.
	scheduler := cron.NewScheduler(cache, logger)
	jobs := []cron.Job{
		{Name: "payout-sweep", Spec: cfg.PayoutSweepCron, Run: func(ctx context.Context) error {
			n, err := bookingService.ProcessDuePayouts(ctx)
			if n > 0 {
				logger.Info("payouts processed", zap.Int("count", n))
			}
			return err
		}},
		{Name: "storage-cleanup", Spec: cfg.StorageCleanupCron, Run: func(ctx context.Context) error {
			report, err := documentService.CleanupOrphans(ctx)
			logger.Info("storage cleanup",
				zap.Int("deletionsFinished", report.DeletionsFinished),
				zap.Int("orphansRemoved", report.OrphansRemoved),
				zap.Int("failures", report.Failures))
			return err
		}},
	}
	for _, job := range jobs {
		if err := scheduler.Add(job); err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
	}
	scheduler.Start()

	health := utils.NewHealthMonitor(pingers)
	go health.Run(ctx, 30*time.Second)

	// Create the Gin router.
	router := gin.New()
	router.Use(utils.ErrorHandler(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.NewRateLimiter(cfg.MaxRequestsPerMin, logger).Middleware())

	h := &handlers.Handler{
		Listings:  verificationService,
		Bookings:  bookingService,
		Documents: documentService,
		Settings:  settingsStore,
		Health:    health,
		Logger:    logger,
	}
	routes.RegisterRoutes(router, h, middleware.NewAuthenticator(utils.NewTokenIssuer(cfg.JWTSecret)))

	// Start the HTTP server.
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	stop()
	scheduler.Stop()
	if emailWorker != nil {
		emailWorker.Shutdown()
	}
	if queueClient != nil {
		_ = queueClient.Close()
	}
	if cache != nil {
		_ = cache.Close()
	}
	if mongoClient != nil {
		_ = mongoClient.Disconnect(shutdownCtx)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
