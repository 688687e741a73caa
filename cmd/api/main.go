package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/gorsocial/backend/internal/blobstore"
	"github.com/gorsocial/backend/internal/config"
	"github.com/gorsocial/backend/internal/db"
	"github.com/gorsocial/backend/internal/events"
	apphttp "github.com/gorsocial/backend/internal/http"
	"github.com/gorsocial/backend/internal/http/handlers"
	"github.com/gorsocial/backend/internal/ledger"
	"github.com/gorsocial/backend/internal/repositories"
	"github.com/gorsocial/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)
	bus := events.NewBus(subscriber, log)
	defer bus.Close()

	// Repositories
	profileRepo := repositories.NewProfileRepo(pool, publisher, log)
	walletRepo := repositories.NewWalletRepo(pool, publisher, log)
	postRepo := repositories.NewPostRepo(pool, publisher, log)
	commentRepo := repositories.NewCommentRepo(pool, publisher, log)
	notificationRepo := repositories.NewNotificationRepo(pool, publisher, log)
	settlementRepo := repositories.NewSettlementRepo(pool, publisher, log)
	nonceRepo := repositories.NewNonceRepo(pool)

	// On-chain ledger
	ledgerClient, err := ledger.New(ledger.Config{
		RPCURL:      cfg.LedgerRPCURL,
		Mint:        cfg.GorMint,
		SignerKey:   cfg.LedgerSignerKey,
		ConfirmWait: cfg.LedgerConfirmWait,
		PollEvery:   cfg.LedgerPollEvery,
		Logger:      log,
	})
	if err != nil {
		log.Fatal("failed to initialize ledger client", zap.Error(err))
	}

	// Blob store is optional; without it image uploads return 503.
	var blobStore *blobstore.Store
	if cfg.BlobBucket != "" {
		blobStore, err = blobstore.New(ctx, blobstore.Config{
			Endpoint:  cfg.BlobEndpoint,
			Region:    cfg.BlobRegion,
			Bucket:    cfg.BlobBucket,
			AccessKey: cfg.BlobAccessKey,
			SecretKey: cfg.BlobSecretKey,
			PublicURL: cfg.BlobPublicURL,
			Logger:    log,
		})
		if err != nil {
			log.Fatal("failed to initialize blob store", zap.Error(err))
		}
	}

	// Services
	metrics := services.NewSettlementMetrics(prometheus.DefaultRegisterer)
	notifier := services.NewNotifier(notificationRepo, log)
	socialService := services.NewSocialService(profileRepo, postRepo, commentRepo, notifier, log)
	settlementService := services.NewSettlementService(settlementRepo, walletRepo, profileRepo, ledgerClient, notifier, metrics, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(nonceRepo, socialService, cfg.JWTSecret, cfg.JWTExpiration, cfg.NonceTTL, log)
	profileHandler := handlers.NewProfileHandler(socialService, log)
	postHandler := handlers.NewPostHandler(socialService, log)
	settlementHandler := handlers.NewSettlementHandler(settlementService, walletRepo, log)
	notificationHandler := handlers.NewNotificationHandler(notifier, log)
	uploadHandler := handlers.NewUploadHandler(blobStore, log)
	wsHub := handlers.NewWSHub(bus, socialService, notifier, walletRepo, cfg.JWTSecret, log)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, profileHandler, postHandler, settlementHandler, notificationHandler, uploadHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr), zap.String("ledger_network", cfg.LedgerNetwork))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
