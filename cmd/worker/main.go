package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gorsocial/backend/internal/config"
	"github.com/gorsocial/backend/internal/db"
	"github.com/gorsocial/backend/internal/events"
	"github.com/gorsocial/backend/internal/models"
	"github.com/gorsocial/backend/internal/repositories"
)

// The worker is the settlement watchdog. It does not retry stuck
// settlements (reconciliation against the ledger is a manual call),
// it makes them impossible to miss: a gauge for dashboards and a log
// line per stuck row on every sweep.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)
	settlementRepo := repositories.NewSettlementRepo(pool, publisher, log)

	stuckGauge := promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gorsocial",
		Subsystem: "settlement",
		Name:      "stuck_current",
		Help:      "Settlements currently in the stuck state.",
	})

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("serving metrics", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	// Log settlement transitions as they happen for operator tailing.
	err = subscriber.Subscribe(ctx, events.Channel(events.TableSettlements), func(c events.Change) {
		log.Info("settlement changed", zap.String("id", c.Key), zap.String("op", c.Op))
	})
	if err != nil {
		log.Fatal("failed to subscribe to settlement changes", zap.Error(err))
	}

	log.Info("settlement watchdog started")

	sweepTicker := time.NewTicker(time.Minute)
	defer sweepTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sweepStuck(ctx, settlementRepo, stuckGauge, log)
	for {
		select {
		case <-sweepTicker.C:
			sweepStuck(ctx, settlementRepo, stuckGauge, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		}
	}
}

func sweepStuck(ctx context.Context, repo *repositories.SettlementRepo, gauge prometheus.Gauge, log *zap.Logger) {
	stuck, err := repo.ListByStatus(ctx, models.SettlementStatusStuck, 100)
	if err != nil {
		log.Error("stuck sweep failed", zap.Error(err))
		return
	}
	gauge.Set(float64(len(stuck)))
	for _, s := range stuck {
		log.Warn("settlement stuck: ledger moved but mirror did not",
			zap.String("id", s.ID.String()),
			zap.String("operation", s.Operation),
			zap.String("sender", s.SenderAddress),
			zap.String("target", s.TargetAddress),
			zap.Int64("amount", s.Amount),
			zap.Stringp("signature", s.LedgerSignature),
			zap.Stringp("reason", s.FailureReason),
		)
	}
}
