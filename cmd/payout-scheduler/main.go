// cmd/payout-scheduler/main.go
package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"bazaar/internal/pkg/bootstrap"
	"bazaar/internal/pkg/logger"
	"bazaar/internal/service/commission/infrastructure/rule"
	"bazaar/internal/service/settlement/application"
	"bazaar/internal/service/settlement/domain"
	"bazaar/internal/service/settlement/infrastructure"
	"bazaar/internal/zookeeper"
)

const (
	serviceName = "payout-scheduler"
	servicePort = 8093

	lockResource = "payout-batch"
	// 单轮批处理并发创建结算单的上限
	batchConcurrency = 8
)

// main 函数是应用的"组装根" (Composition Root)
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}

	zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Addrs)
	if err != nil {
		log.Fatalf("failed to connect to zookeeper: %v", err)
	}

	engine, err := rule.NewCELEngineAdapter()
	if err != nil {
		log.Fatalf("failed to initialize condition engine: %v", err)
	}

	wallets := infrastructure.NewGormWalletRepository(db)
	svc := application.NewSettlementService(
		infrastructure.NewGormTransactionScope(db, engine),
		wallets,
		infrastructure.NewGormTransactionRepository(db),
		infrastructure.NewGormPayoutRepository(db),
		nil,
		nil,
		nil,
		otel.Tracer(serviceName),
	)

	scheduler := &payoutScheduler{
		svc:            svc,
		wallets:        wallets,
		zkConn:         zkConn,
		interval:       envDuration("PAYOUT_INTERVAL", 24*time.Hour),
		commissionRate: envFloat("PAYOUT_COMMISSION_RATE", 10.0),
		processingFee:  envFloat("PAYOUT_PROCESSING_FEE", 2.50),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go scheduler.run(ctx)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
		},
		OnShutdown: func(shutdownCtx context.Context) {
			cancel()
			zkConn.Close()
		},
	})
}

// payoutScheduler 周期性地为活跃商家生成待处理结算单。
// 多实例部署时通过 ZooKeeper 分布式锁保证单轮批处理只有一个执行者。
type payoutScheduler struct {
	svc            *application.SettlementService
	wallets        domain.WalletRepository
	zkConn         *zookeeper.Conn
	interval       time.Duration
	commissionRate float64
	processingFee  float64
}

func (s *payoutScheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Ctx(ctx).Printf("Payout scheduler started, interval %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Ctx(ctx).Printf("Payout scheduler stopped.")
			return
		case <-ticker.C:
			if err := s.runBatch(ctx); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Payout batch failed")
			}
		}
	}
}

func (s *payoutScheduler) runBatch(ctx context.Context) error {
	lock := zookeeper.NewDistributedLock(s.zkConn, lockResource)
	if err := lock.Lock(); err != nil {
		logger.Ctx(ctx).Info().Err(err).Msg("Another instance holds the payout lock, skipping round")
		return nil
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("Failed to release payout lock")
		}
	}()

	periodEnd := time.Now().Truncate(time.Hour)
	periodStart := periodEnd.Add(-s.interval)

	wallets, err := s.wallets.ListActive(ctx, periodStart)
	if err != nil {
		return err
	}
	logger.Ctx(ctx).Info().Int("vendors", len(wallets)).Msg("Payout batch started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for _, wallet := range wallets {
		wallet := wallet
		g.Go(func() error {
			_, err := s.svc.CreatePayout(gctx, &application.CreatePayoutRequest{
				VendorID:       wallet.VendorID,
				PeriodStart:    periodStart,
				PeriodEnd:      periodEnd,
				CommissionRate: s.commissionRate,
				ProcessingFee:  s.processingFee,
			})
			if err != nil {
				// 单个商家失败不阻断整轮批处理
				logger.Ctx(gctx).Error().Err(err).Str("vendor_id", wallet.VendorID).Msg("Failed to create payout")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Ctx(ctx).Info().Msg("Payout batch finished")
	return nil
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
