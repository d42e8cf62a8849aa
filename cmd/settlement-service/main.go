// cmd/settlement-service/main.go
package main

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"bazaar/internal/pkg/bootstrap"
	"bazaar/internal/pkg/httpclient"
	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/mq"
	redispkg "bazaar/internal/pkg/redis"
	"bazaar/internal/service/commission/infrastructure/rule"
	"bazaar/internal/service/settlement/application"
	"bazaar/internal/service/settlement/infrastructure"
	"bazaar/internal/service/settlement/interfaces"
)

const (
	serviceName = "settlement-service"
	servicePort = 8092

	orderCompletedTopic   = "order-completed"
	commissionBookedTopic = "commission-booked"
	consumerGroup         = "settlement-service-group"
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
	if err := db.AutoMigrate(
		&infrastructure.VendorWalletModel{},
		&infrastructure.WalletTransactionModel{},
		&infrastructure.VendorPayoutModel{},
	); err != nil {
		log.Fatalf("failed to migrate settlement schema: %v", err)
	}

	rdb, err := redispkg.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	engine, err := rule.NewCELEngineAdapter()
	if err != nil {
		log.Fatalf("failed to initialize condition engine: %v", err)
	}

	tracer := otel.Tracer(serviceName)
	producer := infrastructure.NewKafkaEventProducer(cfg.Infra.Kafka.Brokers, commissionBookedTopic)
	gateway := infrastructure.NewHTTPPaymentGateway(httpclient.NewClient(tracer), cfg.Infra.PaymentGateway.BaseURL)

	svc := application.NewSettlementService(
		infrastructure.NewGormTransactionScope(db, engine),
		infrastructure.NewGormWalletRepository(db),
		infrastructure.NewGormTransactionRepository(db),
		infrastructure.NewGormPayoutRepository(db),
		infrastructure.NewRedisIdempotencyGuard(rdb),
		producer,
		gateway,
		tracer,
	)
	handler := interfaces.NewSettlementHandler(svc)

	reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, orderCompletedTopic, consumerGroup)
	consumer := interfaces.NewOrderCompletedConsumer(reader, svc)
	if err := consumer.Start(context.Background()); err != nil {
		log.Fatalf("failed to start order-completed consumer: %v", err)
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
		},
		OnShutdown: func(ctx context.Context) {
			consumer.Stop(ctx)
			if err := producer.Close(); err != nil {
				log.Printf("Error closing kafka producer: %v", err)
			}
			if err := rdb.Close(); err != nil {
				log.Printf("Error closing redis client: %v", err)
			}
		},
	})
}
