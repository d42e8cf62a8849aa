// cmd/commission-service/main.go
package main

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"bazaar/internal/pkg/bootstrap"
	"bazaar/internal/pkg/logger"
	redispkg "bazaar/internal/pkg/redis"
	"bazaar/internal/service/commission/application"
	"bazaar/internal/service/commission/infrastructure"
	"bazaar/internal/service/commission/infrastructure/rule"
	"bazaar/internal/service/commission/interfaces"
)

const (
	serviceName = "commission-service"
	servicePort = 8091
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to mysql: %v", err)
	}
	if err := db.AutoMigrate(&infrastructure.CommissionRuleModel{}); err != nil {
		log.Fatalf("failed to migrate commission schema: %v", err)
	}

	rdb, err := redispkg.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	engine, err := rule.NewCELEngineAdapter()
	if err != nil {
		log.Fatalf("failed to initialize condition engine: %v", err)
	}

	repo := infrastructure.NewCachedRuleRepository(infrastructure.NewGormRuleRepository(db), rdb)
	svc := application.NewCommissionService(repo, engine, otel.Tracer(serviceName))
	handler := interfaces.NewCommissionHandler(svc)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
		},
		OnShutdown: func(ctx context.Context) {
			if err := rdb.Close(); err != nil {
				log.Printf("Error closing redis client: %v", err)
			}
		},
	})
}
