// cmd/promotion-service/main.go
package main

import (
	"context"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/logger"
	"storefront/internal/rpc"
	"storefront/internal/service/promotion/application"
	"storefront/internal/service/promotion/infrastructure"
	"storefront/internal/service/promotion/infrastructure/rule"
	"storefront/internal/service/promotion/interfaces"
)

const (
	serviceName = "promotion-service"
	servicePort = 8082
)

func main() {
	bootstrap.Init(serviceName)
	cfg := config.GetCurrentConfig()

	db, err := database.Open(cfg.Infra.MysqlDSN)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to open mysql")
	}

	ruleEngine, err := rule.NewCELRuleEngine()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to build rule engine")
	}

	service := application.NewPromotionService(infrastructure.NewGormCouponRepository(db), ruleEngine)

	server := rpc.NewServer(cfg.Infra.KafkaBrokers, serviceName, cfg.RPC.MaxInflight, cfg.RPC.MaxDeliveries)
	interfaces.NewCouponRPCHandler(service).RegisterRoutes(server)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		Run: func(ctx context.Context) {
			if err := server.Run(ctx); err != nil && ctx.Err() == nil {
				logger.L().Fatal().Err(err).Msg("rpc server exited")
			}
		},
	})
}
