// cmd/customer-service/main.go
package main

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/httpclient"
	"storefront/internal/pkg/logger"
	"storefront/internal/rpc"
	"storefront/internal/service/customer/application"
	"storefront/internal/service/customer/infrastructure"
	"storefront/internal/service/customer/interfaces"
)

const (
	serviceName = "customer-service"
	servicePort = 8083
)

func main() {
	bootstrap.Init(serviceName)
	cfg := config.GetCurrentConfig()

	db, err := database.Open(cfg.Infra.MysqlDSN)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to open mysql")
	}

	// 兜底身份服务地址, 不配置则只查本地库。
	identityURL := os.Getenv("IDENTITY_SERVICE_URL")
	httpClient := httpclient.NewClient(otel.Tracer(serviceName))

	service := application.NewCustomerService(infrastructure.NewGormUserRepository(db), httpClient, identityURL)

	server := rpc.NewServer(cfg.Infra.KafkaBrokers, serviceName, cfg.RPC.MaxInflight, cfg.RPC.MaxDeliveries)
	interfaces.NewUserRPCHandler(service).RegisterRoutes(server)

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
