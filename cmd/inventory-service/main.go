// cmd/inventory-service/main.go
package main

import (
	"context"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/zookeeper"
	"storefront/internal/rpc"
	"storefront/internal/service/inventory/application"
	"storefront/internal/service/inventory/infrastructure"
	"storefront/internal/service/inventory/interfaces"
)

const (
	serviceName = "inventory-service"
	servicePort = 8081
)

func main() {
	bootstrap.Init(serviceName)
	cfg := config.GetCurrentConfig()

	db, err := database.Open(cfg.Infra.MysqlDSN)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to open mysql")
	}

	locker := application.NewKeyedMutex()
	if cfg.Infra.Lock.Mode == "zookeeper" {
		conn, err := zookeeper.Connect(cfg.Infra.Zk.Servers)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to connect zookeeper")
		}
		defer conn.Close()
		locker = infrastructure.NewZkProductLocker(conn)
	}

	coordinator := application.NewCoordinator(
		infrastructure.NewGormStockRepository(db),
		infrastructure.NewGormLedgerRepository(db),
		locker,
	)

	server := rpc.NewServer(cfg.Infra.KafkaBrokers, serviceName, cfg.RPC.MaxInflight, cfg.RPC.MaxDeliveries)
	interfaces.NewStockRPCHandler(coordinator).RegisterRoutes(server)

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
