// cmd/checkout-service/main.go
package main

import (
	"context"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/logger"
	pkgredis "storefront/internal/pkg/redis"
	"storefront/internal/pkg/zookeeper"
	"storefront/internal/rpc"
	cartapp "storefront/internal/service/cart/application"
	cartinfra "storefront/internal/service/cart/infrastructure"
	cartifaces "storefront/internal/service/cart/interfaces"
	invapp "storefront/internal/service/inventory/application"
	invinfra "storefront/internal/service/inventory/infrastructure"
)

const (
	serviceName = "checkout-service"
	servicePort = 8080
)

func main() {
	bootstrap.Init(serviceName)
	cfg := config.GetCurrentConfig()

	db, err := database.Open(cfg.Infra.MysqlDSN)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to open mysql")
	}

	redisClient, err := pkgredis.NewClient(context.Background(), cfg.Infra.RedisAddr)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	cache, err := cartinfra.NewRedisCartCache(redisClient, cfg.Cart.TTL)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to build cart cache")
	}

	// 远端能力客户端, 回复走本实例独占的 reply topic。
	rpcClient, err := rpc.NewClient(context.Background(), cfg.Infra.KafkaBrokers, serviceName)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to build rpc client")
	}
	defer rpcClient.Close()

	coupons := rpc.NewCouponClient(rpcClient, cfg.RPC.CallTimeout)
	users := rpc.NewUserClient(rpcClient, cfg.RPC.CallTimeout)
	stock := rpc.NewStockClient(rpcClient, cfg.RPC.CallTimeout)

	// 结算进程内直连库存协调器, 预留和扣减不走消息队列。
	locker := invapp.NewKeyedMutex()
	if cfg.Infra.Lock.Mode == "zookeeper" {
		conn, err := zookeeper.Connect(cfg.Infra.Zk.Servers)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to connect zookeeper")
		}
		defer conn.Close()
		locker = invinfra.NewZkProductLocker(conn)
	}
	coordinator := invapp.NewCoordinator(
		invinfra.NewGormStockRepository(db),
		invinfra.NewGormLedgerRepository(db),
		locker,
	)

	cartService := cartapp.NewCartService(cache, coupons, users, stock, coordinator)
	handler := cartifaces.NewCartHTTPHandler(cartService)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.Register(appCtx.Mux)
		},
	})
}
