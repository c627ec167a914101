// cmd/cart-sync-job/main.go
package main

import (
	"context"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/database"
	"storefront/internal/pkg/logger"
	pkgredis "storefront/internal/pkg/redis"
	"storefront/internal/service/cart/application"
	"storefront/internal/service/cart/infrastructure"
)

const (
	serviceName = "cart-sync-job"
	servicePort = 8084
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

	cache, err := infrastructure.NewRedisCartCache(redisClient, cfg.Cart.TTL)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to build cart cache")
	}
	store := infrastructure.NewGormCartStore(db)

	job := application.NewSyncJob(cache, store, cfg.Cart.SyncInterval)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		Run:         job.Run,
	})
}
