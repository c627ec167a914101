// internal/service/cart/port/port.go
package port

import (
	"context"

	"storefront/internal/rpc"
	invapp "storefront/internal/service/inventory/application"
)

// CouponService 对应营销服务暴露的三个 RPC 能力。
type CouponService interface {
	CheckCoupon(ctx context.Context, code string) (*rpc.CheckCouponResponse, error)
	CheckUserCoupon(ctx context.Context, userID, code string) (*rpc.CheckUserCouponResponse, error)
	DisableUserCoupon(ctx context.Context, userID, code string) error
}

// UserService 对应客户服务的存在性校验 RPC。
type UserService interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// StockService 是下单前的库存预检 RPC, 只读不占用。
type StockService interface {
	IsAvailable(ctx context.Context, productID string, quantity int) (bool, error)
}

// InventoryCoordinator 是结算进程内直连的库存协调器。
type InventoryCoordinator interface {
	Reserve(ctx context.Context, productID string, qty int, referenceID, referenceType string) error
	ConfirmDeduction(ctx context.Context, productID string, qty int, referenceID, referenceType string) error
	Release(ctx context.Context, productID string, qty int, referenceID, referenceType string) error
}

var _ CouponService = (*rpc.CouponClient)(nil)
var _ UserService = (*rpc.UserClient)(nil)
var _ StockService = (*rpc.StockClient)(nil)
var _ InventoryCoordinator = (*invapp.Coordinator)(nil)
