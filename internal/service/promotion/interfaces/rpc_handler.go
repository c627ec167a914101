// internal/service/promotion/interfaces/rpc_handler.go
package interfaces

import (
	"context"
	"fmt"

	"storefront/internal/rpc"
	"storefront/internal/service/promotion/application"
)

// CouponRPCHandler 承接优惠券相关的三个远程能力。
type CouponRPCHandler struct {
	service *application.PromotionService
}

func NewCouponRPCHandler(service *application.PromotionService) *CouponRPCHandler {
	return &CouponRPCHandler{service: service}
}

// RegisterRoutes 把本服务承接的路由挂到 RPC 服务端。
func (h *CouponRPCHandler) RegisterRoutes(server *rpc.Server) {
	server.Register(rpc.RouteCheckCoupon, h.handleCheckCoupon)
	server.Register(rpc.RouteCheckUserCoupon, h.handleCheckUserCoupon)
	server.Register(rpc.RouteDisableUserCoupon, h.handleDisableUserCoupon)
}

func (h *CouponRPCHandler) handleCheckCoupon(ctx context.Context, req interface{}) (interface{}, error) {
	r, ok := req.(*rpc.CheckCouponRequest)
	if !ok {
		return nil, fmt.Errorf("unexpected request type %T", req)
	}
	info, err := h.service.CheckCoupon(ctx, r.Code)
	if err != nil {
		return nil, err
	}
	return &rpc.CheckCouponResponse{
		Exists:         info.Exists,
		Discount:       info.Discount,
		MinOrderAmount: info.MinOrderAmount,
	}, nil
}

func (h *CouponRPCHandler) handleCheckUserCoupon(ctx context.Context, req interface{}) (interface{}, error) {
	r, ok := req.(*rpc.CheckUserCouponRequest)
	if !ok {
		return nil, fmt.Errorf("unexpected request type %T", req)
	}
	used, err := h.service.CheckUserCoupon(ctx, r.UserID, r.Code)
	if err != nil {
		return nil, err
	}
	return &rpc.CheckUserCouponResponse{Used: used}, nil
}

func (h *CouponRPCHandler) handleDisableUserCoupon(ctx context.Context, req interface{}) (interface{}, error) {
	r, ok := req.(*rpc.DisableUserCouponRequest)
	if !ok {
		return nil, fmt.Errorf("unexpected request type %T", req)
	}
	if err := h.service.DisableUserCoupon(ctx, r.UserID, r.Code); err != nil {
		return nil, err
	}
	return &rpc.DisableUserCouponResponse{Disabled: true}, nil
}
