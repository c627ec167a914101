// internal/service/inventory/interfaces/rpc_handler.go
package interfaces

import (
	"context"
	"fmt"

	"storefront/internal/rpc"
	"storefront/internal/service/inventory/application"
)

// StockRPCHandler 把库存可用性查询暴露为远程能力。
type StockRPCHandler struct {
	coordinator *application.Coordinator
}

func NewStockRPCHandler(coordinator *application.Coordinator) *StockRPCHandler {
	return &StockRPCHandler{coordinator: coordinator}
}

// RegisterRoutes 把本服务承接的路由挂到 RPC 服务端。
func (h *StockRPCHandler) RegisterRoutes(server *rpc.Server) {
	server.Register(rpc.RouteStockAvailability, h.handleStockAvailability)
}

func (h *StockRPCHandler) handleStockAvailability(ctx context.Context, req interface{}) (interface{}, error) {
	r, ok := req.(*rpc.StockAvailabilityRequest)
	if !ok {
		return nil, fmt.Errorf("unexpected request type %T", req)
	}
	available, err := h.coordinator.IsInStock(ctx, r.ProductID, r.Quantity)
	if err != nil {
		return nil, err
	}
	return &rpc.StockAvailabilityResponse{Available: available}, nil
}
