// internal/service/customer/interfaces/rpc_handler.go
package interfaces

import (
	"context"
	"fmt"

	"storefront/internal/rpc"
	"storefront/internal/service/customer/application"
)

// UserRPCHandler 把用户存在性校验暴露为远程能力。
type UserRPCHandler struct {
	service *application.CustomerService
}

func NewUserRPCHandler(service *application.CustomerService) *UserRPCHandler {
	return &UserRPCHandler{service: service}
}

// RegisterRoutes 把本服务承接的路由挂到 RPC 服务端。
func (h *UserRPCHandler) RegisterRoutes(server *rpc.Server) {
	server.Register(rpc.RouteCheckUser, h.handleCheckUser)
}

func (h *UserRPCHandler) handleCheckUser(ctx context.Context, req interface{}) (interface{}, error) {
	r, ok := req.(*rpc.CheckUserRequest)
	if !ok {
		return nil, fmt.Errorf("unexpected request type %T", req)
	}
	exists, err := h.service.Exists(ctx, r.UserID)
	if err != nil {
		return nil, err
	}
	return &rpc.CheckUserResponse{Exists: exists}, nil
}
