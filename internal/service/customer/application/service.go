// internal/service/customer/application/service.go
package application

import (
	"context"
	"errors"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/httpclient"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/customer/domain"
)

// CustomerService 提供用户存在性校验。本地库是第一数据源,
// 配置了身份服务地址时, 本地未命中再去远端确认一次,
// 覆盖注册流量尚未落到本库的窗口期。
type CustomerService struct {
	users  domain.UserRepository
	http   *httpclient.Client
	tracer trace.Tracer

	// identityURL 是兜底身份服务的查询端点, 空串关闭兜底。
	identityURL string
}

func NewCustomerService(users domain.UserRepository, http *httpclient.Client, identityURL string) *CustomerService {
	return &CustomerService{
		users:       users,
		http:        http,
		tracer:      otel.Tracer("customer-service"),
		identityURL: identityURL,
	}
}

// Exists 校验用户是否真实存在且账号可用。
func (s *CustomerService) Exists(ctx context.Context, userID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "CustomerService.Exists")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	user, err := s.users.FindByID(ctx, userID)
	if err == nil {
		return user.IsActive(), nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return false, err
	}
	if s.identityURL == "" || s.http == nil {
		return false, nil
	}

	// 本地未命中, 去身份服务兜底确认。兜底失败按不存在处理,
	// 存在性校验宁可拒绝也不放行。
	var payload struct {
		Exists bool `json:"exists"`
	}
	params := url.Values{"user_id": []string{userID}}
	if err := s.http.GetJSON(ctx, s.identityURL, params, &payload); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("identity fallback lookup failed")
		return false, nil
	}
	return payload.Exists, nil
}

// Register 建立一个新的用户档案。
func (s *CustomerService) Register(ctx context.Context, userID, name, email string) (*domain.User, error) {
	user := &domain.User{
		ID:     userID,
		Name:   name,
		Email:  email,
		Status: domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
