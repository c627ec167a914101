// internal/service/promotion/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/promotion/domain"
)

// PromotionService 是优惠券的应用层入口, 同时服务远端 RPC 和本地管理操作。
type PromotionService struct {
	coupons domain.CouponRepository
	rules   domain.RuleEngine
	tracer  trace.Tracer
}

func NewPromotionService(coupons domain.CouponRepository, rules domain.RuleEngine) *PromotionService {
	return &PromotionService{
		coupons: coupons,
		rules:   rules,
		tracer:  otel.Tracer("promotion-service"),
	}
}

// CouponInfo 是券码查询的结果。
type CouponInfo struct {
	Exists         bool
	Discount       float64
	MinOrderAmount float64
}

// CheckCoupon 按券码查询模板。不存在或已下架的券按不存在处理,
// 调用方只关心"现在能不能用"。
func (s *PromotionService) CheckCoupon(ctx context.Context, code string) (*CouponInfo, error) {
	ctx, span := s.tracer.Start(ctx, "PromotionService.CheckCoupon")
	defer span.End()
	span.SetAttributes(attribute.String("coupon.code", code))

	tpl, err := s.coupons.FindTemplateByCode(ctx, code)
	if errors.Is(err, domain.ErrCouponNotFound) {
		return &CouponInfo{Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}
	if !tpl.IsLive(time.Now()) {
		return &CouponInfo{Exists: false}, nil
	}
	return &CouponInfo{
		Exists:         true,
		Discount:       tpl.DiscountValue,
		MinOrderAmount: tpl.MinOrderAmount,
	}, nil
}

// CheckUserCoupon 查询某用户是否已经用掉这张券。
// 用户没领过按未使用处理。
func (s *PromotionService) CheckUserCoupon(ctx context.Context, userID, code string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "PromotionService.CheckUserCoupon")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("coupon.code", code))

	uc, err := s.coupons.FindUserCoupon(ctx, userID, code)
	if errors.Is(err, domain.ErrUserCouponNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return uc.Status == domain.StatusUsed, nil
}

// DisableUserCoupon 在订单落定后把用户券置为不可再用。
// 用户此前没有对应的券记录时直接补一条已使用的记录,
// 保证消费事实总能落库。重复核销是幂等的。
func (s *PromotionService) DisableUserCoupon(ctx context.Context, userID, code string) error {
	ctx, span := s.tracer.Start(ctx, "PromotionService.DisableUserCoupon")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("coupon.code", code))

	now := time.Now()
	uc, err := s.coupons.FindUserCoupon(ctx, userID, code)
	if errors.Is(err, domain.ErrUserCouponNotFound) {
		tpl, err := s.coupons.FindTemplateByCode(ctx, code)
		if err != nil {
			return err
		}
		record := &domain.UserCoupon{
			UserID:          userID,
			CouponCode:      code,
			Status:          domain.StatusUsed,
			ReceivedAt:      now,
			UsedAt:          now,
			ExpiredAt:       tpl.ValidTo,
			TemplateID:      tpl.ID,
			TemplateVersion: tpl.Version,
		}
		return s.coupons.GrantCoupon(ctx, record)
	}
	if err != nil {
		return err
	}
	if uc.Status == domain.StatusUsed {
		return nil
	}
	if err := uc.MarkUsed(now); err != nil {
		return err
	}
	if err := s.coupons.SaveUserCoupon(ctx, uc); err != nil {
		return err
	}
	logger.Ctx(ctx).Info().Str("user_id", userID).Str("coupon_code", code).Msg("user coupon disabled")
	return nil
}

// CheckEligibility 对模板上的适用规则求值。
func (s *PromotionService) CheckEligibility(ctx context.Context, code string, fact domain.Fact) (bool, error) {
	tpl, err := s.coupons.FindTemplateByCode(ctx, code)
	if err != nil {
		return false, err
	}
	if !tpl.IsLive(time.Now()) {
		return false, nil
	}
	return s.rules.Evaluate(ctx, tpl.EligibilityRule, fact)
}

// GrantCoupon 给用户发一张券, 有效期取模板的截止时间。
func (s *PromotionService) GrantCoupon(ctx context.Context, userID, code string) (*domain.UserCoupon, error) {
	tpl, err := s.coupons.FindTemplateByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if !tpl.IsLive(now) {
		return nil, domain.ErrCouponExpired
	}
	uc := &domain.UserCoupon{
		UserID:          userID,
		CouponCode:      code,
		Status:          domain.StatusUnused,
		ReceivedAt:      now,
		ExpiredAt:       tpl.ValidTo,
		TemplateID:      tpl.ID,
		TemplateVersion: tpl.Version,
	}
	if err := s.coupons.GrantCoupon(ctx, uc); err != nil {
		return nil, err
	}
	return uc, nil
}

// FreezeCoupon 下单时把券置为冻结中间态。
func (s *PromotionService) FreezeCoupon(ctx context.Context, userID, code string) error {
	uc, err := s.coupons.FindUserCoupon(ctx, userID, code)
	if err != nil {
		return err
	}
	if !uc.IsUsable(time.Now()) {
		return domain.ErrCouponNotUsable
	}
	if err := uc.Freeze(); err != nil {
		return err
	}
	return s.coupons.SaveUserCoupon(ctx, uc)
}

// ReleaseCoupon 订单失败时解冻, 补偿路径。
func (s *PromotionService) ReleaseCoupon(ctx context.Context, userID, code string) error {
	uc, err := s.coupons.FindUserCoupon(ctx, userID, code)
	if err != nil {
		return err
	}
	uc.Unfreeze()
	return s.coupons.SaveUserCoupon(ctx, uc)
}
