// internal/service/promotion/domain/repository.go
package domain

import "context"

// CouponRepository 是券模板和用户券的持久化端口。
type CouponRepository interface {
	// FindTemplateByCode 未命中返回 ErrCouponNotFound。
	FindTemplateByCode(ctx context.Context, code string) (*CouponTemplate, error)
	// FindUserCoupon 未命中返回 ErrUserCouponNotFound。
	FindUserCoupon(ctx context.Context, userID, code string) (*UserCoupon, error)
	SaveUserCoupon(ctx context.Context, coupon *UserCoupon) error
	GrantCoupon(ctx context.Context, coupon *UserCoupon) error
}

// RuleEngine 对模板上的适用规则求值。表达式有语法错误时返回 error,
// 求值结果非布尔同样视为错误。
type RuleEngine interface {
	Evaluate(ctx context.Context, rule string, fact Fact) (bool, error)
}
