// internal/service/promotion/domain/coupon.go
package domain

import (
	"errors"
	"time"
)

var (
	ErrCouponNotFound     = errors.New("promotion: coupon template not found")
	ErrUserCouponNotFound = errors.New("promotion: user coupon not found")
	ErrCouponNotUsable    = errors.New("promotion: coupon is not in a usable state")
	ErrCouponExpired      = errors.New("promotion: coupon has expired")
)

// CouponType 决定折扣的计算方式。
type CouponType string

const (
	CouponTypeFixedAmount CouponType = "FIXED_AMOUNT" // 满减/立减
	CouponTypePercentage  CouponType = "PERCENTAGE"   // 折扣
)

// CouponTemplate 是优惠券的核心定义。模板一经发布不原地修改,
// 编辑产生新版本, 用户手里的券锁定在领取时的版本上。
type CouponTemplate struct {
	ID             int64
	Code           string
	Version        int32
	Name           string
	Type           CouponType
	DiscountValue  float64
	MinOrderAmount float64

	// EligibilityRule 是一段 CEL 表达式, 对下单上下文求值,
	// 决定这张券是否适用。空串表示无附加条件。
	EligibilityRule string

	ValidFrom time.Time
	ValidTo   time.Time
	Active    bool
}

// IsLive 判断模板当前是否在有效期内且处于上架状态。
func (t *CouponTemplate) IsLive(now time.Time) bool {
	return t.Active && !now.Before(t.ValidFrom) && now.Before(t.ValidTo)
}

// UserCouponStatus 是用户券的生命周期状态。
// FROZEN 是下单未落定的中间态。
type UserCouponStatus string

const (
	StatusUnused  UserCouponStatus = "UNUSED"
	StatusFrozen  UserCouponStatus = "FROZEN"
	StatusUsed    UserCouponStatus = "USED"
	StatusExpired UserCouponStatus = "EXPIRED"
)

// UserCoupon 是某个用户持有的一张券实例。
type UserCoupon struct {
	ID         int64
	UserID     string
	CouponCode string
	Status     UserCouponStatus
	ReceivedAt time.Time
	UsedAt     time.Time
	ExpiredAt  time.Time

	TemplateID      int64
	TemplateVersion int32
}

// IsUsable 检查券是否还能参与结算。
func (uc *UserCoupon) IsUsable(now time.Time) bool {
	return uc.Status == StatusUnused && now.Before(uc.ExpiredAt)
}

// Freeze 把券置为冻结, 下单流程的中间态。
func (uc *UserCoupon) Freeze() error {
	if uc.Status != StatusUnused {
		return ErrCouponNotUsable
	}
	uc.Status = StatusFrozen
	return nil
}

// Unfreeze 回滚冻结, 订单失败时的补偿。
func (uc *UserCoupon) Unfreeze() {
	if uc.Status == StatusFrozen {
		uc.Status = StatusUnused
	}
}

// MarkUsed 把券置为终态。UNUSED 和 FROZEN 都允许直接核销,
// 调用方可能没有走冻结这一步。
func (uc *UserCoupon) MarkUsed(now time.Time) error {
	if uc.Status != StatusUnused && uc.Status != StatusFrozen {
		return ErrCouponNotUsable
	}
	uc.Status = StatusUsed
	uc.UsedAt = now
	return nil
}

// Fact 是规则引擎求值时可见的下单上下文。
type Fact map[string]interface{}
