// internal/service/promotion/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"storefront/internal/service/promotion/domain"
)

// GormCouponRepository 是 CouponRepository 的 GORM 实现。
type GormCouponRepository struct {
	db *gorm.DB
}

func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

func (r *GormCouponRepository) FindTemplateByCode(ctx context.Context, code string) (*domain.CouponTemplate, error) {
	var model CouponTemplateModel
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, pkgerrors.Wrapf(err, "find coupon template %s", code)
	}
	return toDomainTemplate(&model), nil
}

func (r *GormCouponRepository) FindUserCoupon(ctx context.Context, userID, code string) (*domain.UserCoupon, error) {
	var model UserCouponModel
	err := r.db.WithContext(ctx).Where("user_id = ? AND coupon_code = ?", userID, code).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserCouponNotFound
		}
		return nil, pkgerrors.Wrapf(err, "find user coupon %s/%s", userID, code)
	}
	return toDomainUserCoupon(&model), nil
}

// SaveUserCoupon 只回写状态机字段, 其余列在领取时就定死了。
func (r *GormCouponRepository) SaveUserCoupon(ctx context.Context, coupon *domain.UserCoupon) error {
	err := r.db.WithContext(ctx).Model(&UserCouponModel{}).
		Where("id = ?", coupon.ID).
		Updates(map[string]interface{}{
			"status":  string(coupon.Status),
			"used_at": coupon.UsedAt,
		}).Error
	return pkgerrors.Wrapf(err, "save user coupon %d", coupon.ID)
}

func (r *GormCouponRepository) GrantCoupon(ctx context.Context, coupon *domain.UserCoupon) error {
	model := UserCouponModel{
		UserID:          coupon.UserID,
		CouponCode:      coupon.CouponCode,
		Status:          string(coupon.Status),
		ReceivedAt:      coupon.ReceivedAt,
		ExpiredAt:       coupon.ExpiredAt,
		TemplateID:      coupon.TemplateID,
		TemplateVersion: coupon.TemplateVersion,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return pkgerrors.Wrapf(err, "grant coupon %s to user %s", coupon.CouponCode, coupon.UserID)
	}
	coupon.ID = model.ID
	return nil
}

var _ domain.CouponRepository = (*GormCouponRepository)(nil)
