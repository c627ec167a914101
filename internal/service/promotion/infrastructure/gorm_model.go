// internal/service/promotion/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"storefront/internal/service/promotion/domain"
)

// CouponTemplateModel 对应 coupon_template 表。
type CouponTemplateModel struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Code            string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Version         int32  `gorm:"not null;default:1"`
	Name            string `gorm:"type:varchar(128)"`
	Type            string `gorm:"type:varchar(32);not null"`
	DiscountValue   float64 `gorm:"type:decimal(10,2)"`
	MinOrderAmount  float64 `gorm:"type:decimal(10,2);default:0"`
	EligibilityRule string  `gorm:"type:text"`
	ValidFrom       time.Time
	ValidTo         time.Time
	Active          bool `gorm:"not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (CouponTemplateModel) TableName() string { return "coupon_template" }

// UserCouponModel 对应 user_coupon 表, (user_id, coupon_code) 唯一。
type UserCouponModel struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	UserID          string `gorm:"type:varchar(64);uniqueIndex:uk_user_coupon;not null"`
	CouponCode      string `gorm:"type:varchar(64);uniqueIndex:uk_user_coupon;not null"`
	Status          string `gorm:"type:varchar(16);not null;default:'UNUSED'"`
	ReceivedAt      time.Time
	UsedAt          time.Time `gorm:"default:null"`
	ExpiredAt       time.Time
	TemplateID      int64
	TemplateVersion int32
}

func (UserCouponModel) TableName() string { return "user_coupon" }

func toDomainTemplate(m *CouponTemplateModel) *domain.CouponTemplate {
	return &domain.CouponTemplate{
		ID:              m.ID,
		Code:            m.Code,
		Version:         m.Version,
		Name:            m.Name,
		Type:            domain.CouponType(m.Type),
		DiscountValue:   m.DiscountValue,
		MinOrderAmount:  m.MinOrderAmount,
		EligibilityRule: m.EligibilityRule,
		ValidFrom:       m.ValidFrom,
		ValidTo:         m.ValidTo,
		Active:          m.Active,
	}
}

func toDomainUserCoupon(m *UserCouponModel) *domain.UserCoupon {
	return &domain.UserCoupon{
		ID:              m.ID,
		UserID:          m.UserID,
		CouponCode:      m.CouponCode,
		Status:          domain.UserCouponStatus(m.Status),
		ReceivedAt:      m.ReceivedAt,
		UsedAt:          m.UsedAt,
		ExpiredAt:       m.ExpiredAt,
		TemplateID:      m.TemplateID,
		TemplateVersion: m.TemplateVersion,
	}
}
