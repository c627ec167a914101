// internal/service/cart/infrastructure/gorm_store.go
package infrastructure

import (
	"context"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/service/cart/domain"
)

// GormCartStore 把缓存快照整体落进 MySQL。对账写是覆盖式的:
// header 走 upsert, 商品行先清后插, 缓存是唯一事实来源。
type GormCartStore struct {
	db *gorm.DB
}

func NewGormCartStore(db *gorm.DB) *GormCartStore {
	return &GormCartStore{db: db}
}

func (s *GormCartStore) Upsert(ctx context.Context, header *domain.CartHeader, items map[string]int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := CartHeaderModel{
			CartID:     header.CartID,
			OwnerID:    header.OwnerID,
			CouponCode: header.CouponCode,
			Discount:   header.Discount,
			Total:      header.Total,
			IsActive:   header.IsActive,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner_id", "coupon_code", "discount", "total", "is_active", "synced_at"}),
		}).Create(&model).Error; err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", header.CartID).Delete(&CartItemModel{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]CartItemModel, 0, len(items))
		for productID, qty := range items {
			rows = append(rows, CartItemModel{CartID: header.CartID, ProductID: productID, Quantity: qty})
		}
		return tx.Create(&rows).Error
	})
	return pkgerrors.Wrapf(err, "upsert cart %s", header.CartID)
}

var _ domain.CartStore = (*GormCartStore)(nil)
