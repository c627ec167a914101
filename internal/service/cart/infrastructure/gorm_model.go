// internal/service/cart/infrastructure/gorm_model.go
package infrastructure

import "time"

// CartHeaderModel 对应持久库 cart 表, 同步任务写入的镜像。
type CartHeaderModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	CartID     string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	OwnerID    string    `gorm:"type:varchar(64);index;not null"`
	CouponCode string    `gorm:"type:varchar(64)"`
	Discount   float64   `gorm:"type:decimal(10,2);default:0"`
	Total      float64   `gorm:"type:decimal(10,2);default:0"`
	IsActive   bool      `gorm:"not null;default:true"`
	SyncedAt   time.Time `gorm:"autoUpdateTime"`
}

func (CartHeaderModel) TableName() string { return "cart" }

// CartItemModel 对应 cart_item 表, (cart_id, product_id) 唯一。
type CartItemModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	CartID    string `gorm:"type:varchar(64);uniqueIndex:uk_cart_product;not null"`
	ProductID string `gorm:"type:varchar(64);uniqueIndex:uk_cart_product;not null"`
	Quantity  int    `gorm:"not null"`
}

func (CartItemModel) TableName() string { return "cart_item" }
