// internal/service/cart/domain/cart.go
package domain

import (
	"errors"
	"time"
)

var (
	ErrCartNotFound       = errors.New("cart: not found")
	ErrCartInactive       = errors.New("cart: already checked out")
	ErrCouponNotFound     = errors.New("cart: coupon does not exist")
	ErrCouponAlreadyUsed  = errors.New("cart: coupon already used by this user")
	ErrCouponThreshold    = errors.New("cart: order total below coupon minimum")
	ErrUserNotFound       = errors.New("cart: user does not exist")
	ErrEmptyCart          = errors.New("cart: no items to check out")
	ErrInvalidQuantity    = errors.New("cart: quantity must be positive")
	ErrItemNotEnoughStock = errors.New("cart: not enough stock for item")
)

// CartHeader 是活跃购物车的头信息。缓存是它的第一存储，
// 后台同步任务再把它镜像进持久库。
type CartHeader struct {
	CartID     string    `json:"cart_id"`
	OwnerID    string    `json:"owner_id"`
	CouponCode string    `json:"coupon_code,omitempty"`
	Discount   float64   `json:"discount"`
	Total      float64   `json:"total"`
	IsActive   bool      `json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CartItem 是 (cartID, productID) 到数量的一行，数量在缓存里
// 以原子计数器维护，不做读-改-写。
type CartItem struct {
	CartID    string
	ProductID string
	Quantity  int
}
