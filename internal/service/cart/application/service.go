// internal/service/cart/application/service.go
package application

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/cart/domain"
	"storefront/internal/service/cart/port"
)

// CartService 是购物车的应用层入口。缓存是第一存储,
// 结算时才触碰远端服务和库存协调器。
type CartService struct {
	cache     domain.CartCache
	coupons   port.CouponService
	users     port.UserService
	stock     port.StockService
	inventory port.InventoryCoordinator
	tracer    trace.Tracer
}

func NewCartService(cache domain.CartCache, coupons port.CouponService, users port.UserService, stock port.StockService, inventory port.InventoryCoordinator) *CartService {
	return &CartService{
		cache:     cache,
		coupons:   coupons,
		users:     users,
		stock:     stock,
		inventory: inventory,
		tracer:    otel.Tracer("cart-service"),
	}
}

// CreateCart 创建一个空购物车并登记进活跃索引。
func (s *CartService) CreateCart(ctx context.Context, ownerID string) (*domain.CartHeader, error) {
	header := &domain.CartHeader{
		CartID:   uuid.New().String(),
		OwnerID:  ownerID,
		IsActive: true,
	}
	if err := s.cache.SaveHeader(ctx, header); err != nil {
		return nil, err
	}
	if err := s.cache.AddActive(ctx, header.CartID); err != nil {
		return nil, err
	}
	return header, nil
}

// GetCart 返回头信息和商品行。
func (s *CartService) GetCart(ctx context.Context, cartID string) (*domain.CartHeader, map[string]int, error) {
	header, err := s.cache.GetHeader(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.cache.Items(ctx, cartID)
	if err != nil {
		return nil, nil, err
	}
	return header, items, nil
}

// AddItem 给购物车加 qty 件商品。数量走缓存的原子计数器,
// 并发加购不会互相覆盖。
func (s *CartService) AddItem(ctx context.Context, cartID, productID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	header, err := s.cache.GetHeader(ctx, cartID)
	if err != nil {
		return 0, err
	}
	if !header.IsActive {
		return 0, domain.ErrCartInactive
	}
	newQty, err := s.cache.IncrementItem(ctx, cartID, productID, int64(qty))
	if err != nil {
		return 0, err
	}
	return int(newQty), nil
}

// RemoveItem 减 qty 件, 减到 0 该商品行消失。
func (s *CartService) RemoveItem(ctx context.Context, cartID, productID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	if _, err := s.cache.GetHeader(ctx, cartID); err != nil {
		return 0, err
	}
	newQty, err := s.cache.DecrementItem(ctx, cartID, productID, int64(qty))
	if err != nil {
		return 0, err
	}
	return int(newQty), nil
}

// UpdateTotal 由定价方写入购物车金额, 供券门槛校验使用。
func (s *CartService) UpdateTotal(ctx context.Context, cartID string, total float64) error {
	header, err := s.cache.GetHeader(ctx, cartID)
	if err != nil {
		return err
	}
	header.Total = total
	return s.cache.SaveHeader(ctx, header)
}

// ApplyCoupon 校验券码后把折扣落到头信息上。
// 两次远程校验: 券存在且未被该用户用过。
func (s *CartService) ApplyCoupon(ctx context.Context, cartID, userID, code string) error {
	ctx, span := s.tracer.Start(ctx, "CartService.ApplyCoupon")
	defer span.End()
	span.SetAttributes(attribute.String("cart.id", cartID), attribute.String("coupon.code", code))

	header, err := s.cache.GetHeader(ctx, cartID)
	if err != nil {
		return err
	}
	if !header.IsActive {
		return domain.ErrCartInactive
	}

	coupon, err := s.coupons.CheckCoupon(ctx, code)
	if err != nil {
		return err
	}
	if !coupon.Exists {
		return domain.ErrCouponNotFound
	}
	if header.Total < coupon.MinOrderAmount {
		return domain.ErrCouponThreshold
	}
	used, err := s.coupons.CheckUserCoupon(ctx, userID, code)
	if err != nil {
		return err
	}
	if used.Used {
		return domain.ErrCouponAlreadyUsed
	}

	header.CouponCode = code
	header.Discount = coupon.Discount
	return s.cache.SaveHeader(ctx, header)
}

// Checkout 结算一个购物车。流程:
// 1. 校验用户存在
// 2. 逐商品预检可用量并预留
// 3. 全部预留成功后确认扣减, 否则释放已预留部分
// 4. 用掉的券置为不可再用, 购物车转为非活跃
// 返回这笔结算的引用号, 库存台账以它追溯。
func (s *CartService) Checkout(ctx context.Context, cartID, userID string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "CartService.Checkout")
	defer span.End()
	span.SetAttributes(attribute.String("cart.id", cartID), attribute.String("user.id", userID))

	header, err := s.cache.GetHeader(ctx, cartID)
	if err != nil {
		return "", err
	}
	if !header.IsActive {
		return "", domain.ErrCartInactive
	}

	// 1. 用户存在性 RPC 校验
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		checkoutFailures.WithLabelValues("check_user").Inc()
		return "", err
	}
	if !exists {
		return "", domain.ErrUserNotFound
	}

	items, err := s.cache.Items(ctx, cartID)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", domain.ErrEmptyCart
	}

	referenceID := uuid.New().String()

	// 2. 预检 + 预留。预留失败要把已占住的份额放回去。
	reserved := make([]reservedItem, 0, len(items))
	for productID, qty := range items {
		ok, err := s.stock.IsAvailable(ctx, productID, qty)
		if err == nil && !ok {
			err = domain.ErrItemNotEnoughStock
		}
		if err == nil {
			err = s.inventory.Reserve(ctx, productID, qty, referenceID, "checkout")
		}
		if err != nil {
			checkoutFailures.WithLabelValues("reserve").Inc()
			s.compensate(ctx, reserved, referenceID)
			logger.Ctx(ctx).Warn().Err(err).
				Str("cart_id", cartID).Str("product_id", productID).
				Msg("checkout aborted, reservations released")
			return "", err
		}
		reserved = append(reserved, reservedItem{productID: productID, qty: qty})
	}

	// 3. 确认扣减
	for _, it := range reserved {
		if err := s.inventory.ConfirmDeduction(ctx, it.productID, it.qty, referenceID, "checkout"); err != nil {
			checkoutFailures.WithLabelValues("confirm").Inc()
			return "", err
		}
	}

	// 4. 核销券 + 关停购物车
	if header.CouponCode != "" {
		if err := s.coupons.DisableUserCoupon(ctx, userID, header.CouponCode); err != nil {
			checkoutFailures.WithLabelValues("disable_coupon").Inc()
			return "", err
		}
	}
	header.IsActive = false
	if err := s.cache.SaveHeader(ctx, header); err != nil {
		return "", err
	}
	// 商品已经成交, 清掉缓存里的计数器。清不掉不影响结果,
	// 剩下的会随 TTL 过期。
	if err := s.cache.DeleteItems(ctx, cartID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("cart_id", cartID).Msg("failed to clear cart items after checkout")
	}
	return referenceID, nil
}

type reservedItem struct {
	productID string
	qty       int
}

// compensate 释放已预留的份额。释放失败只记日志,
// 预留最终会由库存侧的人工调账兜底。
func (s *CartService) compensate(ctx context.Context, reserved []reservedItem, referenceID string) {
	for _, it := range reserved {
		if err := s.inventory.Release(ctx, it.productID, it.qty, referenceID, "checkout"); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("product_id", it.productID).Int("qty", it.qty).
				Msg("failed to release reservation during checkout compensation")
		}
	}
}
