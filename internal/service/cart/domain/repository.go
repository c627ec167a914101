// internal/service/cart/domain/repository.go
package domain

import "context"

// CartCache 是购物车的热路径存储(Redis)。数量只能经由
// IncrementItem/DecrementItem 变更, 保证并发加购不丢更新。
type CartCache interface {
	SaveHeader(ctx context.Context, header *CartHeader) error
	// GetHeader 未命中返回 ErrCartNotFound。
	GetHeader(ctx context.Context, cartID string) (*CartHeader, error)
	// IncrementItem 原子加 delta, 返回新数量。
	IncrementItem(ctx context.Context, cartID, productID string, delta int64) (int64, error)
	// DecrementItem 原子减 delta, 减到 0 及以下时删除该商品行。
	DecrementItem(ctx context.Context, cartID, productID string, delta int64) (int64, error)
	Items(ctx context.Context, cartID string) (map[string]int, error)
	// DeleteItems 整体清空商品 hash, 结算完成后调用。
	DeleteItems(ctx context.Context, cartID string) error

	AddActive(ctx context.Context, cartID string) error
	RemoveActive(ctx context.Context, cartID string) error
	ActiveCartIDs(ctx context.Context) ([]string, error)
}

// CartStore 是同步任务写入的持久存储(MySQL)。Upsert 以缓存快照
// 整体覆盖一个购物车, 对账语义允许重复写同样内容。
type CartStore interface {
	Upsert(ctx context.Context, header *CartHeader, items map[string]int) error
}
