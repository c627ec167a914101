// internal/service/inventory/domain/repository.go
package domain

import "context"

// StockRepository 是库存记录的持久化端口。
type StockRepository interface {
	// Get 按商品取库存记录，不存在返回 ErrProductNotFound。
	Get(ctx context.Context, productID string) (*StockRecord, error)

	// Create 建立一条新的库存记录。
	Create(ctx context.Context, rec *StockRecord) error

	// ApplyChange 在一个事务里完成版本化的计数更新和台账追加。
	// 版本检查失败返回 ErrVersionConflict，此时计数和台账都不落盘。
	// 成功后 rec.Version 已递增。
	ApplyChange(ctx context.Context, rec *StockRecord, entry *LedgerEntry) error

	// ListBelowThreshold 列出可用量低于各自水位的记录。
	ListBelowThreshold(ctx context.Context) ([]StockRecord, error)
}

// LedgerRepository 只提供审计读取，台账的写入走 ApplyChange。
type LedgerRepository interface {
	History(ctx context.Context, productID string, limit int) ([]LedgerEntry, error)
}
