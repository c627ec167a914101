// internal/service/inventory/application/coordinator.go
package application

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/inventory/domain"
)

// casRetries 是乐观版本冲突后的最大重试次数。持有商品锁时本实例内
// 不会冲突，冲突只会来自其它实例，少量重试足够。
const casRetries = 3

// Coordinator 是库存计数的唯一变更入口。
// 每个变更都在按商品的锁内完成"读-查-写"，写入走存储层的版本化
// CAS，两层防护叠加，保证并发预留不会超卖。
type Coordinator struct {
	stocks domain.StockRepository
	ledger domain.LedgerRepository
	locker ProductLocker
	tracer trace.Tracer
}

func NewCoordinator(stocks domain.StockRepository, ledger domain.LedgerRepository, locker ProductLocker) *Coordinator {
	return &Coordinator{
		stocks: stocks,
		ledger: ledger,
		locker: locker,
		tracer: otel.Tracer("inventory-coordinator"),
	}
}

// IsInStock 判断可用量是否满足 qty。商品不存在按无货处理。
func (c *Coordinator) IsInStock(ctx context.Context, productID string, qty int) (bool, error) {
	rec, err := c.stocks.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.Available() >= qty, nil
}

// Reserve 为一笔在途订单预留 qty 件。可用量不足返回 ErrInsufficientStock。
func (c *Coordinator) Reserve(ctx context.Context, productID string, qty int, referenceID, referenceType string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return c.mutate(ctx, "Reserve", productID, func(rec *domain.StockRecord) (*domain.LedgerEntry, error) {
		if rec.Available() < qty {
			return nil, domain.ErrInsufficientStock
		}
		rec.Reserved += qty
		return &domain.LedgerEntry{
			ChangeType:    domain.ChangeReserved,
			ReferenceID:   referenceID,
			ReferenceType: referenceType,
		}, nil
	})
}

// Release 归还预留。归还量超过当前预留时只归还到零，不会变成负数。
func (c *Coordinator) Release(ctx context.Context, productID string, qty int, referenceID, referenceType string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return c.mutate(ctx, "Release", productID, func(rec *domain.StockRecord) (*domain.LedgerEntry, error) {
		released := qty
		if released > rec.Reserved {
			released = rec.Reserved
		}
		rec.Reserved -= released
		return &domain.LedgerEntry{
			ChangeType:    domain.ChangeReleaseReservation,
			ReferenceID:   referenceID,
			ReferenceType: referenceType,
		}, nil
	})
}

// ConfirmDeduction 把预留落实为实际出库：在手量减 qty，
// 预留量减去其中来自预留的部分。在手量不足时拒绝，绝不为负。
func (c *Coordinator) ConfirmDeduction(ctx context.Context, productID string, qty int, referenceID, referenceType string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return c.mutate(ctx, "ConfirmDeduction", productID, func(rec *domain.StockRecord) (*domain.LedgerEntry, error) {
		if rec.OnHand < qty {
			return nil, domain.ErrInsufficientStock
		}
		fromReserved := qty
		if fromReserved > rec.Reserved {
			fromReserved = rec.Reserved
		}
		rec.Reserved -= fromReserved
		rec.OnHand -= qty
		return &domain.LedgerEntry{
			ChangeType:    domain.ChangePurchase,
			ReferenceID:   referenceID,
			ReferenceType: referenceType,
		}, nil
	})
}

// AddStock 增加在手量。changeType 限定为入库类：Restock、Return、Initial。
func (c *Coordinator) AddStock(ctx context.Context, productID string, qty int, changeType domain.ChangeType, notes, actor string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	switch changeType {
	case domain.ChangeRestock, domain.ChangeReturn, domain.ChangeInitial:
	default:
		return fmt.Errorf("inventory: %q is not an inbound change type", changeType)
	}
	return c.mutate(ctx, "AddStock", productID, func(rec *domain.StockRecord) (*domain.LedgerEntry, error) {
		rec.OnHand += qty
		return &domain.LedgerEntry{
			ChangeType:  changeType,
			Notes:       notes,
			PerformedBy: actor,
		}, nil
	})
}

// RemoveStock 扣减未预留的在手量，用于报损等场景。
func (c *Coordinator) RemoveStock(ctx context.Context, productID string, qty int, notes, actor string) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	return c.mutate(ctx, "RemoveStock", productID, func(rec *domain.StockRecord) (*domain.LedgerEntry, error) {
		if rec.Available() < qty {
			return nil, domain.ErrInsufficientStock
		}
		rec.OnHand -= qty
		return &domain.LedgerEntry{
			ChangeType:  domain.ChangeDamage,
			Notes:       notes,
			PerformedBy: actor,
		}, nil
	})
}

// AdjustStock 把在手量直接设置为盘点结果。
// 新在手量低于当前预留时把预留钳到新值——这是沿袭下来的行为，
// 可能掩盖一笔已经超卖的订单，所以这里必须大声记录。
func (c *Coordinator) AdjustStock(ctx context.Context, productID string, newQuantity int, notes, actor string) error {
	if newQuantity < 0 {
		return domain.ErrInvalidQuantity
	}
	return c.mutate(ctx, "AdjustStock", productID, func(rec *domain.StockRecord) (*domain.LedgerEntry, error) {
		rec.OnHand = newQuantity
		if rec.Reserved > rec.OnHand {
			reservationClamps.Inc()
			logger.Ctx(ctx).Warn().
				Str("product_id", productID).
				Int("reserved", rec.Reserved).
				Int("new_on_hand", rec.OnHand).
				Msg("inventory: adjustment dropped on-hand below reserved, clamping reservation; open orders may be oversold")
			rec.Reserved = rec.OnHand
		}
		return &domain.LedgerEntry{
			ChangeType:  domain.ChangeAdjustment,
			Notes:       notes,
			PerformedBy: actor,
		}, nil
	})
}

// InitializeStock 为新商品建档并记初始入库。
func (c *Coordinator) InitializeStock(ctx context.Context, productID string, qty, threshold int, actor string) error {
	if qty < 0 || threshold < 0 {
		return domain.ErrInvalidQuantity
	}
	rec := &domain.StockRecord{ProductID: productID, LowStockThreshold: threshold}
	if err := c.stocks.Create(ctx, rec); err != nil {
		return err
	}
	if qty == 0 {
		return nil
	}
	return c.AddStock(ctx, productID, qty, domain.ChangeInitial, "initial stock", actor)
}

// LowStock 列出可用量低于水位的商品。
func (c *Coordinator) LowStock(ctx context.Context) ([]domain.StockRecord, error) {
	return c.stocks.ListBelowThreshold(ctx)
}

// History 返回某商品最近的台账行，仅供审计展示。
func (c *Coordinator) History(ctx context.Context, productID string, limit int) ([]domain.LedgerEntry, error) {
	return c.ledger.History(ctx, productID, limit)
}

// mutate 是所有变更共用的骨架：按商品加锁，读出记录，应用业务函数，
// 带版本 CAS 写回，冲突则重读重试。台账行的数量口径由这里统一补齐：
// QuantityDelta 与 ResultingQuantity 都按可用量记。
func (c *Coordinator) mutate(ctx context.Context, op, productID string, fn func(rec *domain.StockRecord) (*domain.LedgerEntry, error)) error {
	ctx, span := c.tracer.Start(ctx, "inventory."+op)
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID))

	unlock, err := c.locker.Lock(productID)
	if err != nil {
		return fmt.Errorf("inventory: lock product %s: %w", productID, err)
	}
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		rec, err := c.stocks.Get(ctx, productID)
		if err != nil {
			return err
		}
		before := rec.Available()

		entry, err := fn(rec)
		if err != nil {
			return err
		}
		entry.ProductID = productID
		entry.QuantityDelta = rec.Available() - before
		entry.ResultingQuantity = rec.Available()

		if err := c.stocks.ApplyChange(ctx, rec, entry); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				casConflicts.Inc()
				lastErr = err
				continue
			}
			return err
		}

		if rec.BelowThreshold() {
			lowStockEvents.WithLabelValues(productID).Inc()
			logger.Ctx(ctx).Warn().
				Str("product_id", productID).
				Int("available", rec.Available()).
				Int("threshold", rec.LowStockThreshold).
				Msg("inventory: product below low stock threshold")
		}
		return nil
	}
	return fmt.Errorf("inventory: %s on %s gave up after %d attempts: %w", op, productID, casRetries, lastErr)
}
