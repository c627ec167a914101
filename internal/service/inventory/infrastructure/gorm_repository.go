// internal/service/inventory/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"storefront/internal/service/inventory/domain"
)

// GormStockRepository 是 domain.StockRepository 的 GORM 实现。
type GormStockRepository struct {
	db *gorm.DB
}

func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

func (r *GormStockRepository) Get(ctx context.Context, productID string) (*domain.StockRecord, error) {
	var model StockRecordModel
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, pkgerrors.Wrap(err, "query stock record")
	}
	return toDomainStock(&model), nil
}

func (r *GormStockRepository) Create(ctx context.Context, rec *domain.StockRecord) error {
	model := StockRecordModel{
		ProductID:         rec.ProductID,
		OnHand:            rec.OnHand,
		Reserved:          rec.Reserved,
		LowStockThreshold: rec.LowStockThreshold,
		Version:           0,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return pkgerrors.Wrap(err, "create stock record")
	}
	rec.Version = 0
	return nil
}

// ApplyChange 在同一事务里做两件事：带版本条件的计数更新，和台账追加。
// WHERE version = ? 没有命中任何行说明别的实例先写进去了，
// 返回 ErrVersionConflict 让协调器重读重试。
func (r *GormStockRepository) ApplyChange(ctx context.Context, rec *domain.StockRecord, entry *domain.LedgerEntry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&StockRecordModel{}).
			Where("product_id = ? AND version = ?", rec.ProductID, rec.Version).
			Updates(map[string]interface{}{
				"on_hand":             rec.OnHand,
				"reserved":            rec.Reserved,
				"low_stock_threshold": rec.LowStockThreshold,
				"version":             rec.Version + 1,
			})
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "update stock record")
		}
		if res.RowsAffected == 0 {
			return domain.ErrVersionConflict
		}

		ledger := InventoryLedgerModel{
			ProductID:         entry.ProductID,
			ChangeType:        string(entry.ChangeType),
			QuantityDelta:     entry.QuantityDelta,
			ResultingQuantity: entry.ResultingQuantity,
			ReferenceID:       entry.ReferenceID,
			ReferenceType:     entry.ReferenceType,
			Notes:             entry.Notes,
			PerformedBy:       entry.PerformedBy,
		}
		if err := tx.Create(&ledger).Error; err != nil {
			return pkgerrors.Wrap(err, "append ledger entry")
		}
		return nil
	})
	if err != nil {
		return err
	}
	rec.Version++
	return nil
}

func (r *GormStockRepository) ListBelowThreshold(ctx context.Context) ([]domain.StockRecord, error) {
	var models []StockRecordModel
	err := r.db.WithContext(ctx).
		Where("on_hand - reserved < low_stock_threshold").
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list low stock records")
	}
	out := make([]domain.StockRecord, 0, len(models))
	for i := range models {
		out = append(out, *toDomainStock(&models[i]))
	}
	return out, nil
}

// GormLedgerRepository 只读台账，供审计查询。
type GormLedgerRepository struct {
	db *gorm.DB
}

func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

func (r *GormLedgerRepository) History(ctx context.Context, productID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []InventoryLedgerModel
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query ledger history")
	}
	out := make([]domain.LedgerEntry, 0, len(models))
	for i := range models {
		out = append(out, toDomainLedger(&models[i]))
	}
	return out, nil
}
