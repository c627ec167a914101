// internal/service/inventory/infrastructure/gorm_model.go
package infrastructure

import (
	"time"

	"storefront/internal/service/inventory/domain"
)

// StockRecordModel 对应 stock_record 表。
type StockRecordModel struct {
	ID                uint   `gorm:"primaryKey"`
	ProductID         string `gorm:"uniqueIndex;size:64"`
	OnHand            int
	Reserved          int
	LowStockThreshold int
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (StockRecordModel) TableName() string {
	return "stock_record"
}

// InventoryLedgerModel 对应 inventory_ledger 表，只插入不更新。
type InventoryLedgerModel struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	ProductID         string `gorm:"index;size:64"`
	ChangeType        string `gorm:"size:32"`
	QuantityDelta     int
	ResultingQuantity int
	ReferenceID       string `gorm:"size:64"`
	ReferenceType     string `gorm:"size:32"`
	Notes             string `gorm:"type:text"`
	PerformedBy       string `gorm:"size:64"`
	CreatedAt         time.Time
}

func (InventoryLedgerModel) TableName() string {
	return "inventory_ledger"
}

func toDomainStock(m *StockRecordModel) *domain.StockRecord {
	return &domain.StockRecord{
		ProductID:         m.ProductID,
		OnHand:            m.OnHand,
		Reserved:          m.Reserved,
		LowStockThreshold: m.LowStockThreshold,
		Version:           m.Version,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toDomainLedger(m *InventoryLedgerModel) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:                m.ID,
		ProductID:         m.ProductID,
		ChangeType:        domain.ChangeType(m.ChangeType),
		QuantityDelta:     m.QuantityDelta,
		ResultingQuantity: m.ResultingQuantity,
		ReferenceID:       m.ReferenceID,
		ReferenceType:     m.ReferenceType,
		Notes:             m.Notes,
		PerformedBy:       m.PerformedBy,
		CreatedAt:         m.CreatedAt,
	}
}
