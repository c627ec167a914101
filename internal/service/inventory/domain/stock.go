// internal/service/inventory/domain/stock.go
package domain

import (
	"errors"
	"time"
)

// ChangeType 标识一次库存变更的业务原因，写入台账后不可变。
type ChangeType string

const (
	ChangePurchase           ChangeType = "Purchase"
	ChangeReturn             ChangeType = "Return"
	ChangeAdjustment         ChangeType = "StockAdjustment"
	ChangeInitial            ChangeType = "Initial"
	ChangeReserved           ChangeType = "Reserved"
	ChangeReleaseReservation ChangeType = "ReleaseReservation"
	ChangeDamage             ChangeType = "Damage"
	ChangeRestock            ChangeType = "Restock"
)

var (
	ErrProductNotFound   = errors.New("inventory: product not found")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be positive")
	// ErrVersionConflict 表示乐观锁版本检查失败，调用方应重读后重试。
	ErrVersionConflict = errors.New("inventory: concurrent modification")
)

// StockRecord 是单个商品的库存计数。
// 不变式：任何成功的变更之后 0 <= Reserved <= OnHand。
// OnHand 含已预留部分；可新预留的量是 Available()。
type StockRecord struct {
	ProductID         string
	OnHand            int
	Reserved          int
	LowStockThreshold int

	// Version 用于存储层的乐观并发检查，每次成功变更加一。
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Available 返回还能被新预留的数量，永远非负。
func (s *StockRecord) Available() int {
	return s.OnHand - s.Reserved
}

// BelowThreshold 判断可用量是否已跌破低库存水位。
func (s *StockRecord) BelowThreshold() bool {
	return s.Available() < s.LowStockThreshold
}

// LedgerEntry 是只追加的库存台账行。每次变更写一行，写入后不可修改，
// 只用于审计和历史追溯，绝不回读推导库存状态。
type LedgerEntry struct {
	ID                int64
	ProductID         string
	ChangeType        ChangeType
	QuantityDelta     int
	ResultingQuantity int // 变更后的可用量
	ReferenceID       string
	ReferenceType     string
	Notes             string
	PerformedBy       string
	CreatedAt         time.Time
}
