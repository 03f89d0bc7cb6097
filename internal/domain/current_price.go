package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrentPrice is the materialized latest-price projection: exactly one
// row per (product, store). It is only ever written inside RecordPrice's
// transaction, guarded by the precedence predicate (newer observed_at
// wins; on an exact timestamp tie the lower amount wins).
type CurrentPrice struct {
	ProductID  uuid.UUID       `gorm:"type:uuid;primaryKey;column:product_id" json:"product_id"`
	StoreID    uuid.UUID       `gorm:"type:uuid;primaryKey;column:store_id" json:"store_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null;column:amount" json:"amount"`
	Currency   string          `gorm:"not null;default:'EUR';column:currency" json:"currency"`
	ObservedAt time.Time       `gorm:"not null;column:observed_at" json:"observed_at"`
	UpdatedAt  time.Time       `gorm:"not null;column:updated_at" json:"updated_at"`
}

func (CurrentPrice) TableName() string {
	return "current_prices"
}
