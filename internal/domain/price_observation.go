package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceObservation is one scraped price point. Rows are append-only:
// nothing in the core ever updates or deletes them.
type PriceObservation struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_obs_product_store;column:product_id" json:"product_id"`
	StoreID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_obs_product_store;column:store_id" json:"store_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null;column:amount" json:"amount"`
	Currency   string          `gorm:"not null;default:'EUR';column:currency" json:"currency"`
	CapturedAt time.Time       `gorm:"not null;index;column:captured_at" json:"captured_at"`
	PriceType  *string         `gorm:"column:price_type" json:"price_type,omitempty"`
	SourceURL  *string         `gorm:"column:source_url" json:"source_url,omitempty"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
}

func (PriceObservation) TableName() string {
	return "price_observations"
}
